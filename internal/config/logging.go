package config

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogging installs the global zerolog logger described by c.
// Console output goes to w (stderr when nil); JSON goes to w as-is.
func SetupLogging(c LoggingConfiguration, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	writer := w
	if c.Format != FormatJSON {
		writer = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	gLog := zerolog.New(writer).
		With().
		Timestamp().
		Logger()

	if c.Verbose {
		log.Logger = gLog.Level(zerolog.DebugLevel)
	} else {
		log.Logger = gLog.Level(zerolog.InfoLevel)
	}
	return log.Logger
}
