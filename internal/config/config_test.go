package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/alloc"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "heapctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoad_OverridesOnlyGivenKeys(t *testing.T) {
	path := writeConfig(t, `
[heap]
reserve_mb = 64

[logging]
format = "json"

[stress]
policy = "shared"
workers = 2
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 64, c.Heap.ReserveMB)
	assert.Equal(t, Default().Heap.CommitChunkKB, c.Heap.CommitChunkKB)
	assert.Equal(t, FormatJSON, c.Logging.Format)
	assert.Equal(t, "shared", c.Stress.Policy)
	assert.Equal(t, 2, c.Stress.Workers)
	assert.Equal(t, Default().Stress.MaxSize, c.Stress.MaxSize)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "[heap\nreserve_mb = 1", "failed to decode"},
		{"unknown key", "[heap]\nreserve_gb = 1", "unknown config key"},
		{"bad format", "[logging]\nformat = \"xml\"", "logging.format"},
		{"bad policy", "[stress]\npolicy = \"global\"", "invalid policy"},
		{"zero reserve", "[heap]\nreserve_mb = 0", "reserve_mb"},
		{"chunk exceeds reserve", "[heap]\nreserve_mb = 1\ncommit_chunk_kb = 2048", "exceeds"},
		{"free ratio", "[stress]\nfree_ratio = 1.0", "free_ratio"},
		{"metrics without address", "[metrics]\nenabled = true\naddress = \"\"", "metrics.address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAlloc(t *testing.T) {
	c := Default()
	c.Heap.ReserveMB = 16
	c.Heap.CommitChunkKB = 256

	ac := c.Alloc()

	assert.Equal(t, uint64(16<<20), ac.ReserveBytes)
	assert.Equal(t, uint64(256<<10), ac.CommitChunkBytes)
	assert.Nil(t, ac.Grower)

	h, err := alloc.New(ac)
	require.NoError(t, err)
	defer h.Close()
	assert.NotNil(t, h.Allocate(8))
}

func TestEncode_RoundTrips(t *testing.T) {
	c := Default()
	c.Stress.Seed = 99

	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf))

	var back Config
	_, err := toml.Decode(buf.String(), &back)
	require.NoError(t, err)
	assert.Equal(t, *c, back)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("shared")
	require.NoError(t, err)
	assert.Equal(t, alloc.PolicyShared, p)

	p, err = ParsePolicy("local")
	require.NoError(t, err)
	assert.Equal(t, alloc.PolicyLocal, p)

	_, err = ParsePolicy("")
	assert.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	saved := log.Logger
	t.Cleanup(func() { log.Logger = saved })

	var buf bytes.Buffer
	l := SetupLogging(LoggingConfiguration{Format: FormatJSON}, &buf)
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())

	log.Debug().Msg("hidden")
	log.Info().Str("k", "v").Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"k":"v"`)

	buf.Reset()
	l = SetupLogging(LoggingConfiguration{Verbose: true, Format: FormatConsole}, &buf)
	assert.Equal(t, zerolog.DebugLevel, l.GetLevel())
	log.Debug().Msg("now visible")
	assert.Contains(t, buf.String(), "now visible")
}
