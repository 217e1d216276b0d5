package alloc

import (
	"github.com/rs/zerolog/log"
)

// fatal reports an unrecoverable allocator error and terminates the process.
//
// log.Fatal exits with status 1 even when the global level filters the event out.
func fatal(err error, p Policy, r blockRef, size uint64) {
	ev := log.Fatal().Err(err).Str("component", "alloc").Stringer("policy", p)
	if r != noBlock {
		ev = ev.Uint64("offset", uint64(r))
	}
	ev.Uint64("size", size).Msg("allocator invariant violated, terminating")
}
