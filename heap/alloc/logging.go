package alloc

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Runtime debug flag for allocator event logging - controlled by HEAPKIT_LOG_ALLOC env var.
var logAlloc = os.Getenv("HEAPKIT_LOG_ALLOC") != ""

// debugEvent returns a debug event tagged with the policy, or nil when
// allocator logging is off. zerolog treats a nil event as disabled.
func debugEvent(p Policy) *zerolog.Event {
	if !logAlloc {
		return nil
	}
	return log.Debug().Str("component", "alloc").Stringer("policy", p)
}
