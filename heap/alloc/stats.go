package alloc

import "sync/atomic"

// counters accumulates per-policy statistics. Fields are atomics so that
// telemetry can read a local arena's numbers while its owner is running.
type counters struct {
	allocations      atomic.Uint64
	exactFits        atomic.Uint64
	wholeFits        atomic.Uint64
	splits           atomic.Uint64
	growths          atomic.Uint64
	grownBytes       atomic.Uint64
	releases         atomic.Uint64
	coalesceBackward atomic.Uint64
	coalesceForward  atomic.Uint64

	liveBlocks atomic.Int64
	liveBytes  atomic.Int64
	freeBlocks atomic.Int64
	freeBytes  atomic.Int64
}

// Stats is a point-in-time view of allocator activity.
type Stats struct {
	Allocations      uint64 `json:"allocations"`       // Successful non-empty allocations
	ExactFits        uint64 `json:"exact_fits"`        // Satisfied by a free block of exactly the requested size
	WholeFits        uint64 `json:"whole_fits"`        // Satisfied by a larger free block too small to split
	Splits           uint64 `json:"splits"`            // Satisfied by splitting a larger free block
	Growths          uint64 `json:"growths"`           // Satisfied by extending the heap
	GrownBytes       uint64 `json:"grown_bytes"`       // Bytes added to the heap, headers included
	Releases         uint64 `json:"releases"`          // Non-nil releases
	CoalesceBackward uint64 `json:"coalesce_backward"` // Releases merged into the preceding free block
	CoalesceForward  uint64 `json:"coalesce_forward"`  // Releases that absorbed the following free block

	LiveBlocks int64 `json:"live_blocks"` // Blocks currently held by callers
	LiveBytes  int64 `json:"live_bytes"`  // Payload capacity currently held by callers
	FreeBlocks int64 `json:"free_blocks"` // Blocks on the free list(s)
	FreeBytes  int64 `json:"free_bytes"`  // Payload capacity on the free list(s)

	HeapBytes   uint64 `json:"heap_bytes"`   // Current heap extent
	LocalArenas int    `json:"local_arenas"` // Local arenas created from the heap
}

func (c *counters) snapshot() Stats {
	return Stats{
		Allocations:      c.allocations.Load(),
		ExactFits:        c.exactFits.Load(),
		WholeFits:        c.wholeFits.Load(),
		Splits:           c.splits.Load(),
		Growths:          c.growths.Load(),
		GrownBytes:       c.grownBytes.Load(),
		Releases:         c.releases.Load(),
		CoalesceBackward: c.coalesceBackward.Load(),
		CoalesceForward:  c.coalesceForward.Load(),
		LiveBlocks:       c.liveBlocks.Load(),
		LiveBytes:        c.liveBytes.Load(),
		FreeBlocks:       c.freeBlocks.Load(),
		FreeBytes:        c.freeBytes.Load(),
	}
}

// Add accumulates the counters of o into s. HeapBytes and LocalArenas are left alone.
func (s *Stats) Add(o Stats) {
	s.Allocations += o.Allocations
	s.ExactFits += o.ExactFits
	s.WholeFits += o.WholeFits
	s.Splits += o.Splits
	s.Growths += o.Growths
	s.GrownBytes += o.GrownBytes
	s.Releases += o.Releases
	s.CoalesceBackward += o.CoalesceBackward
	s.CoalesceForward += o.CoalesceForward
	s.LiveBlocks += o.LiveBlocks
	s.LiveBytes += o.LiveBytes
	s.FreeBlocks += o.FreeBlocks
	s.FreeBytes += o.FreeBytes
}
