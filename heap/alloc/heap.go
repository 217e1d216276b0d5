package alloc

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/joshuapare/heapkit/internal/vmem"
)

// Heap is a best-fit allocator over one contiguous, growable region.
//
// The Heap methods use the shared policy: every call holds the heap mutex for
// its whole duration, growth included. Local arenas created with NewLocal draw
// from the same region but keep their own free lists.
type Heap struct {
	mu sync.Mutex

	grower Grower
	region *vmem.Region // Owned reservation; nil when Config.Grower was supplied
	bs     blocks

	shared      freeList
	sharedStats counters

	locals    *xsync.MapOf[uint64, *Local]
	nextLocal atomic.Uint64

	// Test hook: called with the byte count before every heap extension (nil in production)
	onGrow func(uint64)
}

// New creates an empty heap. A nil cfg uses DefaultConfig.
func New(cfg *Config) (*Heap, error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}

	h := &Heap{
		shared: newFreeList(),
		locals: xsync.NewMapOf[uint64, *Local](),
	}

	if cfg.Grower != nil {
		h.grower = cfg.Grower
	} else {
		region, err := vmem.Reserve(cfg.ReserveBytes, cfg.CommitChunkBytes)
		if err != nil {
			return nil, fmt.Errorf("alloc: create heap: %w", err)
		}
		h.region = region
		h.grower = region
	}
	h.bs = blocks(h.grower.Bytes())
	return h, nil
}

// Allocate returns a pointer to at least size bytes of payload, or nil when
// size is not positive. The payload is 8-byte aligned and its contents are
// unspecified.
func (h *Heap) Allocate(size int) unsafe.Pointer {
	need := roundSize(size)
	if need == 0 {
		return nil
	}
	h.mu.Lock()
	r := h.allocate(sharedPolicy{h}, need)
	h.mu.Unlock()
	return pointerAt(h.bs, r)
}

// Release returns p to the shared free list. p must come from Allocate on this
// Heap. Releasing nil is a no-op; releasing twice terminates the process.
func (h *Heap) Release(p unsafe.Pointer) {
	if p == nil {
		return
	}
	r := h.lookup(PolicyShared, p)
	h.mu.Lock()
	h.release(sharedPolicy{h}, r)
	h.mu.Unlock()
}

// AllocateBytes is Allocate returning the payload as a slice of length size.
// The capacity is the block's full payload capacity.
func (h *Heap) AllocateBytes(size int) []byte {
	need := roundSize(size)
	if need == 0 {
		return nil
	}
	h.mu.Lock()
	r := h.allocate(sharedPolicy{h}, need)
	h.mu.Unlock()
	return h.bs.payload(r, uint64(size))
}

// ReleaseBytes releases a slice obtained from AllocateBytes. The slice must
// start where the allocation started; its length does not matter.
func (h *Heap) ReleaseBytes(b []byte) {
	h.Release(sliceData(b))
}

// UsableSize returns the payload capacity of the live allocation at p.
func (h *Heap) UsableSize(p unsafe.Pointer) int {
	if p == nil {
		return 0
	}
	return int(h.bs.size(h.lookup(PolicyShared, p)))
}

// lookup converts a caller pointer to its block, terminating the process if p
// cannot be a payload of this heap.
func (h *Heap) lookup(pol Policy, p unsafe.Pointer) blockRef {
	r, ok := refOf(h.bs, h.grower.Brk(), p)
	if !ok {
		fatal(ErrInvalidPointer, pol, noBlock, 0)
	}
	return r
}

// NewLocal creates a local arena on this heap.
func (h *Heap) NewLocal() *Local {
	l := &Local{
		h:    h,
		id:   h.nextLocal.Add(1),
		list: newFreeList(),
	}
	h.locals.Store(l.id, l)
	return l
}

// Locals calls fn for every local arena created on this heap until fn returns false.
func (h *Heap) Locals(fn func(l *Local) bool) {
	h.locals.Range(func(_ uint64, l *Local) bool {
		return fn(l)
	})
}

// Size returns the current heap extent in bytes, headers included.
func (h *Heap) Size() uint64 {
	return h.grower.Brk()
}

// Stats returns the shared policy's counters and the heap extent.
func (h *Heap) Stats() Stats {
	s := h.sharedStats.snapshot()
	s.HeapBytes = h.grower.Brk()
	s.LocalArenas = h.locals.Size()
	return s
}

// TotalStats returns the counters of the shared policy and every local arena combined.
func (h *Heap) TotalStats() Stats {
	s := h.Stats()
	h.Locals(func(l *Local) bool {
		s.Add(l.stats.snapshot())
		return true
	})
	return s
}

// FreeBlocks returns the shared free list in address order.
// The heap must be quiescent.
func (h *Heap) FreeBlocks() []Block {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.shared.snapshot(h.bs)
}

// Close releases the heap's reservation. Every pointer handed out by the heap
// or its local arenas becomes invalid, and no method may be called afterwards.
func (h *Heap) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.locals.Clear()
	h.shared = newFreeList()
	h.bs = nil
	if h.region == nil {
		return nil
	}
	if err := h.region.Close(); err != nil {
		return fmt.Errorf("alloc: close heap: %w", err)
	}
	return nil
}
