package alloc

import (
	"fmt"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// ============================================================================
// Heap Creation Utilities
// ============================================================================

// testReserve is large enough for every non-stress test and small enough to
// keep many concurrent test heaps cheap.
const testReserve = 8 << 20

// newTestHeap creates a heap backed by a small vmem reservation.
func newTestHeap(t testing.TB) *Heap {
	t.Helper()

	h, err := New(&Config{ReserveBytes: testReserve, CommitChunkBytes: 64 << 10})
	require.NoError(t, err, "failed to create test heap")
	t.Cleanup(func() { _ = h.Close() })
	return h
}

// sliceGrower is a Grower over a plain Go slice with a hard limit.
type sliceGrower struct {
	mem []byte
	brk uint64
}

func newSliceGrower(limit int) *sliceGrower {
	return &sliceGrower{mem: make([]byte, limit)}
}

func (g *sliceGrower) Bytes() []byte { return g.mem }
func (g *sliceGrower) Brk() uint64   { return g.brk }

func (g *sliceGrower) Extend(n uint64) (uint64, error) {
	if g.brk+n > uint64(len(g.mem)) {
		return 0, fmt.Errorf("slice grower: %d + %d exceeds %d", g.brk, n, len(g.mem))
	}
	off := g.brk
	g.brk += n
	return off, nil
}

// newHeapWithLayout builds a heap whose shared free list holds blocks of the
// given payload sizes in address order. Each free block is followed by a live
// 8-byte spacer so that nothing coalesces. Returns the free blocks' offsets.
func newHeapWithLayout(t testing.TB, sizes []int) (*Heap, []blockRef) {
	t.Helper()

	h := newTestHeap(t)
	ptrs := make([]unsafe.Pointer, len(sizes))
	refs := make([]blockRef, len(sizes))
	for i, size := range sizes {
		ptrs[i] = h.Allocate(size)
		refs[i] = refFor(t, h, ptrs[i])
		_ = h.Allocate(8) // spacer
	}
	for _, p := range ptrs {
		h.Release(p)
	}

	free := h.FreeBlocks()
	require.Len(t, free, len(sizes), "layout should produce one free block per size")
	assertInvariants(t, h)
	return h, refs
}

// ============================================================================
// Inspection
// ============================================================================

// refFor converts a payload pointer from h back to its block offset.
func refFor(t testing.TB, h *Heap, p unsafe.Pointer) blockRef {
	t.Helper()

	r, ok := refOf(h.bs, h.grower.Brk(), p)
	require.True(t, ok, "pointer %p is not a payload of the heap", p)
	return r
}

// freeSizes returns the payload sizes on the shared list in address order.
func freeSizes(h *Heap) []uint64 {
	var out []uint64
	for _, b := range h.FreeBlocks() {
		out = append(out, b.Size)
	}
	return out
}

// assertInvariants fails the test immediately if Verify finds a violation.
func assertInvariants(t testing.TB, h *Heap) {
	t.Helper()
	require.NoError(t, h.Verify())
}

// setupGrowCounter installs a hook counting heap extensions.
func setupGrowCounter(h *Heap) *int {
	growCount := 0
	h.onGrow = func(uint64) { growCount++ }
	return &growCount
}

// fill writes a byte pattern derived from seed over b.
func fill(b []byte, seed byte) {
	for i := range b {
		b[i] = seed + byte(i)
	}
}

// intact reports whether b still holds the pattern written by fill.
func intact(b []byte, seed byte) bool {
	for i := range b {
		if b[i] != seed+byte(i) {
			return false
		}
	}
	return true
}
