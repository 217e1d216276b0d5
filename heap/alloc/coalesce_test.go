package alloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeAdjacent allocates three adjacent blocks followed by a live spacer.
func threeAdjacent(t *testing.T, h *Heap) (a, b, c unsafe.Pointer) {
	t.Helper()

	a = h.Allocate(64)
	b = h.Allocate(128)
	c = h.Allocate(32)
	_ = h.Allocate(8)
	require.Equal(t, refFor(t, h, a)+HeaderSize+64, refFor(t, h, b))
	require.Equal(t, refFor(t, h, b)+HeaderSize+128, refFor(t, h, c))
	return a, b, c
}

func TestCoalesce_Backward(t *testing.T) {
	h := newTestHeap(t)
	a, b, _ := threeAdjacent(t, h)

	h.Release(a)
	h.Release(b)

	free := h.FreeBlocks()
	require.Len(t, free, 1)
	assert.Equal(t, uint64(refFor(t, h, a)), free[0].Offset)
	assert.Equal(t, uint64(64+HeaderSize+128), free[0].Size)

	s := h.Stats()
	assert.Equal(t, uint64(1), s.CoalesceBackward)
	assert.Zero(t, s.CoalesceForward)
	assertInvariants(t, h)
}

func TestCoalesce_Forward(t *testing.T) {
	h := newTestHeap(t)
	_, b, c := threeAdjacent(t, h)

	h.Release(c)
	h.Release(b)

	free := h.FreeBlocks()
	require.Len(t, free, 1)
	assert.Equal(t, uint64(refFor(t, h, b)), free[0].Offset)
	assert.Equal(t, uint64(128+HeaderSize+32), free[0].Size)

	s := h.Stats()
	assert.Zero(t, s.CoalesceBackward)
	assert.Equal(t, uint64(1), s.CoalesceForward)
	assertInvariants(t, h)
}

// TestCoalesce_BothSides verifies that releasing the middle block merges all
// three into one block spanning them.
func TestCoalesce_BothSides(t *testing.T) {
	h := newTestHeap(t)
	a, b, c := threeAdjacent(t, h)

	h.Release(a)
	h.Release(c)
	require.Len(t, h.FreeBlocks(), 2)

	h.Release(b)

	free := h.FreeBlocks()
	require.Len(t, free, 1)
	assert.Equal(t, uint64(refFor(t, h, a)), free[0].Offset)
	assert.Equal(t, uint64(64+128+32+2*HeaderSize), free[0].Size)

	s := h.Stats()
	assert.Equal(t, uint64(1), s.CoalesceBackward)
	assert.Equal(t, uint64(1), s.CoalesceForward)
	assert.Equal(t, int64(1), s.FreeBlocks)
	assert.Equal(t, int64(free[0].Size), s.FreeBytes)
	assertInvariants(t, h)
}

func TestCoalesce_NonAdjacentStaySeparate(t *testing.T) {
	h, refs := newHeapWithLayout(t, []int{64, 64, 64})

	assert.Equal(t, []uint64{64, 64, 64}, freeSizes(h))
	for i, b := range h.FreeBlocks() {
		assert.Equal(t, uint64(refs[i]), b.Offset)
	}
	assert.Zero(t, h.Stats().CoalesceBackward+h.Stats().CoalesceForward)
}

// TestCoalesce_PayloadUntouched verifies that merging only rewrites sizes and
// links: payload bytes past the absorbed header are left as they were.
func TestCoalesce_PayloadUntouched(t *testing.T) {
	h := newTestHeap(t)
	a := h.AllocateBytes(64)
	b := h.AllocateBytes(128)
	_ = h.Allocate(8)
	fill(b, 7)

	h.ReleaseBytes(a)
	h.ReleaseBytes(b)

	require.Len(t, h.FreeBlocks(), 1)
	// b's header became payload of a; b's own bytes were never written.
	assert.True(t, intact(b, 7))
}

// TestCoalesce_FullHeapCollapses verifies that releasing every block of a heap
// in arbitrary order leaves a single free block covering all of it.
func TestCoalesce_FullHeapCollapses(t *testing.T) {
	h := newTestHeap(t)

	var ptrs []unsafe.Pointer
	for i := range 40 {
		ptrs = append(ptrs, h.Allocate(8+(i%7)*24))
	}
	order := []int{}
	for i := 0; i < len(ptrs); i += 2 {
		order = append(order, i)
	}
	for i := len(ptrs) - 1; i > 0; i -= 2 {
		order = append(order, i)
	}
	require.Len(t, order, len(ptrs))

	for _, i := range order {
		h.Release(ptrs[i])
		assertInvariants(t, h)
	}

	free := h.FreeBlocks()
	require.Len(t, free, 1)
	assert.Zero(t, free[0].Offset)
	assert.Equal(t, h.Size(), free[0].End())
}
