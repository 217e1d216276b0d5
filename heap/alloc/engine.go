package alloc

import "github.com/joshuapare/heapkit/internal/format"

// fitKind records how an allocation was satisfied.
type fitKind uint8

const (
	fitExact fitKind = iota // free block of exactly the requested size
	fitWhole                // larger free block handed out unsplit
	fitSplit                // larger free block split in two
	fitGrow                 // fresh block from heap growth
)

// roundSize converts a requested payload size to the size the engine allocates.
// Zero means the request is a no-op.
func roundSize(size int) uint64 {
	if size <= 0 {
		return 0
	}
	return format.Align8(uint64(size))
}

// bestFit scans l for the block to satisfy need.
//
// A block of exactly need bytes wins immediately. Otherwise the smallest block
// larger than need is returned, earliest address first on ties. noBlock means
// nothing on the list is big enough.
func bestFit(bs blocks, l *freeList, need uint64) blockRef {
	best, bestSize := noBlock, uint64(0)
	for r := l.head; r != noBlock; r = bs.next(r) {
		sz := bs.size(r)
		if sz == need {
			return r
		}
		if sz > need && (best == noBlock || sz < bestSize) {
			best, bestSize = r, sz
		}
	}
	return best
}

// allocate runs the allocation engine for need bytes (already rounded, non-zero)
// on the list and growth discipline chosen by p.
func (h *Heap) allocate(p policy, need uint64) blockRef {
	bs, l, c := h.bs, p.list(), p.stats()

	var (
		r    blockRef
		kind fitKind
	)
	switch best := bestFit(bs, l, need); {
	case best == noBlock:
		r, kind = p.grow(need), fitGrow
	case bs.size(best) == need:
		l.remove(bs, best)
		r, kind = best, fitExact
	case !canSplit(bs.size(best), need):
		l.remove(bs, best)
		r, kind = best, fitWhole
	default:
		rest := l.split(bs, best, need)
		r, kind = best, fitSplit
		debugEvent(p.kind()).
			Uint64("offset", uint64(best)).
			Uint64("need", need).
			Uint64("remainder", uint64(rest)).
			Uint64("remainder_size", bs.size(rest)).
			Msg("split")
	}

	size := bs.size(r)
	switch kind {
	case fitExact:
		c.exactFits.Add(1)
		c.freeBlocks.Add(-1)
		c.freeBytes.Add(-int64(size))
	case fitWhole:
		c.wholeFits.Add(1)
		c.freeBlocks.Add(-1)
		c.freeBytes.Add(-int64(size))
	case fitSplit:
		// The remainder keeps the list entry; it lost the payload and one header.
		c.splits.Add(1)
		c.freeBytes.Add(-int64(size + HeaderSize))
	}
	c.allocations.Add(1)
	c.liveBlocks.Add(1)
	c.liveBytes.Add(int64(size))
	return r
}

// release runs the release engine for block r on the list chosen by p.
func (h *Heap) release(p policy, r blockRef) {
	bs, l, c := h.bs, p.list(), p.stats()

	if bs.isFree(r) {
		fatal(ErrDoubleRelease, p.kind(), r, bs.size(r))
		return
	}

	size := bs.size(r)
	l.insert(bs, r)
	c.releases.Add(1)
	c.liveBlocks.Add(-1)
	c.liveBytes.Add(-int64(size))
	c.freeBlocks.Add(1)
	c.freeBytes.Add(int64(size))

	m := l.coalesce(bs, r)
	// Each merge drops one list entry and turns its header into payload.
	if m.backward {
		c.coalesceBackward.Add(1)
		c.freeBlocks.Add(-1)
		c.freeBytes.Add(HeaderSize)
	}
	if m.forward {
		c.coalesceForward.Add(1)
		c.freeBlocks.Add(-1)
		c.freeBytes.Add(HeaderSize)
	}
	if m.backward || m.forward {
		debugEvent(p.kind()).
			Uint64("offset", uint64(r)).
			Uint64("merged", uint64(m.block)).
			Uint64("merged_size", bs.size(m.block)).
			Bool("backward", m.backward).
			Bool("forward", m.forward).
			Msg("coalesce")
	}
}
