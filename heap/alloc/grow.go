package alloc

import "fmt"

// growLocked extends the heap by exactly need+HeaderSize bytes and returns the
// new block, in use and on no list. Growth failure is fatal.
//
// The caller must hold h.mu. Both policies route growth through here so that
// the break only ever advances under the heap mutex.
func (h *Heap) growLocked(p policy, need uint64) blockRef {
	total := need + HeaderSize
	if h.onGrow != nil {
		h.onGrow(total)
	}

	off, err := h.grower.Extend(total)
	if err != nil {
		fatal(fmt.Errorf("%w: %w", ErrHeapExhausted, err), p.kind(), noBlock, need)
		return noBlock
	}

	r := blockRef(off)
	h.bs.init(r, need)

	c := p.stats()
	c.growths.Add(1)
	c.grownBytes.Add(total)

	debugEvent(p.kind()).
		Uint64("offset", off).
		Uint64("size", need).
		Uint64("brk", h.grower.Brk()).
		Msg("grow")
	return r
}
