package alloc

// canSplit reports whether a free block of the given size leaves a useful
// remainder after carving out need bytes: the remainder must hold a header
// plus at least one aligned payload word.
func canSplit(size, need uint64) bool {
	return size > need+HeaderSize
}

// split carves the first need bytes of free block r for the caller and turns
// the rest into a new free block placed right after it.
//
// The remainder takes over r's position in l, so the address order holds
// without a fresh sorted insert: it sits above r's predecessor and below r's
// successor. r comes back in use with its links cleared.
//
// Precondition: r is in l and canSplit(bs.size(r), need).
func (l *freeList) split(bs blocks, r blockRef, need uint64) blockRef {
	rest := r + HeaderSize + blockRef(need)
	prev, next := bs.prev(r), bs.next(r)

	bs.setSize(rest, bs.size(r)-need-HeaderSize)
	bs.setFree(rest, true)
	bs.setPrev(rest, prev)
	bs.setNext(rest, next)
	if next != noBlock {
		bs.setPrev(next, rest)
	}
	if prev == noBlock {
		l.head = rest
	} else {
		bs.setNext(prev, rest)
	}

	bs.setSize(r, need)
	bs.setNext(r, noBlock)
	bs.setPrev(r, noBlock)
	bs.setFree(r, false)

	return rest
}
