package alloc

// mergeResult describes what coalesce did.
type mergeResult struct {
	block    blockRef // Surviving block
	backward bool     // Absorbed into its list predecessor
	forward  bool     // Absorbed its list successor
}

// coalesce merges the freshly inserted free block r with its list neighbours
// when they are physically adjacent.
//
// The predecessor is tried first; if it absorbs r, the successor check runs
// against the grown predecessor. Only sizes and links change: no payload byte
// is moved or cleared, and absorbed headers are left in place as dead payload.
func (l *freeList) coalesce(bs blocks, r blockRef) mergeResult {
	res := mergeResult{block: r}
	if !bs.isFree(r) {
		return res
	}

	if p := bs.prev(r); p != noBlock && bs.isFree(p) && bs.end(p) == r {
		bs.setSize(p, bs.size(p)+HeaderSize+bs.size(r))
		l.unlink(bs, r)
		res.block = p
		res.backward = true
	}

	cur := res.block
	if n := bs.next(cur); n != noBlock && bs.isFree(n) && bs.end(cur) == n {
		bs.setSize(cur, bs.size(cur)+HeaderSize+bs.size(n))
		l.unlink(bs, n)
		res.forward = true
	}

	return res
}
