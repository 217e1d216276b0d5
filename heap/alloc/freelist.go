package alloc

// freeList is an intrusive, address-ordered doubly linked list of free blocks.
// The links live in the block headers; the list itself only holds the head.
//
// Invariants between operations:
//   - entries are strictly ascending by offset
//   - no two consecutive entries are physically adjacent
//   - every entry has its free flag set
type freeList struct {
	head blockRef
}

func newFreeList() freeList {
	return freeList{head: noBlock}
}

// insert marks r free and links it in ascending address order.
func (l *freeList) insert(bs blocks, r blockRef) {
	bs.setFree(r, true)

	if l.head == noBlock {
		bs.setNext(r, noBlock)
		bs.setPrev(r, noBlock)
		l.head = r
		return
	}

	// Find the first entry above r; r goes in front of it, or at the tail.
	prev, cur := noBlock, l.head
	for cur != noBlock && cur < r {
		prev = cur
		cur = bs.next(cur)
	}

	bs.setPrev(r, prev)
	bs.setNext(r, cur)
	if prev == noBlock {
		l.head = r
	} else {
		bs.setNext(prev, r)
	}
	if cur != noBlock {
		bs.setPrev(cur, r)
	}
}

// remove detaches r, clears its links and marks it in use.
func (l *freeList) remove(bs blocks, r blockRef) {
	l.unlink(bs, r)
	bs.setNext(r, noBlock)
	bs.setPrev(r, noBlock)
	bs.setFree(r, false)
}

// unlink splices r out of the list without touching r's own header.
// Used when r is absorbed by a neighbour and its header becomes payload.
func (l *freeList) unlink(bs blocks, r blockRef) {
	prev, next := bs.prev(r), bs.next(r)
	if l.head == r {
		l.head = next
	} else if prev != noBlock {
		bs.setNext(prev, next)
	}
	if next != noBlock {
		bs.setPrev(next, prev)
	}
}

// each calls fn for every entry in address order until fn returns false.
func (l *freeList) each(bs blocks, fn func(r blockRef) bool) {
	for r := l.head; r != noBlock; r = bs.next(r) {
		if !fn(r) {
			return
		}
	}
}

// snapshot returns the entries of l in address order.
func (l *freeList) snapshot(bs blocks) []Block {
	var out []Block
	l.each(bs, func(r blockRef) bool {
		out = append(out, bs.snapshot(r))
		return true
	})
	return out
}
