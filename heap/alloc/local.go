package alloc

import "unsafe"

// Local is a thread-local arena: a private free list carved from its Heap's
// region. List operations take no lock; only heap growth takes the heap mutex.
//
// A Local must be used by one goroutine at a time. Pointers must be released
// to the arena that allocated them; releasing through another arena or the
// shared Heap methods is not detected and corrupts both lists.
type Local struct {
	h     *Heap
	id    uint64
	list  freeList
	stats counters
}

// localPolicy runs the engine on a local arena's list.
type localPolicy struct {
	l *Local
}

func (p localPolicy) kind() Policy     { return PolicyLocal }
func (p localPolicy) list() *freeList  { return &p.l.list }
func (p localPolicy) stats() *counters { return &p.l.stats }
func (p localPolicy) grow(need uint64) blockRef {
	h := p.l.h
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.growLocked(p, need)
}

// ID returns the arena's identifier, unique within its Heap.
func (l *Local) ID() uint64 { return l.id }

// Heap returns the heap the arena draws from.
func (l *Local) Heap() *Heap { return l.h }

// Allocate returns a pointer to at least size bytes from this arena, or nil
// when size is not positive.
func (l *Local) Allocate(size int) unsafe.Pointer {
	need := roundSize(size)
	if need == 0 {
		return nil
	}
	r := l.h.allocate(localPolicy{l}, need)
	return pointerAt(l.h.bs, r)
}

// Release returns p, allocated by this arena, to its free list.
func (l *Local) Release(p unsafe.Pointer) {
	if p == nil {
		return
	}
	r := l.h.lookup(PolicyLocal, p)
	l.h.release(localPolicy{l}, r)
}

// AllocateBytes is Allocate returning the payload as a slice of length size.
func (l *Local) AllocateBytes(size int) []byte {
	need := roundSize(size)
	if need == 0 {
		return nil
	}
	r := l.h.allocate(localPolicy{l}, need)
	return l.h.bs.payload(r, uint64(size))
}

// ReleaseBytes releases a slice obtained from AllocateBytes on this arena.
func (l *Local) ReleaseBytes(b []byte) {
	l.Release(sliceData(b))
}

// Stats returns the arena's counters and the heap extent.
func (l *Local) Stats() Stats {
	s := l.stats.snapshot()
	s.HeapBytes = l.h.grower.Brk()
	return s
}

// FreeBlocks returns the arena's free list in address order.
// Only the owning goroutine may call it.
func (l *Local) FreeBlocks() []Block {
	return l.list.snapshot(l.h.bs)
}
