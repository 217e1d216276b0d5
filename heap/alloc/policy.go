package alloc

// policy is the capability the engine runs with: which free list to search and
// mutate, which counters to update, and how heap growth is serialized.
//
// The engine never locks anything itself. The shared façade holds the heap
// mutex around the whole engine call; a local arena takes it only inside grow.
type policy interface {
	kind() Policy
	list() *freeList
	stats() *counters
	grow(need uint64) blockRef
}

// sharedPolicy runs the engine on the heap's shared list.
// The caller must hold h.mu for the whole engine call.
type sharedPolicy struct {
	h *Heap
}

func (p sharedPolicy) kind() Policy     { return PolicyShared }
func (p sharedPolicy) list() *freeList  { return &p.h.shared }
func (p sharedPolicy) stats() *counters { return &p.h.sharedStats }
func (p sharedPolicy) grow(need uint64) blockRef {
	return p.h.growLocked(p, need)
}
