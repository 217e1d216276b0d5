package alloc

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry maps caller identities to local arenas on one Heap, creating an
// arena the first time an identity is seen. It is safe for concurrent use;
// the arenas it returns are not.
type Registry struct {
	h      *Heap
	arenas *xsync.MapOf[uint64, *Local]
}

// NewRegistry returns an empty registry over h.
func NewRegistry(h *Heap) *Registry {
	return &Registry{
		h:      h,
		arenas: xsync.NewMapOf[uint64, *Local](),
	}
}

// For returns the arena for id, creating it on first use.
func (r *Registry) For(id uint64) *Local {
	l, _ := r.arenas.LoadOrCompute(id, func() *Local {
		return r.h.NewLocal()
	})
	return l
}

// Current returns the arena for the calling OS thread. The caller must have
// pinned its goroutine with runtime.LockOSThread for the lifetime of every
// pointer it allocates, or a later call may land on another thread's arena.
func (r *Registry) Current() (*Local, error) {
	tid, err := threadID()
	if err != nil {
		return nil, err
	}
	return r.For(tid), nil
}

// Len returns the number of identities with an arena.
func (r *Registry) Len() int {
	return r.arenas.Size()
}

// Range calls fn for every identity and arena until fn returns false.
func (r *Registry) Range(fn func(id uint64, l *Local) bool) {
	r.arenas.Range(fn)
}
