package alloc

import (
	"fmt"
	"io"
	"unsafe"
)

// Dump writes the shared free list and counters to w.
// The heap must be quiescent.
func (h *Heap) Dump(w io.Writer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return dumpList(w, PolicyShared.String(), h.bs, &h.shared, h.Stats())
}

// Dump writes the arena's free list and counters to w.
func (l *Local) Dump(w io.Writer) error {
	return dumpList(w, fmt.Sprintf("local#%d", l.id), l.h.bs, &l.list, l.Stats())
}

// BlockOf returns a snapshot of the header of the live allocation at p, which
// may come from the Heap or any of its local arenas.
func (h *Heap) BlockOf(p unsafe.Pointer) Block {
	return h.bs.snapshot(h.lookup(PolicyShared, p))
}

func dumpList(w io.Writer, name string, bs blocks, l *freeList, s Stats) error {
	ew := &errWriter{w: w}
	ew.printf("=== %s free list (heap=%d bytes) ===\n", name, s.HeapBytes)
	ew.printf("live: %d blocks, %d bytes\n", s.LiveBlocks, s.LiveBytes)
	ew.printf("free: %d blocks, %d bytes\n", s.FreeBlocks, s.FreeBytes)
	ew.printf("allocs=%d exact=%d whole=%d split=%d grow=%d releases=%d merge_back=%d merge_fwd=%d\n",
		s.Allocations, s.ExactFits, s.WholeFits, s.Splits, s.Growths,
		s.Releases, s.CoalesceBackward, s.CoalesceForward)

	i := 0
	l.each(bs, func(r blockRef) bool {
		b := bs.snapshot(r)
		ew.printf("  [%d] off=0x%08X size=%d end=0x%08X\n", i, b.Offset, b.Size, b.End())
		i++
		return ew.err == nil
	})
	return ew.err
}

// errWriter remembers the first write error and drops everything after it.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
