// Package vmem provides the contiguous, growable memory region that backs a heap.
//
// A Region reserves a large span of address space once and hands it out from
// the front, sbrk style. Reserved memory is only made accessible (committed)
// in chunk-sized steps as the break advances, so a large reservation costs
// nothing until it is used. Addresses never move and memory is never given
// back to the OS before Close.
package vmem

import (
	"errors"
	"fmt"
	"math/bits"
	"sync/atomic"

	"github.com/joshuapare/heapkit/internal/format"
)

const (
	// DefaultReserve is the default amount of address space reserved up front (1 GiB).
	DefaultReserve = 1 << 30

	// DefaultCommitChunk is the default commit granularity (1 MiB).
	DefaultCommitChunk = 1 << 20
)

// ErrExhausted indicates the reservation cannot satisfy an extension.
var ErrExhausted = errors.New("vmem: reservation exhausted")

// Region is a reserved address range with a monotonically advancing break.
//
// Extend is not safe for concurrent use; callers serialize growth themselves.
// Brk may be read concurrently with Extend.
type Region struct {
	mem       []byte
	brk       atomic.Uint64
	committed uint64
	chunk     uint64
}

// Reserve maps reserve bytes of address space and returns an empty region.
// chunk is rounded up to a power-of-two multiple of the OS page size and
// reserve up to a multiple of chunk.
func Reserve(reserve, chunk uint64) (*Region, error) {
	if reserve == 0 {
		return nil, fmt.Errorf("vmem: reserve size must be positive")
	}
	if chunk == 0 {
		chunk = DefaultCommitChunk
	}
	page := uint64(pageSize())
	chunk = format.AlignUp(chunk, page)
	if !format.IsPow2(chunk) {
		chunk = 1 << bits.Len64(chunk)
	}
	reserve = format.AlignUp(reserve, chunk)
	if reserve > uint64(^uint(0)>>1) {
		return nil, fmt.Errorf("vmem: reservation too large (%d bytes)", reserve)
	}

	mem, err := reserveMemory(int(reserve))
	if err != nil {
		return nil, fmt.Errorf("vmem: reserve %d bytes: %w", reserve, err)
	}
	return &Region{mem: mem, chunk: chunk}, nil
}

// Extend advances the break by n bytes and returns the offset of the first new byte.
// The returned range is zero-filled and readable/writable.
func (r *Region) Extend(n uint64) (uint64, error) {
	old := r.brk.Load()
	if n == 0 {
		return old, nil
	}
	end := old + n
	if end < old || end > uint64(len(r.mem)) {
		return 0, fmt.Errorf("%w: need %d bytes, %d of %d in use", ErrExhausted, n, old, len(r.mem))
	}
	if end > r.committed {
		target := min(format.AlignUp(end, r.chunk), uint64(len(r.mem)))
		if err := commitMemory(r.mem[r.committed:target]); err != nil {
			return 0, fmt.Errorf("vmem: commit [%d, %d): %w", r.committed, target, err)
		}
		r.committed = target
	}
	r.brk.Store(end)
	return old, nil
}

// Bytes returns the whole reservation. Only the prefix [0, Brk()) is usable.
func (r *Region) Bytes() []byte { return r.mem }

// Brk returns the current break offset.
func (r *Region) Brk() uint64 { return r.brk.Load() }

// Committed returns the number of bytes currently made accessible.
func (r *Region) Committed() uint64 { return r.committed }

// Reserved returns the size of the reservation.
func (r *Region) Reserved() uint64 { return uint64(len(r.mem)) }

// Close unmaps the reservation. Closing twice is a no-op.
func (r *Region) Close() error {
	if r.mem == nil {
		return nil
	}
	err := releaseMemory(r.mem)
	r.mem = nil
	r.committed = 0
	return err
}
