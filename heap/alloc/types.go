package alloc

import (
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/vmem"
)

// HeaderSize is the number of bytes of bookkeeping that precede every payload.
const HeaderSize = format.HeaderSize

// blockRef identifies a block by the offset of its header from the heap base.
type blockRef uint64

// noBlock is the null link.
const noBlock = blockRef(format.NoBlock)

// Policy names the concurrency policy a free list belongs to.
type Policy uint8

const (
	// PolicyShared is the single mutex-guarded free list shared by all goroutines.
	PolicyShared Policy = iota + 1

	// PolicyLocal is a free list owned by one goroutine or locked OS thread.
	PolicyLocal
)

func (p Policy) String() string {
	switch p {
	case PolicyShared:
		return "shared"
	case PolicyLocal:
		return "local"
	default:
		return "unknown"
	}
}

// Block is a snapshot of one block header.
type Block struct {
	Offset uint64 // Header offset from the heap base
	Size   uint64 // Payload capacity, header excluded
	Free   bool
}

// End returns the offset of the block's physical successor.
func (b Block) End() uint64 { return b.Offset + HeaderSize + b.Size }

// Grower extends the heap with fresh contiguous memory.
//
// Implementations:
//   - *vmem.Region: mmap reservation committed in chunks (default)
//
// Bytes must return the same backing memory for the lifetime of the heap, and
// Extend must hand out ranges that tile it from offset 0 with no gaps. Brk may be
// called concurrently with Extend.
type Grower interface {
	// Bytes returns the backing memory. Only [0, Brk()) is in use.
	Bytes() []byte

	// Brk returns the end of the used prefix.
	Brk() uint64

	// Extend appends n bytes to the used prefix and returns the offset of the first one.
	Extend(n uint64) (uint64, error)
}

// Config controls heap construction.
type Config struct {
	// ReserveBytes is the address space reserved for the heap. It bounds the
	// heap's size: allocations beyond it are fatal.
	ReserveBytes uint64

	// CommitChunkBytes is the step in which reserved memory is made accessible.
	CommitChunkBytes uint64

	// Grower overrides the default vmem reservation. ReserveBytes and
	// CommitChunkBytes are ignored when it is set, and the heap does not close it.
	Grower Grower
}

// DefaultConfig reserves 1 GiB and commits it 1 MiB at a time.
var DefaultConfig = Config{
	ReserveBytes:     vmem.DefaultReserve,
	CommitChunkBytes: vmem.DefaultCommitChunk,
}
