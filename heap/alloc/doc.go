// Package alloc provides a best-fit free-list allocator over a single growable heap.
//
// # Overview
//
// A Heap manages one contiguous region obtained from the OS in large steps
// (see internal/vmem) and carves it into variable-size blocks. Every block
// starts with a 32-byte header followed by its payload:
//
//	0x00  size   payload capacity, header excluded
//	0x08  flags  bit 0 set while the block is free
//	0x10  next   offset of the next free block
//	0x18  prev   offset of the previous free block
//
// Free blocks are kept on an intrusive, address-ordered doubly linked list
// whose links live in the headers themselves. The allocator never stores
// bookkeeping outside the heap.
//
// # Allocation
//
// Requests are rounded up to 8 bytes. The free list is scanned linearly for
// the smallest block that fits; a block of exactly the requested size ends
// the scan early. A candidate more than one header larger than the request is
// split and the remainder stays on the list in place of the original block.
// Otherwise the whole block is handed out. When nothing fits the heap grows by
// exactly one header plus the request.
//
// # Release
//
// A released block is inserted in address order and merged with its list
// neighbours when they are physically adjacent, predecessor first. Releasing
// an already free block, or a pointer the heap never handed out, writes a
// fatal log event and exits the process. Heap exhaustion is fatal too.
//
// # Policies
//
// Two concurrency policies share the same engine:
//
//   - Shared: the Heap methods. One free list; each call holds the heap mutex.
//   - Local: the Local methods. One free list per arena and no locking, except
//     that growth takes the heap mutex so the break only moves under it.
//
// A pointer must be released through the policy and arena that allocated it.
// Mixing them is not detected.
//
// # Usage Example
//
//	h, err := alloc.New(nil)
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	buf := h.AllocateBytes(100)
//	copy(buf, payload)
//	h.ReleaseBytes(buf)
//
//	// One arena per worker goroutine.
//	l := h.NewLocal()
//	p := l.Allocate(64)
//	l.Release(p)
//
// # Thread Safety
//
// Heap methods are safe for concurrent use. A Local must only be used by one
// goroutine at a time; Registry hands out one Local per caller identity.
// Verify, Dump and FreeBlocks need a quiescent heap.
//
// # Debugging
//
// Set HEAPKIT_LOG_ALLOC=1 to log growth, split and coalesce events at debug
// level through zerolog.
package alloc
