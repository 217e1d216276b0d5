package alloc

import (
	"unsafe"

	"github.com/joshuapare/heapkit/internal/format"
)

// This file is the only place that converts between block offsets and raw
// caller pointers. Everything above it works on blockRef values.

// pointerAt returns the payload address of block r.
//
// Precondition: r is the header offset of a block inside bs.
func pointerAt(bs blocks, r blockRef) unsafe.Pointer {
	return unsafe.Pointer(&bs[uint64(r)+HeaderSize])
}

// refOf recovers the header offset for payload pointer p.
//
// It only checks that p could be a payload inside [0, brk): it must lie past
// one header and be header-aligned. A pointer into the middle of a payload or a
// header overwritten by the caller is not detected.
func refOf(bs blocks, brk uint64, p unsafe.Pointer) (blockRef, bool) {
	if len(bs) == 0 {
		return 0, false
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData([]byte(bs))))
	addr := uintptr(p)
	if addr < base+HeaderSize {
		return 0, false
	}
	off := uint64(addr-base) - HeaderSize
	if off%format.HeaderAlignment != 0 || off+HeaderSize > brk {
		return 0, false
	}
	return blockRef(off), true
}

// sliceData returns the address of b's first element, or nil for a slice with no capacity.
func sliceData(b []byte) unsafe.Pointer {
	if cap(b) == 0 {
		return nil
	}
	return unsafe.Pointer(unsafe.SliceData(b))
}
