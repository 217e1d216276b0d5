package format

// Alignment utilities for block sizes.
// Every block header must start on a HeaderAlignment boundary, so payload sizes are
// rounded up before they are carved out of the heap.

// Align8 returns n aligned up to the next 8-byte boundary.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
//	Align8(16) = 16
func Align8(n uint64) uint64 {
	return (n + HeaderAlignmentMask) &^ HeaderAlignmentMask
}

// AlignUp returns n aligned up to the next multiple of align, which must be a power of two.
//
// Example:
//
//	AlignUp(1, 4096)    = 4096
//	AlignUp(4096, 4096) = 4096
//	AlignUp(4097, 4096) = 8192
func AlignUp(n, align uint64) uint64 {
	mask := align - 1
	return (n + mask) &^ mask
}

// IsPow2 reports whether n is a non-zero power of two.
func IsPow2(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}
