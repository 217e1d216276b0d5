package format

import "encoding/binary"

// Binary encoding utilities for little-endian header fields.
//
// Performance Note: Go's binary.LittleEndian calls are inlined by the compiler
// and compile down to single loads and stores on little-endian targets, so
// headers are read and written through them instead of through unsafe casts.

// PutU64 writes a uint64 value to the buffer at the specified offset in little-endian format.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// ReadU64 reads a uint64 value from the buffer at the specified offset in little-endian format.
func ReadU64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}
