// Package format defines the in-memory layout of heap blocks.
//
// Every block is a fixed 32-byte header followed by its payload. The header
// is stored little-endian inside the heap itself:
//
//	0x00  size   uint64  payload capacity in bytes, header excluded
//	0x08  flags  uint64  bit 0 set while the block is linked into a free list
//	0x10  next   uint64  offset of the next free block, NoBlock if none
//	0x18  prev   uint64  offset of the previous free block, NoBlock if none
//
// Offsets are relative to the start of the heap, so a block's identity is its
// offset and its physical successor lives at offset + HeaderSize + size.
package format

const (
	// HeaderSize is the number of bytes preceding every payload.
	HeaderSize = 32

	// HeaderAlignment is the alignment of every header (and therefore every payload).
	HeaderAlignment = 8

	// HeaderAlignmentMask is HeaderAlignment - 1.
	HeaderAlignmentMask = HeaderAlignment - 1

	// SizeOffset is the offset of the size field within a header.
	SizeOffset = 0x00

	// FlagsOffset is the offset of the flags field within a header.
	FlagsOffset = 0x08

	// NextOffset is the offset of the next-link field within a header.
	NextOffset = 0x10

	// PrevOffset is the offset of the prev-link field within a header.
	PrevOffset = 0x18

	// FlagFree marks a block that is currently linked into a free list.
	FlagFree uint64 = 1 << 0

	// NoBlock is the link value meaning "no neighbour".
	NoBlock uint64 = ^uint64(0)
)
