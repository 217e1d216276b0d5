package alloc

import "github.com/joshuapare/heapkit/internal/format"

// blocks is the heap memory viewed as a sequence of block headers.
// Every accessor is bounds checked by the slice, so a corrupt offset panics
// instead of touching memory outside the heap.
type blocks []byte

func (bs blocks) size(r blockRef) uint64 {
	return format.ReadU64(bs, int(r)+format.SizeOffset)
}

func (bs blocks) setSize(r blockRef, n uint64) {
	format.PutU64(bs, int(r)+format.SizeOffset, n)
}

func (bs blocks) isFree(r blockRef) bool {
	return format.ReadU64(bs, int(r)+format.FlagsOffset)&format.FlagFree != 0
}

func (bs blocks) setFree(r blockRef, free bool) {
	flags := format.ReadU64(bs, int(r)+format.FlagsOffset)
	if free {
		flags |= format.FlagFree
	} else {
		flags &^= format.FlagFree
	}
	format.PutU64(bs, int(r)+format.FlagsOffset, flags)
}

func (bs blocks) next(r blockRef) blockRef {
	return blockRef(format.ReadU64(bs, int(r)+format.NextOffset))
}

func (bs blocks) setNext(r, n blockRef) {
	format.PutU64(bs, int(r)+format.NextOffset, uint64(n))
}

func (bs blocks) prev(r blockRef) blockRef {
	return blockRef(format.ReadU64(bs, int(r)+format.PrevOffset))
}

func (bs blocks) setPrev(r, p blockRef) {
	format.PutU64(bs, int(r)+format.PrevOffset, uint64(p))
}

// end returns the offset of r's physical successor.
func (bs blocks) end(r blockRef) blockRef {
	return r + HeaderSize + blockRef(bs.size(r))
}

// init writes a fresh in-use header of the given payload size.
func (bs blocks) init(r blockRef, size uint64) {
	bs.setSize(r, size)
	format.PutU64(bs, int(r)+format.FlagsOffset, 0)
	bs.setNext(r, noBlock)
	bs.setPrev(r, noBlock)
}

func (bs blocks) snapshot(r blockRef) Block {
	return Block{Offset: uint64(r), Size: bs.size(r), Free: bs.isFree(r)}
}

// payload returns the caller's view of r: length n, capacity the whole block.
func (bs blocks) payload(r blockRef, n uint64) []byte {
	start := uint64(r) + HeaderSize
	return bs[start : start+n : start+bs.size(r)]
}
