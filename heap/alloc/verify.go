package alloc

import (
	"fmt"
)

// Verify checks every structural invariant of the heap and its free lists:
//   - headers tile [0, brk) exactly, with 8-byte aligned sizes
//   - each list is strictly ascending with symmetric links
//   - every list entry is a real, free block on exactly one list
//   - every free block is on some list
//   - no list holds two physically adjacent blocks
//   - live and free counters match what the walk finds
//
// The heap and all of its local arenas must be quiescent. Violations wrap ErrCorrupt.
func (h *Heap) Verify() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	bs, brk := h.bs, h.grower.Brk()

	// Physical walk.
	phys := make(map[blockRef]bool)
	var live, liveBytes int64
	for r := blockRef(0); uint64(r) < brk; {
		if uint64(r)+HeaderSize > brk {
			return corruptf(r, "header crosses break at %d", brk)
		}
		size := bs.size(r)
		if size%8 != 0 {
			return corruptf(r, "size %d not 8-byte aligned", size)
		}
		end := bs.end(r)
		if end <= r || uint64(end) > brk {
			return corruptf(r, "size %d runs past break at %d", size, brk)
		}
		free := bs.isFree(r)
		phys[r] = free
		if !free {
			live++
			liveBytes += int64(size)
		}
		r = end
	}

	owner := make(map[blockRef]string)
	var wantLive, wantLiveBytes int64

	check := func(name string, l *freeList, c *counters) error {
		var n, bytes int64
		prev := noBlock
		for r := l.head; r != noBlock; r = bs.next(r) {
			free, ok := phys[r]
			if !ok {
				return corruptf(r, "%s list entry is not a block header", name)
			}
			if !free {
				return corruptf(r, "%s list entry is not marked free", name)
			}
			if other, dup := owner[r]; dup {
				return corruptf(r, "block on both %s and %s lists", other, name)
			}
			owner[r] = name
			if bs.prev(r) != prev {
				return corruptf(r, "%s list prev link %d, want %d", name, bs.prev(r), prev)
			}
			if prev != noBlock {
				if r <= prev {
					return corruptf(r, "%s list out of order after %d", name, prev)
				}
				if bs.end(prev) == r {
					return corruptf(r, "%s list holds uncoalesced neighbour %d", name, prev)
				}
			}
			n++
			bytes += int64(bs.size(r))
			prev = r
		}
		if got := c.freeBlocks.Load(); got != n {
			return fmt.Errorf("%w: %s list has %d blocks, counter says %d", ErrCorrupt, name, n, got)
		}
		if got := c.freeBytes.Load(); got != bytes {
			return fmt.Errorf("%w: %s list has %d bytes, counter says %d", ErrCorrupt, name, bytes, got)
		}
		wantLive += c.liveBlocks.Load()
		wantLiveBytes += c.liveBytes.Load()
		return nil
	}

	if err := check(PolicyShared.String(), &h.shared, &h.sharedStats); err != nil {
		return err
	}
	var err error
	h.locals.Range(func(id uint64, l *Local) bool {
		err = check(fmt.Sprintf("local#%d", id), &l.list, &l.stats)
		return err == nil
	})
	if err != nil {
		return err
	}

	for r, free := range phys {
		if _, listed := owner[r]; free && !listed {
			return corruptf(r, "free block on no list")
		}
	}
	if live != wantLive || liveBytes != wantLiveBytes {
		return fmt.Errorf("%w: %d live blocks (%d bytes), counters say %d (%d bytes)",
			ErrCorrupt, live, liveBytes, wantLive, wantLiveBytes)
	}
	return nil
}

func corruptf(r blockRef, format string, args ...any) error {
	return fmt.Errorf("%w: block 0x%X: %s", ErrCorrupt, uint64(r), fmt.Sprintf(format, args...))
}
