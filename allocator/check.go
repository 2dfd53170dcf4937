package allocator

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Check walks the free list in both directions from the cursor and tiles the
// whole arena, verifying that no byte is lost or counted twice. It returns an
// error wrapping ErrCorrupted on the first mismatch. Check never modifies the
// arena.
func (a *Arena) Check() error {
	if a.data == nil {
		return errors.Wrap(ErrInvalidRegion, "arena is not initialized")
	}

	span := uint64(len(a.data))
	limit := uint32(span/(headerSize+linkSize)) + 1

	var free uint64
	var nodes uint32
	if a.cursor != nullPtr {
		if err := a.checkNode(a.cursor); err != nil {
			return err
		}

		// the cursor itself is counted by the forward pass
		for last, off := a.cursor, a.node(a.cursor).prev; off != nullPtr; last, off = off, a.node(off).prev {
			if err := a.checkPair(off, last); err != nil {
				return err
			}
			free += uint64(a.node(off).size)
			if nodes++; nodes > limit {
				return a.corrupted("free list loops below %#x", a.cursor)
			}
		}

		for off := a.cursor; off != nullPtr; off = a.node(off).next {
			n := a.node(off)
			if n.next != nullPtr {
				if err := a.checkPair(off, n.next); err != nil {
					return err
				}
			}
			free += uint64(n.size)
			if nodes++; nodes > limit {
				return a.corrupted("free list loops above %#x", a.cursor)
			}
		}
	}

	if free != uint64(a.freeBytes) || nodes != a.nodes {
		return a.corrupted("free list holds %d bytes in %d regions, counters say %d bytes in %d regions",
			free, nodes, a.freeBytes, a.nodes)
	}
	if a.blocks+nodes == 0 {
		return a.corrupted("arena has no regions")
	}
	overhead := uint64(a.blocks+nodes-1) * headerSize
	if total := uint64(a.allocated) + free + overhead; total != uint64(a.capacity) {
		return a.corrupted("allocated %d + free %d + overhead %d = %d, capacity %d",
			a.allocated, free, overhead, total, a.capacity)
	}

	return a.checkTiling()
}

// checkTiling visits every region from offset 0 and matches the allocated
// ones against the block counters.
func (a *Arena) checkTiling() error {
	span := uint64(len(a.data))
	nextFree := a.first()

	var used uint64
	var blocks uint32
	for off := uint64(0); off < span; {
		size := a.head(uint32(off)).size
		end := off + headerSize + uint64(size)
		if end > span || size%WordSize != 0 {
			return a.corrupted("region at %#x with size %d overruns the arena", off, size)
		}

		if uint32(off) == nextFree {
			nextFree = a.node(nextFree).next
		} else {
			if nextFree != nullPtr && uint64(nextFree) < off {
				return a.corrupted("free region %#x is not on a region boundary", nextFree)
			}
			used += uint64(size)
			blocks++
		}
		off = end
	}

	if nextFree != nullPtr {
		return a.corrupted("free region %#x lies past the last region", nextFree)
	}
	if used != uint64(a.allocated) || blocks != a.blocks {
		return a.corrupted("arena holds %d bytes in %d blocks, counters say %d bytes in %d blocks",
			used, blocks, a.allocated, a.blocks)
	}
	return nil
}

func (a *Arena) validNode(off uint32) bool {
	return off%WordSize == 0 && uint64(off)+headerSize+linkSize <= uint64(len(a.data))
}

func (a *Arena) checkNode(off uint32) error {
	if !a.validNode(off) {
		return a.corrupted("free region %#x is out of range", off)
	}
	n := a.node(off)
	if n.tag != tagFree {
		return a.corrupted("free region %#x has tag %#x", off, n.tag)
	}
	if uint64(off)+headerSize+uint64(n.size) > uint64(len(a.data)) {
		return a.corrupted("free region %#x with size %d overruns the arena", off, n.size)
	}
	return nil
}

// checkPair verifies lo and hi are consecutive, ordered, non-touching nodes.
func (a *Arena) checkPair(lo uint32, hi uint32) error {
	if err := a.checkNode(lo); err != nil {
		return err
	}
	if err := a.checkNode(hi); err != nil {
		return err
	}

	l, h := a.node(lo), a.node(hi)
	if l.next != hi || h.prev != lo {
		return a.corrupted("broken link between %#x and %#x", lo, hi)
	}
	end := uint64(lo) + headerSize + uint64(l.size)
	if end > uint64(hi) {
		return a.corrupted("free region %#x overlaps or follows %#x", lo, hi)
	}
	if end == uint64(hi) {
		return a.corrupted("free regions %#x and %#x touch but were not merged", lo, hi)
	}
	return nil
}

func (a *Arena) corrupted(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	a.entry().WithFields(logrus.Fields{
		FieldCapacity:  a.capacity,
		FieldAllocated: a.allocated,
		FieldFree:      a.freeBytes,
		FieldBlocks:    a.blocks,
		FieldRegions:   a.nodes,
	}).Error(msg)
	return errors.Wrap(ErrCorrupted, msg)
}
