package allocator

import (
	"math"
	"unsafe"
)

const nullPtr uint32 = math.MaxUint32

const (
	tagNone uint32 = 0
	tagUsed uint32 = 0xa110c8ed
	tagFree uint32 = 0xf4eeb10c
)

// blockHeader is the first word of every region.
type blockHeader struct {
	size uint32
	tag  uint32
}

// freeListHead overlays a free region: its header word plus the link word.
type freeListHead struct {
	size uint32
	tag  uint32
	prev uint32
	next uint32
}

func (a *Arena) head(off uint32) *blockHeader {
	_ = a.data[off+headerSize-1]
	return (*blockHeader)(unsafe.Pointer(&a.data[off]))
}

func (a *Arena) node(off uint32) *freeListHead {
	_ = a.data[off+headerSize+linkSize-1]
	return (*freeListHead)(unsafe.Pointer(&a.data[off]))
}

// linkNode writes a free region at off and makes prev and next point at it.
func (a *Arena) linkNode(off uint32, size uint32, prev uint32, next uint32) {
	n := a.node(off)
	n.size = size
	n.tag = tagFree
	n.prev = prev
	n.next = next

	if prev != nullPtr {
		a.node(prev).next = off
	}
	if next != nullPtr {
		a.node(next).prev = off
	}
}

func (a *Arena) unlinkNode(n *freeListHead) {
	if n.prev != nullPtr {
		a.node(n.prev).next = n.next
	}
	if n.next != nullPtr {
		a.node(n.next).prev = n.prev
	}
}

// fits reports whether a free region of avail bytes can hold a block of size
// bytes along with the header of the block.
func fits(avail uint32, size uint32) bool {
	return uint64(avail) >= uint64(size)+headerSize
}

// findFit returns the first free region fitting size bytes: the cursor, then
// toward lower addresses, then toward higher addresses.
func (a *Arena) findFit(size uint32) uint32 {
	if a.cursor == nullPtr {
		return nullPtr
	}
	cur := a.node(a.cursor)
	if fits(cur.size, size) {
		return a.cursor
	}
	for off := cur.prev; off != nullPtr; off = a.node(off).prev {
		if fits(a.node(off).size, size) {
			return off
		}
	}
	for off := cur.next; off != nullPtr; off = a.node(off).next {
		if fits(a.node(off).size, size) {
			return off
		}
	}
	return nullPtr
}

// findPlace returns the free regions surrounding off in address order,
// scanning from the cursor in the direction of off.
func (a *Arena) findPlace(off uint32) (prev uint32, next uint32) {
	if a.cursor == nullPtr {
		return nullPtr, nullPtr
	}

	if off < a.cursor {
		next = a.cursor
		for prev = a.node(next).prev; prev != nullPtr && prev > off; prev = a.node(prev).prev {
			next = prev
		}
		return prev, next
	}

	prev = a.cursor
	for next = a.node(prev).next; next != nullPtr && next < off; next = a.node(next).next {
		prev = next
	}
	return prev, next
}

// split carves a block of size bytes from the head of the free region at off
// and returns the size recorded for the block. When the remainder could not
// hold a free region the whole region goes to the block.
func (a *Arena) split(off uint32, size uint32) uint32 {
	n := a.node(off)
	avail, prev, next := n.size, n.prev, n.next

	if avail-size < headerSize+linkSize {
		a.unlinkNode(n)
		if a.cursor == off {
			a.cursor = next
			if next == nullPtr {
				a.cursor = prev
			}
		}
		a.nodes--
		a.freeBytes -= avail
		size = avail
	} else {
		rest := off + headerSize + size
		a.linkNode(rest, avail-size-headerSize, prev, next)
		a.cursor = rest
		a.freeBytes -= size + headerSize
	}

	h := a.head(off)
	h.size = size
	h.tag = tagUsed
	return size
}

// coalesce returns the region at off to the free list, merging it with the
// free regions directly below and above it.
func (a *Arena) coalesce(off uint32, size uint32) {
	prev, next := a.findPlace(off)

	start, total := off, size
	moveCursor := a.cursor == nullPtr

	if next != nullPtr && off+headerSize+size == next {
		n := a.node(next)
		total += headerSize + n.size
		a.freeBytes -= n.size
		a.nodes--
		if a.cursor == next {
			moveCursor = true
		}
		after := n.next
		n.size, n.tag = 0, tagNone
		next = after
	}

	if prev != nullPtr {
		p := a.node(prev)
		if prev+headerSize+p.size == off {
			start = prev
			total += headerSize + p.size
			a.freeBytes -= p.size
			a.nodes--
			prev = p.prev

			h := a.head(off)
			h.size, h.tag = 0, tagNone
		}
	}

	a.linkNode(start, total, prev, next)
	a.freeBytes += total
	a.nodes++
	if moveCursor {
		a.cursor = start
	}
}

// first returns the lowest free region.
func (a *Arena) first() uint32 {
	off := a.cursor
	if off == nullPtr {
		return nullPtr
	}
	for {
		prev := a.node(off).prev
		if prev == nullPtr {
			return off
		}
		off = prev
	}
}

func (a *Arena) contentOfList() []uint32 {
	var result []uint32
	if a.data == nil {
		return nil
	}
	for off := a.first(); off != nullPtr; off = a.node(off).next {
		result = append(result, off)
	}
	return result
}
