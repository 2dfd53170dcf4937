package allocator

import (
	"unsafe"

	"github.com/sirupsen/logrus"
)

func roundUp(size uint32) uint32 {
	return (size + WordSize - 1) &^ (WordSize - 1)
}

// Allocate reserves a block of at least size bytes and returns its address.
// Sizes are rounded up to a multiple of WordSize. On failure the address is 0
// and the arena is left unchanged.
func (a *Arena) Allocate(size uint32) (uint32, error) {
	if size == 0 {
		return 0, ErrInvalidSize
	}
	if a.data == nil || size > a.capacity {
		return 0, ErrOutOfMemory
	}

	need := roundUp(size)
	off := a.findFit(need)
	if off == nullPtr {
		a.entry().WithFields(logrus.Fields{
			FieldRequested: size,
			FieldFree:      a.freeBytes,
			FieldRegions:   a.nodes,
		}).Debug("no free region fits")
		return 0, ErrOutOfMemory
	}

	got := a.split(off, need)
	a.allocated += got
	a.blocks++
	return off + headerSize, nil
}

// ZeroAllocate is Allocate with every payload byte set to zero.
func (a *Arena) ZeroAllocate(size uint32) (uint32, error) {
	addr, err := a.Allocate(size)
	if err != nil {
		return 0, err
	}
	clear(a.payload(addr, a.head(addr-headerSize).size))
	return addr, nil
}

// Release returns the block at addr to the free list, merging it with
// neighboring free regions. addr must come from Allocate, ZeroAllocate or
// Reallocate and not have been released since; only Config.Debug detects
// violations beyond an out of range address.
func (a *Arena) Release(addr uint32) error {
	off, err := a.blockOffset(addr)
	if err != nil {
		return err
	}
	a.release(off)
	return nil
}

func (a *Arena) release(off uint32) {
	size := a.head(off).size
	a.allocated -= size
	a.blocks--
	a.coalesce(off, size)
}

// Reallocate resizes the block at addr. When newSize fits in the block, addr
// is returned unchanged. Otherwise the payload moves to a new block and the
// old one is released. On failure the block at addr is left intact.
func (a *Arena) Reallocate(addr uint32, newSize uint32) (uint32, error) {
	if newSize == 0 {
		return 0, ErrInvalidSize
	}
	off, err := a.blockOffset(addr)
	if err != nil {
		return 0, err
	}

	oldSize := a.head(off).size
	if newSize <= oldSize {
		return addr, nil
	}

	newAddr, err := a.Allocate(newSize)
	if err != nil {
		return 0, err
	}
	copy(a.payload(newAddr, oldSize), a.payload(addr, oldSize))
	a.release(off)
	return newAddr, nil
}

// SizeOf returns the payload size of the block at addr, or 0 if addr is not a
// block address.
func (a *Arena) SizeOf(addr uint32) uint32 {
	off, err := a.blockOffset(addr)
	if err != nil {
		return 0
	}
	return a.head(off).size
}

// Bytes returns the payload of the block at addr. The slice aliases the arena
// and must not be used after the block is released.
func (a *Arena) Bytes(addr uint32) []byte {
	off, err := a.blockOffset(addr)
	if err != nil {
		return nil
	}
	return a.payload(addr, a.head(off).size)
}

// ToRealAddr ...
func (a *Arena) ToRealAddr(addr uint32) unsafe.Pointer {
	return unsafe.Pointer(&a.data[addr])
}

func (a *Arena) payload(addr uint32, size uint32) []byte {
	return a.data[addr : addr+size : addr+size]
}

// blockOffset validates addr and returns the offset of its header.
func (a *Arena) blockOffset(addr uint32) (uint32, error) {
	if addr < headerSize || addr%WordSize != 0 || uint64(addr) >= uint64(len(a.data)) {
		return 0, ErrInvalidAddr
	}
	off := addr - headerSize
	h := a.head(off)
	if h.size == 0 || h.size%WordSize != 0 || uint64(addr)+uint64(h.size) > uint64(len(a.data)) {
		return 0, ErrInvalidAddr
	}
	if a.debug && h.tag != tagUsed {
		a.entry().WithFields(logrus.Fields{
			FieldAddr: addr,
			FieldSize: h.size,
		}).Warn("address is not a live block")
		return 0, ErrInvalidAddr
	}
	return off, nil
}
