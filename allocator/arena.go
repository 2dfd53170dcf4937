// Package allocator manages a fixed, caller-supplied byte range with an
// address-ordered free list threaded through the unused bytes themselves.
//
// Block addresses are offsets into the byte range. Every region (free or
// allocated) begins with a one-word header holding its payload size. A free
// region also keeps the offsets of its neighbors in the free list inside its
// first payload word.
//
// An Arena is not safe for concurrent use.
package allocator

import (
	"math"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// WordSize is the alignment of every region and block size.
	WordSize = 8

	headerSize = WordSize
	linkSize   = WordSize

	// smallest region able to sit in the free list
	minArenaSize = headerSize + linkSize

	// offsets must stay below nullPtr
	maxArenaSize = uint64(math.MaxUint32) &^ (WordSize - 1)
)

// Config ...
type Config struct {
	// Debug rejects addresses whose header is not tagged as allocated,
	// catching double release and foreign addresses.
	Debug bool

	// Logger receives diagnostics. Defaults to the standard logrus logger.
	Logger *logrus.Entry
}

// Arena ...
type Arena struct {
	data []byte

	capacity  uint32
	allocated uint32
	freeBytes uint32
	blocks    uint32
	nodes     uint32

	cursor uint32

	debug  bool
	logger *logrus.Entry
}

// New creates an arena over data.
func New(data []byte, conf Config) (*Arena, error) {
	a := &Arena{
		debug:  conf.Debug,
		logger: conf.Logger,
	}
	if err := a.Init(data); err != nil {
		return nil, err
	}
	return a, nil
}

// Init binds the arena to data, installing one free region over the whole
// range. Blocks handed out before are discarded without notice.
//
// The first byte of data must be WordSize aligned. Trailing bytes that do not
// fill a whole word are left unused.
func (a *Arena) Init(data []byte) error {
	if len(data) == 0 {
		return errors.Wrap(ErrInvalidRegion, "empty byte range")
	}
	base := uintptr(unsafe.Pointer(&data[0]))
	if base%WordSize != 0 {
		return errors.Wrapf(ErrInvalidRegion, "base %#x is not %d-byte aligned", base, WordSize)
	}

	span := uint64(len(data))
	if span > maxArenaSize {
		span = maxArenaSize
	}
	span &^= WordSize - 1
	if span < minArenaSize {
		return errors.Wrapf(ErrTooSmall, "%d bytes, need at least %d", len(data), minArenaSize)
	}

	a.data = data[:span:span]
	a.capacity = uint32(span) - headerSize
	a.allocated = 0
	a.freeBytes = a.capacity
	a.blocks = 0
	a.nodes = 1
	a.cursor = 0
	a.linkNode(0, a.capacity, nullPtr, nullPtr)
	if a.logger == nil {
		a.logger = defaultEntry()
	}

	a.entry().WithFields(logrus.Fields{
		FieldBase:     base,
		FieldSpan:     span,
		FieldCapacity: a.capacity,
	}).Debug("arena initialized")
	return nil
}

// Reset discards every block, returning the arena to its initial state.
func (a *Arena) Reset() error {
	if a.data == nil {
		return errors.Wrap(ErrInvalidRegion, "arena is not initialized")
	}
	return a.Init(a.data)
}

func defaultEntry() *logrus.Entry {
	return logrus.NewEntry(logrus.StandardLogger()).WithField(FieldComponent, "arena")
}

// entry returns the arena logger without storing a default.
func (a *Arena) entry() *logrus.Entry {
	if a.logger == nil {
		return defaultEntry()
	}
	return a.logger
}

// Capacity returns the largest payload a fresh arena can hand out.
func (a *Arena) Capacity() uint32 {
	return a.capacity
}

// Allocated returns the payload bytes of live blocks.
func (a *Arena) Allocated() uint32 {
	return a.allocated
}

// FreeBytes returns the payload bytes of all free regions.
func (a *Arena) FreeBytes() uint32 {
	return a.freeBytes
}

// Overhead returns the header bytes of every region but the first.
// Allocated() + FreeBytes() + Overhead() == Capacity() between calls.
func (a *Arena) Overhead() uint32 {
	if a.blocks+a.nodes == 0 {
		return 0
	}
	return (a.blocks + a.nodes - 1) * headerSize
}

// NumBlocks returns the number of live blocks.
func (a *Arena) NumBlocks() uint32 {
	return a.blocks
}

// NumFreeRegions returns the length of the free list.
func (a *Arena) NumFreeRegions() uint32 {
	return a.nodes
}

// Stats is a snapshot of arena accounting.
type Stats struct {
	Capacity    uint32
	Allocated   uint32
	Free        uint32
	Overhead    uint32
	Blocks      uint32
	FreeRegions uint32
	Largest     uint32  // largest free region
	Utilization float64 // Allocated / Capacity
}

// Stats returns a snapshot of the arena counters. It walks the free list to
// find the largest free region.
func (a *Arena) Stats() Stats {
	s := Stats{
		Capacity:    a.capacity,
		Allocated:   a.allocated,
		Free:        a.freeBytes,
		Overhead:    a.Overhead(),
		Blocks:      a.blocks,
		FreeRegions: a.nodes,
	}
	for _, off := range a.contentOfList() {
		if size := a.node(off).size; size > s.Largest {
			s.Largest = size
		}
	}
	if s.Capacity > 0 {
		s.Utilization = float64(s.Allocated) / float64(s.Capacity)
	}
	return s
}
