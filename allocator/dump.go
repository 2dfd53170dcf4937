package allocator

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Region describes one span of the arena.
type Region struct {
	Offset uint32 // header offset
	Addr   uint32 // payload address
	Size   uint32 // payload bytes
	Free   bool
}

func (r Region) state() string {
	if r.Free {
		return "free"
	}
	return "used"
}

func (r Region) String() string {
	return fmt.Sprintf("0x%06x %s %d", r.Addr, r.state(), r.Size)
}

// Regions lists every region in address order. The walk stops early on an
// arena that fails Check.
func (a *Arena) Regions() []Region {
	if a.data == nil {
		return nil
	}

	var result []Region
	span := uint64(len(a.data))
	nextFree := a.first()

	for off := uint64(0); off < span; {
		size := a.head(uint32(off)).size
		end := off + headerSize + uint64(size)
		if end > span {
			break
		}

		r := Region{
			Offset: uint32(off),
			Addr:   uint32(off) + headerSize,
			Size:   size,
		}
		if r.Offset == nextFree {
			r.Free = true
			nextFree = a.node(nextFree).next
		}
		result = append(result, r)
		off = end
	}
	return result
}

// FreeRegions lists the free list in address order.
func (a *Arena) FreeRegions() []Region {
	var result []Region
	for _, off := range a.contentOfList() {
		result = append(result, Region{
			Offset: off,
			Addr:   off + headerSize,
			Size:   a.node(off).size,
			Free:   true,
		})
	}
	return result
}

// Dump writes a listing of the arena counters and every region to w.
func (a *Arena) Dump(w io.Writer) error {
	s := a.Stats()
	_, err := fmt.Fprintf(w, "capacity %s, allocated %s, free %s in %d regions, overhead %s, %d blocks\n",
		humanize.IBytes(uint64(s.Capacity)), humanize.IBytes(uint64(s.Allocated)),
		humanize.IBytes(uint64(s.Free)), s.FreeRegions,
		humanize.IBytes(uint64(s.Overhead)), s.Blocks)
	if err != nil {
		return err
	}

	for _, r := range a.Regions() {
		_, err := fmt.Fprintf(w, "  0x%06x %s %8d  %s\n", r.Addr, r.state(), r.Size, humanize.IBytes(uint64(r.Size)))
		if err != nil {
			return err
		}
	}
	return nil
}

// Log emits one entry per region to logger, or to the arena logger if nil.
func (a *Arena) Log(logger *logrus.Entry) {
	if logger == nil {
		logger = a.entry()
	}
	for _, r := range a.Regions() {
		logger.WithFields(logrus.Fields{
			FieldAddr: r.Addr,
			FieldSize: r.Size,
			FieldFree: r.Free,
		}).Info("region")
	}
}
