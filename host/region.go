// Package host obtains the byte ranges an arena is placed over.
package host

import (
	"unsafe"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidSize is returned for a zero or negative region size.
	ErrInvalidSize = errors.New("host: invalid region size")
	// ErrNotSupported is returned by Map on platforms without mmap.
	ErrNotSupported = errors.New("host: mmap not supported")
)

const wordSize = 8

// Region is a word aligned byte range owned by the host.
type Region struct {
	data   []byte
	mapped bool
}

// Heap allocates a region of size bytes from the Go heap. The backing array
// is made of 64-bit words so the first byte is always 8-byte aligned.
func Heap(size int) (*Region, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "%d bytes", size)
	}
	words := make([]uint64, (size+wordSize-1)/wordSize)
	data := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size)
	return &Region{data: data}, nil
}

// Map reserves a private anonymous mapping of size bytes outside the Go heap.
func Map(size int) (*Region, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "%d bytes", size)
	}
	data, err := mapAnon(size)
	if err != nil {
		return nil, errors.Wrapf(err, "map %d bytes", size)
	}
	return &Region{data: data, mapped: true}, nil
}

// Bytes returns the region, or nil after Close.
func (r *Region) Bytes() []byte {
	return r.data
}

// Size ...
func (r *Region) Size() int {
	return len(r.data)
}

// Mapped reports whether the region lives outside the Go heap.
func (r *Region) Mapped() bool {
	return r.mapped
}

// Close gives the region back. Slices obtained from Bytes must not be used
// afterwards. Closing twice is a no-op.
func (r *Region) Close() error {
	if r.data == nil {
		return nil
	}
	data := r.data
	r.data = nil
	if !r.mapped {
		return nil
	}
	if err := unmap(data); err != nil {
		return errors.Wrap(err, "unmap region")
	}
	return nil
}
