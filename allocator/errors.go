package allocator

import "github.com/pkg/errors"

var (
	// ErrInvalidRegion is returned by Init when the byte range is empty or misaligned.
	ErrInvalidRegion = errors.New("arena: invalid region")
	// ErrTooSmall is returned by Init when the range cannot hold one free region.
	ErrTooSmall = errors.New("arena: region too small")
	// ErrInvalidSize is returned for zero-byte requests.
	ErrInvalidSize = errors.New("arena: invalid size")
	// ErrOutOfMemory is returned when no free region fits the request.
	ErrOutOfMemory = errors.New("arena: out of memory")
	// ErrCorrupted is returned by Check when the free list and counters disagree.
	ErrCorrupted = errors.New("arena: corrupted")
	// ErrInvalidAddr is returned when an address does not point at a live block.
	ErrInvalidAddr = errors.New("arena: invalid block address")
)
