package poolarena

import (
	"io"
	"math"
	"sync"

	"github.com/pkg/errors"

	"github.com/QuangTung97/poolarena/allocator"
)

// SafeArena is a mutex-protected wrapper around allocator.Arena.
type SafeArena struct {
	mu sync.Mutex
	a  *allocator.Arena
}

// NewSafeArena creates an arena over data that can be shared between goroutines.
func NewSafeArena(data []byte, conf allocator.Config) (*SafeArena, error) {
	a, err := allocator.New(data, conf)
	if err != nil {
		return nil, err
	}
	return &SafeArena{a: a}, nil
}

// Allocate ...
func (s *SafeArena) Allocate(size uint32) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Allocate(size)
}

// ZeroAllocate ...
func (s *SafeArena) ZeroAllocate(size uint32) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.ZeroAllocate(size)
}

// Reallocate ...
func (s *SafeArena) Reallocate(addr uint32, newSize uint32) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Reallocate(addr, newSize)
}

// Release ...
func (s *SafeArena) Release(addr uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Release(addr)
}

// SizeOf ...
func (s *SafeArena) SizeOf(addr uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.SizeOf(addr)
}

// Store allocates a block holding a copy of data.
func (s *SafeArena) Store(data []byte) (uint32, error) {
	size, err := blockSize(len(data))
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	addr, err := s.a.Allocate(size)
	if err != nil {
		return 0, err
	}
	copy(s.a.Bytes(addr), data)
	return addr, nil
}

func blockSize(n int) (uint32, error) {
	if uint64(n) > math.MaxUint32 {
		return 0, errors.Wrapf(allocator.ErrInvalidSize, "%d bytes", n)
	}
	return uint32(n), nil
}

// Load copies the payload of the block at addr into a new slice.
// Returns nil if addr is not a block address.
func (s *SafeArena) Load(addr uint32) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.a.Bytes(addr)
	if b == nil {
		return nil
	}
	result := make([]byte, len(b))
	copy(result, b)
	return result
}

// Do runs fn with the lock held. The arena must not be retained after fn returns.
func (s *SafeArena) Do(fn func(a *allocator.Arena) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.a)
}

// Check ...
func (s *SafeArena) Check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Check()
}

// Stats ...
func (s *SafeArena) Stats() allocator.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Stats()
}

// Dump ...
func (s *SafeArena) Dump(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Dump(w)
}

// Reset discards every block.
func (s *SafeArena) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Reset()
}
