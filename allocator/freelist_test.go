package allocator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFreeList lays out free regions at the given offsets, each followed by
// a used block that keeps them apart, and sets the cursor.
func buildFreeList(t *testing.T, size int, offsets []uint32, cursor uint32) *Arena {
	a := newTestArena(t, size)

	a.nodes = 0
	a.freeBytes = 0
	prev := nullPtr
	for i, off := range offsets {
		end := uint32(len(a.data))
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		// free region of 16 bytes then a used block up to the next offset
		a.linkNode(off, 2*WordSize, prev, nullPtr)
		a.nodes++
		a.freeBytes += 2 * WordSize
		usedOff := off + headerSize + 2*WordSize
		if usedOff < end {
			h := a.head(usedOff)
			h.size = end - usedOff - headerSize
			h.tag = tagUsed
		}
		prev = off
	}
	a.cursor = cursor
	return a
}

func TestLinkNode(t *testing.T) {
	a := newTestArena(t, 1024)

	a.linkNode(0, 8, nullPtr, nullPtr)
	a.linkNode(128, 8, 0, nullPtr)
	a.linkNode(512, 8, 128, nullPtr)
	a.linkNode(64, 8, 0, 128)

	a.cursor = 512
	assert.Equal(t, []uint32{0, 64, 128, 512}, a.contentOfList())
	assert.Equal(t, uint32(64), a.node(128).prev)
	assert.Equal(t, tagFree, a.node(64).tag)

	a.unlinkNode(a.node(128))
	assert.Equal(t, []uint32{0, 64, 512}, a.contentOfList())
	assert.Equal(t, uint32(64), a.node(512).prev)
}

func TestFindPlace(t *testing.T) {
	offsets := []uint32{32, 128, 256, 512}

	table := []struct {
		name   string
		cursor uint32
		off    uint32

		prev uint32
		next uint32
	}{
		{name: "below-all", cursor: 512, off: 0, prev: nullPtr, next: 32},
		{name: "between-from-above", cursor: 512, off: 160, prev: 128, next: 256},
		{name: "between-from-below", cursor: 32, off: 160, prev: 128, next: 256},
		{name: "right-below-cursor", cursor: 256, off: 200, prev: 128, next: 256},
		{name: "right-above-cursor", cursor: 256, off: 300, prev: 256, next: 512},
		{name: "above-all", cursor: 32, off: 800, prev: 512, next: nullPtr},
		{name: "above-all-from-last", cursor: 512, off: 800, prev: 512, next: nullPtr},
	}

	for _, e := range table {
		t.Run(e.name, func(t *testing.T) {
			a := buildFreeList(t, 1024, offsets, e.cursor)
			prev, next := a.findPlace(e.off)
			assert.Equal(t, e.prev, prev)
			assert.Equal(t, e.next, next)
		})
	}
}

func TestFindPlace_EmptyList(t *testing.T) {
	a := newTestArena(t, 1024)
	a.cursor = nullPtr

	prev, next := a.findPlace(100)
	assert.Equal(t, nullPtr, prev)
	assert.Equal(t, nullPtr, next)
	assert.Equal(t, nullPtr, a.findFit(8))
}

func TestFindFit(t *testing.T) {
	a := newTestArena(t, 1024)

	a.linkNode(0, 32, nullPtr, nullPtr)
	a.linkNode(800, 64, 0, nullPtr)
	a.linkNode(400, 16, 0, 800)
	a.linkNode(880, 48, 800, nullPtr)

	table := []struct {
		name     string
		cursor   uint32
		size     uint32
		expected uint32
	}{
		{name: "cursor-fits", cursor: 880, size: 20, expected: 880},
		{name: "cursor-exact", cursor: 800, size: 64 - headerSize, expected: 800},
		{name: "no-room-for-header", cursor: 800, size: 64, expected: nullPtr},
		{name: "nearest-below", cursor: 880, size: 56, expected: 800},
		{name: "below-before-above", cursor: 400, size: 24, expected: 0},
		{name: "above-after-below", cursor: 400, size: 40, expected: 800},
		{name: "skip-small-above", cursor: 0, size: 40, expected: 800},
		{name: "none", cursor: 400, size: 100, expected: nullPtr},
	}

	for _, e := range table {
		t.Run(e.name, func(t *testing.T) {
			a.cursor = e.cursor
			assert.Equal(t, e.expected, a.findFit(e.size))
		})
	}
}

func TestSplit_MovesCursorOnWholeRegion(t *testing.T) {
	table := []struct {
		name   string
		cursor uint32
		off    uint32

		expected uint32
	}{
		{name: "to-next", cursor: 128, off: 128, expected: 256},
		{name: "to-prev-at-end", cursor: 512, off: 512, expected: 256},
		{name: "other-region", cursor: 0, off: 256, expected: 0},
	}

	for _, e := range table {
		t.Run(e.name, func(t *testing.T) {
			a := buildFreeList(t, 1024, []uint32{0, 128, 256, 512}, e.cursor)

			got := a.split(e.off, 2*WordSize)
			assert.Equal(t, uint32(2*WordSize), got)
			assert.Equal(t, e.expected, a.cursor)
			assert.Equal(t, uint32(3), a.nodes)
			assert.NotContains(t, a.contentOfList(), e.off)
			assert.Equal(t, tagUsed, a.head(e.off).tag)
		})
	}
}

func TestSplit_LastRegion(t *testing.T) {
	a := buildFreeList(t, 1024, []uint32{512}, 512)

	a.split(512, 2*WordSize)
	assert.Equal(t, nullPtr, a.cursor)
	assert.Nil(t, a.contentOfList())
	assert.Equal(t, uint32(0), a.nodes)
}

func TestCoalesce_Cursor(t *testing.T) {
	a := newTestArena(t, 1024)

	var addrs []uint32
	for i := 0; i < 6; i++ {
		p, err := a.Allocate(16)
		require.NoError(t, err)
		addrs = append(addrs, p)
	}
	tail := a.cursor
	assert.Equal(t, uint32(6*24), tail)

	// a release not touching the cursor keeps it
	require.NoError(t, a.Release(addrs[1]))
	assert.Equal(t, tail, a.cursor)

	// absorbing the cursor region moves the cursor to the merged start
	require.NoError(t, a.Release(addrs[5]))
	assert.Equal(t, uint32(5*24), a.cursor)
	assert.Equal(t, []uint32{24, 5 * 24}, a.contentOfList())

	// merging into the region below leaves the cursor alone
	require.NoError(t, a.Release(addrs[2]))
	assert.Equal(t, uint32(5*24), a.cursor)
	assert.Equal(t, []uint32{24, 5 * 24}, a.contentOfList())
	assert.Equal(t, uint32(16+8+16), a.node(24).size)

	// bridge two free regions
	require.NoError(t, a.Release(addrs[3]))
	require.NoError(t, a.Release(addrs[4]))
	assert.Equal(t, []uint32{24}, a.contentOfList())
	assert.Equal(t, uint32(24), a.cursor)
	assert.Equal(t, uint32(1024-24-8), a.node(24).size)
	assert.NoError(t, a.Check())
}

func TestCoalesce_IntoEmptyList(t *testing.T) {
	a := newTestArena(t, 1024)

	p1, err := a.Allocate(500)
	require.NoError(t, err)
	p2, err := a.Allocate(504 - headerSize)
	require.NoError(t, err)
	assert.Equal(t, uint32(504), a.SizeOf(p2))
	assert.Equal(t, nullPtr, a.cursor)

	require.NoError(t, a.Release(p2))
	assert.Equal(t, p2-headerSize, a.cursor)
	require.NoError(t, a.Release(p1))
	assert.Equal(t, uint32(0), a.cursor)
	assert.Equal(t, uint32(1016), a.node(0).size)
	assert.NoError(t, a.Check())
}

func TestArena_Random(t *testing.T) {
	for _, seed := range []int64{1, 7, 42, 1234} {
		a := newTestArena(t, 16*1024)
		r := rand.New(rand.NewSource(seed))

		live := map[uint32]byte{}
		for step := 0; step < 2000; step++ {
			switch op := r.Intn(10); {
			case op < 5 || len(live) == 0:
				size := uint32(r.Intn(300) + 1)
				p, err := a.Allocate(size)
				if err != nil {
					require.ErrorIs(t, err, ErrOutOfMemory)
					continue
				}
				fill := byte(r.Intn(255) + 1)
				for i, b := 0, a.Bytes(p); i < len(b); i++ {
					b[i] = fill
				}
				live[p] = fill

			case op < 9:
				for p, fill := range live {
					for _, v := range a.Bytes(p) {
						require.Equal(t, fill, v, "seed %d step %d addr %d", seed, step, p)
					}
					require.NoError(t, a.Release(p))
					delete(live, p)
					break
				}

			default:
				for p, fill := range live {
					size := a.SizeOf(p) + uint32(r.Intn(64)+1)
					np, err := a.Reallocate(p, size)
					if err != nil {
						require.ErrorIs(t, err, ErrOutOfMemory)
						break
					}
					delete(live, p)
					b := a.Bytes(np)
					for i := range b {
						b[i] = fill
					}
					live[np] = fill
					break
				}
			}

			require.NoError(t, a.Check(), "seed %d step %d", seed, step)
			require.Equal(t, uint32(len(live)), a.NumBlocks())
		}

		for p := range live {
			require.NoError(t, a.Release(p))
		}
		assert.Equal(t, []uint32{0}, a.contentOfList())
		assert.Equal(t, a.Capacity(), a.FreeBytes())
	}
}
