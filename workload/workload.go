// Package workload drives an arena through a seeded random sequence of
// allocations, releases and reallocations, verifying block contents and the
// arena invariants as it goes.
package workload

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/QuangTung97/poolarena/allocator"
)

var (
	// ErrPayloadMismatch is returned when a block no longer holds what was written to it.
	ErrPayloadMismatch = errors.New("workload: payload mismatch")
	// ErrAccounting is returned when the arena counters disagree with the live blocks.
	ErrAccounting = errors.New("workload: accounting mismatch")
)

// Report summarizes a run.
type Report struct {
	Steps      int
	Allocs     int
	ZeroAllocs int
	Reallocs   int
	Moves      int
	Releases   int
	Failures   int
	Checks     int

	PeakAllocated uint32
	PeakBlocks    int

	Final allocator.Stats
}

type liveBlock struct {
	addr uint32
	fill byte
}

type runner struct {
	a      *allocator.Arena
	conf   Config
	rng    *rand.Rand
	logger *logrus.Entry

	maxSize uint32
	live    []liveBlock
	report  Report
}

// Run executes conf against a. a should be freshly initialized when
// conf.ReleaseAll is set.
func Run(a *allocator.Arena, conf Config, logger *logrus.Entry) (Report, error) {
	if err := conf.Validate(); err != nil {
		return Report{}, err
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	r := &runner{
		a:       a,
		conf:    conf,
		rng:     rand.New(rand.NewSource(conf.Seed)),
		logger:  logger.WithField(allocator.FieldComponent, "workload"),
		maxSize: conf.maxSize(a.Capacity()),
	}
	err := r.run()
	r.report.Final = a.Stats()
	return r.report, err
}

func (r *runner) run() error {
	for step := 1; step <= r.conf.Steps; step++ {
		if err := r.step(); err != nil {
			return errors.Wrapf(err, "step %d", step)
		}
		r.report.Steps = step

		if r.conf.CheckEvery > 0 && step%r.conf.CheckEvery == 0 {
			if err := r.check(); err != nil {
				return errors.Wrapf(err, "step %d", step)
			}
			r.logger.WithFields(logrus.Fields{
				"step":                    step,
				allocator.FieldBlocks:    len(r.live),
				allocator.FieldAllocated: r.a.Allocated(),
				allocator.FieldRegions:   r.a.NumFreeRegions(),
			}).Debug("checkpoint")
		}
	}

	if r.conf.ReleaseAll {
		for len(r.live) > 0 {
			if err := r.release(len(r.live) - 1); err != nil {
				return errors.Wrap(err, "release all")
			}
		}
		if n := r.a.NumFreeRegions(); n != 1 || r.a.FreeBytes() != r.a.Capacity() {
			return errors.Wrapf(ErrAccounting, "%d free regions holding %d of %d bytes after releasing every block",
				n, r.a.FreeBytes(), r.a.Capacity())
		}
	}

	if err := r.check(); err != nil {
		return errors.Wrap(err, "final")
	}

	r.logger.WithFields(logrus.Fields{
		"steps":     r.report.Steps,
		"allocs":    r.report.Allocs,
		"releases":  r.report.Releases,
		"reallocs":  r.report.Reallocs,
		"failures":  r.report.Failures,
		"peak":      r.report.PeakAllocated,
		"remaining": len(r.live),
	}).Info("workload finished")
	return nil
}

func (r *runner) step() error {
	if len(r.live) == 0 || r.conf.Alloc.Hit(r.rng) {
		return r.allocate()
	}

	i := r.rng.Intn(len(r.live))
	if r.conf.Realloc.Hit(r.rng) {
		return r.reallocate(i)
	}
	return r.release(i)
}

func (r *runner) drawSize() uint32 {
	span := int64(r.maxSize) - int64(r.conf.MinSize) + 1
	return r.conf.MinSize + uint32(r.rng.Int63n(span))
}

func (r *runner) drawFill() byte {
	return byte(r.rng.Intn(255) + 1)
}

func (r *runner) allocate() error {
	size := r.drawSize()
	zero := r.conf.Zero.Hit(r.rng)

	var addr uint32
	var err error
	if zero {
		addr, err = r.a.ZeroAllocate(size)
	} else {
		addr, err = r.a.Allocate(size)
	}
	if errors.Is(err, allocator.ErrOutOfMemory) {
		r.report.Failures++
		return nil
	}
	if err != nil {
		return err
	}

	if zero {
		r.report.ZeroAllocs++
		if err := verify(r.a.Bytes(addr), 0, addr); err != nil {
			return err
		}
	}
	r.report.Allocs++

	b := liveBlock{addr: addr, fill: r.drawFill()}
	fill(r.a.Bytes(addr), b.fill)
	r.live = append(r.live, b)
	r.trackPeak()
	return nil
}

func (r *runner) reallocate(i int) error {
	b := r.live[i]
	oldSize := r.a.SizeOf(b.addr)
	if err := verify(r.a.Bytes(b.addr), b.fill, b.addr); err != nil {
		return err
	}

	addr, err := r.a.Reallocate(b.addr, growSize(oldSize, r.drawSize(), r.a.Capacity()))
	if errors.Is(err, allocator.ErrOutOfMemory) {
		r.report.Failures++
		return verify(r.a.Bytes(b.addr), b.fill, b.addr)
	}
	if err != nil {
		return err
	}

	r.report.Reallocs++
	if addr != b.addr {
		r.report.Moves++
	}
	payload := r.a.Bytes(addr)
	if err := verify(payload[:oldSize], b.fill, addr); err != nil {
		return err
	}
	fill(payload, b.fill)
	r.live[i].addr = addr
	r.trackPeak()
	return nil
}

func (r *runner) release(i int) error {
	b := r.live[i]
	if err := verify(r.a.Bytes(b.addr), b.fill, b.addr); err != nil {
		return err
	}
	if err := r.a.Release(b.addr); err != nil {
		return errors.Wrapf(err, "release %#x", b.addr)
	}

	last := len(r.live) - 1
	r.live[i] = r.live[last]
	r.live = r.live[:last]
	r.report.Releases++
	return nil
}

func (r *runner) check() error {
	r.report.Checks++
	if err := r.a.Check(); err != nil {
		return err
	}

	allocated := lo.SumBy(r.live, func(b liveBlock) uint32 {
		return r.a.SizeOf(b.addr)
	})
	if allocated != r.a.Allocated() || uint32(len(r.live)) != r.a.NumBlocks() {
		return errors.Wrapf(ErrAccounting, "%d live blocks holding %d bytes, arena reports %d blocks holding %d bytes",
			len(r.live), allocated, r.a.NumBlocks(), r.a.Allocated())
	}
	return nil
}

func (r *runner) trackPeak() {
	if v := r.a.Allocated(); v > r.report.PeakAllocated {
		r.report.PeakAllocated = v
	}
	if len(r.live) > r.report.PeakBlocks {
		r.report.PeakBlocks = len(r.live)
	}
}

// growSize returns size+extra capped at capacity.
func growSize(size uint32, extra uint32, capacity uint32) uint32 {
	total := uint64(size) + uint64(extra)
	if total > uint64(capacity) {
		return capacity
	}
	return uint32(total)
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

func verify(b []byte, v byte, addr uint32) error {
	if b == nil {
		return errors.Wrapf(ErrPayloadMismatch, "block %#x is gone", addr)
	}
	for i, got := range b {
		if got != v {
			return errors.Wrapf(ErrPayloadMismatch, "block %#x byte %d is %#x, want %#x", addr, i, got, v)
		}
	}
	return nil
}
