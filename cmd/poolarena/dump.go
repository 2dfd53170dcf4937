package main

import (
	"math"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"
)

const (
	allocFlag   = "alloc"
	releaseFlag = "release"
	logFlag     = "log"
)

var dumpCommand = &cli.Command{
	Name:  "dump",
	Usage: "allocate the given sizes, release some of them by index and print the resulting layout",
	Flags: append([]cli.Flag{
		&cli.StringSliceFlag{
			Name:    allocFlag,
			Aliases: []string{"a"},
			Usage:   "block sizes to allocate in order, e.g. --alloc 100,2KiB",
		},
		&cli.IntSliceFlag{
			Name:    releaseFlag,
			Aliases: []string{"r"},
			Usage:   "1-based indexes of --alloc blocks to release afterwards",
		},
		&cli.BoolFlag{
			Name:  logFlag,
			Usage: "also log every region through logrus",
		},
	}, arenaFlags...),
	Action: func(c *cli.Context) error {
		sizes := make([]uint64, 0, len(c.StringSlice(allocFlag)))
		for _, s := range c.StringSlice(allocFlag) {
			size, err := humanize.ParseBytes(s)
			if err != nil {
				return errors.Wrapf(err, "invalid --%s %q", allocFlag, s)
			}
			if size > math.MaxUint32 {
				return errors.Errorf("--%s %s exceeds the largest block size", allocFlag, s)
			}
			sizes = append(sizes, size)
		}

		a, region, err := newArena(c)
		if err != nil {
			return err
		}
		defer func() { _ = region.Close() }()

		addrs := make([]uint32, len(sizes))
		for i, size := range sizes {
			addrs[i], err = a.Allocate(uint32(size))
			if err != nil {
				return errors.Wrapf(err, "allocate %s", humanize.IBytes(size))
			}
		}

		release := lo.Uniq(c.IntSlice(releaseFlag))
		for _, i := range release {
			if i < 1 || i > len(addrs) {
				return errors.Errorf("--%s %d is out of range", releaseFlag, i)
			}
			if err := a.Release(addrs[i-1]); err != nil {
				return err
			}
		}

		if err := a.Check(); err != nil {
			return err
		}
		if c.Bool(logFlag) {
			a.Log(logrus.WithField("command", "dump"))
		}
		return a.Dump(c.App.Writer)
	},
}
