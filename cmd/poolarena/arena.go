package main

import (
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"github.com/QuangTung97/poolarena/allocator"
	"github.com/QuangTung97/poolarena/host"
)

// newArena builds an arena from the shared arena flags. The caller closes
// the returned region once the arena is no longer used.
func newArena(c *cli.Context) (*allocator.Arena, *host.Region, error) {
	size, err := humanize.ParseBytes(c.String(sizeFlag))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "invalid --%s", sizeFlag)
	}

	var region *host.Region
	if c.Bool(mmapFlag) {
		region, err = host.Map(int(size))
	} else {
		region, err = host.Heap(int(size))
	}
	if err != nil {
		return nil, nil, err
	}

	a, err := allocator.New(region.Bytes(), allocator.Config{
		Debug:  c.Bool(debugFlag),
		Logger: logrus.WithField(allocator.FieldComponent, "arena"),
	})
	if err != nil {
		_ = region.Close()
		return nil, nil, err
	}

	logrus.WithFields(logrus.Fields{
		allocator.FieldSpan:     humanize.IBytes(size),
		allocator.FieldCapacity: a.Capacity(),
		"mmap":                  region.Mapped(),
	}).Debug("arena ready")
	return a, region, nil
}
