package main

import (
	"fmt"

	"github.com/pkg/errors"
	cli "github.com/urfave/cli/v2"
)

var demoCommand = &cli.Command{
	Name:  "demo",
	Usage: "allocate four small blocks, release the 2nd and 4th, then the 3rd, dumping the layout after each phase",
	Flags: arenaFlags,
	Action: func(c *cli.Context) error {
		a, region, err := newArena(c)
		if err != nil {
			return err
		}
		defer func() { _ = region.Close() }()

		w := c.App.Writer
		var blocks [4]uint32
		for i := range blocks {
			blocks[i], err = a.Allocate(4)
			if err != nil {
				return errors.Wrapf(err, "allocate block %d", i+1)
			}
			_, _ = fmt.Fprintf(w, "block %d at %#x, %d bytes\n", i+1, blocks[i], a.SizeOf(blocks[i]))
		}

		phases := []struct {
			name    string
			release []int
		}{
			{name: "release blocks 2 and 4", release: []int{1, 3}},
			{name: "release block 3", release: []int{2}},
		}
		for _, p := range phases {
			for _, i := range p.release {
				if err := a.Release(blocks[i]); err != nil {
					return errors.Wrapf(err, "release block %d", i+1)
				}
			}
			if err := a.Check(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(w, "\n%s:\n", p.name)
			if err := a.Dump(w); err != nil {
				return err
			}
		}
		return nil
	},
}
