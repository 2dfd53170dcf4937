package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"github.com/QuangTung97/poolarena/workload"
)

const (
	configFlag = "config"
	seedFlag   = "seed"
	stepsFlag  = "steps"
)

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "run a seeded random workload against an arena and report the outcome",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:    configFlag,
			Aliases: []string{"c"},
			Usage:   "workload TOML file",
		},
		&cli.Int64Flag{
			Name:  seedFlag,
			Usage: "override the workload seed",
		},
		&cli.IntFlag{
			Name:  stepsFlag,
			Usage: "override the workload step count",
		},
	}, arenaFlags...),
	Action: func(c *cli.Context) error {
		conf := workload.DefaultConfig()
		if path := c.String(configFlag); path != "" {
			var err error
			conf, err = workload.LoadConfig(path)
			if err != nil {
				return err
			}
		}
		if c.IsSet(seedFlag) {
			conf.Seed = c.Int64(seedFlag)
		}
		if c.IsSet(stepsFlag) {
			conf.Steps = c.Int(stepsFlag)
		}

		a, region, err := newArena(c)
		if err != nil {
			return err
		}
		defer func() { _ = region.Close() }()

		report, err := workload.Run(a, conf, logrus.NewEntry(logrus.StandardLogger()))
		if err != nil {
			return err
		}
		printReport(c, report)
		return nil
	},
}

func printReport(c *cli.Context, r workload.Report) {
	w := c.App.Writer
	_, _ = fmt.Fprintf(w, "steps        %d\n", r.Steps)
	_, _ = fmt.Fprintf(w, "allocations  %d (%d zeroed)\n", r.Allocs, r.ZeroAllocs)
	_, _ = fmt.Fprintf(w, "reallocs     %d (%d moved)\n", r.Reallocs, r.Moves)
	_, _ = fmt.Fprintf(w, "releases     %d\n", r.Releases)
	_, _ = fmt.Fprintf(w, "failures     %d\n", r.Failures)
	_, _ = fmt.Fprintf(w, "checks       %d\n", r.Checks)
	_, _ = fmt.Fprintf(w, "peak         %s in %d blocks\n", humanize.IBytes(uint64(r.PeakAllocated)), r.PeakBlocks)
	_, _ = fmt.Fprintf(w, "final        %s allocated, %s free in %d regions, %.1f%% used\n",
		humanize.IBytes(uint64(r.Final.Allocated)), humanize.IBytes(uint64(r.Final.Free)),
		r.Final.FreeRegions, r.Final.Utilization*100)
}
