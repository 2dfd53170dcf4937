package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"
)

const (
	logLevelFlag  = "log-level"
	logFormatFlag = "log-format"

	sizeFlag  = "size"
	mmapFlag  = "mmap"
	debugFlag = "debug"
)

var appCommands = []*cli.Command{
	runCommand,
	demoCommand,
	dumpCommand,
}

// arenaFlags are shared by every command that builds an arena.
var arenaFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    sizeFlag,
		Aliases: []string{"s"},
		Usage:   "arena size, e.g. 4096, 64KiB, 16MB",
		Value:   "1MiB",
	},
	&cli.BoolFlag{
		Name:  mmapFlag,
		Usage: "place the arena in an anonymous mapping instead of the Go heap",
	},
	&cli.BoolFlag{
		Name:  debugFlag,
		Usage: "reject released or foreign block addresses",
		Value: true,
	},
}

func app() *cli.App {
	return &cli.App{
		Name:           "poolarena",
		Usage:          "exercise a fixed-region free-list allocator",
		Commands:       appCommands,
		ExitErrHandler: errHandler,
		Before:         beforeApp,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    logLevelFlag,
				Usage:   "logrus level: trace, debug, info, warn, error",
				Value:   "info",
				EnvVars: []string{"POOLARENA_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:  logFormatFlag,
				Usage: "text or json",
				Value: "text",
			},
		},
	}
}

func beforeApp(c *cli.Context) error {
	lvl, err := logrus.ParseLevel(c.String(logLevelFlag))
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(c.App.ErrWriter)

	switch f := c.String(logFormatFlag); f {
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", f)
	}
	return nil
}

func errHandler(c *cli.Context, err error) {
	if err == nil {
		return
	}
	n := c.App.Name
	if c.Command != nil {
		if nn := c.Command.FullName(); nn != "" {
			n += " " + nn
		}
	}
	cli.HandleExitCoder(cli.Exit(fmt.Errorf("%s: %w", n, err), 1))
}

func main() {
	if err := app().Run(os.Args); err != nil {
		os.Exit(1)
	}
}
