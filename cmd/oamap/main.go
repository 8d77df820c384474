// Command oamap exercises the oamap package: it benchmarks maps over
// generated keys, loads key files into a map and prints resize policies.
package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/jessevdk/go-flags"
)

type Options struct {
	LogLevel string `short:"l" long:"loglevel" default:"warning" description:"set the logging level [debug, info, notice, warning, error, critical]"`
	LogFile  string `long:"logfile" description:"also write logs to this file, rotated every 10 MB"`
	Verbose  bool   `short:"v" long:"verbose" description:"print logs to stderr"`
}

var opts Options

var parser = flags.NewParser(&opts, flags.Default)

var (
	benchCmd   Bench
	loadCmd    Load
	policyCmd  PolicyCmd
	versionCmd VersionCmd
)

// stdout receives command reports. color.Output strips colour codes on
// terminals that do not support them.
var stdout io.Writer = color.Output

func main() {
	parser.AddCommand("bench",
		"benchmark a map over generated keys",
		"The bench command inserts, reads back and deletes generated keys and reports timings and map statistics",
		&benchCmd)
	parser.AddCommand("load",
		"load key=value lines into a map",
		"The load command reads `key` or `key=value` lines from a file or stdin into a map and reports what happened to them",
		&loadCmd)
	parser.AddCommand("policy",
		"print the resize policy",
		"The policy command prints the effective resize policy as YAML, suitable for --policy",
		&policyCmd)
	parser.AddCommand("version",
		"print the library version",
		"The version command prints the oamap library version",
		&versionCmd)

	parser.CommandHandler = func(command flags.Commander, args []string) error {
		if err := setupLogging(opts); err != nil {
			return err
		}
		defer closeLogging()
		return command.Execute(args)
	}

	if _, err := parser.Parse(); err != nil {
		if ferr, ok := err.(*flags.Error); ok && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
