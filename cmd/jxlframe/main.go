// Package main provides the jxlframe CLI entrypoint.
//
// All commands except `export` are read-only.
//
// Usage:
//
//	jxlframe [global options] <command> [subcommand] [options]
//
// Exit codes:
//   - 0: success
//   - 1: usage or configuration error
//   - 2: decode error
//   - 3: storage error (export only)
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/jxlframe/cli/cmd"
	_ "github.com/justapithecus/jxlframe/engine/libjxl"
	"github.com/justapithecus/jxlframe/types"
)

// commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "jxlframe",
		Usage:          "Incremental JPEG XL frame decoder and exporter",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Flags:          cmd.GlobalFlags(),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.InfoCommand(),
			cmd.FramesCommand(),
			cmd.MetaCommand(),
			cmd.ExportCommand(),
			cmd.SessionCommand(),
			cmd.TraceCommand(),
			cmd.ServeCommand(),
			cmd.VersionCommand(commit),
		},
	}
}

// exitErrHandler handles errors from the CLI, preserving exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	// Check for ExitCoder (from cli.Exit), handles wrapped errors
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N", so skip those
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	// Unexpected error - print and exit with code 1
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
