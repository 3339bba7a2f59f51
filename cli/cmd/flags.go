// Package cmd provides CLI commands for the jxlframe binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for select read-only commands (info, frames).
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (info, frames only)",
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// TUIReadOnlyFlags returns flags for commands that support TUI mode.
// This is an alias for ReadOnlyFlags, kept for documentation clarity.
func TUIReadOnlyFlags() []cli.Flag {
	return ReadOnlyFlags()
}

// GlobalFlags returns the app-level flags shared by every command.
// Each one falls back to the matching jxlframe.yaml key when not set.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to jxlframe.yaml",
			EnvVars: []string{"JXLFRAME_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "backend",
			Usage:   "Decode engine backend",
			EnvVars: []string{"JXLFRAME_BACKEND"},
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Parallel runner size for the backend (0 = backend default)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
			Value: "warn",
		},
		&cli.BoolFlag{
			Name:  "full-prescan",
			Usage: "Decode every frame while counting frames",
		},
		&cli.BoolFlag{
			Name:  "allow-unsupported-mode",
			Usage: "Open images whose channel layout has no pixel mode",
		},
		&cli.Int64Flag{
			Name:  "max-input-bytes",
			Usage: "Reject inputs larger than this (0 = no limit)",
		},
		&cli.StringFlag{
			Name:  "metrics-textfile",
			Usage: "Write metrics in Prometheus text format to this path on exit",
		},
	}
}
