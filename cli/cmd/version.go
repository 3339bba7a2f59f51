package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/jxlframe/cli/reader"
	"github.com/justapithecus/jxlframe/cli/render"
	"github.com/justapithecus/jxlframe/engine"
	"github.com/justapithecus/jxlframe/types"
)

// VersionCommand returns the version command.
// It reports the project version and the selected backend's library
// version; it never decodes.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  ReadOnlyFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}

		// TUI not supported for version command
		if c.Bool("tui") {
			return cli.Exit("--tui is not supported for version command", exitUsage)
		}

		e, err := newEnv(c)
		if err != nil {
			return err
		}
		defer e.close()

		resp := reader.VersionView{
			Version:  types.Version,
			Commit:   commit,
			Backend:  e.backendName(),
			Engine:   engineVersion(e),
			Backends: engine.Backends(),
		}
		return r.Render(resp)
	}
}

// engineVersion opens the backend just long enough to ask its version.
func engineVersion(e *env) string {
	eng, err := engine.Open(e.backendName(), engine.Options{Workers: e.workers})
	if err != nil {
		return "unavailable"
	}
	defer func() { _ = eng.Close() }()
	if v, ok := eng.(engine.Versioner); ok {
		return v.Version()
	}
	return "unknown"
}
