package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/jxlframe/cli/reader"
	"github.com/justapithecus/jxlframe/cli/render"
	"github.com/justapithecus/jxlframe/cli/tui"
	"github.com/justapithecus/jxlframe/types"
)

// framesWarningThreshold is the frame count above which frames suggests --limit.
const framesWarningThreshold = 100

// isStderrTTY returns true if stderr is a TTY.
func isStderrTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// InfoCommand returns the info command.
func InfoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Describe an image without decoding pixels",
		ArgsUsage: "<file|->",
		Flags:     TUIReadOnlyFlags(),
		Action:    infoAction,
	}
}

func infoAction(c *cli.Context) error {
	path, err := inputArg(c)
	if err != nil {
		return err
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	data, err := e.readInput(path)
	if err != nil {
		return err
	}
	view, err := reader.Info(path, data, e.decoderOptions(sessionFor(path, data))...)
	if err != nil {
		return decodeFailed(err)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewInfo, view)
	}
	return r.Render(view)
}

// FramesCommand returns the frames command.
func FramesCommand() *cli.Command {
	return &cli.Command{
		Name:      "frames",
		Usage:     "Decode frames and list their timing and pixel hashes",
		ArgsUsage: "<file|->",
		Flags: append(TUIReadOnlyFlags(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Stop after this many frames (0 = all)",
			},
		),
		Action: framesAction,
	}
}

func framesAction(c *cli.Context) error {
	path, err := inputArg(c)
	if err != nil {
		return err
	}
	limit := c.Int("limit")
	if limit < 0 {
		return cli.Exit(fmt.Sprintf("--limit must be >= 0, got %d", limit), exitUsage)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	data, err := e.readInput(path)
	if err != nil {
		return err
	}
	view, err := reader.Frames(path, data, limit, e.decoderOptions(sessionFor(path, data))...)
	if err != nil {
		return decodeFailed(err)
	}

	if limit == 0 && len(view.Frames) > framesWarningThreshold && isStderrTTY() {
		fmt.Fprintf(c.App.ErrWriter, "Warning: %d frames decoded. Use --limit to stop early.\n", len(view.Frames))
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewFrames, view)
	}
	// A table only has room for the frame rows.
	if r.Format() == render.FormatTable {
		return r.Render(view.Frames)
	}
	return r.Render(view)
}

// MetaCommand returns the meta command.
func MetaCommand() *cli.Command {
	return &cli.Command{
		Name:      "meta",
		Usage:     "Show or extract ICC, EXIF and XMP metadata",
		ArgsUsage: "<file|->",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:  "icc",
				Usage: "Write the ICC profile to this path",
			},
			&cli.StringFlag{
				Name:  "exif",
				Usage: "Write the EXIF payload (TIFF header onward) to this path",
			},
			&cli.StringFlag{
				Name:  "xmp",
				Usage: "Write the XMP packet to this path",
			},
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "List top-level container boxes instead of decoding",
			},
		),
		Action: metaAction,
	}
}

func metaAction(c *cli.Context) error {
	path, err := inputArg(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for meta command", exitUsage)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	data, err := e.readInput(path)
	if err != nil {
		return err
	}

	if c.Bool("raw") {
		rows, err := reader.Boxes(data)
		if err != nil {
			if len(rows) == 0 {
				return cli.Exit(err.Error(), exitDecodeError)
			}
			fmt.Fprintf(c.App.ErrWriter, "Warning: %v\n", err)
		}
		return r.Render(rows)
	}

	view, err := reader.Meta(data, e.decoderOptions(sessionFor(path, data))...)
	if err != nil {
		return decodeFailed(err)
	}

	outputs := []struct {
		flag string
		data []byte
	}{
		{"icc", view.ICC},
		{"exif", view.EXIF},
		{"xmp", view.XMP},
	}
	for _, o := range outputs {
		dst := c.String(o.flag)
		if dst == "" {
			continue
		}
		if o.data == nil {
			return cli.Exit(fmt.Sprintf("image has no %s metadata", o.flag), exitDecodeError)
		}
		if err := os.WriteFile(dst, o.data, 0o644); err != nil {
			return cli.Exit(fmt.Sprintf("write %s: %v", dst, err), exitUsage)
		}
	}
	return r.Render(view)
}

// inputArg returns the single input path argument.
func inputArg(c *cli.Context) (string, error) {
	if c.NArg() < 1 {
		return "", cli.Exit("input file required (use - for stdin)", exitUsage)
	}
	return c.Args().First(), nil
}

// sessionFor labels a read-only decode in logs.
func sessionFor(path string, data []byte) *types.SessionMeta {
	return &types.SessionMeta{
		SessionID:  "cli",
		Source:     path,
		InputBytes: int64(len(data)),
	}
}
