package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/jxlframe/cli/reader"
	"github.com/justapithecus/jxlframe/cli/render"
	"github.com/justapithecus/jxlframe/decoder"
	"github.com/justapithecus/jxlframe/engine"
	"github.com/justapithecus/jxlframe/engine/script"
	"github.com/justapithecus/jxlframe/iox"
	"github.com/justapithecus/jxlframe/trace"
)

// TraceCommand returns the trace command with subcommands.
func TraceCommand() *cli.Command {
	return &cli.Command{
		Name:  "trace",
		Usage: "Record and replay engine call traces",
		Subcommands: []*cli.Command{
			traceRecordCommand(),
			traceReplayCommand(),
			traceShowCommand(),
		},
	}
}

func traceRecordCommand() *cli.Command {
	return &cli.Command{
		Name:      "record",
		Usage:     "Decode an image and record every engine call",
		ArgsUsage: "<file|->",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Usage:    "Trace output path",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "compress",
				Usage: "zstd-compress the trace",
			},
		),
		Action: traceRecordAction,
	}
}

func traceRecordAction(c *cli.Context) error {
	path, err := inputArg(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for trace command", exitUsage)
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

	eng, err := engine.Open(e.backendName(), engine.Options{Workers: e.workers})
	if err != nil {
		return decodeFailed(err)
	}
	header := trace.NewHeader(data, e.backendName())
	if v, ok := eng.(engine.Versioner); ok {
		header.EngineVersion = v.Version()
	}

	f, err := os.Create(c.String("out"))
	if err != nil {
		_ = eng.Close()
		return cli.Exit(fmt.Sprintf("create trace: %v", err), exitUsage)
	}
	defer iox.DiscardClose(f)
	bw := bufio.NewWriter(f)
	tw, err := trace.NewWriter(bw, header, c.Bool("compress"))
	if err != nil {
		_ = eng.Close()
		return cli.Exit(fmt.Sprintf("write trace: %v", err), exitUsage)
	}
	rec := trace.NewRecorder(eng, tw)

	opts := append(e.decoderOptions(sessionFor(path, data)), decoder.WithEngine(rec))
	view, decodeErr := reader.Frames(path, data, 0, opts...)

	// A failed decode is still a useful trace.
	if err := errors.Join(rec.Err(), tw.Close(), bw.Flush()); err != nil {
		return cli.Exit(fmt.Sprintf("write trace: %v", err), exitUsage)
	}
	if decodeErr != nil {
		fmt.Fprintf(c.App.ErrWriter, "trace written to %s\n", c.String("out"))
		return decodeFailed(decodeErr)
	}
	if r.Format() == render.FormatTable {
		return r.Render(view.Frames)
	}
	return r.Render(view)
}

func traceReplayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Decode an image against a recorded trace instead of a backend",
		ArgsUsage: "<trace>",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "The image the trace was recorded over",
				Required: true,
			},
		),
		Action: traceReplayAction,
	}
}

func traceReplayAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("trace file required", exitUsage)
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for trace command", exitUsage)
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

	tr, err := readTrace(c.Args().First())
	if err != nil {
		return err
	}
	path := c.String("input")
	data, err := e.readInput(path)
	if err != nil {
		return err
	}
	if !tr.Header.Matches(data) {
		return cli.Exit(fmt.Sprintf("%s does not match the trace input (%d bytes, hash %016x)",
			path, tr.Header.InputSize, tr.Header.InputHash), exitUsage)
	}

	replay, err := script.FromTrace(tr)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	opts := append(e.decoderOptions(sessionFor(path, data)), decoder.WithEngine(replay))
	view, decodeErr := reader.Frames(path, data, 0, opts...)
	if err := replay.Err(); err != nil {
		return cli.Exit(fmt.Sprintf("replay diverged: %v", err), exitDecodeError)
	}
	if decodeErr != nil {
		return decodeFailed(decodeErr)
	}
	if r.Format() == render.FormatTable {
		return r.Render(view.Frames)
	}
	return r.Render(view)
}

// TraceView is the payload of jxlframe trace show.
type TraceView struct {
	Version       int      `json:"version" yaml:"version"`
	Backend       string   `json:"backend" yaml:"backend"`
	EngineVersion string   `json:"engine_version" yaml:"engine_version"`
	InputSize     int      `json:"input_size" yaml:"input_size"`
	InputHash     string   `json:"input_hash" yaml:"input_hash"`
	Records       int      `json:"records" yaml:"records"`
	Statuses      []string `json:"statuses" yaml:"statuses"`
}

func traceShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Summarize a trace file",
		ArgsUsage: "<trace>",
		Flags:     ReadOnlyFlags(),
		Action:    traceShowAction,
	}
}

func traceShowAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("trace file required", exitUsage)
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for trace command", exitUsage)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	tr, err := readTrace(c.Args().First())
	if err != nil {
		return err
	}

	view := TraceView{
		Version:       tr.Header.Version,
		Backend:       tr.Header.Backend,
		EngineVersion: tr.Header.EngineVersion,
		InputSize:     tr.Header.InputSize,
		InputHash:     fmt.Sprintf("%016x", tr.Header.InputHash),
		Records:       len(tr.Records),
	}
	for _, s := range tr.Statuses() {
		view.Statuses = append(view.Statuses, s.String())
	}
	return r.Render(view)
}

func readTrace(path string) (*trace.Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("open trace: %v", err), exitUsage)
	}
	defer iox.DiscardClose(f)
	tr, err := trace.Read(f)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("read trace: %v", err), exitUsage)
	}
	return tr, nil
}
