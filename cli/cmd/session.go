package cmd

import (
	"context"
	"errors"
	"fmt"

	lodelib "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/jxlframe/cli/reader"
	"github.com/justapithecus/jxlframe/cli/render"
	"github.com/justapithecus/jxlframe/lode"
)

// SessionCommand returns the session command.
// It reads an exported session back from storage and never writes.
func SessionCommand() *cli.Command {
	return &cli.Command{
		Name:      "session",
		Usage:     "Show an exported session and its frame records",
		ArgsUsage: "<session-id>",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:  "storage-dataset",
				Usage: "Lode dataset ID",
				Value: lode.DefaultDataset,
			},
			&cli.StringFlag{
				Name:  "storage-backend",
				Usage: "Storage backend: fs or s3",
				Value: "fs",
			},
			&cli.StringFlag{
				Name:  "storage-path",
				Usage: "Storage path (fs: directory, s3: bucket/prefix)",
			},
			&cli.StringFlag{
				Name:  "storage-region",
				Usage: "AWS region for S3 backend (optional, uses default chain)",
			},
			&cli.StringFlag{
				Name:  "storage-endpoint",
				Usage: "Custom S3 endpoint for S3-compatible providers",
			},
			&cli.BoolFlag{
				Name:  "storage-s3-path-style",
				Usage: "Force S3 path-style addressing",
			},
		),
		Action: sessionAction,
	}
}

func sessionAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("session-id required", exitUsage)
	}
	sessionID := c.Args().First()

	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for session command", exitUsage)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	storage := resolveStorage(c, cfg)
	if err := validateStorageConfig(storage); err != nil {
		return cli.Exit(fmt.Sprintf("invalid storage config: %v", err), exitUsage)
	}

	ds, err := buildReadDataset(c.Context, storage)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to open dataset: %v", err), exitStorageError)
	}

	view, err := reader.Session(c.Context, ds, sessionID)
	if err != nil {
		if errors.Is(err, lode.ErrSessionNotFound) {
			return cli.Exit(fmt.Sprintf("session %s not found in dataset %s", sessionID, storage.dataset), exitUsage)
		}
		return cli.Exit(fmt.Sprintf("read session: %v", err), exitStorageError)
	}

	if r.Format() == render.FormatTable {
		return r.Render(view.Frames)
	}
	return r.Render(view)
}

// buildReadDataset opens the dataset the export command writes.
func buildReadDataset(ctx context.Context, storage storageChoice) (lodelib.Dataset, error) {
	switch storage.backend {
	case "fs":
		return lode.NewReadDatasetFS(storage.dataset, storage.path)
	case "s3":
		bucket, prefix := lode.ParseS3Path(storage.path)
		return lode.NewReadDatasetS3(ctx, storage.dataset, lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       storage.region,
			Endpoint:     storage.endpoint,
			UsePathStyle: storage.pathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", storage.backend)
	}
}
