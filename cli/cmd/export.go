package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/jxlframe/adapter"
	"github.com/justapithecus/jxlframe/adapter/redis"
	"github.com/justapithecus/jxlframe/adapter/webhook"
	"github.com/justapithecus/jxlframe/cli/config"
	"github.com/justapithecus/jxlframe/export"
	"github.com/justapithecus/jxlframe/lode"
	"github.com/justapithecus/jxlframe/policy"
	"github.com/justapithecus/jxlframe/types"
)

// ExportCommand returns the export command.
// This is the only command that writes to storage.
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Decode an image and persist every frame to a Lode dataset",
		ArgsUsage: "<file|->",
		Flags: []cli.Flag{
			// Session flags
			&cli.StringFlag{
				Name:  "session-id",
				Usage: "Session ID (default: random UUID)",
			},
			&cli.StringFlag{
				Name:  "source",
				Usage: "Source label for partitioning",
				Value: "local",
			},
			&cli.StringFlag{
				Name:  "image",
				Usage: "Image name for partitioning (default: input file name)",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress result output",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Decode every frame with the noop policy and no storage",
			},
			// Policy flags
			&cli.StringFlag{
				Name:  "policy",
				Usage: "Export policy: strict, buffered or noop",
				Value: "strict",
			},
			&cli.IntFlag{
				Name:  "buffer-frames",
				Usage: "Max buffered frames (buffered policy)",
			},
			&cli.Int64Flag{
				Name:  "buffer-bytes",
				Usage: "Max buffered pixel bytes (buffered policy)",
			},
			// Storage flags
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
			&cli.BoolFlag{
				Name:  "write-pixels",
				Usage: "Store raw frame pixels as sidecar files",
				Value: true,
			},
			// Adapter flags
			&cli.StringFlag{
				Name:  "adapter",
				Usage: "Completion adapter: webhook or redis",
			},
			&cli.StringFlag{
				Name:  "adapter-url",
				Usage: "Adapter endpoint (webhook URL or redis:// URL)",
			},
			&cli.StringFlag{
				Name:  "adapter-channel",
				Usage: "Redis pub/sub channel",
			},
			&cli.StringFlag{
				Name:  "adapter-key-prefix",
				Usage: "Also store each redis event under this key prefix",
			},
			&cli.StringSliceFlag{
				Name:  "adapter-header",
				Usage: "Webhook header as key=value (repeatable)",
			},
			&cli.DurationFlag{
				Name:  "adapter-timeout",
				Usage: "Per-attempt publish timeout",
			},
			&cli.IntFlag{
				Name:  "adapter-retries",
				Usage: "Publish retry attempts",
				Value: webhook.DefaultRetries,
			},
		},
		Action: exportAction,
	}
}

// policyChoice holds parsed policy configuration.
type policyChoice struct {
	name      string
	maxFrames int
	maxBytes  int64
}

// storageChoice holds parsed Lode storage configuration.
type storageChoice struct {
	dataset     string
	backend     string // "fs" or "s3"
	path        string // fs: directory, s3: bucket/prefix
	region      string
	endpoint    string
	pathStyle   bool
	writePixels bool
}

func exportAction(c *cli.Context) error {
	path, err := inputArg(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	dryRun := c.Bool("dry-run")
	choice := resolvePolicy(c, cfg)
	if dryRun {
		choice = policyChoice{name: "noop"}
	}
	if err := validatePolicyConfig(choice, c.App.ErrWriter); err != nil {
		return cli.Exit(fmt.Sprintf("invalid policy config: %v", err), exitUsage)
	}

	storage := resolveStorage(c, cfg)
	persist := choice.name != "noop"
	if persist {
		if err := validateStorageConfig(storage); err != nil {
			return cli.Exit(fmt.Sprintf("invalid storage config: %v", err), exitUsage)
		}
	}

	pub, err := buildAdapter(c, cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid adapter config: %v", err), exitUsage)
	}
	if pub != nil {
		defer func() { _ = pub.Close() }()
	}

	storageLabel := ""
	if persist {
		storageLabel = storage.backend
	}
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	e.label(choice.name, storageLabel)
	defer e.close()

	data, err := e.readInput(path)
	if err != nil {
		return err
	}

	// Set up context with signal handling
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	startTime := time.Now()
	meta := &types.SessionMeta{
		SessionID:  c.String("session-id"),
		Source:     path,
		InputBytes: int64(len(data)),
	}
	if meta.SessionID == "" {
		meta.SessionID = uuid.NewString()
	}
	lodeCfg := lode.Config{
		Dataset:     storage.dataset,
		Source:      c.String("source"),
		Image:       imageFor(c.String("image"), path, meta.SessionID),
		Day:         lode.DeriveDay(startTime),
		SessionID:   meta.SessionID,
		Policy:      choice.name,
		WritePixels: storage.writePixels,
	}

	var (
		client      lode.Client
		storagePath string
	)
	if persist {
		lc, err := buildClient(ctx, storage, lodeCfg)
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to create storage client: %v", err), exitStorageError)
		}
		client = lc
		storagePath = buildStoragePath(storage, lc.PartitionPath())
	}

	pol, err := buildPolicy(choice, client, e)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create policy: %v", err), exitUsage)
	}
	defer func() { _ = pol.Close() }()

	exportCfg := export.Config{
		Input:          data,
		Meta:           meta,
		Image:          lodeCfg.Image,
		Day:            lodeCfg.Day,
		Backend:        e.backendName(),
		DecoderOptions: e.engineOptions(),
		Policy:         pol,
		Client:         client,
		StoragePath:    storagePath,
		Logger:         e.logger,
		Collector:      e.collector,
	}
	if pub != nil {
		exportCfg.Adapter = pub
	}

	result, err := export.Run(ctx, exportCfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("export failed: %v", err), exitUsage)
	}

	if !c.Bool("quiet") {
		printExportResult(c.App.Writer, result, choice, storagePath)
	}

	code := outcomeToExitCode(result.Outcome.Status)
	if code != exitSuccess {
		return cli.Exit(result.Outcome.Message, code)
	}
	return nil
}

func resolvePolicy(c *cli.Context, cfg *config.Config) policyChoice {
	return policyChoice{
		name:      resolveString(c, "policy", configVal(cfg, func(c *config.Config) string { return c.Policy.Name })),
		maxFrames: resolveInt(c, "buffer-frames", configVal(cfg, func(c *config.Config) int { return c.Policy.BufferFrames })),
		maxBytes:  resolveInt64(c, "buffer-bytes", configVal(cfg, func(c *config.Config) int64 { return c.Policy.BufferBytes })),
	}
}

func resolveStorage(c *cli.Context, cfg *config.Config) storageChoice {
	writePixels := c.Bool("write-pixels")
	if !c.IsSet("write-pixels") {
		if wp := configVal(cfg, func(c *config.Config) *bool { return c.Storage.WritePixels }); wp != nil {
			writePixels = *wp
		}
	}
	return storageChoice{
		dataset:     resolveString(c, "storage-dataset", configVal(cfg, func(c *config.Config) string { return c.Storage.Dataset })),
		backend:     resolveString(c, "storage-backend", configVal(cfg, func(c *config.Config) string { return c.Storage.Backend })),
		path:        resolveString(c, "storage-path", configVal(cfg, func(c *config.Config) string { return c.Storage.Path })),
		region:      resolveString(c, "storage-region", configVal(cfg, func(c *config.Config) string { return c.Storage.Region })),
		endpoint:    resolveString(c, "storage-endpoint", configVal(cfg, func(c *config.Config) string { return c.Storage.Endpoint })),
		pathStyle:   resolveBool(c, "storage-s3-path-style", configVal(cfg, func(c *config.Config) bool { return c.Storage.S3PathStyle })),
		writePixels: writePixels,
	}
}

func validatePolicyConfig(choice policyChoice, warn io.Writer) error {
	switch choice.name {
	case "strict", "noop":
		if choice.maxFrames > 0 || choice.maxBytes > 0 {
			fmt.Fprintf(warn, "Warning: buffer flags ignored for %s policy\n", choice.name)
		}
		return nil

	case "buffered":
		if choice.maxFrames < 0 || choice.maxBytes < 0 {
			return fmt.Errorf("buffer limits must be >= 0")
		}
		if choice.maxFrames == 0 && choice.maxBytes == 0 {
			return fmt.Errorf("buffered policy requires --buffer-frames > 0 or --buffer-bytes > 0")
		}
		return nil

	default:
		return fmt.Errorf("invalid policy: %s (must be strict, buffered or noop)", choice.name)
	}
}

func validateStorageConfig(storage storageChoice) error {
	switch storage.backend {
	case "fs", "s3":
	default:
		return fmt.Errorf("unknown storage backend: %s (must be fs or s3)", storage.backend)
	}
	if storage.path == "" {
		return fmt.Errorf("--storage-path is required (or storage.path in config, or use --dry-run)")
	}
	if storage.dataset == "" {
		return fmt.Errorf("--storage-dataset must not be empty")
	}
	if storage.backend == "fs" {
		info, err := os.Stat(storage.path)
		if err == nil && !info.IsDir() {
			return fmt.Errorf("--storage-path %s is not a directory", storage.path)
		}
	}
	return nil
}

// buildClient creates the Lode client for the resolved storage backend.
func buildClient(ctx context.Context, storage storageChoice, cfg lode.Config) (*lode.LodeClient, error) {
	switch storage.backend {
	case "fs":
		return lode.NewLodeClient(cfg, storage.path)
	case "s3":
		bucket, prefix := lode.ParseS3Path(storage.path)
		return lode.NewLodeS3Client(ctx, cfg, lode.S3Config{
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

// buildStoragePath returns the location of the session partition as
// reported in the completion event.
func buildStoragePath(storage storageChoice, partition string) string {
	switch storage.backend {
	case "fs":
		return filepath.Join(storage.path, filepath.FromSlash(partition))
	case "s3":
		bucket, prefix := lode.ParseS3Path(storage.path)
		if prefix == "" {
			return fmt.Sprintf("s3://%s/%s", bucket, partition)
		}
		return fmt.Sprintf("s3://%s/%s/%s", bucket, prefix, partition)
	default:
		return ""
	}
}

// buildPolicy wraps client in an instrumented sink and builds the policy
// over it. client is unused by the noop policy.
func buildPolicy(choice policyChoice, client lode.Client, e *env) (policy.Policy, error) {
	if choice.name == "noop" {
		return policy.NewNoopPolicy(), nil
	}
	if client == nil {
		return nil, fmt.Errorf("%s policy requires storage", choice.name)
	}
	sink := lode.NewInstrumentedSink(lode.NewSink(client), e.collector)

	switch choice.name {
	case "strict":
		return policy.NewStrictPolicy(sink), nil

	case "buffered":
		return policy.NewBufferedPolicy(sink, policy.BufferedConfig{
			MaxBufferFrames: choice.maxFrames,
			MaxBufferBytes:  choice.maxBytes,
			Logger:          e.logger,
		})

	default:
		return nil, fmt.Errorf("unknown policy: %s", choice.name)
	}
}

// buildAdapter resolves the adapter flags against the config file.
// A nil adapter means none is configured.
func buildAdapter(c *cli.Context, cfg *config.Config) (adapter.Adapter, error) {
	kind := resolveString(c, "adapter", configVal(cfg, func(c *config.Config) string { return c.Adapter.Type }))
	if kind == "" {
		return nil, nil
	}

	url := resolveString(c, "adapter-url", configVal(cfg, func(c *config.Config) string { return c.Adapter.URL }))
	timeout := resolveDuration(c, "adapter-timeout", configVal(cfg, func(c *config.Config) time.Duration { return c.Adapter.Timeout.Duration }))
	retries := c.Int("adapter-retries")
	if !c.IsSet("adapter-retries") {
		if r := configVal(cfg, func(c *config.Config) *int { return c.Adapter.Retries }); r != nil {
			retries = *r
		}
	}
	if retries < 0 {
		return nil, fmt.Errorf("--adapter-retries must be >= 0, got %d", retries)
	}

	switch kind {
	case "webhook":
		headers, err := parseHeaders(c.StringSlice("adapter-header"))
		if err != nil {
			return nil, err
		}
		// Config headers are defaults; CLI headers override per key.
		merged := make(map[string]string)
		for k, v := range configVal(cfg, func(c *config.Config) map[string]string { return c.Adapter.Headers }) {
			merged[k] = v
		}
		for k, v := range headers {
			merged[k] = v
		}
		return webhook.New(webhook.Config{
			URL:     url,
			Headers: merged,
			Timeout: timeout,
			Retries: retries,
		})

	case "redis":
		return redis.New(redis.Config{
			URL:       url,
			Channel:   resolveString(c, "adapter-channel", configVal(cfg, func(c *config.Config) string { return c.Adapter.Channel })),
			KeyPrefix: c.String("adapter-key-prefix"),
			Timeout:   timeout,
			Retries:   retries,
		})

	default:
		return nil, fmt.Errorf("unknown adapter: %s (must be webhook or redis)", kind)
	}
}

// parseHeaders parses key=value pairs.
func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		k, v, ok := strings.Cut(h, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --adapter-header %q: expected key=value", h)
		}
		headers[k] = v
	}
	return headers, nil
}

// imageFor picks the image partition key.
func imageFor(flag, path, sessionID string) string {
	switch {
	case flag != "":
		return flag
	case path != "" && path != "-":
		return filepath.Base(path)
	default:
		return sessionID
	}
}

func outcomeToExitCode(status types.OutcomeStatus) int {
	switch status {
	case types.OutcomeSuccess:
		return exitSuccess
	case types.OutcomeDecodeError:
		return exitDecodeError
	case types.OutcomeStorageError:
		return exitStorageError
	default:
		return exitDecodeError
	}
}

func printExportResult(w io.Writer, result *export.Result, choice policyChoice, storagePath string) {
	fmt.Fprintf(w, "session_id=%s, outcome=%s, duration=%s\n",
		result.Meta.SessionID,
		result.Outcome.Status,
		result.Duration.Round(time.Millisecond),
	)

	fmt.Fprintf(w, "\n=== Export Result ===\n")
	fmt.Fprintf(w, "Session ID:   %s\n", result.Meta.SessionID)
	fmt.Fprintf(w, "Outcome:      %s\n", result.Outcome.Status)
	fmt.Fprintf(w, "Message:      %s\n", result.Outcome.Message)
	if result.Info.Width > 0 {
		fmt.Fprintf(w, "Image:        %dx%d %s\n", result.Info.Width, result.Info.Height, result.Info.Mode)
	}
	fmt.Fprintf(w, "Frames:       %d\n", result.FramesExported)
	if result.AnimationMs > 0 {
		fmt.Fprintf(w, "Animation:    %.1fms\n", result.AnimationMs)
	}
	if len(result.Sidecars) > 0 {
		fmt.Fprintf(w, "Sidecars:     %s\n", strings.Join(result.Sidecars, ", "))
	}
	if storagePath != "" {
		fmt.Fprintf(w, "Storage:      %s\n", storagePath)
	}
	if result.PublishErr != nil {
		fmt.Fprintf(w, "Publish:      failed (%v)\n", result.PublishErr)
	}

	fmt.Fprintf(w, "\n=== Policy Stats ===\n")
	fmt.Fprintf(w, "Policy:           %s\n", choice.name)
	fmt.Fprintf(w, "Frames Total:     %d\n", result.PolicyStats.TotalFrames)
	fmt.Fprintf(w, "Frames Persisted: %d\n", result.PolicyStats.FramesPersisted)
	fmt.Fprintf(w, "Bytes Persisted:  %d\n", result.PolicyStats.BytesPersisted)
	fmt.Fprintf(w, "Flushes:          %d\n", result.PolicyStats.FlushCount)
}
