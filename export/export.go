// Package export decodes a JPEG XL image and persists its frames.
//
// Run drives one export session end to end: decode every frame through a
// policy into storage, write the session record and metadata sidecars,
// then publish an adapter.ExportCompletedEvent describing the outcome.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/justapithecus/jxlframe/adapter"
	"github.com/justapithecus/jxlframe/decoder"
	"github.com/justapithecus/jxlframe/lode"
	"github.com/justapithecus/jxlframe/log"
	"github.com/justapithecus/jxlframe/metrics"
	"github.com/justapithecus/jxlframe/policy"
	"github.com/justapithecus/jxlframe/types"
)

// flushTimeout bounds the final policy flush.
const flushTimeout = 30 * time.Second

// Config configures a single export.
type Config struct {
	// Input is the encoded image.
	Input []byte
	// Meta is the session identity. A new session ID is generated if Meta
	// is nil or has an empty SessionID.
	Meta *types.SessionMeta
	// Image is the image partition key. Defaults to the base name of
	// Meta.Source, or the session ID.
	Image string
	// Day is the day partition key. Defaults to DeriveDay(start).
	Day string
	// Backend is the engine backend label recorded with the session.
	Backend string
	// DecoderOptions are passed to decoder.New. Logger and collector
	// options are added by Run.
	DecoderOptions []decoder.Option

	// Policy receives every frame (required). Run flushes it but does
	// not close it.
	Policy policy.Policy
	// Client writes the session record, sidecars and metrics record.
	// If nil, only frames reach storage (through Policy).
	Client lode.Client
	// Adapter is notified on completion. If nil, nothing is published.
	Adapter adapter.Adapter
	// StoragePath is reported in the completion event.
	StoragePath string

	// Logger defaults to a nop logger.
	Logger *log.Logger
	// Collector records decode and export metrics. May be nil.
	Collector *metrics.Collector
	// Now overrides the clock (for tests).
	Now func() time.Time
}

// Result is the result of an export.
type Result struct {
	Meta    *types.SessionMeta
	Outcome *types.Outcome
	// Err is the failure behind a non-success outcome.
	Err error
	// Info is zero when the decoder could not be opened.
	Info decoder.Info
	// FramesExported is the number of frames handed to the policy.
	FramesExported int64
	// AnimationMs is the summed display duration of exported frames.
	AnimationMs float64
	// Sidecars lists the metadata files written.
	Sidecars []string
	// Duration is the wall time of the export.
	Duration    time.Duration
	PolicyStats policy.Stats
	// PublishErr is set when the completion event could not be delivered.
	// It does not change the outcome.
	PublishErr error
}

// ErrNoPolicy is returned when Config.Policy is nil.
var ErrNoPolicy = errors.New("export: policy is required")

// Run executes one export. The returned error is non-nil only for an
// invalid Config; decode and storage failures are reported in the Result.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Policy == nil {
		return nil, ErrNoPolicy
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	start := now()

	meta := sessionMeta(cfg)
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session metadata: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	logger = logger.ForSession(meta)

	r := &runner{
		cfg:    cfg,
		meta:   meta,
		logger: logger,
		start:  start,
		image:  imageName(cfg, meta),
		day:    cfg.Day,
		result: &Result{Meta: meta},
	}
	if r.day == "" {
		r.day = lode.DeriveDay(start)
	}

	r.execute(ctx)

	r.result.PolicyStats = cfg.Policy.Stats()
	r.result.Duration = now().Sub(start)
	cfg.Collector.AbsorbPolicyStats(
		r.result.PolicyStats.TotalFrames,
		r.result.PolicyStats.FramesPersisted,
		r.result.PolicyStats.FlushCount,
	)

	r.writeMetrics(ctx, now())
	r.publish(ctx, now())

	logger.Info("export completed", map[string]any{
		"outcome":  string(r.result.Outcome.Status),
		"frames":   r.result.FramesExported,
		"duration": r.result.Duration.String(),
	})
	return r.result, nil
}

func sessionMeta(cfg Config) *types.SessionMeta {
	meta := &types.SessionMeta{InputBytes: int64(len(cfg.Input))}
	if cfg.Meta != nil {
		*meta = *cfg.Meta
		meta.InputBytes = int64(len(cfg.Input))
	}
	if meta.SessionID == "" {
		meta.SessionID = uuid.NewString()
	}
	return meta
}

func imageName(cfg Config, meta *types.SessionMeta) string {
	switch {
	case cfg.Image != "":
		return cfg.Image
	case meta.Source != "" && meta.Source != "-":
		return filepath.Base(meta.Source)
	default:
		return meta.SessionID
	}
}

type runner struct {
	cfg    Config
	meta   *types.SessionMeta
	logger *log.Logger
	start  time.Time
	image  string
	day    string
	result *Result
}

// execute decodes and persists; it always leaves r.result.Outcome set.
func (r *runner) execute(ctx context.Context) {
	opts := append([]decoder.Option{}, r.cfg.DecoderOptions...)
	opts = append(opts, decoder.WithLogger(r.logger), decoder.WithCollector(r.cfg.Collector))

	dec, err := decoder.New(r.cfg.Input, opts...)
	if err != nil {
		r.finish(ctx, types.OutcomeDecodeError, err)
		return
	}
	defer func() {
		if err := dec.Close(); err != nil {
			r.logger.Warn("decoder close failed", map[string]any{"error": err.Error()})
		}
	}()

	info, err := dec.Info()
	if err != nil {
		r.finish(ctx, types.OutcomeDecodeError, err)
		return
	}
	r.result.Info = info

	for {
		if err := ctx.Err(); err != nil {
			r.finish(ctx, types.OutcomeDecodeError, fmt.Errorf("export canceled: %w", err))
			return
		}

		frame, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			r.finish(ctx, types.OutcomeDecodeError, err)
			return
		}

		ms := info.DurationMillis(frame.Duration)
		owned := frame.Clone()
		if err := r.cfg.Policy.IngestFrame(ctx, &types.ExportFrame{
			SessionID:  r.meta.SessionID,
			Index:      owned.Index,
			Duration:   owned.Duration,
			DurationMs: ms,
			Timecode:   owned.Timecode,
			IsLast:     owned.IsLast,
			Name:       owned.Name,
			Pixels:     owned.Pixels,
		}); err != nil {
			r.finish(ctx, types.OutcomeStorageError, fmt.Errorf("policy ingest failed: %w", err))
			return
		}
		r.result.FramesExported++
		r.result.AnimationMs += ms
	}

	if err := r.flush(ctx); err != nil {
		r.fail(types.OutcomeStorageError, err)
		return
	}
	if err := r.writeSession(ctx, dec, info); err != nil {
		r.fail(types.OutcomeStorageError, err)
		return
	}

	r.result.Outcome = &types.Outcome{
		Status:  types.OutcomeSuccess,
		Message: fmt.Sprintf("exported %d frames", r.result.FramesExported),
	}
}

// finish flushes best-effort and records a failure outcome.
func (r *runner) finish(ctx context.Context, status types.OutcomeStatus, err error) {
	if flushErr := r.flush(ctx); flushErr != nil {
		r.logger.Warn("policy flush failed (best effort)", map[string]any{
			"error": flushErr.Error(),
		})
	}
	r.fail(status, err)
}

func (r *runner) fail(status types.OutcomeStatus, err error) {
	fields := map[string]any{"outcome": string(status), "error": err.Error()}
	switch status {
	case types.OutcomeDecodeError:
		fields["kind"] = decoder.KindName(err)
	case types.OutcomeStorageError:
		if kind := lode.KindName(err); kind != "" {
			fields["kind"] = kind
		}
	}
	r.logger.Error("export failed", fields)

	r.result.Err = err
	r.result.Outcome = &types.Outcome{Status: status, Message: err.Error()}
}

// flush ignores parent cancellation so buffered frames still get a chance
// to land.
func (r *runner) flush(ctx context.Context) error {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()
	if err := r.cfg.Policy.Flush(flushCtx); err != nil {
		return fmt.Errorf("policy flush failed: %w", err)
	}
	return nil
}

// writeSession writes metadata sidecars, then the session record.
func (r *runner) writeSession(ctx context.Context, dec *decoder.Decoder, info decoder.Info) error {
	if r.cfg.Client == nil {
		return nil
	}

	icc, hasICC := dec.ICC()
	exif, hasEXIF := dec.EXIF()
	xmp, hasXMP := dec.XMP()

	sidecars := []struct {
		present     bool
		name        string
		contentType string
		data        []byte
	}{
		{hasICC, lode.FileICC, "application/vnd.iccprofile", icc},
		{hasEXIF, lode.FileEXIF, "image/tiff", exif},
		{hasXMP, lode.FileXMP, "application/rdf+xml", xmp},
	}
	for _, s := range sidecars {
		if !s.present {
			continue
		}
		if err := r.cfg.Client.PutFile(ctx, s.name, s.contentType, s.data); err != nil {
			return fmt.Errorf("write %s: %w", s.name, err)
		}
		r.result.Sidecars = append(r.result.Sidecars, s.name)
	}

	return r.cfg.Client.WriteSession(ctx, lode.SessionRecord{
		SessionID:      r.meta.SessionID,
		Width:          info.Width,
		Height:         info.Height,
		Mode:           info.Mode.String(),
		HasAnimation:   info.HasAnimation,
		FrameCount:     info.FrameCount,
		NumLoops:       info.NumLoops,
		TPSNumerator:   info.TPSNumerator,
		TPSDenominator: info.TPSDenominator,
		Orientation:    info.Orientation,
		InputBytes:     r.meta.InputBytes,
		Backend:        r.cfg.Backend,
		HasICC:         hasICC,
		HasEXIF:        hasEXIF,
		HasXMP:         hasXMP,
		StartedAt:      r.start.UTC().Format(time.RFC3339Nano),
	})
}

// writeMetrics stores the collector snapshot. Failures are logged only.
func (r *runner) writeMetrics(ctx context.Context, at time.Time) {
	if r.cfg.Client == nil || r.cfg.Collector == nil {
		return
	}
	if err := r.cfg.Client.WriteMetrics(ctx, r.cfg.Collector.Snapshot(), at); err != nil {
		r.logger.Warn("metrics record write failed", map[string]any{"error": err.Error()})
	}
}

// publish notifies the adapter. Failures are logged and recorded only.
func (r *runner) publish(ctx context.Context, at time.Time) {
	if r.cfg.Adapter == nil {
		return
	}
	event := NewEvent(r.result, r.image, r.day, r.cfg.StoragePath, at)
	if err := r.cfg.Adapter.Publish(ctx, event); err != nil {
		r.result.PublishErr = err
		r.logger.Warn("adapter publish failed", map[string]any{"error": err.Error()})
	}
}

// NewEvent builds the completion event for a result.
func NewEvent(res *Result, image, day, storagePath string, at time.Time) *adapter.ExportCompletedEvent {
	event := &adapter.ExportCompletedEvent{
		ContractVersion: adapter.ContractVersion,
		EventType:       adapter.EventTypeExportCompleted,
		SessionID:       res.Meta.SessionID,
		Source:          res.Meta.Source,
		Image:           image,
		Day:             day,
		Outcome:         string(res.Outcome.Status),
		StoragePath:     storagePath,
		Timestamp:       at.UTC().Format(time.RFC3339),
		FrameCount:      res.FramesExported,
		Width:           res.Info.Width,
		Height:          res.Info.Height,
		Mode:            res.Info.Mode.String(),
		DurationMs:      res.AnimationMs,
	}
	if res.Outcome.Status != types.OutcomeSuccess {
		event.Message = res.Outcome.Message
	}
	return event
}
