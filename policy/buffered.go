package policy

import (
	"context"
	"errors"
	"sync"

	"github.com/justapithecus/jxlframe/log"
	"github.com/justapithecus/jxlframe/types"
)

// BufferedConfig configures a BufferedPolicy.
type BufferedConfig struct {
	// MaxBufferFrames flushes once this many frames are buffered.
	// Zero means no frame limit (use MaxBufferBytes instead).
	MaxBufferFrames int

	// MaxBufferBytes flushes once buffered pixel bytes reach this size.
	// Zero means no byte limit (use MaxBufferFrames instead).
	// At least one limit must be set.
	MaxBufferBytes int64

	// Logger is an optional logger for policy observability.
	// If nil, no logging is emitted.
	Logger *log.Logger
}

// DefaultBufferedConfig returns sensible defaults for buffered policy.
func DefaultBufferedConfig() BufferedConfig {
	return BufferedConfig{
		MaxBufferFrames: 16,
		MaxBufferBytes:  64 * 1024 * 1024, // 64 MB
	}
}

// ErrInvalidConfig is returned when BufferedConfig is invalid.
var ErrInvalidConfig = errors.New("invalid config: at least one of MaxBufferFrames or MaxBufferBytes must be set")

// BufferedPolicy batches frames and writes them when a limit is reached
// or on Flush.
//
// A failed write keeps the buffer intact; frames are retried on the next
// flush and may be written twice, never lost.
type BufferedPolicy struct {
	sink   Sink
	config BufferedConfig
	logger *log.Logger

	mu          sync.Mutex // guards buffer state and stats
	buffer      []*types.ExportFrame
	bufferBytes int64
	stats       *statsRecorder

	// flushMu serializes sink writes.
	flushMu sync.Mutex
}

// NewBufferedPolicy creates a new buffered policy.
// Returns error if config is invalid.
func NewBufferedPolicy(sink Sink, config BufferedConfig) (*BufferedPolicy, error) {
	if config.MaxBufferFrames <= 0 && config.MaxBufferBytes <= 0 {
		return nil, ErrInvalidConfig
	}

	return &BufferedPolicy{
		sink:   sink,
		config: config,
		logger: config.Logger,
		buffer: make([]*types.ExportFrame, 0, max(config.MaxBufferFrames, 8)),
		stats:  newStatsRecorder(),
	}, nil
}

// IngestFrame buffers the frame and flushes when a limit is reached.
// A single frame larger than MaxBufferBytes is flushed on its own.
func (p *BufferedPolicy) IngestFrame(ctx context.Context, frame *types.ExportFrame) error {
	p.mu.Lock()
	p.stats.incTotalFramesLocked()
	p.buffer = append(p.buffer, frame)
	p.bufferBytes += frame.Size()
	full := p.fullLocked()
	p.mu.Unlock()

	if !full {
		return nil
	}
	return p.Flush(ctx)
}

// fullLocked reports whether a limit has been reached. Caller must hold mu.
func (p *BufferedPolicy) fullLocked() bool {
	if p.config.MaxBufferFrames > 0 && len(p.buffer) >= p.config.MaxBufferFrames {
		return true
	}
	return p.config.MaxBufferBytes > 0 && p.bufferBytes >= p.config.MaxBufferBytes
}

// Flush writes all buffered frames to the sink.
func (p *BufferedPolicy) Flush(ctx context.Context) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	p.stats.incFlushLocked()
	batch := p.buffer
	p.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := p.sink.WriteFrames(ctx, batch); err != nil {
		p.mu.Lock()
		p.stats.incErrorsLocked()
		p.mu.Unlock()
		p.logFlushFailure(len(batch), err)
		return err
	}

	n := len(batch)
	written := frameBytes(batch)

	p.mu.Lock()
	p.buffer = append(make([]*types.ExportFrame, 0, cap(p.buffer)), p.buffer[n:]...)
	p.bufferBytes -= written
	p.stats.incPersistedLocked(int64(n), written)
	p.mu.Unlock()

	if p.logger != nil {
		p.logger.Debug("frames flushed", map[string]any{
			"frames": n,
			"bytes":  written,
			"policy": "buffered",
		})
	}
	return nil
}

// Close flushes remaining frames and closes the sink.
func (p *BufferedPolicy) Close() error {
	// Best-effort flush on close
	_ = p.Flush(context.Background())
	return p.sink.Close()
}

// Stats returns an atomic snapshot of policy statistics.
func (p *BufferedPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.stats.snapshotLocked(p.bufferBytes)
}

func (p *BufferedPolicy) logFlushFailure(frames int, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Error("flush failed", map[string]any{
		"frames": frames,
		"error":  err.Error(),
		"policy": "buffered",
	})
}

var _ Policy = (*BufferedPolicy)(nil)
