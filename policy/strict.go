package policy

import (
	"context"

	"github.com/justapithecus/jxlframe/types"
)

// StrictPolicy writes every frame to the sink as it arrives.
//
//   - No buffering: each frame is written immediately
//   - Backpressure: the caller blocks on sink latency
//   - Sink errors fail the export
type StrictPolicy struct {
	sink  Sink
	stats *statsRecorder
}

// NewStrictPolicy creates a new strict policy writing to the given sink.
func NewStrictPolicy(sink Sink) *StrictPolicy {
	return &StrictPolicy{
		sink:  sink,
		stats: newStatsRecorder(),
	}
}

// IngestFrame writes the frame immediately.
func (p *StrictPolicy) IngestFrame(ctx context.Context, frame *types.ExportFrame) error {
	p.stats.incTotalFrames()

	if err := p.sink.WriteFrames(ctx, []*types.ExportFrame{frame}); err != nil {
		p.stats.incErrors()
		return err
	}

	p.stats.incPersisted(1, frame.Size())
	return nil
}

// Flush is a no-op for strict policy (nothing is buffered).
func (p *StrictPolicy) Flush(_ context.Context) error {
	p.stats.incFlush()
	return nil
}

// Close closes the underlying sink.
func (p *StrictPolicy) Close() error {
	return p.sink.Close()
}

// Stats returns policy statistics.
func (p *StrictPolicy) Stats() Stats {
	return p.stats.snapshot()
}

var _ Policy = (*StrictPolicy)(nil)
