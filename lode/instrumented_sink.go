package lode

import (
	"context"

	"github.com/justapithecus/jxlframe/metrics"
	"github.com/justapithecus/jxlframe/policy"
	"github.com/justapithecus/jxlframe/types"
)

// InstrumentedSink wraps a policy.Sink and records write metrics. Each
// WriteFrames call increments lode_write_success or lode_write_failure.
type InstrumentedSink struct {
	inner     policy.Sink
	collector *metrics.Collector
}

// NewInstrumentedSink wraps a sink with metrics instrumentation.
func NewInstrumentedSink(inner policy.Sink, collector *metrics.Collector) *InstrumentedSink {
	return &InstrumentedSink{inner: inner, collector: collector}
}

// WriteFrames delegates to the inner sink and records success or failure.
func (s *InstrumentedSink) WriteFrames(ctx context.Context, frames []*types.ExportFrame) error {
	err := s.inner.WriteFrames(ctx, frames)
	if err != nil {
		s.collector.IncLodeWriteFailure()
	} else {
		s.collector.IncLodeWriteSuccess()
	}
	return err
}

// Close delegates to the inner sink.
func (s *InstrumentedSink) Close() error {
	return s.inner.Close()
}

// Verify InstrumentedSink implements policy.Sink.
var _ policy.Sink = (*InstrumentedSink)(nil)
