package lode

import (
	"context"
	"errors"
	"testing"

	"github.com/justapithecus/jxlframe/metrics"
	"github.com/justapithecus/jxlframe/types"
)

// countingSink is a test double that counts writes and fails with writeErr.
type countingSink struct {
	writeErr error
	calls    int
	closed   bool
}

func (s *countingSink) WriteFrames(_ context.Context, _ []*types.ExportFrame) error {
	s.calls++
	return s.writeErr
}

func (s *countingSink) Close() error {
	s.closed = true
	return nil
}

func TestInstrumentedSink_Success(t *testing.T) {
	inner := &countingSink{}
	collector := metrics.NewCollector("libjxl", "strict", "fs")
	sink := NewInstrumentedSink(inner, collector)

	if err := sink.WriteFrames(t.Context(), exportFrames(2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := collector.Snapshot()
	if snap.LodeWriteSuccess != 1 || snap.LodeWriteFailure != 0 {
		t.Errorf("success/failure = %d/%d, want 1/0", snap.LodeWriteSuccess, snap.LodeWriteFailure)
	}
	if inner.calls != 1 {
		t.Errorf("inner.calls = %d, want 1", inner.calls)
	}
}

func TestInstrumentedSink_Failure(t *testing.T) {
	writeErr := errors.New("disk full")
	inner := &countingSink{writeErr: writeErr}
	collector := metrics.NewCollector("libjxl", "strict", "fs")
	sink := NewInstrumentedSink(inner, collector)

	err := sink.WriteFrames(t.Context(), exportFrames(1))
	if !errors.Is(err, writeErr) {
		t.Fatalf("error = %v, want %v", err, writeErr)
	}

	snap := collector.Snapshot()
	if snap.LodeWriteSuccess != 0 || snap.LodeWriteFailure != 1 {
		t.Errorf("success/failure = %d/%d, want 0/1", snap.LodeWriteSuccess, snap.LodeWriteFailure)
	}
}

func TestInstrumentedSink_NilCollector(t *testing.T) {
	inner := &countingSink{}
	sink := NewInstrumentedSink(inner, nil)

	if err := sink.WriteFrames(t.Context(), exportFrames(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !inner.closed {
		t.Error("Close was not delegated")
	}
}
