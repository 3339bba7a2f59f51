package policy_test

import (
	"errors"
	"testing"

	"github.com/justapithecus/jxlframe/policy"
	"github.com/justapithecus/jxlframe/types"
)

func frame(i int, size int) *types.ExportFrame {
	return &types.ExportFrame{
		SessionID: "sess-1",
		Index:     i,
		Pixels:    make([]byte, size),
	}
}

func TestStrictPolicy_ImmediateWrite(t *testing.T) {
	sink := policy.NewStubSink()
	pol := policy.NewStrictPolicy(sink)

	if err := pol.IngestFrame(t.Context(), frame(0, 12)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sinkStats := sink.Stats()
	if sinkStats.FramesWritten != 1 {
		t.Errorf("expected 1 frame written immediately, got %d", sinkStats.FramesWritten)
	}
	if sinkStats.Batches != 1 {
		t.Errorf("expected 1 batch, got %d", sinkStats.Batches)
	}

	stats := pol.Stats()
	if stats.TotalFrames != 1 || stats.FramesPersisted != 1 {
		t.Errorf("stats = %+v, want 1 received and 1 persisted", stats)
	}
	if stats.BytesPersisted != 12 {
		t.Errorf("BytesPersisted = %d, want 12", stats.BytesPersisted)
	}
}

func TestStrictPolicy_PreservesOrder(t *testing.T) {
	sink := policy.NewStubSink()
	pol := policy.NewStrictPolicy(sink)

	for i := range 5 {
		if err := pol.IngestFrame(t.Context(), frame(i, 4)); err != nil {
			t.Fatalf("IngestFrame(%d) failed: %v", i, err)
		}
	}

	got := sink.Indexes()
	for i, idx := range got {
		if idx != i {
			t.Fatalf("write order = %v, want ascending", got)
		}
	}
	if len(got) != 5 {
		t.Errorf("wrote %d frames, want 5", len(got))
	}
}

func TestStrictPolicy_SinkError(t *testing.T) {
	sink := policy.NewStubSink()
	sinkErr := errors.New("disk full")
	sink.SetError(sinkErr)
	pol := policy.NewStrictPolicy(sink)

	err := pol.IngestFrame(t.Context(), frame(0, 4))
	if !errors.Is(err, sinkErr) {
		t.Fatalf("expected sink error, got %v", err)
	}

	stats := pol.Stats()
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
	if stats.FramesPersisted != 0 {
		t.Errorf("FramesPersisted = %d, want 0", stats.FramesPersisted)
	}
}

func TestStrictPolicy_FlushAndClose(t *testing.T) {
	sink := policy.NewStubSink()
	pol := policy.NewStrictPolicy(sink)

	if err := pol.Flush(t.Context()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if pol.Stats().FlushCount != 1 {
		t.Errorf("FlushCount = %d, want 1", pol.Stats().FlushCount)
	}
	if err := pol.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !sink.Stats().Closed {
		t.Error("sink not closed")
	}
}
