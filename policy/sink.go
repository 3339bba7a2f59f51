package policy

import (
	"context"
	"sync"

	"github.com/justapithecus/jxlframe/types"
)

// Sink abstracts frame persistence for policies.
//
// WriteFrames is batch-oriented so strict (batch of 1) and buffered policies
// share one sink.
type Sink interface {
	// WriteFrames persists a batch of frames in order.
	WriteFrames(ctx context.Context, frames []*types.ExportFrame) error

	// Close releases any resources held by the sink.
	Close() error
}

// StubSink is a test sink that records writes without persisting.
type StubSink struct {
	mu sync.Mutex

	// FramesWritten is the total count of frames written.
	FramesWritten int64
	// Batches is the number of WriteFrames calls.
	Batches int64
	// Closed indicates whether Close was called.
	Closed bool

	// Written stores every written frame for inspection.
	Written []*types.ExportFrame
	// BatchSizes records the length of each batch.
	BatchSizes []int

	// ErrorOnWrite, if non-nil, is returned by WriteFrames.
	ErrorOnWrite error
}

// NewStubSink creates a new stub sink for testing.
func NewStubSink() *StubSink {
	return &StubSink{}
}

// WriteFrames records the frames.
func (s *StubSink) WriteFrames(_ context.Context, frames []*types.ExportFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnWrite != nil {
		return s.ErrorOnWrite
	}

	s.Batches++
	s.FramesWritten += int64(len(frames))
	s.Written = append(s.Written, frames...)
	s.BatchSizes = append(s.BatchSizes, len(frames))
	return nil
}

// SetError sets the error returned by subsequent writes.
func (s *StubSink) SetError(err error) {
	s.mu.Lock()
	s.ErrorOnWrite = err
	s.mu.Unlock()
}

// Close marks the sink as closed.
func (s *StubSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Closed = true
	return nil
}

// Indexes returns the indexes of written frames in write order.
func (s *StubSink) Indexes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int, len(s.Written))
	for i, f := range s.Written {
		out[i] = f.Index
	}
	return out
}

// Stats returns a snapshot of sink statistics.
func (s *StubSink) Stats() StubSinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StubSinkStats{
		FramesWritten: s.FramesWritten,
		Batches:       s.Batches,
		Closed:        s.Closed,
	}
}

// StubSinkStats is a snapshot of StubSink statistics.
type StubSinkStats struct {
	FramesWritten int64
	Batches       int64
	Closed        bool
}
