// Package policy decides when exported frames reach the storage sink.
package policy

import (
	"context"
	"sync"

	"github.com/justapithecus/jxlframe/types"
)

// Policy controls buffering and persistence of exported frames.
//
// Frames are never dropped: a policy either persists a frame or returns an
// error, and an error ends the export.
type Policy interface {
	// IngestFrame hands a frame to the policy. The policy owns the frame
	// afterwards.
	IngestFrame(ctx context.Context, frame *types.ExportFrame) error

	// Flush persists anything still buffered.
	Flush(ctx context.Context) error

	// Close releases policy resources and closes the sink.
	Close() error

	// Stats returns a consistent snapshot of policy counters.
	Stats() Stats
}

// Stats are policy observability counters.
type Stats struct {
	// TotalFrames is the number of frames received.
	TotalFrames int64
	// FramesPersisted is the number of frames written to the sink.
	FramesPersisted int64
	// BytesPersisted is the number of pixel bytes written to the sink.
	BytesPersisted int64
	// BufferSize is the current buffer size in bytes (buffered only).
	BufferSize int64
	// FlushCount is the number of flush operations.
	FlushCount int64
	// Errors is the number of failed sink writes.
	Errors int64
}

// statsRecorder holds Stats behind a mutex.
//
// StrictPolicy uses the locking methods; BufferedPolicy uses the Locked
// variants while holding its own mutex so that buffer state and counters
// move together.
type statsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{}
}

func (r *statsRecorder) incTotalFrames() {
	r.mu.Lock()
	r.stats.TotalFrames++
	r.mu.Unlock()
}

func (r *statsRecorder) incPersisted(frames, bytes int64) {
	r.mu.Lock()
	r.stats.FramesPersisted += frames
	r.stats.BytesPersisted += bytes
	r.mu.Unlock()
}

func (r *statsRecorder) incErrors() {
	r.mu.Lock()
	r.stats.Errors++
	r.mu.Unlock()
}

func (r *statsRecorder) incFlush() {
	r.mu.Lock()
	r.stats.FlushCount++
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// --- Locked methods for BufferedPolicy ---
// Caller must hold BufferedPolicy.mu.

func (r *statsRecorder) incTotalFramesLocked() {
	r.stats.TotalFrames++
}

func (r *statsRecorder) incPersistedLocked(frames, bytes int64) {
	r.stats.FramesPersisted += frames
	r.stats.BytesPersisted += bytes
}

func (r *statsRecorder) incErrorsLocked() {
	r.stats.Errors++
}

func (r *statsRecorder) incFlushLocked() {
	r.stats.FlushCount++
}

func (r *statsRecorder) snapshotLocked(bufferSize int64) Stats {
	s := r.stats
	s.BufferSize = bufferSize
	return s
}

// frameBytes sums the pixel sizes of frames.
func frameBytes(frames []*types.ExportFrame) int64 {
	var n int64
	for _, f := range frames {
		n += f.Size()
	}
	return n
}
