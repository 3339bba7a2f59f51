// Package lode persists exported frames with the Lode storage library.
//
// Records land in a Hive-partitioned JSONL dataset keyed by
// source/image/day/session_id/record_kind; raw pixels and metadata
// payloads are written as sidecar files next to the records.
package lode

import (
	"context"
	"sync"
	"time"

	"github.com/justapithecus/jxlframe/metrics"
	"github.com/justapithecus/jxlframe/policy"
	"github.com/justapithecus/jxlframe/types"
)

// DefaultDataset is the Lode dataset ID used when none is configured.
const DefaultDataset = "jxlframe"

// DeriveDay computes the partition day from session start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(startTime time.Time) string {
	return startTime.UTC().Format("2006-01-02")
}

// Config holds Lode sink configuration.
// All partition keys are required.
type Config struct {
	// Dataset is the Lode dataset ID.
	Dataset string
	// Source is the partition key for the input origin (a label, not a path).
	Source string
	// Image is the partition key naming the exported image.
	Image string
	// Day is the partition key derived from session start time (YYYY-MM-DD UTC).
	Day string
	// SessionID is the partition key for the decode session.
	SessionID string
	// Policy is the export policy name, recorded on every record.
	Policy string
	// WritePixels stores raw frame pixels as sidecar files.
	WritePixels bool
}

// Client abstracts the Lode storage client.
type Client interface {
	// WriteFrames writes a batch of frame records, in order.
	WriteFrames(ctx context.Context, frames []*types.ExportFrame) error

	// WriteSession writes the session record.
	WriteSession(ctx context.Context, rec SessionRecord) error

	// WriteMetrics writes a metrics snapshot record.
	WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error

	// PutFile writes a sidecar file under the session partition.
	PutFile(ctx context.Context, filename, contentType string, data []byte) error

	// Close releases client resources.
	Close() error
}

// Sink is a Lode-backed implementation of policy.Sink.
type Sink struct {
	client Client
}

// NewSink creates a new Lode sink.
func NewSink(client Client) *Sink {
	return &Sink{client: client}
}

// WriteFrames implements policy.Sink.
func (s *Sink) WriteFrames(ctx context.Context, frames []*types.ExportFrame) error {
	return s.client.WriteFrames(ctx, frames)
}

// Close implements policy.Sink.
func (s *Sink) Close() error {
	return s.client.Close()
}

// Verify Sink implements policy.Sink.
var _ policy.Sink = (*Sink)(nil)

// StubClient is a test client that records writes without persisting.
type StubClient struct {
	mu sync.Mutex

	Frames   []*types.ExportFrame
	Sessions []SessionRecord
	Metrics  []metrics.Snapshot
	Files    map[string][]byte
	Closed   bool

	// ErrorOnWrite, if non-nil, is returned by every write method.
	ErrorOnWrite error
}

// NewStubClient creates a new stub client.
func NewStubClient() *StubClient {
	return &StubClient{Files: make(map[string][]byte)}
}

// WriteFrames implements Client.
func (c *StubClient) WriteFrames(_ context.Context, frames []*types.ExportFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ErrorOnWrite != nil {
		return c.ErrorOnWrite
	}
	c.Frames = append(c.Frames, frames...)
	return nil
}

// WriteSession implements Client.
func (c *StubClient) WriteSession(_ context.Context, rec SessionRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ErrorOnWrite != nil {
		return c.ErrorOnWrite
	}
	c.Sessions = append(c.Sessions, rec)
	return nil
}

// WriteMetrics implements Client.
func (c *StubClient) WriteMetrics(_ context.Context, snap metrics.Snapshot, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ErrorOnWrite != nil {
		return c.ErrorOnWrite
	}
	c.Metrics = append(c.Metrics, snap)
	return nil
}

// PutFile implements Client.
func (c *StubClient) PutFile(_ context.Context, filename, _ string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ErrorOnWrite != nil {
		return c.ErrorOnWrite
	}
	c.Files[filename] = append([]byte(nil), data...)
	return nil
}

// Close implements Client.
func (c *StubClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	return nil
}

// Verify StubClient implements Client.
var _ Client = (*StubClient)(nil)
