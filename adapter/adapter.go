// Package adapter defines the boundary for export completion notifications.
//
// Adapters publish an ExportCompletedEvent to a downstream system once an
// export finishes, whatever its outcome.
package adapter

import (
	"context"
	"fmt"
	"time"
)

// ContractVersion is the version of the ExportCompletedEvent shape.
const ContractVersion = "1.0.0"

// EventTypeExportCompleted is the only event type adapters publish.
const EventTypeExportCompleted = "export_completed"

// ExportCompletedEvent is the payload published when an export finishes.
type ExportCompletedEvent struct {
	ContractVersion string  `json:"contract_version"`
	EventType       string  `json:"event_type"` // always "export_completed"
	SessionID       string  `json:"session_id"`
	Source          string  `json:"source"`
	Image           string  `json:"image"`
	Day             string  `json:"day"`
	Outcome         string  `json:"outcome"` // success, decode_error, storage_error
	Message         string  `json:"message,omitempty"`
	StoragePath     string  `json:"storage_path"`
	Timestamp       string  `json:"timestamp"` // RFC 3339
	FrameCount      int64   `json:"frame_count"`
	Width           uint32  `json:"width"`
	Height          uint32  `json:"height"`
	Mode            string  `json:"mode"`
	DurationMs      float64 `json:"duration_ms"` // total animation duration
}

// Adapter publishes export completion events to a downstream system.
type Adapter interface {
	// Publish sends an export completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *ExportCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// BaseBackoff is the delay before the first retry.
const BaseBackoff = 500 * time.Millisecond

// Backoff returns the delay before retry attempt i (i >= 1):
// BaseBackoff * 2^(i-1).
func Backoff(i int) time.Duration {
	if i < 1 {
		return 0
	}
	return time.Duration(1<<uint(i-1)) * BaseBackoff
}

// Retry calls fn up to 1+retries times, sleeping Backoff(i) before retry i.
// It stops early when fn succeeds, when permanent(err) is true, or when ctx
// is done. name prefixes returned errors.
func Retry(ctx context.Context, name string, retries int, fn func(context.Context) error, permanent func(error) bool) error {
	var lastErr error
	attempts := 1 + retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-time.After(Backoff(i)):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if permanent != nil && permanent(lastErr) {
			return fmt.Errorf("%s: non-retriable error: %w", name, lastErr)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}

// Nop discards events. It stands in when no adapter is configured.
type Nop struct{}

// Publish implements Adapter.
func (Nop) Publish(context.Context, *ExportCompletedEvent) error { return nil }

// Close implements Adapter.
func (Nop) Close() error { return nil }

var _ Adapter = Nop{}
