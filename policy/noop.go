package policy

import (
	"context"
	"sync"

	"github.com/justapithecus/jxlframe/types"
)

// NoopPolicy accepts frames and discards them. It backs dry-run exports,
// where only the decode is exercised.
type NoopPolicy struct {
	mu    sync.Mutex
	stats Stats
}

// NewNoopPolicy creates a new no-op policy.
func NewNoopPolicy() *NoopPolicy {
	return &NoopPolicy{}
}

// IngestFrame counts the frame and drops it.
func (p *NoopPolicy) IngestFrame(_ context.Context, _ *types.ExportFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.TotalFrames++
	return nil
}

// Flush is a no-op.
func (p *NoopPolicy) Flush(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.FlushCount++
	return nil
}

// Close is a no-op.
func (p *NoopPolicy) Close() error {
	return nil
}

// Stats returns the policy statistics.
func (p *NoopPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

var _ Policy = (*NoopPolicy)(nil)
