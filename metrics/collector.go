// Package metrics provides decode and export metrics collection.
//
// The Collector accumulates counters across decode sessions. It is
// nil-receiver safe so the decode path can record unconditionally. Export
// policy metrics are absorbed from policy.Stats at export completion rather
// than recorded live, avoiding double-counting.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Session lifecycle
	SessionsOpened int64
	SessionsFailed int64

	// Decode path
	FramesDecoded       int64
	FramesSkipped       int64
	EnumerationPasses   int64
	Rewinds             int64
	BufferReallocations int64
	OutputBytes         int64
	BoxesExtracted      int64
	DecodeErrorsByKind  map[string]int64

	// Export (absorbed from policy.Stats at export completion)
	FramesReceived  int64
	FramesPersisted int64
	PolicyFlushes   int64

	// Lode / Storage
	LodeWriteSuccess int64
	LodeWriteFailure int64

	// Dimensions (informational, set at construction)
	Backend        string
	Policy         string
	StorageBackend string
}

// Collector accumulates metrics.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	sessionsOpened int64
	sessionsFailed int64

	framesDecoded       int64
	framesSkipped       int64
	enumerationPasses   int64
	rewinds             int64
	bufferReallocations int64
	outputBytes         int64
	boxesExtracted      int64
	decodeErrorsByKind  map[string]int64

	framesReceived  int64
	framesPersisted int64
	policyFlushes   int64

	lodeWriteSuccess int64
	lodeWriteFailure int64

	backend        string
	policy         string
	storageBackend string
}

// NewCollector creates a Collector with dimension labels.
// policy and storageBackend are empty for decode-only surfaces.
func NewCollector(backend, policy, storageBackend string) *Collector {
	return &Collector{
		decodeErrorsByKind: make(map[string]int64),
		backend:            backend,
		policy:             policy,
		storageBackend:     storageBackend,
	}
}

func (c *Collector) add(field *int64, n int64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// --- Session lifecycle ---

// IncSessionOpened records a decoder that finished construction.
func (c *Collector) IncSessionOpened() {
	if c == nil {
		return
	}
	c.add(&c.sessionsOpened, 1)
}

// IncSessionFailed records a decoder that failed construction.
func (c *Collector) IncSessionFailed() {
	if c == nil {
		return
	}
	c.add(&c.sessionsFailed, 1)
}

// --- Decode path ---

// IncFrameDecoded records one rendered frame of n bytes.
func (c *Collector) IncFrameDecoded(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.framesDecoded++
	c.outputBytes += int64(n)
	c.mu.Unlock()
}

// IncFrameSkipped records a frame skipped during enumeration.
func (c *Collector) IncFrameSkipped() {
	if c == nil {
		return
	}
	c.add(&c.framesSkipped, 1)
}

// IncEnumerationPass records a completed frame counting pass.
func (c *Collector) IncEnumerationPass() {
	if c == nil {
		return
	}
	c.add(&c.enumerationPasses, 1)
}

// IncRewind records an engine rewind.
func (c *Collector) IncRewind() {
	if c == nil {
		return
	}
	c.add(&c.rewinds, 1)
}

// IncBufferReallocation records a buffer growing.
func (c *Collector) IncBufferReallocation() {
	if c == nil {
		return
	}
	c.add(&c.bufferReallocations, 1)
}

// IncBoxExtracted records a metadata box copied out of the stream.
func (c *Collector) IncBoxExtracted() {
	if c == nil {
		return
	}
	c.add(&c.boxesExtracted, 1)
}

// IncDecodeError records a decode failure by kind (e.g. "malformed_input").
func (c *Collector) IncDecodeError(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if c.decodeErrorsByKind == nil {
		c.decodeErrorsByKind = make(map[string]int64)
	}
	c.decodeErrorsByKind[kind]++
	c.mu.Unlock()
}

// --- Lode / Storage ---
// Lode counters are per-call, not per-record. A single WriteFrames call
// with N frames counts as 1 success.

// IncLodeWriteSuccess records a successful Lode write operation (per-call).
func (c *Collector) IncLodeWriteSuccess() {
	if c == nil {
		return
	}
	c.add(&c.lodeWriteSuccess, 1)
}

// IncLodeWriteFailure records a failed Lode write operation (per-call).
func (c *Collector) IncLodeWriteFailure() {
	if c == nil {
		return
	}
	c.add(&c.lodeWriteFailure, 1)
}

// --- Export (absorbed from policy.Stats) ---

// AbsorbPolicyStats copies export counters from policy.Stats into the collector.
// Counters accumulate across exports.
func (c *Collector) AbsorbPolicyStats(received, persisted, flushes int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.framesReceived += received
	c.framesPersisted += persisted
	c.policyFlushes += flushes
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byKind := make(map[string]int64, len(c.decodeErrorsByKind))
	for k, v := range c.decodeErrorsByKind {
		byKind[k] = v
	}

	return Snapshot{
		SessionsOpened: c.sessionsOpened,
		SessionsFailed: c.sessionsFailed,

		FramesDecoded:       c.framesDecoded,
		FramesSkipped:       c.framesSkipped,
		EnumerationPasses:   c.enumerationPasses,
		Rewinds:             c.rewinds,
		BufferReallocations: c.bufferReallocations,
		OutputBytes:         c.outputBytes,
		BoxesExtracted:      c.boxesExtracted,
		DecodeErrorsByKind:  byKind,

		FramesReceived:  c.framesReceived,
		FramesPersisted: c.framesPersisted,
		PolicyFlushes:   c.policyFlushes,

		LodeWriteSuccess: c.lodeWriteSuccess,
		LodeWriteFailure: c.lodeWriteFailure,

		Backend:        c.backend,
		Policy:         c.policy,
		StorageBackend: c.storageBackend,
	}
}
