// Package script provides an in-memory engine that replays a described
// stream through the engine event protocol.
//
// It stands in for libjxl in tests and in environments without cgo. Two
// flavours exist: New simulates a parser over a logical Stream, honouring
// subscriptions, skips, rewinds and buffer sizing; FromTrace replays a
// recorded session call-by-call.
package script

import (
	"fmt"

	"github.com/justapithecus/jxlframe/engine"
	"github.com/justapithecus/jxlframe/pixfmt"
	"github.com/justapithecus/jxlframe/types"
)

// Name is the backend name reported by scripted engines.
const Name = "script"

// Option configures a scripted engine.
type Option func(*Engine)

// Truncated makes the engine report StatusNeedMoreInput after n events of a
// pass, as if the input ended early.
func Truncated(n int) Option {
	return func(e *Engine) { e.truncateAt = n }
}

// FailAfter makes the engine report StatusError after n events of a pass.
func FailAfter(n int) Option {
	return func(e *Engine) { e.failAt = n }
}

// NoBoxDecompression simulates a backend built without brotli support.
func NoBoxDecompression() Option {
	return func(e *Engine) { e.noBrotli = true }
}

// FailSkip makes SkipCurrentFrame fail.
func FailSkip() Option {
	return func(e *Engine) { e.failSkip = true }
}

// Stats counts engine calls for assertions.
type Stats struct {
	ProcessCalls int
	Skips        int
	Rewinds      int
	Inputs       int
	Closed       bool
}

// Engine is a scripted engine.Engine.
type Engine struct {
	stream Stream
	items  []item

	truncateAt int
	failAt     int
	noBrotli   bool
	failSkip   bool

	events      engine.Event
	decompress  bool
	input       []byte
	hasInput    bool
	inputClosed bool

	pos     int
	emitted int
	last    item
	seen    map[itemKind]bool
	frame   int

	pendingOut bool
	skipped    bool
	outBuf     []byte

	box        *Box
	boxData    []byte
	boxWritten int
	boxBuf     []byte
	boxFill    int

	stats Stats
}

var _ engine.Engine = (*Engine)(nil)
var _ engine.Versioner = (*Engine)(nil)

// New creates an engine that replays s.
func New(s Stream, opts ...Option) *Engine {
	e := &Engine{stream: s, items: s.items()}
	for _, opt := range opts {
		opt(e)
	}
	e.reset()
	return e
}

func (e *Engine) reset() {
	e.pos = 0
	e.emitted = 0
	e.seen = map[itemKind]bool{}
	e.frame = -1
	e.pendingOut = false
	e.skipped = false
	e.outBuf = nil
	e.box = nil
	e.boxData = nil
	e.boxBuf = nil
	e.boxFill = 0
	e.input = nil
	e.hasInput = false
	e.inputClosed = false
}

// Stats returns the call counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Version implements engine.Versioner.
func (e *Engine) Version() string {
	return Name + "/1"
}

// SubscribeEvents implements engine.Engine.
func (e *Engine) SubscribeEvents(events engine.Event) error {
	if e.pos != 0 {
		return engine.ErrInvalidCall
	}
	e.events = events
	return nil
}

// SetDecompressBoxes implements engine.Engine.
func (e *Engine) SetDecompressBoxes(enabled bool) error {
	if enabled && e.noBrotli {
		return fmt.Errorf("box decompression: %w", engine.ErrNotSupported)
	}
	e.decompress = enabled
	return nil
}

// SetInput implements engine.Engine.
func (e *Engine) SetInput(data []byte) error {
	if e.stats.Closed {
		return engine.ErrInvalidCall
	}
	e.input = data
	e.hasInput = true
	e.stats.Inputs++
	return nil
}

// CloseInput implements engine.Engine.
func (e *Engine) CloseInput() {
	e.inputClosed = true
}

// ProcessInput implements engine.Engine.
func (e *Engine) ProcessInput() engine.Status {
	e.stats.ProcessCalls++
	if e.stats.Closed {
		return engine.StatusError
	}
	if !e.hasInput {
		return engine.StatusNeedMoreInput
	}

	if e.box != nil && e.boxBuf != nil && e.boxWritten < len(e.boxData) {
		n := copy(e.boxBuf[e.boxFill:], e.boxData[e.boxWritten:])
		e.boxFill += n
		e.boxWritten += n
		if e.boxWritten < len(e.boxData) {
			return engine.StatusBoxNeedMoreOutput
		}
	}
	if e.pendingOut {
		if e.outBuf == nil {
			return engine.StatusError
		}
		// The full image item is next; fall through to emit it.
	}

	for e.pos < len(e.items) {
		it := e.items[e.pos]
		if it.kind == itemSuccess {
			e.box = nil
			return engine.StatusSuccess
		}
		if status, stop := e.interrupt(); stop {
			return status
		}
		e.pos++
		if status, ok := e.emit(it); ok {
			e.last = it
			e.emitted++
			return status
		}
	}
	return engine.StatusSuccess
}

// interrupt applies the truncation and failure knobs before the next event.
func (e *Engine) interrupt() (engine.Status, bool) {
	if e.failAt > 0 && e.emitted >= e.failAt {
		return engine.StatusError, true
	}
	if e.truncateAt > 0 && e.emitted >= e.truncateAt {
		return engine.StatusNeedMoreInput, true
	}
	return 0, false
}

// emit handles one item. It reports false for items the subscription hides.
func (e *Engine) emit(it item) (engine.Status, bool) {
	switch it.kind {
	case itemBox:
		e.box = nil
		e.boxData = nil
		if !e.events.Has(engine.EventBox) {
			return 0, false
		}
		b := e.stream.box(it.index)
		e.box = &b
		e.boxData = b.Payload
		if b.Type == types.BoxBrotli && e.decompress {
			e.boxData = b.Content
		}
		e.boxWritten = 0
		return engine.StatusBox, true

	case itemBasicInfo:
		e.box = nil
		e.seen[itemBasicInfo] = true
		return engine.StatusBasicInfo, e.events.Has(engine.EventBasicInfo)

	case itemColor:
		e.box = nil
		e.seen[itemColor] = true
		return engine.StatusColorEncoding, e.events.Has(engine.EventColorEncoding)

	case itemFrame:
		e.box = nil
		e.frame = it.index
		e.skipped = false
		return engine.StatusFrame, e.events.Has(engine.EventFrame)

	case itemNeedOut:
		if !e.events.Has(engine.EventFullImage) || e.skipped {
			e.pos++ // drop the matching full image item
			return 0, false
		}
		e.pendingOut = true
		return engine.StatusNeedImageOutBuffer, true

	case itemFullImage:
		e.fill(it.index)
		e.pendingOut = false
		e.outBuf = nil
		return engine.StatusFullImage, true
	}
	return 0, false
}

func (e *Engine) fill(index int) {
	px := e.stream.Frames[index].Pixels
	if px != nil {
		n := copy(e.outBuf, px)
		clear(e.outBuf[n:])
		return
	}
	for i := range e.outBuf {
		e.outBuf[i] = byte(i + index*7)
	}
}

// BasicInfo implements engine.Engine.
func (e *Engine) BasicInfo() (types.BasicInfo, error) {
	if !e.seen[itemBasicInfo] {
		return types.BasicInfo{}, engine.ErrInvalidCall
	}
	return e.stream.Info, nil
}

// ICCProfileSize implements engine.Engine.
func (e *Engine) ICCProfileSize() (int, error) {
	if !e.seen[itemColor] {
		return 0, engine.ErrInvalidCall
	}
	return len(e.stream.ICC), nil
}

// ICCProfile implements engine.Engine.
func (e *Engine) ICCProfile(dst []byte) error {
	if !e.seen[itemColor] {
		return engine.ErrInvalidCall
	}
	if len(dst) != len(e.stream.ICC) {
		return engine.ErrBufferTooSmall
	}
	copy(dst, e.stream.ICC)
	return nil
}

// FrameHeader implements engine.Engine.
func (e *Engine) FrameHeader() (types.FrameHeader, error) {
	if e.frame < 0 {
		return types.FrameHeader{}, engine.ErrInvalidCall
	}
	return e.stream.Frames[e.frame].Header, nil
}

// ImageOutBufferSize implements engine.Engine.
func (e *Engine) ImageOutBufferSize(pf types.PixelFormat) (int, error) {
	if !e.pendingOut {
		return 0, engine.ErrInvalidCall
	}
	return pixfmt.FrameSize(e.stream.Info.Width, e.stream.Info.Height, pf), nil
}

// SetImageOutBuffer implements engine.Engine.
func (e *Engine) SetImageOutBuffer(pf types.PixelFormat, buf []byte) error {
	size, err := e.ImageOutBufferSize(pf)
	if err != nil {
		return err
	}
	if len(buf) < size {
		return engine.ErrBufferTooSmall
	}
	e.outBuf = buf[:size]
	return nil
}

// SkipCurrentFrame implements engine.Engine.
func (e *Engine) SkipCurrentFrame() error {
	if e.failSkip {
		return fmt.Errorf("skip frame %d: %w", e.frame, engine.ErrNotSupported)
	}
	if e.frame < 0 || (e.last.kind != itemFrame && !e.pendingOut) {
		return engine.ErrInvalidCall
	}
	if e.pendingOut {
		e.pendingOut = false
		e.outBuf = nil
		e.pos++ // drop the full image item
	} else {
		e.skipped = true
	}
	e.stats.Skips++
	return nil
}

// BoxType implements engine.Engine.
func (e *Engine) BoxType(decompressed bool) (types.BoxType, error) {
	if e.box == nil {
		return "", engine.ErrInvalidCall
	}
	if e.box.Type == types.BoxBrotli && decompressed && e.decompress {
		return e.box.Inner, nil
	}
	return e.box.Type, nil
}

// SetBoxBuffer implements engine.Engine.
func (e *Engine) SetBoxBuffer(buf []byte) error {
	if e.box == nil || e.boxBuf != nil {
		return engine.ErrInvalidCall
	}
	e.boxBuf = buf
	e.boxFill = 0
	return nil
}

// ReleaseBoxBuffer implements engine.Engine.
func (e *Engine) ReleaseBoxBuffer() int {
	if e.boxBuf == nil {
		return 0
	}
	remaining := len(e.boxBuf) - e.boxFill
	e.boxBuf = nil
	e.boxFill = 0
	return remaining
}

// Rewind implements engine.Engine.
func (e *Engine) Rewind() {
	e.reset()
	e.stats.Rewinds++
}

// Close implements engine.Engine.
func (e *Engine) Close() error {
	e.reset()
	e.stats.Closed = true
	return nil
}
