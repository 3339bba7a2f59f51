package script

import (
	"errors"
	"fmt"

	"github.com/justapithecus/jxlframe/engine"
	"github.com/justapithecus/jxlframe/trace"
	"github.com/justapithecus/jxlframe/types"
)

var (
	// ErrDiverged is returned when the caller makes a different call than the
	// one recorded at the same position.
	ErrDiverged = errors.New("script: replay diverged from trace")
	// ErrInputMismatch is returned when the replayed input differs from the
	// recorded input.
	ErrInputMismatch = errors.New("script: input does not match trace")
	// ErrRecorded wraps errors that the recorded engine returned.
	ErrRecorded = errors.New("script: recorded engine error")
)

// Replay is an engine.Engine that replays a trace call-by-call.
type Replay struct {
	tr     *trace.Trace
	next   int
	err    error
	outBuf []byte
	boxBuf []byte
	closed bool
}

var _ engine.Engine = (*Replay)(nil)

// FromTrace creates a replaying engine.
func FromTrace(tr *trace.Trace) (*Replay, error) {
	if tr == nil {
		return nil, errors.New("script: nil trace")
	}
	if tr.Header.Version != trace.FormatVersion {
		return nil, fmt.Errorf("%w: %d", trace.ErrVersion, tr.Header.Version)
	}
	return &Replay{tr: tr}, nil
}

// Err returns the first divergence, if any.
func (r *Replay) Err() error {
	return r.err
}

// Remaining returns the number of records not yet replayed.
func (r *Replay) Remaining() int {
	return len(r.tr.Records) - r.next
}

// Version implements engine.Versioner.
func (r *Replay) Version() string {
	if r.tr.Header.EngineVersion != "" {
		return r.tr.Header.EngineVersion
	}
	return "replay:" + r.tr.Header.Backend
}

func (r *Replay) take(op trace.Op) (trace.Record, error) {
	if r.err != nil {
		return trace.Record{}, r.err
	}
	if r.next >= len(r.tr.Records) {
		r.err = fmt.Errorf("%w: call %s past end of trace", ErrDiverged, op)
		return trace.Record{}, r.err
	}
	rec := r.tr.Records[r.next]
	if rec.Op != op {
		r.err = fmt.Errorf("%w: record %d is %s, got %s", ErrDiverged, rec.Seq, rec.Op, op)
		return trace.Record{}, r.err
	}
	r.next++
	return rec, nil
}

func recordedErr(rec trace.Record) error {
	if rec.Err == "" {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrRecorded, rec.Err)
}

func (r *Replay) SubscribeEvents(events engine.Event) error {
	rec, err := r.take(trace.OpSubscribeEvents)
	if err != nil {
		return err
	}
	if rec.Events != events {
		r.err = fmt.Errorf("%w: subscribe %b, recorded %b", ErrDiverged, events, rec.Events)
		return r.err
	}
	return recordedErr(rec)
}

func (r *Replay) SetDecompressBoxes(enabled bool) error {
	rec, err := r.take(trace.OpSetDecompressBoxes)
	if err != nil {
		return err
	}
	return recordedErr(rec)
}

func (r *Replay) SetInput(data []byte) error {
	rec, err := r.take(trace.OpSetInput)
	if err != nil {
		return err
	}
	if !r.tr.Header.Matches(data) {
		r.err = ErrInputMismatch
		return r.err
	}
	return recordedErr(rec)
}

func (r *Replay) CloseInput() {
	_, _ = r.take(trace.OpCloseInput)
}

func (r *Replay) ProcessInput() engine.Status {
	rec, err := r.take(trace.OpProcessInput)
	if err != nil {
		return engine.StatusError
	}
	if rec.Status == engine.StatusFullImage && r.outBuf != nil {
		copy(r.outBuf, rec.Data)
		r.outBuf = nil
	}
	return rec.Status
}

func (r *Replay) BasicInfo() (types.BasicInfo, error) {
	rec, err := r.take(trace.OpBasicInfo)
	if err != nil {
		return types.BasicInfo{}, err
	}
	if rec.BasicInfo == nil {
		return types.BasicInfo{}, recordedErr(rec)
	}
	return *rec.BasicInfo, recordedErr(rec)
}

func (r *Replay) ICCProfileSize() (int, error) {
	rec, err := r.take(trace.OpICCProfileSize)
	if err != nil {
		return 0, err
	}
	return rec.Size, recordedErr(rec)
}

func (r *Replay) ICCProfile(dst []byte) error {
	rec, err := r.take(trace.OpICCProfile)
	if err != nil {
		return err
	}
	copy(dst, rec.Data)
	return recordedErr(rec)
}

func (r *Replay) FrameHeader() (types.FrameHeader, error) {
	rec, err := r.take(trace.OpFrameHeader)
	if err != nil {
		return types.FrameHeader{}, err
	}
	if rec.FrameHeader == nil {
		return types.FrameHeader{}, recordedErr(rec)
	}
	return *rec.FrameHeader, recordedErr(rec)
}

func (r *Replay) ImageOutBufferSize(pf types.PixelFormat) (int, error) {
	rec, err := r.take(trace.OpImageOutBufferSize)
	if err != nil {
		return 0, err
	}
	return rec.Size, recordedErr(rec)
}

func (r *Replay) SetImageOutBuffer(pf types.PixelFormat, buf []byte) error {
	rec, err := r.take(trace.OpSetImageOutBuffer)
	if err != nil {
		return err
	}
	if rerr := recordedErr(rec); rerr != nil {
		return rerr
	}
	r.outBuf = buf
	return nil
}

func (r *Replay) SkipCurrentFrame() error {
	rec, err := r.take(trace.OpSkipCurrentFrame)
	if err != nil {
		return err
	}
	return recordedErr(rec)
}

func (r *Replay) BoxType(decompressed bool) (types.BoxType, error) {
	rec, err := r.take(trace.OpBoxType)
	if err != nil {
		return "", err
	}
	return rec.BoxType, recordedErr(rec)
}

func (r *Replay) SetBoxBuffer(buf []byte) error {
	rec, err := r.take(trace.OpSetBoxBuffer)
	if err != nil {
		return err
	}
	if rerr := recordedErr(rec); rerr != nil {
		return rerr
	}
	r.boxBuf = buf
	return nil
}

func (r *Replay) ReleaseBoxBuffer() int {
	rec, err := r.take(trace.OpReleaseBoxBuffer)
	if err != nil {
		return 0
	}
	if r.boxBuf != nil {
		copy(r.boxBuf, rec.Data)
	}
	r.boxBuf = nil
	return rec.Size
}

func (r *Replay) Rewind() {
	_, _ = r.take(trace.OpRewind)
	r.outBuf = nil
	r.boxBuf = nil
}

func (r *Replay) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	// A trace recorded from an aborted session may end before Close.
	if r.err == nil && r.next < len(r.tr.Records) {
		rec, err := r.take(trace.OpClose)
		if err != nil {
			return err
		}
		return recordedErr(rec)
	}
	return nil
}
