package trace

import (
	"github.com/justapithecus/jxlframe/engine"
	"github.com/justapithecus/jxlframe/types"
)

// Recorder is an engine.Engine that forwards every call to an inner engine
// and writes a Record for it.
//
// Recording never changes engine behaviour: write failures are kept and
// reported by Err, not returned from engine calls.
type Recorder struct {
	inner  engine.Engine
	w      *Writer
	err    error
	outBuf []byte
	boxBuf []byte
}

var _ engine.Engine = (*Recorder)(nil)

// NewRecorder wraps inner, writing records to w.
func NewRecorder(inner engine.Engine, w *Writer) *Recorder {
	return &Recorder{inner: inner, w: w}
}

// Err returns the first write error, if any.
func (r *Recorder) Err() error {
	return r.err
}

func (r *Recorder) record(rec Record, err error) {
	if err != nil {
		rec.Err = err.Error()
	}
	if r.err != nil {
		return
	}
	r.err = r.w.Write(&rec)
}

// Version reports the inner engine's version when it has one.
func (r *Recorder) Version() string {
	if v, ok := r.inner.(engine.Versioner); ok {
		return v.Version()
	}
	return ""
}

func (r *Recorder) SubscribeEvents(events engine.Event) error {
	err := r.inner.SubscribeEvents(events)
	r.record(Record{Op: OpSubscribeEvents, Events: events}, err)
	return err
}

func (r *Recorder) SetDecompressBoxes(enabled bool) error {
	err := r.inner.SetDecompressBoxes(enabled)
	r.record(Record{Op: OpSetDecompressBoxes, Flag: enabled}, err)
	return err
}

func (r *Recorder) SetInput(data []byte) error {
	err := r.inner.SetInput(data)
	r.record(Record{Op: OpSetInput, Size: len(data)}, err)
	return err
}

func (r *Recorder) CloseInput() {
	r.inner.CloseInput()
	r.record(Record{Op: OpCloseInput}, nil)
}

func (r *Recorder) ProcessInput() engine.Status {
	status := r.inner.ProcessInput()
	rec := Record{Op: OpProcessInput, Status: status}
	if status == engine.StatusFullImage && r.outBuf != nil {
		rec.Data = append([]byte(nil), r.outBuf...)
		r.outBuf = nil
	}
	r.record(rec, nil)
	return status
}

func (r *Recorder) BasicInfo() (types.BasicInfo, error) {
	bi, err := r.inner.BasicInfo()
	r.record(Record{Op: OpBasicInfo, BasicInfo: &bi}, err)
	return bi, err
}

func (r *Recorder) ICCProfileSize() (int, error) {
	n, err := r.inner.ICCProfileSize()
	r.record(Record{Op: OpICCProfileSize, Size: n}, err)
	return n, err
}

func (r *Recorder) ICCProfile(dst []byte) error {
	err := r.inner.ICCProfile(dst)
	r.record(Record{Op: OpICCProfile, Data: append([]byte(nil), dst...)}, err)
	return err
}

func (r *Recorder) FrameHeader() (types.FrameHeader, error) {
	fh, err := r.inner.FrameHeader()
	r.record(Record{Op: OpFrameHeader, FrameHeader: &fh}, err)
	return fh, err
}

func (r *Recorder) ImageOutBufferSize(pf types.PixelFormat) (int, error) {
	n, err := r.inner.ImageOutBufferSize(pf)
	r.record(Record{Op: OpImageOutBufferSize, PixelFormat: &pf, Size: n}, err)
	return n, err
}

func (r *Recorder) SetImageOutBuffer(pf types.PixelFormat, buf []byte) error {
	err := r.inner.SetImageOutBuffer(pf, buf)
	if err == nil {
		if n, serr := r.inner.ImageOutBufferSize(pf); serr == nil && n <= len(buf) {
			r.outBuf = buf[:n]
		} else {
			r.outBuf = buf
		}
	}
	r.record(Record{Op: OpSetImageOutBuffer, PixelFormat: &pf, Size: len(buf)}, err)
	return err
}

func (r *Recorder) SkipCurrentFrame() error {
	err := r.inner.SkipCurrentFrame()
	r.record(Record{Op: OpSkipCurrentFrame}, err)
	return err
}

func (r *Recorder) BoxType(decompressed bool) (types.BoxType, error) {
	bt, err := r.inner.BoxType(decompressed)
	r.record(Record{Op: OpBoxType, Flag: decompressed, BoxType: bt}, err)
	return bt, err
}

func (r *Recorder) SetBoxBuffer(buf []byte) error {
	err := r.inner.SetBoxBuffer(buf)
	if err == nil {
		r.boxBuf = buf
	}
	r.record(Record{Op: OpSetBoxBuffer, Size: len(buf)}, err)
	return err
}

func (r *Recorder) ReleaseBoxBuffer() int {
	remaining := r.inner.ReleaseBoxBuffer()
	rec := Record{Op: OpReleaseBoxBuffer, Size: remaining}
	if r.boxBuf != nil && remaining <= len(r.boxBuf) {
		rec.Data = append([]byte(nil), r.boxBuf[:len(r.boxBuf)-remaining]...)
	}
	r.boxBuf = nil
	r.record(rec, nil)
	return remaining
}

func (r *Recorder) Rewind() {
	r.inner.Rewind()
	r.outBuf = nil
	r.boxBuf = nil
	r.record(Record{Op: OpRewind}, nil)
}

func (r *Recorder) Close() error {
	err := r.inner.Close()
	r.record(Record{Op: OpClose}, err)
	return err
}
