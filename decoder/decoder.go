// Package decoder decodes JPEG XL streams frame by frame.
//
// A Decoder owns a copy of the input, an engine and the session buffers.
// New reads the headers, the color profile and the leading metadata boxes,
// counts the frames of animations by skipping through them once, and leaves
// the engine positioned before the first frame. Each Next renders one frame.
//
//	dec, err := decoder.New(data)
//	if err != nil {
//		return err
//	}
//	defer dec.Close()
//	for {
//		frame, err := dec.Next()
//		if err == io.EOF {
//			break
//		}
//		...
//	}
//
// A Decoder is not safe for concurrent use.
package decoder

import (
	"errors"
	"fmt"
	"io"

	"github.com/justapithecus/jxlframe/buffer"
	"github.com/justapithecus/jxlframe/engine"
	"github.com/justapithecus/jxlframe/log"
	"github.com/justapithecus/jxlframe/metrics"
	"github.com/justapithecus/jxlframe/pixfmt"
	"github.com/justapithecus/jxlframe/types"
)

// State is the lifecycle state of a Decoder.
type State int

const (
	StateCreated State = iota
	StateInitializing
	StateReady
	StateDecoding
	StateExhausted
	StateErrored
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDecoding:
		return "decoding"
	case StateExhausted:
		return "exhausted"
	case StateErrored:
		return "errored"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// resources is everything a Decoder must release.
type resources struct {
	eng  engine.Engine
	bufs *buffer.Manager
}

func (r *resources) release() error {
	var err error
	if r.eng != nil {
		err = r.eng.Close()
		r.eng = nil
	}
	if r.bufs != nil {
		r.bufs.Release()
		r.bufs = nil
	}
	return err
}

// Decoder is a frame-sequential JPEG XL decoder.
type Decoder struct {
	cfg  config
	log  *log.Logger
	coll *metrics.Collector
	res  resources

	state  State
	status engine.Status

	info     types.BasicInfo
	haveInfo bool
	mode     types.Mode
	modeOK   bool
	pf       types.PixelFormat

	frameCount int64
	counted    int64
	header     types.FrameHeader
	index      int

	meta metadata
}

// New copies data and prepares it for decoding.
//
// On failure every acquired resource is released and the error matches one
// of the Err* kinds, or engine.ErrUnknownBackend when the backend is missing.
func New(data []byte, opts ...Option) (_ *Decoder, err error) {
	cfg := newConfig(opts)
	d := &Decoder{
		cfg:    cfg,
		log:    cfg.logger,
		coll:   cfg.collector,
		state:  StateCreated,
		status: statusNone,
		meta:   metadata{boxes: map[types.BoxType][]byte{}},
	}
	defer func() {
		if err != nil {
			_ = d.res.release()
			d.state = StateClosed
			d.coll.IncSessionFailed()
			d.coll.IncDecodeError(KindName(err))
			d.log.Error("decoder init failed", map[string]any{"error": err.Error()})
		}
	}()

	if len(data) == 0 {
		return nil, newDecodeError(ErrMalformedInput, "new", statusNone, errors.New("empty input"))
	}

	eng := cfg.engine
	if eng == nil {
		eng, err = engine.Open(cfg.backend, engine.Options{Workers: cfg.workers})
		if err != nil {
			return nil, err
		}
	}
	d.res.eng = eng
	d.res.bufs = buffer.NewManager(cfg.alloc)
	d.state = StateInitializing
	d.res.bufs.LoadInput(data)

	d.log.Info("decode session started", map[string]any{"input_bytes": len(data), "backend": cfg.backend})

	if err := eng.SubscribeEvents(engine.DecodeEvents); err != nil {
		return nil, fmt.Errorf("subscribe events: %w", err)
	}
	if err := eng.SetDecompressBoxes(true); err != nil {
		// brob boxes then arrive compressed and are inflated locally.
		d.log.Warn("engine box decompression unavailable", map[string]any{"error": err.Error()})
	}
	if err := d.feed(); err != nil {
		return nil, err
	}

	status, err := d.run(phaseHeaders)
	if err != nil {
		return nil, err
	}
	if !d.haveInfo {
		return nil, newDecodeError(ErrMalformedInput, phaseHeaders.String(), status, errors.New("no basic info before first frame"))
	}
	if status == engine.StatusSuccess {
		d.frameCount = 0
		d.state = StateExhausted
		d.coll.IncSessionOpened()
		d.log.Warn("stream has no frames", nil)
		return d, nil
	}

	if d.info.HaveAnimation || cfg.fullPrescan {
		n, err := d.countFrames()
		if err != nil {
			return nil, err
		}
		d.frameCount = n
	} else {
		d.frameCount = 1
	}

	status, err = d.run(phaseSeek)
	if err != nil {
		return nil, err
	}
	d.state = StateReady
	if status == engine.StatusSuccess {
		d.state = StateExhausted
	}

	d.coll.IncSessionOpened()
	d.log.Info("decoder ready", map[string]any{
		"width":       d.info.Width,
		"height":      d.info.Height,
		"mode":        d.mode.String(),
		"animated":    d.info.HaveAnimation,
		"frame_count": d.frameCount,
	})
	return d, nil
}

func (d *Decoder) setBasicInfo(bi types.BasicInfo) {
	d.info = bi
	d.haveInfo = true
	d.mode, d.modeOK = pixfmt.ResolveMode(bi)
	d.pf = pixfmt.Resolve(bi)
	d.log.Debug("basic info", map[string]any{
		"width":           bi.Width,
		"height":          bi.Height,
		"bits_per_sample": bi.BitsPerSample,
		"pixel_format":    d.pf.String(),
	})
}

// checkOpen returns the error for calls that need a live decoder.
func (d *Decoder) checkOpen() error {
	switch d.state {
	case StateClosed, StateCreated:
		return ErrClosed
	case StateErrored:
		return ErrErrored
	}
	return nil
}

// fail moves the decoder to the errored state.
func (d *Decoder) fail(err error) error {
	d.state = StateErrored
	d.coll.IncDecodeError(KindName(err))
	d.log.Error("decode failed", map[string]any{"error": err.Error(), "frame_index": d.index})
	return err
}

// State returns the lifecycle state.
func (d *Decoder) State() State {
	return d.state
}

// Info returns stream information. Dimensions are reported even when the
// mode is unsupported.
func (d *Decoder) Info() (Info, error) {
	if err := d.checkOpen(); err != nil {
		return Info{}, err
	}
	return Info{
		Width:          d.info.Width,
		Height:         d.info.Height,
		Mode:           d.mode,
		HasAnimation:   d.info.HaveAnimation,
		TPSNumerator:   d.info.Animation.TPSNumerator,
		TPSDenominator: d.info.Animation.TPSDenominator,
		NumLoops:       d.info.Animation.NumLoops,
		FrameCount:     d.frameCount,
		Orientation:    d.info.Orientation,
		PixelFormat:    d.pf,
	}, nil
}

// BasicInfo returns the raw basic info read from the stream.
func (d *Decoder) BasicInfo() (types.BasicInfo, error) {
	if err := d.checkOpen(); err != nil {
		return types.BasicInfo{}, err
	}
	return d.info, nil
}

// Next decodes the next frame. It returns nil, io.EOF once every frame has
// been returned.
func (d *Decoder) Next() (*Frame, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	if d.state == StateExhausted {
		return nil, io.EOF
	}
	if !d.modeOK && !d.cfg.allowUnsupported {
		return nil, newDecodeError(ErrUnsupportedFormat, "next", statusNone,
			fmt.Errorf("no mode for %d-bit %d-channel pixels", d.info.BitsPerSample, d.info.NumColorChannels))
	}

	d.state = StateDecoding
	if d.status != engine.StatusNeedImageOutBuffer {
		status, err := d.run(phaseSeek)
		if err != nil {
			return nil, d.fail(err)
		}
		if status == engine.StatusSuccess {
			d.state = StateExhausted
			return nil, io.EOF
		}
	}

	eng := d.res.eng
	size, err := eng.ImageOutBufferSize(d.pf)
	if err != nil {
		return nil, d.fail(newDecodeError(ErrMalformedInput, "image_out_buffer_size", d.status, err))
	}
	out := d.res.bufs.Output()
	before := out.Allocations()
	view := out.Ensure(size)
	if out.Allocations() != before {
		d.coll.IncBufferReallocation()
	}
	if err := eng.SetImageOutBuffer(d.pf, view); err != nil {
		return nil, d.fail(newDecodeError(ErrMalformedInput, "set_image_out_buffer", d.status, err))
	}
	if _, err := d.run(phaseRender); err != nil {
		return nil, d.fail(err)
	}

	frame := &Frame{
		Pixels:   view[:size],
		Duration: d.header.Duration,
		Timecode: d.header.Timecode,
		IsLast:   d.header.IsLast,
		Index:    d.index,
		Name:     d.header.Name,
	}
	d.index++
	d.state = StateReady
	d.coll.IncFrameDecoded(size)
	d.log.Debug("frame decoded", map[string]any{
		"index":    frame.Index,
		"bytes":    size,
		"duration": frame.Duration,
		"is_last":  frame.IsLast,
	})
	return frame, nil
}

// Rewind restarts decoding at the first frame. Stream information, the
// frame count and metadata are kept.
func (d *Decoder) Rewind() error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if err := d.rewindEngine(); err != nil {
		return d.fail(err)
	}
	d.index = 0
	d.header = types.FrameHeader{}
	d.state = StateReady
	return nil
}

// ICC returns a copy of the color profile.
func (d *Decoder) ICC() ([]byte, bool) {
	if d.meta.icc == nil {
		return nil, false
	}
	return append([]byte(nil), d.meta.icc...), true
}

// EXIF returns a copy of the EXIF TIFF payload.
func (d *Decoder) EXIF() ([]byte, bool) {
	return d.meta.get(types.BoxExif)
}

// XMP returns a copy of the XMP packet.
func (d *Decoder) XMP() ([]byte, bool) {
	return d.meta.get(types.BoxXMP)
}

// Close releases the engine and all buffers. It is safe to call more than once.
func (d *Decoder) Close() error {
	if d == nil || d.state == StateClosed {
		return nil
	}
	err := d.res.release()
	d.meta = metadata{}
	d.state = StateClosed
	return err
}
