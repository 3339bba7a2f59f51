//go:build libjxl && cgo

package libjxl

/*
#cgo pkg-config: libjxl libjxl_threads
#include <stdlib.h>
#include <string.h>
#include <jxl/decode.h>
#include <jxl/thread_parallel_runner.h>
#include <jxl/version.h>

static JxlDecoderStatus set_runner(JxlDecoder *dec, void *runner) {
    return JxlDecoderSetParallelRunner(dec, JxlThreadParallelRunner, runner);
}

static JxlDecoderStatus icc_size(const JxlDecoder *dec, size_t *size) {
    return JxlDecoderGetICCProfileSize(
        dec,
#if JPEGXL_MINOR_VERSION < 9
        NULL,
#endif
        JXL_COLOR_PROFILE_TARGET_DATA, size);
}

static JxlDecoderStatus icc_profile(const JxlDecoder *dec, uint8_t *dst, size_t size) {
    return JxlDecoderGetColorAsICCProfile(
        dec,
#if JPEGXL_MINOR_VERSION < 9
        NULL,
#endif
        JXL_COLOR_PROFILE_TARGET_DATA, dst, size);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/justapithecus/jxlframe/engine"
	"github.com/justapithecus/jxlframe/types"
)

func init() {
	engine.Register(Name, Open)
}

// cbuf is C-allocated memory. libjxl keeps pointers to input, output and box
// buffers across calls, which Go memory may not be used for.
type cbuf struct {
	ptr  unsafe.Pointer
	size int
}

func (b *cbuf) ensure(n int) {
	if b.size >= n && b.ptr != nil {
		return
	}
	b.free()
	b.ptr = C.malloc(C.size_t(max(n, 1)))
	b.size = n
}

func (b *cbuf) free() {
	if b.ptr != nil {
		C.free(b.ptr)
		b.ptr = nil
		b.size = 0
	}
}

func (b *cbuf) bytes(n int) []byte {
	return unsafe.Slice((*byte)(b.ptr), n)
}

// Decoder is a libjxl-backed engine.Engine.
type Decoder struct {
	dec    *C.JxlDecoder
	runner unsafe.Pointer

	input cbuf
	out   cbuf
	box   cbuf

	goOut       []byte
	goBox       []byte
	boxAttached int
}

var _ engine.Engine = (*Decoder)(nil)
var _ engine.Versioner = (*Decoder)(nil)

// Open creates a decoder with a thread-parallel runner of opts.Workers threads.
func Open(opts engine.Options) (engine.Engine, error) {
	d := &Decoder{dec: C.JxlDecoderCreate(nil)}
	if d.dec == nil {
		return nil, errors.New("libjxl: JxlDecoderCreate failed")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = engine.DefaultWorkers
	}
	d.runner = C.JxlThreadParallelRunnerCreate(nil, C.size_t(workers))
	if d.runner == nil {
		_ = d.Close()
		return nil, errors.New("libjxl: JxlThreadParallelRunnerCreate failed")
	}
	if C.set_runner(d.dec, d.runner) != C.JXL_DEC_SUCCESS {
		_ = d.Close()
		return nil, errors.New("libjxl: JxlDecoderSetParallelRunner failed")
	}
	return d, nil
}

func call(op string, st C.JxlDecoderStatus) error {
	if st == C.JXL_DEC_SUCCESS {
		return nil
	}
	return fmt.Errorf("libjxl: %s returned status %d", op, int(st))
}

// Version implements engine.Versioner.
func (d *Decoder) Version() string {
	v := uint32(C.JxlDecoderVersion())
	return fmt.Sprintf("libjxl %d.%d.%d", v/1000000, v/1000%1000, v%1000)
}

func (d *Decoder) SubscribeEvents(events engine.Event) error {
	var mask C.int
	if events.Has(engine.EventBasicInfo) {
		mask |= C.JXL_DEC_BASIC_INFO
	}
	if events.Has(engine.EventColorEncoding) {
		mask |= C.JXL_DEC_COLOR_ENCODING
	}
	if events.Has(engine.EventFrame) {
		mask |= C.JXL_DEC_FRAME
	}
	if events.Has(engine.EventFullImage) {
		mask |= C.JXL_DEC_FULL_IMAGE
	}
	if events.Has(engine.EventBox) {
		mask |= C.JXL_DEC_BOX
	}
	return call("JxlDecoderSubscribeEvents", C.JxlDecoderSubscribeEvents(d.dec, mask))
}

func (d *Decoder) SetDecompressBoxes(enabled bool) error {
	if err := call("JxlDecoderSetDecompressBoxes", C.JxlDecoderSetDecompressBoxes(d.dec, jxlBool(enabled))); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrNotSupported, err)
	}
	return nil
}

func (d *Decoder) SetInput(data []byte) error {
	C.JxlDecoderReleaseInput(d.dec)
	d.input.ensure(len(data))
	copy(d.input.bytes(len(data)), data)
	return call("JxlDecoderSetInput",
		C.JxlDecoderSetInput(d.dec, (*C.uint8_t)(d.input.ptr), C.size_t(len(data))))
}

func (d *Decoder) CloseInput() {
	C.JxlDecoderCloseInput(d.dec)
}

func (d *Decoder) ProcessInput() engine.Status {
	st := C.JxlDecoderProcessInput(d.dec)
	switch st {
	case C.JXL_DEC_SUCCESS:
		return engine.StatusSuccess
	case C.JXL_DEC_NEED_MORE_INPUT:
		return engine.StatusNeedMoreInput
	case C.JXL_DEC_NEED_IMAGE_OUT_BUFFER:
		return engine.StatusNeedImageOutBuffer
	case C.JXL_DEC_BASIC_INFO:
		return engine.StatusBasicInfo
	case C.JXL_DEC_COLOR_ENCODING:
		return engine.StatusColorEncoding
	case C.JXL_DEC_FRAME:
		return engine.StatusFrame
	case C.JXL_DEC_FULL_IMAGE:
		if d.goOut != nil {
			copy(d.goOut, d.out.bytes(len(d.goOut)))
			d.goOut = nil
		}
		return engine.StatusFullImage
	case C.JXL_DEC_BOX:
		return engine.StatusBox
	case C.JXL_DEC_BOX_NEED_MORE_OUTPUT:
		return engine.StatusBoxNeedMoreOutput
	default:
		return engine.StatusError
	}
}

func (d *Decoder) BasicInfo() (types.BasicInfo, error) {
	var bi C.JxlBasicInfo
	if err := call("JxlDecoderGetBasicInfo", C.JxlDecoderGetBasicInfo(d.dec, &bi)); err != nil {
		return types.BasicInfo{}, err
	}
	return types.BasicInfo{
		Width:                 uint32(bi.xsize),
		Height:                uint32(bi.ysize),
		NumColorChannels:      uint32(bi.num_color_channels),
		NumExtraChannels:      uint32(bi.num_extra_channels),
		BitsPerSample:         uint32(bi.bits_per_sample),
		ExponentBitsPerSample: uint32(bi.exponent_bits_per_sample),
		AlphaBits:             uint32(bi.alpha_bits),
		AlphaExponentBits:     uint32(bi.alpha_exponent_bits),
		AlphaPremultiplied:    bi.alpha_premultiplied != 0,
		Orientation:           uint32(bi.orientation),
		HaveContainer:         bi.have_container != 0,
		HaveAnimation:         bi.have_animation != 0,
		Animation: types.AnimationHeader{
			TPSNumerator:   uint32(bi.animation.tps_numerator),
			TPSDenominator: uint32(bi.animation.tps_denominator),
			NumLoops:       uint32(bi.animation.num_loops),
			HaveTimecodes:  bi.animation.have_timecodes != 0,
		},
	}, nil
}

func (d *Decoder) ICCProfileSize() (int, error) {
	var size C.size_t
	if err := call("JxlDecoderGetICCProfileSize", C.icc_size(d.dec, &size)); err != nil {
		return 0, err
	}
	return int(size), nil
}

func (d *Decoder) ICCProfile(dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	return call("JxlDecoderGetColorAsICCProfile",
		C.icc_profile(d.dec, (*C.uint8_t)(unsafe.Pointer(&dst[0])), C.size_t(len(dst))))
}

func (d *Decoder) FrameHeader() (types.FrameHeader, error) {
	var fh C.JxlFrameHeader
	if err := call("JxlDecoderGetFrameHeader", C.JxlDecoderGetFrameHeader(d.dec, &fh)); err != nil {
		return types.FrameHeader{}, err
	}
	out := types.FrameHeader{
		Duration: uint32(fh.duration),
		Timecode: uint32(fh.timecode),
		IsLast:   fh.is_last != 0,
	}
	if n := int(fh.name_length); n > 0 {
		name := make([]byte, n+1)
		st := C.JxlDecoderGetFrameName(d.dec, (*C.char)(unsafe.Pointer(&name[0])), C.size_t(n+1))
		if st == C.JXL_DEC_SUCCESS {
			out.Name = string(name[:n])
		}
	}
	return out, nil
}

func pixelFormat(pf types.PixelFormat) C.JxlPixelFormat {
	var f C.JxlPixelFormat
	f.num_channels = C.uint32_t(pf.NumChannels)
	switch pf.DataType {
	case types.Uint16:
		f.data_type = C.JXL_TYPE_UINT16
	case types.Float:
		f.data_type = C.JXL_TYPE_FLOAT
	default:
		f.data_type = C.JXL_TYPE_UINT8
	}
	switch pf.Endianness {
	case types.LittleEndian:
		f.endianness = C.JXL_LITTLE_ENDIAN
	case types.BigEndian:
		f.endianness = C.JXL_BIG_ENDIAN
	default:
		f.endianness = C.JXL_NATIVE_ENDIAN
	}
	f.align = C.size_t(pf.Align)
	return f
}

func (d *Decoder) ImageOutBufferSize(pf types.PixelFormat) (int, error) {
	f := pixelFormat(pf)
	var size C.size_t
	if err := call("JxlDecoderImageOutBufferSize", C.JxlDecoderImageOutBufferSize(d.dec, &f, &size)); err != nil {
		return 0, err
	}
	return int(size), nil
}

func (d *Decoder) SetImageOutBuffer(pf types.PixelFormat, buf []byte) error {
	f := pixelFormat(pf)
	d.out.ensure(len(buf))
	if err := call("JxlDecoderSetImageOutBuffer",
		C.JxlDecoderSetImageOutBuffer(d.dec, &f, d.out.ptr, C.size_t(len(buf)))); err != nil {
		return err
	}
	d.goOut = buf
	return nil
}

func (d *Decoder) SkipCurrentFrame() error {
	return call("JxlDecoderSkipCurrentFrame", C.JxlDecoderSkipCurrentFrame(d.dec))
}

func (d *Decoder) BoxType(decompressed bool) (types.BoxType, error) {
	var t C.JxlBoxType
	if err := call("JxlDecoderGetBoxType", C.JxlDecoderGetBoxType(d.dec, &t[0], jxlBool(decompressed))); err != nil {
		return "", err
	}
	return types.BoxType(C.GoBytes(unsafe.Pointer(&t[0]), 4)), nil
}

func (d *Decoder) SetBoxBuffer(buf []byte) error {
	d.box.ensure(len(buf))
	if err := call("JxlDecoderSetBoxBuffer",
		C.JxlDecoderSetBoxBuffer(d.dec, (*C.uint8_t)(d.box.ptr), C.size_t(len(buf)))); err != nil {
		return err
	}
	d.goBox = buf
	d.boxAttached = len(buf)
	return nil
}

func (d *Decoder) ReleaseBoxBuffer() int {
	remaining := int(C.JxlDecoderReleaseBoxBuffer(d.dec))
	if d.goBox != nil {
		copy(d.goBox, d.box.bytes(d.boxAttached-remaining))
		d.goBox = nil
	}
	return remaining
}

func (d *Decoder) Rewind() {
	C.JxlDecoderRewind(d.dec)
	d.goOut = nil
	d.goBox = nil
}

func (d *Decoder) Close() error {
	if d.dec != nil {
		C.JxlDecoderDestroy(d.dec)
		d.dec = nil
	}
	if d.runner != nil {
		C.JxlThreadParallelRunnerDestroy(d.runner)
		d.runner = nil
	}
	d.input.free()
	d.out.free()
	d.box.free()
	return nil
}

func jxlBool(b bool) C.JXL_BOOL {
	if b {
		return C.JXL_TRUE
	}
	return C.JXL_FALSE
}
