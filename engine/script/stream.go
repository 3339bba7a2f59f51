package script

import (
	"bytes"

	"github.com/andybalholm/brotli"

	"github.com/justapithecus/jxlframe/types"
)

// Frame is one frame of a scripted stream.
type Frame struct {
	Header types.FrameHeader
	// Pixels are copied into the output buffer. Nil fills the buffer with a
	// pattern derived from the frame index.
	Pixels []byte
}

// Box is one container box of a scripted stream.
type Box struct {
	// Type is the raw box type as stored in the container.
	Type types.BoxType
	// Inner is the wrapped type of a brob box.
	Inner types.BoxType
	// Payload is the raw box content.
	Payload []byte
	// Content is the decompressed content of a brob box.
	Content []byte
}

// Stream describes the logical content of a bitstream: what a real engine
// would find when parsing it.
type Stream struct {
	Info     types.BasicInfo
	ICC      []byte
	Leading  []Box
	Frames   []Frame
	Trailing []Box
}

// Still builds a single-frame stream.
func Still(info types.BasicInfo, pixels []byte) Stream {
	info.HaveAnimation = false
	return Stream{
		Info:   info,
		Frames: []Frame{{Header: types.FrameHeader{IsLast: true}, Pixels: pixels}},
	}
}

// Animation builds an animated stream. The last frame is marked IsLast.
func Animation(info types.BasicInfo, frames []Frame) Stream {
	info.HaveAnimation = true
	if info.Animation.TPSNumerator == 0 {
		info.Animation.TPSNumerator = 1000
		info.Animation.TPSDenominator = 1
	}
	out := make([]Frame, len(frames))
	copy(out, frames)
	for i := range out {
		out[i].Header.IsLast = i == len(out)-1
	}
	return Stream{Info: info, Frames: out}
}

// WithICC sets the color profile reported at the color event.
func (s Stream) WithICC(icc []byte) Stream {
	s.ICC = icc
	return s
}

// WithBox adds a box in front of the codestream.
func (s Stream) WithBox(typ types.BoxType, payload []byte) Stream {
	s.Leading = append(append([]Box(nil), s.Leading...), Box{Type: typ, Payload: payload})
	return s
}

// WithTrailingBox adds a box after the last frame.
func (s Stream) WithTrailingBox(typ types.BoxType, payload []byte) Stream {
	s.Trailing = append(append([]Box(nil), s.Trailing...), Box{Type: typ, Payload: payload})
	return s
}

// WithBrotliBox adds a brob box wrapping content of type inner.
func (s Stream) WithBrotliBox(inner types.BoxType, content []byte) Stream {
	var buf bytes.Buffer
	buf.WriteString(string(inner))
	w := brotli.NewWriter(&buf)
	// Writes to a bytes.Buffer cannot fail.
	_, _ = w.Write(content)
	_ = w.Close()
	s.Leading = append(append([]Box(nil), s.Leading...), Box{
		Type:    types.BoxBrotli,
		Inner:   inner,
		Payload: buf.Bytes(),
		Content: content,
	})
	return s
}

type itemKind int

const (
	itemBox itemKind = iota
	itemBasicInfo
	itemColor
	itemFrame
	itemNeedOut
	itemFullImage
	itemSuccess
)

type item struct {
	kind  itemKind
	index int
}

// items flattens the stream into the order a parser encounters it.
func (s Stream) items() []item {
	var out []item
	for i := range s.Leading {
		out = append(out, item{kind: itemBox, index: i})
	}
	out = append(out, item{kind: itemBasicInfo}, item{kind: itemColor})
	for i := range s.Frames {
		out = append(out,
			item{kind: itemFrame, index: i},
			item{kind: itemNeedOut, index: i},
			item{kind: itemFullImage, index: i},
		)
	}
	for i := range s.Trailing {
		out = append(out, item{kind: itemBox, index: len(s.Leading) + i})
	}
	return append(out, item{kind: itemSuccess})
}

func (s Stream) box(i int) Box {
	if i < len(s.Leading) {
		return s.Leading[i]
	}
	return s.Trailing[i-len(s.Leading)]
}
