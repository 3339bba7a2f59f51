package decoder

import "github.com/justapithecus/jxlframe/types"

// Frame is one decoded frame.
type Frame struct {
	// Pixels is a view of the decoder's output buffer. It is valid until the
	// next call to Next, Rewind or Close; use Clone to keep it.
	Pixels   []byte
	Duration uint32
	Timecode uint32
	IsLast   bool
	// Index is the position of the frame since construction or the last Rewind.
	Index int
	Name  string
}

// Clone returns a copy of f that owns its pixels.
func (f *Frame) Clone() *Frame {
	c := *f
	c.Pixels = append([]byte(nil), f.Pixels...)
	return &c
}

// Info is the stream-level information available after New.
type Info struct {
	Width          uint32            `json:"width" yaml:"width"`
	Height         uint32            `json:"height" yaml:"height"`
	Mode           types.Mode        `json:"mode" yaml:"mode"`
	HasAnimation   bool              `json:"has_animation" yaml:"has_animation"`
	TPSNumerator   uint32            `json:"tps_numerator" yaml:"tps_numerator"`
	TPSDenominator uint32            `json:"tps_denominator" yaml:"tps_denominator"`
	NumLoops       uint32            `json:"num_loops" yaml:"num_loops"`
	FrameCount     int64             `json:"frame_count" yaml:"frame_count"`
	Orientation    uint32            `json:"orientation" yaml:"orientation"`
	PixelFormat    types.PixelFormat `json:"pixel_format" yaml:"pixel_format"`
}

// DurationMillis converts a frame duration in ticks to milliseconds.
// It returns 0 for streams without a tick rate.
func (i Info) DurationMillis(ticks uint32) float64 {
	if i.TPSNumerator == 0 {
		return 0
	}
	return float64(ticks) * 1000 * float64(i.TPSDenominator) / float64(i.TPSNumerator)
}
