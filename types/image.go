// Package types defines the image data model shared by the decoder,
// the engine backends and the export pipeline.
//
//nolint:revive // types is a common Go package naming convention
package types

// AnimationHeader carries the timing parameters of an animated stream.
// Frame durations are expressed in ticks of TPSDenominator/TPSNumerator seconds.
type AnimationHeader struct {
	// TPSNumerator is the tick rate numerator (ticks per second).
	TPSNumerator uint32 `msgpack:"tps_numerator" json:"tps_numerator" yaml:"tps_numerator"`
	// TPSDenominator is the tick rate denominator.
	TPSDenominator uint32 `msgpack:"tps_denominator" json:"tps_denominator" yaml:"tps_denominator"`
	// NumLoops is the loop count; 0 means loop forever.
	NumLoops uint32 `msgpack:"num_loops" json:"num_loops" yaml:"num_loops"`
	// HaveTimecodes reports whether frame headers carry timecodes.
	HaveTimecodes bool `msgpack:"have_timecodes" json:"have_timecodes" yaml:"have_timecodes"`
}

// BasicInfo is the one-shot stream metadata reported by the engine at the
// basic-info event. It is immutable for the lifetime of a decode session.
type BasicInfo struct {
	Width  uint32 `msgpack:"xsize" json:"width" yaml:"width"`
	Height uint32 `msgpack:"ysize" json:"height" yaml:"height"`

	NumColorChannels uint32 `msgpack:"num_color_channels" json:"num_color_channels" yaml:"num_color_channels"`
	NumExtraChannels uint32 `msgpack:"num_extra_channels" json:"num_extra_channels" yaml:"num_extra_channels"`

	BitsPerSample         uint32 `msgpack:"bits_per_sample" json:"bits_per_sample" yaml:"bits_per_sample"`
	ExponentBitsPerSample uint32 `msgpack:"exponent_bits_per_sample" json:"exponent_bits_per_sample" yaml:"exponent_bits_per_sample"`

	AlphaBits          uint32 `msgpack:"alpha_bits" json:"alpha_bits" yaml:"alpha_bits"`
	AlphaExponentBits  uint32 `msgpack:"alpha_exponent_bits" json:"alpha_exponent_bits" yaml:"alpha_exponent_bits"`
	AlphaPremultiplied bool   `msgpack:"alpha_premultiplied" json:"alpha_premultiplied" yaml:"alpha_premultiplied"`

	// Orientation is the EXIF-style orientation (1..8) declared in the header.
	Orientation uint32 `msgpack:"orientation" json:"orientation" yaml:"orientation"`
	// HaveContainer reports whether the codestream is wrapped in a box container.
	HaveContainer bool `msgpack:"have_container" json:"have_container" yaml:"have_container"`

	HaveAnimation bool            `msgpack:"have_animation" json:"have_animation" yaml:"have_animation"`
	Animation     AnimationHeader `msgpack:"animation" json:"animation" yaml:"animation"`
}

// HasAlpha reports whether the stream declares an alpha channel.
func (b BasicInfo) HasAlpha() bool {
	return b.AlphaBits > 0
}

// IsFloat reports whether any sample is stored as floating point.
func (b BasicInfo) IsFloat() bool {
	return b.ExponentBitsPerSample > 0 || b.AlphaExponentBits > 0
}

// FrameHeader is the per-frame header reported at the frame event.
type FrameHeader struct {
	// Duration is the frame display time in animation ticks.
	Duration uint32 `msgpack:"duration" json:"duration"`
	// Timecode is the SMPTE-style timecode, if the stream carries timecodes.
	Timecode uint32 `msgpack:"timecode" json:"timecode"`
	// Name is the optional frame name.
	Name string `msgpack:"name,omitempty" json:"name,omitempty"`
	// IsLast is true for the final displayed frame of the stream.
	IsLast bool `msgpack:"is_last" json:"is_last"`
}
