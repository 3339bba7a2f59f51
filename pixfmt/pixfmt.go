// Package pixfmt maps stream basic info to an output pixel layout and a
// named mode. Both functions are pure: the same BasicInfo always yields the
// same result.
package pixfmt

import "github.com/justapithecus/jxlframe/types"

// Resolve derives the output pixel format for a stream.
//
// Channels are color plus extra channels (alpha is an extra channel).
// Float wins over bit depth; anything deeper than 8 bits becomes Uint16.
// The byte order is always native, which has not been verified on
// big-endian hosts.
func Resolve(bi types.BasicInfo) types.PixelFormat {
	pf := types.PixelFormat{
		NumChannels: bi.NumColorChannels + bi.NumExtraChannels,
		Endianness:  types.NativeEndian,
		Align:       0,
	}

	switch {
	case bi.IsFloat():
		pf.DataType = types.Float
	case bi.BitsPerSample > 8:
		pf.DataType = types.Uint16
	default:
		pf.DataType = types.Uint8
	}

	return pf
}

// ResolveMode returns the mode name for a stream, or ModeUnsupported and
// false when no mode represents it.
//
// Only 8-bit samples map to a mode, with one exception: 16-bit single
// channel gray without alpha maps to "I;16".
func ResolveMode(bi types.BasicInfo) (types.Mode, bool) {
	if bi.BitsPerSample == 16 && bi.NumColorChannels == 1 &&
		bi.AlphaBits == 0 && !bi.AlphaPremultiplied {
		return types.ModeI16, true
	}

	if bi.BitsPerSample != 8 {
		return types.ModeUnsupported, false
	}

	if bi.AlphaBits > 0 {
		switch bi.NumColorChannels {
		case 3:
			if bi.AlphaPremultiplied {
				return types.ModeRGBa, true
			}
			return types.ModeRGBA, true
		case 1:
			if bi.AlphaPremultiplied {
				return types.ModeLa, true
			}
			return types.ModeLA, true
		}
	}

	switch bi.NumColorChannels {
	case 3:
		return types.ModeRGB, true
	case 1:
		return types.ModeL, true
	}

	return types.ModeUnsupported, false
}

// BytesPerSample returns the storage size of one sample.
func BytesPerSample(dt types.DataType) int {
	switch dt {
	case types.Uint16:
		return 2
	case types.Float:
		return 4
	default:
		return 1
	}
}

// RowStride returns the number of bytes per row including alignment padding.
func RowStride(width uint32, pf types.PixelFormat) int {
	stride := int(width) * int(pf.NumChannels) * BytesPerSample(pf.DataType)
	if pf.Align > 1 {
		align := int(pf.Align)
		stride = (stride + align - 1) / align * align
	}
	return stride
}

// FrameSize returns the number of bytes needed to hold one full frame.
// The last row is not padded, matching how engines size output buffers.
func FrameSize(width, height uint32, pf types.PixelFormat) int {
	if width == 0 || height == 0 {
		return 0
	}
	packed := int(width) * int(pf.NumChannels) * BytesPerSample(pf.DataType)
	return RowStride(width, pf)*(int(height)-1) + packed
}
