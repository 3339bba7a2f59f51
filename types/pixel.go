package types

import "fmt"

// DataType is the sample type of an output pixel buffer.
type DataType int

const (
	// Uint8 stores each sample in one byte.
	Uint8 DataType = iota
	// Uint16 stores each sample in two bytes.
	Uint16
	// Float stores each sample as a 32-bit IEEE float.
	Float
)

// String returns the data type name.
func (d DataType) String() string {
	switch d {
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Float:
		return "float"
	default:
		return fmt.Sprintf("DataType(%d)", int(d))
	}
}

// Endianness is the byte order of multi-byte samples.
type Endianness int

const (
	// NativeEndian uses the host byte order.
	NativeEndian Endianness = iota
	// LittleEndian forces little-endian samples.
	LittleEndian
	// BigEndian forces big-endian samples.
	BigEndian
)

// String returns the byte order name.
func (e Endianness) String() string {
	switch e {
	case NativeEndian:
		return "native"
	case LittleEndian:
		return "little"
	case BigEndian:
		return "big"
	default:
		return fmt.Sprintf("Endianness(%d)", int(e))
	}
}

// PixelFormat describes the layout of decoded pixels handed to the engine.
type PixelFormat struct {
	NumChannels uint32     `msgpack:"num_channels" json:"num_channels"`
	DataType    DataType   `msgpack:"data_type" json:"data_type"`
	Endianness  Endianness `msgpack:"endianness" json:"endianness"`
	// Align is the row alignment in bytes; 0 means rows are tightly packed.
	Align uint32 `msgpack:"align" json:"align"`
}

// String renders the format as e.g. "4xuint8/native".
func (p PixelFormat) String() string {
	return fmt.Sprintf("%dx%s/%s", p.NumChannels, p.DataType, p.Endianness)
}

// Mode names the channel layout of decoded pixels, e.g. "RGBA" or "L".
// The zero value is the unsupported sentinel.
type Mode string

// Mode names. The strings are consumed verbatim by bitmap targets.
const (
	ModeUnsupported Mode = ""
	ModeI16         Mode = "I;16"
	ModeRGBA        Mode = "RGBA"
	ModeRGBa        Mode = "RGBa"
	ModeRGB         Mode = "RGB"
	ModeLA          Mode = "LA"
	ModeLa          Mode = "La"
	ModeL           Mode = "L"
)

// Supported reports whether the mode is a real mode and not the sentinel.
func (m Mode) Supported() bool {
	return m != ModeUnsupported
}

// Bands returns the number of bands the mode describes, or 0 for the sentinel.
func (m Mode) Bands() int {
	switch m {
	case ModeI16, ModeL:
		return 1
	case ModeLA, ModeLa:
		return 2
	case ModeRGB:
		return 3
	case ModeRGBA, ModeRGBa:
		return 4
	default:
		return 0
	}
}

// String returns the mode name, or "unsupported" for the sentinel.
func (m Mode) String() string {
	if m == ModeUnsupported {
		return "unsupported"
	}
	return string(m)
}
