// Package container recognises JPEG XL files and walks their ISOBMFF boxes.
//
// It works on raw bytes without an engine: the decoder uses it for the brob
// fallback and EXIF normalisation, and the CLI uses it to list boxes.
package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/justapithecus/jxlframe/types"
)

const (
	// MIMEType is the registered media type of JPEG XL.
	MIMEType = "image/jxl"
	// Extension is the conventional file extension.
	Extension = ".jxl"
)

var (
	codestreamSignature = []byte{0xff, 0x0a}
	containerSignature  = []byte{0x00, 0x00, 0x00, 0x0c, 'J', 'X', 'L', ' ', 0x0d, 0x0a, 0x87, 0x0a}
)

// ErrMalformedBox is returned for box headers that do not fit the data.
var ErrMalformedBox = errors.New("container: malformed box")

// ErrBoxTooLarge is returned when box content exceeds the size bound.
var ErrBoxTooLarge = fmt.Errorf("%w: content exceeds size bound", ErrMalformedBox)

// MaxBoxSize is the default bound on the content of one metadata box.
const MaxBoxSize = 16 << 20

// Kind is the outer format of a JPEG XL file.
type Kind int

const (
	// KindUnknown is not JPEG XL.
	KindUnknown Kind = iota
	// KindCodestream is a bare codestream.
	KindCodestream
	// KindContainer is an ISOBMFF container.
	KindContainer
)

func (k Kind) String() string {
	switch k {
	case KindCodestream:
		return "codestream"
	case KindContainer:
		return "container"
	default:
		return "unknown"
	}
}

// Sniff classifies a file from its first bytes.
func Sniff(prefix []byte) Kind {
	switch {
	case bytes.HasPrefix(prefix, codestreamSignature):
		return KindCodestream
	case bytes.HasPrefix(prefix, containerSignature):
		return KindContainer
	default:
		return KindUnknown
	}
}

// Box is one top-level ISOBMFF box.
type Box struct {
	Type types.BoxType `json:"type" yaml:"type"`
	// Offset is the position of the box header in the file.
	Offset int64 `json:"offset" yaml:"offset"`
	// Size is the total box size including its header.
	Size    int64  `json:"size" yaml:"size"`
	Payload []byte `json:"-" yaml:"-"`
}

// ReadBoxes walks the top-level boxes of a container file. A bare
// codestream yields a single synthetic jxlc box covering the whole input.
func ReadBoxes(data []byte) ([]Box, error) {
	switch Sniff(data) {
	case KindCodestream:
		return []Box{{Type: types.BoxCodestream, Size: int64(len(data)), Payload: data}}, nil
	case KindUnknown:
		return nil, fmt.Errorf("%w: not a JPEG XL file", ErrMalformedBox)
	}

	var boxes []Box
	var off int64
	end := int64(len(data))
	for off < end {
		if end-off < 8 {
			return boxes, fmt.Errorf("%w: truncated header at %d", ErrMalformedBox, off)
		}
		size := int64(binary.BigEndian.Uint32(data[off:]))
		typ := types.BoxType(data[off+4 : off+8])
		header := int64(8)
		switch size {
		case 0:
			size = end - off
		case 1:
			if end-off < 16 {
				return boxes, fmt.Errorf("%w: truncated large size at %d", ErrMalformedBox, off)
			}
			large := binary.BigEndian.Uint64(data[off+8:])
			if large > uint64(end-off) {
				return boxes, fmt.Errorf("%w: %s box at %d overruns input", ErrMalformedBox, typ, off)
			}
			size = int64(large)
			header = 16
		}
		if size < header || size > end-off {
			return boxes, fmt.Errorf("%w: %s box at %d has size %d", ErrMalformedBox, typ, off, size)
		}
		boxes = append(boxes, Box{
			Type:    typ,
			Offset:  off,
			Size:    size,
			Payload: data[off+header : off+size],
		})
		off += size
	}
	return boxes, nil
}

// DecompressBrob unwraps a brob box payload: a 4-byte inner box type
// followed by a brotli stream. Content larger than limit bytes fails with
// ErrBoxTooLarge; limit <= 0 selects MaxBoxSize.
func DecompressBrob(payload []byte, limit int) (types.BoxType, []byte, error) {
	if len(payload) < 4 {
		return "", nil, fmt.Errorf("%w: brob payload of %d bytes", ErrMalformedBox, len(payload))
	}
	if limit <= 0 {
		limit = MaxBoxSize
	}
	inner := types.BoxType(payload[:4])
	r := io.LimitReader(brotli.NewReader(bytes.NewReader(payload[4:])), int64(limit)+1)
	out, err := io.ReadAll(r)
	if err != nil {
		return inner, nil, fmt.Errorf("decompress brob %q: %w", inner, err)
	}
	if len(out) > limit {
		return inner, nil, fmt.Errorf("decompress brob %q: %w (%d bytes)", inner, ErrBoxTooLarge, limit)
	}
	return inner, out, nil
}

// ExifPayload strips the 4-byte big-endian TIFF header offset that prefixes
// Exif box content, returning the TIFF bytes. Payloads whose offset points
// outside the data are returned unchanged.
func ExifPayload(raw []byte) []byte {
	if len(raw) < 4 {
		return raw
	}
	offset := binary.BigEndian.Uint32(raw)
	start := uint64(4) + uint64(offset)
	if start > uint64(len(raw)) {
		return raw
	}
	return raw[start:]
}
