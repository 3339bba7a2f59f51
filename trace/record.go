package trace

import (
	"github.com/cespare/xxhash/v2"

	"github.com/justapithecus/jxlframe/engine"
	"github.com/justapithecus/jxlframe/types"
)

// FormatVersion is the trace format version written by this package.
const FormatVersion = 1

// Op names a recorded engine call.
type Op string

// Recorded operations, one per engine.Engine method.
const (
	OpSubscribeEvents    Op = "subscribe_events"
	OpSetDecompressBoxes Op = "set_decompress_boxes"
	OpSetInput           Op = "set_input"
	OpCloseInput         Op = "close_input"
	OpProcessInput       Op = "process_input"
	OpBasicInfo          Op = "basic_info"
	OpICCProfileSize     Op = "icc_profile_size"
	OpICCProfile         Op = "icc_profile"
	OpFrameHeader        Op = "frame_header"
	OpImageOutBufferSize Op = "image_out_buffer_size"
	OpSetImageOutBuffer  Op = "set_image_out_buffer"
	OpSkipCurrentFrame   Op = "skip_current_frame"
	OpBoxType            Op = "box_type"
	OpSetBoxBuffer       Op = "set_box_buffer"
	OpReleaseBoxBuffer   Op = "release_box_buffer"
	OpRewind             Op = "rewind"
	OpClose              Op = "close"
)

// Header is the first frame of a trace.
type Header struct {
	Version       int    `msgpack:"version"`
	InputSize     int    `msgpack:"input_size"`
	InputHash     uint64 `msgpack:"input_hash"`
	Backend       string `msgpack:"backend"`
	EngineVersion string `msgpack:"engine_version,omitempty"`
}

// NewHeader describes a session over input decoded by backend.
func NewHeader(input []byte, backend string) Header {
	return Header{
		Version:   FormatVersion,
		InputSize: len(input),
		InputHash: HashInput(input),
		Backend:   backend,
	}
}

// HashInput is the input fingerprint stored in headers.
func HashInput(input []byte) uint64 {
	return xxhash.Sum64(input)
}

// Matches reports whether input is the input the trace was recorded over.
func (h Header) Matches(input []byte) bool {
	return len(input) == h.InputSize && HashInput(input) == h.InputHash
}

// Record is one engine call and its outcome.
type Record struct {
	Seq         uint64             `msgpack:"seq"`
	Op          Op                 `msgpack:"op"`
	Status      engine.Status      `msgpack:"status,omitempty"`
	Events      engine.Event       `msgpack:"events,omitempty"`
	Flag        bool               `msgpack:"flag,omitempty"`
	BasicInfo   *types.BasicInfo   `msgpack:"basic_info,omitempty"`
	FrameHeader *types.FrameHeader `msgpack:"frame_header,omitempty"`
	PixelFormat *types.PixelFormat `msgpack:"pixel_format,omitempty"`
	BoxType     types.BoxType      `msgpack:"box_type,omitempty"`
	Data        []byte             `msgpack:"data,omitempty"`
	Size        int                `msgpack:"size,omitempty"`
	Err         string             `msgpack:"err,omitempty"`
}

// Trace is a fully read trace file.
type Trace struct {
	Header  Header
	Records []Record
}

// Statuses returns the ProcessInput results in call order.
func (t *Trace) Statuses() []engine.Status {
	var out []engine.Status
	for _, r := range t.Records {
		if r.Op == OpProcessInput {
			out = append(out, r.Status)
		}
	}
	return out
}
