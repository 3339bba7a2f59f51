package engine

import "fmt"

// Status is the result of a single ProcessInput call.
type Status int

// Statuses, in libjxl's JxlDecoderStatus order of significance.
const (
	// StatusSuccess means the whole stream has been processed.
	StatusSuccess Status = iota
	// StatusError means the engine hit an unrecoverable bitstream error.
	StatusError
	// StatusNeedMoreInput means the engine consumed all input it was given.
	StatusNeedMoreInput
	// StatusNeedImageOutBuffer means a frame is ready to be rendered into a buffer.
	StatusNeedImageOutBuffer
	// StatusBasicInfo means basic info can be read.
	StatusBasicInfo
	// StatusColorEncoding means the color profile can be read.
	StatusColorEncoding
	// StatusFrame means a frame header can be read.
	StatusFrame
	// StatusFullImage means the attached output buffer holds a complete frame.
	StatusFullImage
	// StatusBox means a container box starts; its type can be read.
	StatusBox
	// StatusBoxNeedMoreOutput means the attached box buffer is full.
	StatusBoxNeedMoreOutput
)

var statusNames = [...]string{
	StatusSuccess:            "success",
	StatusError:              "error",
	StatusNeedMoreInput:      "need_more_input",
	StatusNeedImageOutBuffer: "need_image_out_buffer",
	StatusBasicInfo:          "basic_info",
	StatusColorEncoding:      "color_encoding",
	StatusFrame:              "frame",
	StatusFullImage:          "full_image",
	StatusBox:                "box",
	StatusBoxNeedMoreOutput:  "box_need_more_output",
}

// String returns the snake_case status name.
func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// ParseStatus is the inverse of String.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown engine status %q", name)
}

// Event is a bit set of subscribable events.
type Event uint32

// Subscribable events.
const (
	EventBasicInfo Event = 1 << iota
	EventColorEncoding
	EventFrame
	EventFullImage
	EventBox
)

// DecodeEvents is the subscription set used for frame decoding.
const DecodeEvents = EventBasicInfo | EventColorEncoding | EventFrame | EventFullImage | EventBox

// Has reports whether every bit of o is set in e.
func (e Event) Has(o Event) bool {
	return e&o == o
}
