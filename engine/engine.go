// Package engine defines the contract between the decode orchestrator and an
// event-emitting JPEG XL codec core.
//
// An Engine is a pull-based state machine: the caller feeds input, then calls
// ProcessInput repeatedly and reacts to the returned Status by querying
// metadata, attaching buffers, or skipping frames. The method set mirrors the
// libjxl JxlDecoder API. Backends register themselves by name with Register.
package engine

import (
	"errors"

	"github.com/justapithecus/jxlframe/types"
)

var (
	// ErrInvalidCall is returned when a method is called in a state that does
	// not allow it (e.g. FrameHeader before a frame event).
	ErrInvalidCall = errors.New("engine: call not valid in current state")
	// ErrBufferTooSmall is returned when an attached buffer cannot hold the output.
	ErrBufferTooSmall = errors.New("engine: buffer too small")
	// ErrNotSupported is returned for features the backend was built without.
	ErrNotSupported = errors.New("engine: not supported by backend")
	// ErrUnknownBackend is returned by Open for unregistered backend names.
	ErrUnknownBackend = errors.New("engine: unknown backend")
)

// Engine is an event-emitting codec core.
//
// Engines are not safe for concurrent use.
type Engine interface {
	// SubscribeEvents selects which informative events ProcessInput reports.
	SubscribeEvents(events Event) error
	// SetDecompressBoxes asks the engine to transparently decompress brob boxes.
	SetDecompressBoxes(enabled bool) error
	// SetInput hands the engine the next input segment. The engine borrows
	// data until Rewind, Close or the next SetInput.
	SetInput(data []byte) error
	// CloseInput marks the last SetInput segment as the end of the stream.
	CloseInput()
	// ProcessInput advances the state machine to the next event.
	ProcessInput() Status

	BasicInfo() (types.BasicInfo, error)
	ICCProfileSize() (int, error)
	// ICCProfile fills dst, which must be exactly ICCProfileSize bytes.
	ICCProfile(dst []byte) error
	FrameHeader() (types.FrameHeader, error)

	// ImageOutBufferSize reports the bytes needed for the current frame in pf.
	ImageOutBufferSize(pf types.PixelFormat) (int, error)
	SetImageOutBuffer(pf types.PixelFormat, buf []byte) error
	SkipCurrentFrame() error

	// BoxType returns the current box type. With decompressed set, brob boxes
	// report their inner type when the engine can decompress them.
	BoxType(decompressed bool) (types.BoxType, error)
	SetBoxBuffer(buf []byte) error
	// ReleaseBoxBuffer detaches the box buffer and returns the number of
	// bytes at its tail that were not written.
	ReleaseBoxBuffer() int

	// Rewind restarts event emission from the beginning of the stream.
	// Subscriptions are kept; input must be supplied again.
	Rewind()
	Close() error
}

// Versioner is implemented by engines that can report their library version.
type Versioner interface {
	Version() string
}
