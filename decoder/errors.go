package decoder

import (
	"errors"
	"fmt"

	"github.com/justapithecus/jxlframe/engine"
)

// kindError is a sentinel that can name a broader sentinel as its parent.
type kindError struct {
	msg    string
	parent error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.parent }

// Error kinds. Match with errors.Is.
var (
	// ErrMalformedInput indicates the engine rejected the bitstream or
	// emitted an event the current phase cannot accept.
	ErrMalformedInput error = &kindError{msg: "malformed input"}
	// ErrIOExhausted indicates the input ended before the stream did.
	// It also matches ErrMalformedInput.
	ErrIOExhausted error = &kindError{msg: "input exhausted", parent: ErrMalformedInput}
	// ErrUnsupportedFormat indicates the pixel layout has no named mode.
	ErrUnsupportedFormat error = &kindError{msg: "unsupported format"}
	// ErrFrameSkipFailed indicates the engine refused to skip a frame while counting.
	ErrFrameSkipFailed error = &kindError{msg: "frame skip failed"}
	// ErrClosed is returned by every call on a closed decoder except Close.
	ErrClosed error = &kindError{msg: "decoder closed"}
	// ErrErrored is returned by every call after a decode error except Close.
	ErrErrored error = &kindError{msg: "decoder in error state"}
)

// statusNone marks errors that did not come from an engine event.
const statusNone engine.Status = -1

// DecodeError describes a failed decode step.
type DecodeError struct {
	// Kind is one of the Err* sentinels.
	Kind error
	// Op is the step that failed, e.g. "read_headers" or "render_frame".
	Op string
	// Status is the engine status that triggered the failure.
	Status engine.Status
	// Err is the underlying cause, if any.
	Err error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Status != statusNone {
		msg += fmt.Sprintf(" (engine status %s)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is matches the error kind so errors.Is(err, ErrMalformedInput) works.
func (e *DecodeError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

func newDecodeError(kind error, op string, status engine.Status, err error) *DecodeError {
	return &DecodeError{Kind: kind, Op: op, Status: status, Err: err}
}

// IsMalformed reports whether err is a malformed or truncated input error.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedInput)
}

// KindName returns a stable snake_case label for err, for metrics and APIs.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrIOExhausted):
		return "io_exhausted"
	case errors.Is(err, ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrFrameSkipFailed):
		return "frame_skip_failed"
	case errors.Is(err, ErrClosed):
		return "closed"
	case errors.Is(err, ErrErrored):
		return "errored"
	case errors.Is(err, engine.ErrUnknownBackend):
		return "unknown_backend"
	default:
		return "other"
	}
}
