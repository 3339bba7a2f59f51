package trace

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

// encodeFrame encodes a payload with its length prefix.
func encodeFrame(payload []byte) []byte {
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf
}

func TestFrameDecoder_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewFrameEncoder(&buf)
	for _, p := range [][]byte{[]byte("one"), {}, []byte("three")} {
		if err := enc.WriteFrame(p); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}

	dec := NewFrameDecoder(&buf)
	for _, want := range []string{"one", "", "three"} {
		got, err := dec.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		if string(got) != want {
			t.Errorf("payload = %q, want %q", got, want)
		}
	}
	if _, err := dec.ReadFrame(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestFrameDecoder_PartialLengthPrefix(t *testing.T) {
	dec := NewFrameDecoder(bytes.NewReader([]byte{0, 0}))
	_, err := dec.ReadFrame()

	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected FrameError, got %T: %v", err, err)
	}
	if frameErr.Kind != FrameErrorPartial {
		t.Errorf("Kind = %v, want FrameErrorPartial", frameErr.Kind)
	}
	if !IsFatalFrameError(err) {
		t.Error("partial frame should be fatal")
	}
}

func TestFrameDecoder_PartialPayload(t *testing.T) {
	frame := encodeFrame([]byte("payload"))
	dec := NewFrameDecoder(bytes.NewReader(frame[:len(frame)-2]))
	_, err := dec.ReadFrame()
	if !IsFatalFrameError(err) {
		t.Fatalf("expected fatal partial error, got %v", err)
	}
}

func TestFrameDecoder_TooLarge(t *testing.T) {
	var prefix [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], MaxPayloadSize+1)
	_, err := NewFrameDecoder(bytes.NewReader(prefix[:])).ReadFrame()

	var frameErr *FrameError
	if !errors.As(err, &frameErr) || frameErr.Kind != FrameErrorTooLarge {
		t.Fatalf("expected FrameErrorTooLarge, got %v", err)
	}
	if !frameErr.IsFatal() {
		t.Error("oversized frame should be fatal")
	}
}

func TestFrameError_DecodeNotFatal(t *testing.T) {
	err := &FrameError{Kind: FrameErrorDecode, Msg: "bad", Err: io.ErrUnexpectedEOF}
	if err.IsFatal() {
		t.Error("decode error should not be fatal")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("FrameError does not unwrap")
	}
	if err.Error() != "bad: unexpected EOF" {
		t.Errorf("Error() = %q", err.Error())
	}
}
