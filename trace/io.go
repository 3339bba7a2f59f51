package trace

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// ErrVersion is returned for traces written by an unknown format version.
var ErrVersion = errors.New("trace: unsupported format version")

// Writer writes a trace file.
type Writer struct {
	enc  *FrameEncoder
	zw   *zstd.Encoder
	seq  uint64
	done bool
}

// NewWriter writes the header and returns a writer for records.
// With compress set, the stream is zstd-compressed.
func NewWriter(w io.Writer, h Header, compress bool) (*Writer, error) {
	tw := &Writer{}
	if compress {
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("create zstd writer: %w", err)
		}
		tw.zw = zw
		w = zw
	}
	tw.enc = NewFrameEncoder(w)
	if h.Version == 0 {
		h.Version = FormatVersion
	}
	if err := tw.writeValue(&h); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return tw, nil
}

// Write appends rec, assigning its sequence number.
func (w *Writer) Write(rec *Record) error {
	if w.done {
		return errors.New("trace: write after close")
	}
	w.seq++
	rec.Seq = w.seq
	return w.writeValue(rec)
}

func (w *Writer) writeValue(v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return &FrameError{Kind: FrameErrorDecode, Msg: "failed to encode frame", Err: err}
	}
	return w.enc.WriteFrame(payload)
}

// Close flushes the compressor, if any. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	if w.zw != nil {
		return w.zw.Close()
	}
	return nil
}

// Read decodes a whole trace.
func Read(r io.Reader) (*Trace, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(len(zstdMagic)); err == nil && bytes.Equal(magic, zstdMagic) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open zstd stream: %w", err)
		}
		defer zr.Close()
		return readFrames(zr)
	}
	return readFrames(br)
}

func readFrames(r io.Reader) (*Trace, error) {
	dec := NewFrameDecoder(r)

	payload, err := dec.ReadFrame()
	if err != nil {
		if err == io.EOF {
			return nil, &FrameError{Kind: FrameErrorPartial, Msg: "missing trace header"}
		}
		return nil, err
	}
	var tr Trace
	if err := msgpack.Unmarshal(payload, &tr.Header); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode header", Err: err}
	}
	if tr.Header.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, tr.Header.Version)
	}

	for {
		payload, err := dec.ReadFrame()
		if err == io.EOF {
			return &tr, nil
		}
		if err != nil {
			return nil, err
		}
		var rec Record
		if err := msgpack.Unmarshal(payload, &rec); err != nil {
			return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode record", Err: err}
		}
		tr.Records = append(tr.Records, rec)
	}
}
