package reader

import (
	"context"
	"errors"
	"fmt"
	"io"

	lodelib "github.com/justapithecus/lode/lode"

	"github.com/justapithecus/jxlframe/container"
	"github.com/justapithecus/jxlframe/decoder"
	"github.com/justapithecus/jxlframe/lode"
	"github.com/justapithecus/jxlframe/types"
)

// Info opens data and describes the stream without decoding pixels.
func Info(source string, data []byte, opts ...decoder.Option) (*InfoView, error) {
	dec, err := decoder.New(data, opts...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = dec.Close() }()

	info, err := dec.Info()
	if err != nil {
		return nil, err
	}
	_, hasICC := dec.ICC()
	view := infoView(source, data, info, hasICC)
	return &view, nil
}

func infoView(source string, data []byte, info decoder.Info, hasICC bool) InfoView {
	tps := "-"
	if info.HasAnimation && info.TPSNumerator != 0 {
		tps = fmt.Sprintf("%d/%d", info.TPSNumerator, info.TPSDenominator)
	}
	return InfoView{
		Source:         source,
		Container:      container.Sniff(data).String(),
		Width:          info.Width,
		Height:         info.Height,
		Mode:           info.Mode.String(),
		PixelFormat:    info.PixelFormat.String(),
		Animated:       info.HasAnimation,
		FrameCount:     info.FrameCount,
		NumLoops:       info.NumLoops,
		TicksPerSecond: tps,
		Orientation:    info.Orientation,
		HasICC:         hasICC,
		InputBytes:     int64(len(data)),
	}
}

// Frames decodes up to limit frames (all when limit <= 0).
func Frames(source string, data []byte, limit int, opts ...decoder.Option) (*FramesView, error) {
	dec, err := decoder.New(data, opts...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = dec.Close() }()

	info, err := dec.Info()
	if err != nil {
		return nil, err
	}
	_, hasICC := dec.ICC()

	view := &FramesView{Info: infoView(source, data, info, hasICC), Frames: []FrameRow{}}
	for {
		if limit > 0 && len(view.Frames) == limit {
			view.Truncated = int64(len(view.Frames)) < info.FrameCount
			return view, nil
		}
		frame, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return view, nil
		}
		if err != nil {
			return nil, err
		}
		view.Frames = append(view.Frames, FrameRow{
			Index:      frame.Index,
			Name:       frame.Name,
			Duration:   frame.Duration,
			DurationMs: info.DurationMillis(frame.Duration),
			Timecode:   frame.Timecode,
			Last:       frame.IsLast,
			Bytes:      len(frame.Pixels),
			Hash:       lode.PixelHash(frame.Pixels),
		})
	}
}

// Meta decodes the whole stream and returns its metadata payloads, including
// boxes that trail the codestream.
func Meta(data []byte, opts ...decoder.Option) (*MetaView, error) {
	dec, err := decoder.New(data, opts...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = dec.Close() }()

	for {
		_, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	view := &MetaView{}
	if icc, ok := dec.ICC(); ok {
		view.ICC = append([]byte(nil), icc...)
		view.ICCBytes = len(icc)
	}
	if exif, ok := dec.EXIF(); ok {
		view.EXIF = append([]byte(nil), exif...)
		view.EXIFBytes = len(exif)
	}
	if xmp, ok := dec.XMP(); ok {
		view.XMP = append([]byte(nil), xmp...)
		view.XMPBytes = len(xmp)
	}
	return view, nil
}

// Boxes lists the top-level container boxes of data. A malformed tail is
// reported together with the boxes read before it.
func Boxes(data []byte) ([]BoxRow, error) {
	boxes, err := container.ReadBoxes(data)
	rows := make([]BoxRow, 0, len(boxes))
	for _, b := range boxes {
		row := BoxRow{Type: string(b.Type), Offset: b.Offset, Size: b.Size}
		if b.Type == types.BoxBrotli && len(b.Payload) >= 4 {
			row.Inner = string(b.Payload[:4])
		}
		rows = append(rows, row)
	}
	return rows, err
}

// Session reads an exported session back from a dataset.
func Session(ctx context.Context, ds lodelib.Dataset, sessionID string) (*SessionView, error) {
	session, frames, err := lode.QuerySession(ctx, ds, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionView{Session: session, Frames: frames}, nil
}
