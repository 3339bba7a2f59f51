package trace_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/justapithecus/jxlframe/decoder"
	"github.com/justapithecus/jxlframe/engine"
	"github.com/justapithecus/jxlframe/engine/script"
	"github.com/justapithecus/jxlframe/trace"
	"github.com/justapithecus/jxlframe/types"
)

var input = []byte{0xff, 0x0a, 'j', 'x', 'l'}

func stream() script.Stream {
	info := types.BasicInfo{Width: 3, Height: 2, NumColorChannels: 3, BitsPerSample: 8}
	frames := []script.Frame{{Header: types.FrameHeader{Duration: 5}}, {Header: types.FrameHeader{Duration: 7}}}
	return script.Animation(info, frames).
		WithICC([]byte("icc-profile")).
		WithBox(types.BoxXMP, []byte("<xmp/>"))
}

type decoded struct {
	frames [][]byte
	durs   []uint32
	xmp    []byte
}

func decodeAll(t *testing.T, eng engine.Engine) decoded {
	t.Helper()
	dec, err := decoder.New(input, decoder.WithEngine(eng))
	if err != nil {
		t.Fatalf("decoder.New failed: %v", err)
	}
	var out decoded
	for {
		f, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		out.frames = append(out.frames, append([]byte(nil), f.Pixels...))
		out.durs = append(out.durs, f.Duration)
	}
	out.xmp, _ = dec.XMP()
	if err := dec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return out
}

func record(t *testing.T, compress bool) ([]byte, decoded) {
	t.Helper()
	var buf bytes.Buffer
	w, err := trace.NewWriter(&buf, trace.NewHeader(input, script.Name), compress)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	rec := trace.NewRecorder(script.New(stream()), w)
	got := decodeAll(t, rec)
	if rec.Err() != nil {
		t.Fatalf("recorder write failed: %v", rec.Err())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("writer Close failed: %v", err)
	}
	return buf.Bytes(), got
}

func TestTrace_RecordReplay(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "zstd"
		}
		t.Run(name, func(t *testing.T) {
			data, want := record(t, compress)

			tr, err := trace.Read(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if tr.Header.Backend != script.Name || tr.Header.InputSize != len(input) {
				t.Errorf("header = %+v", tr.Header)
			}
			if !tr.Header.Matches(input) {
				t.Error("header does not match recorded input")
			}
			if len(tr.Records) == 0 || tr.Records[0].Seq != 1 {
				t.Fatalf("unexpected records: %d", len(tr.Records))
			}
			statuses := tr.Statuses()
			if statuses[0] != engine.StatusBox {
				t.Errorf("first status = %v, want box", statuses[0])
			}

			replay, err := script.FromTrace(tr)
			if err != nil {
				t.Fatalf("FromTrace failed: %v", err)
			}
			got := decodeAll(t, replay)
			if replay.Err() != nil {
				t.Fatalf("replay diverged: %v", replay.Err())
			}
			if replay.Remaining() != 0 {
				t.Errorf("%d records not replayed", replay.Remaining())
			}

			if len(got.frames) != len(want.frames) {
				t.Fatalf("replayed %d frames, want %d", len(got.frames), len(want.frames))
			}
			for i := range want.frames {
				if !bytes.Equal(got.frames[i], want.frames[i]) || got.durs[i] != want.durs[i] {
					t.Errorf("frame %d differs", i)
				}
			}
			if !bytes.Equal(got.xmp, want.xmp) || string(got.xmp) != "<xmp/>" {
				t.Errorf("XMP = %q, want %q", got.xmp, want.xmp)
			}
		})
	}
}

func TestTrace_ReplayInputMismatch(t *testing.T) {
	data, _ := record(t, false)
	tr, err := trace.Read(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	replay, _ := script.FromTrace(tr)

	_, err = decoder.New([]byte{0xff, 0x0a, 'o', 't', 'h', 'e', 'r'}, decoder.WithEngine(replay))
	if !errors.Is(err, script.ErrInputMismatch) {
		t.Fatalf("New = %v, want ErrInputMismatch", err)
	}
}

func TestTrace_ReplayDivergence(t *testing.T) {
	data, _ := record(t, false)
	tr, _ := trace.Read(bytes.NewReader(data))
	replay, _ := script.FromTrace(tr)

	// A different subscription is the first divergent call.
	err := replay.SubscribeEvents(engine.EventFrame)
	if !errors.Is(err, script.ErrDiverged) {
		t.Fatalf("SubscribeEvents = %v, want ErrDiverged", err)
	}
	if replay.ProcessInput() != engine.StatusError {
		t.Error("diverged replay kept going")
	}
}

func TestRead_Errors(t *testing.T) {
	if _, err := trace.Read(bytes.NewReader(nil)); !trace.IsFatalFrameError(err) {
		t.Errorf("empty trace = %v, want fatal frame error", err)
	}

	var buf bytes.Buffer
	w, _ := trace.NewWriter(&buf, trace.Header{Version: 99}, false)
	_ = w.Close()
	if _, err := trace.Read(&buf); !errors.Is(err, trace.ErrVersion) {
		t.Errorf("future version = %v, want ErrVersion", err)
	}
}

func TestWriter_WriteAfterClose(t *testing.T) {
	var buf bytes.Buffer
	w, err := trace.NewWriter(&buf, trace.NewHeader(input, "x"), false)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	_ = w.Close()
	if err := w.Write(&trace.Record{Op: trace.OpRewind}); err == nil {
		t.Error("expected error writing after Close")
	}
}
