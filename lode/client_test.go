package lode

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/jxlframe/metrics"
	"github.com/justapithecus/jxlframe/types"
)

func testConfig() Config {
	return Config{
		Dataset:   DefaultDataset,
		Source:    "test-source",
		Image:     "cat.jxl",
		Day:       "2026-10-18",
		SessionID: "sess-123",
		Policy:    "strict",
	}
}

func sharedFactory(store lode.Store) lode.StoreFactory {
	return func() (lode.Store, error) { return store, nil }
}

// FailingStore is a lode.Store that returns configurable errors.
type FailingStore struct {
	PutErr error

	PutCalls int
	PutPaths []string
}

func (s *FailingStore) Put(_ context.Context, path string, _ io.Reader) error {
	s.PutCalls++
	s.PutPaths = append(s.PutPaths, path)
	return s.PutErr
}

func (s *FailingStore) Get(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (s *FailingStore) Exists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (s *FailingStore) List(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

func (s *FailingStore) Delete(_ context.Context, _ string) error {
	return nil
}

func (s *FailingStore) ReadRange(_ context.Context, _ string, _, _ int64) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (s *FailingStore) ReaderAt(_ context.Context, _ string) (io.ReaderAt, error) {
	return nil, errors.New("not implemented")
}

var _ lode.Store = (*FailingStore)(nil)

func exportFrames(n int) []*types.ExportFrame {
	frames := make([]*types.ExportFrame, n)
	for i := range frames {
		frames[i] = &types.ExportFrame{
			SessionID:  "sess-123",
			Index:      i,
			Duration:   100,
			DurationMs: 100,
			IsLast:     i == n-1,
			Pixels:     []byte{byte(i), 1, 2, 3},
		}
	}
	return frames
}

func TestConfig_Validate(t *testing.T) {
	if err := testConfig().Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	cfg := testConfig()
	cfg.Image = ""
	cfg.SessionID = ""
	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if got := err.Error(); got != "invalid lode config: missing image, session_id" {
		t.Errorf("error = %q", got)
	}
}

func TestLodeClient_WriteAndQuerySession(t *testing.T) {
	store := lode.NewMemory()
	cfg := testConfig()

	client, err := NewLodeClientWithFactory(cfg, sharedFactory(store))
	if err != nil {
		t.Fatalf("NewLodeClientWithFactory failed: %v", err)
	}

	ctx := t.Context()
	if err := client.WriteSession(ctx, SessionRecord{
		SessionID:  cfg.SessionID,
		Width:      2,
		Height:     1,
		Mode:       "RGBA",
		FrameCount: 3,
	}); err != nil {
		t.Fatalf("WriteSession failed: %v", err)
	}

	frames := exportFrames(3)
	// Two batches, written out of index order across batches.
	if err := client.WriteFrames(ctx, frames[2:]); err != nil {
		t.Fatalf("WriteFrames failed: %v", err)
	}
	if err := client.WriteFrames(ctx, frames[:2]); err != nil {
		t.Fatalf("WriteFrames failed: %v", err)
	}

	ds, err := NewReadDataset(cfg.Dataset, sharedFactory(store))
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}
	session, got, err := QuerySession(ctx, ds, cfg.SessionID)
	if err != nil {
		t.Fatalf("QuerySession failed: %v", err)
	}

	if session["mode"] != "RGBA" || session["record_kind"] != RecordKindSession {
		t.Errorf("session record = %v", session)
	}
	if len(got) != 3 {
		t.Fatalf("frame records = %d, want 3", len(got))
	}
	for i, rec := range got {
		if toInt64(rec["index"]) != int64(i) {
			t.Errorf("frame %d index = %v", i, rec["index"])
		}
		if rec["xxhash"] != PixelHash(frames[i].Pixels) {
			t.Errorf("frame %d xxhash = %v", i, rec["xxhash"])
		}
		if rec["image"] != cfg.Image || rec["policy"] != "strict" {
			t.Errorf("frame %d partition fields = %v", i, rec)
		}
		if _, ok := rec["pixels_file"]; ok {
			t.Errorf("frame %d names a pixels file without WritePixels", i)
		}
	}
	if got[2]["is_last"] != true {
		t.Errorf("last frame is_last = %v", got[2]["is_last"])
	}
}

func TestQuerySession_NotFound(t *testing.T) {
	store := lode.NewMemory()
	client, err := NewLodeClientWithFactory(testConfig(), sharedFactory(store))
	if err != nil {
		t.Fatal(err)
	}
	if err := client.WriteFrames(t.Context(), exportFrames(1)); err != nil {
		t.Fatal(err)
	}

	ds, err := NewReadDataset(DefaultDataset, sharedFactory(store))
	if err != nil {
		t.Fatal(err)
	}
	// sess-12 is a prefix of sess-123 and must not match.
	if _, _, err := QuerySession(t.Context(), ds, "sess-12"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLodeClient_WritePixels(t *testing.T) {
	store := &FailingStore{}
	cfg := testConfig()
	cfg.WritePixels = true

	client, err := NewLodeClientWithFactory(cfg, lode.NewMemoryFactory())
	if err != nil {
		t.Fatal(err)
	}
	client.storeFactory = sharedFactory(store)

	if err := client.WriteFrames(t.Context(), exportFrames(2)); err != nil {
		t.Fatalf("WriteFrames failed: %v", err)
	}

	want := []string{
		"datasets/jxlframe/partitions/source=test-source/image=cat.jxl/day=2026-10-18/session_id=sess-123/files/frame-0001.raw",
		"datasets/jxlframe/partitions/source=test-source/image=cat.jxl/day=2026-10-18/session_id=sess-123/files/frame-0002.raw",
	}
	if len(store.PutPaths) != len(want) {
		t.Fatalf("put paths = %v", store.PutPaths)
	}
	for i := range want {
		if store.PutPaths[i] != want[i] {
			t.Errorf("put path %d = %q, want %q", i, store.PutPaths[i], want[i])
		}
	}
}

func TestLodeClient_PutFileFailure(t *testing.T) {
	cfg := testConfig()
	cfg.WritePixels = true
	client, err := NewLodeClientWithFactory(cfg, lode.NewMemoryFactory())
	if err != nil {
		t.Fatal(err)
	}
	store := &FailingStore{PutErr: errors.New("write /data: no space left on device")}
	client.storeFactory = sharedFactory(store)

	err = client.WriteFrames(t.Context(), exportFrames(2))
	if !errors.Is(err, ErrDiskFull) {
		t.Fatalf("expected ErrDiskFull, got %v", err)
	}
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "put" {
		t.Errorf("expected put StorageError, got %#v", err)
	}
	if store.PutCalls != 1 {
		t.Errorf("PutCalls = %d, want 1 (stop at first failure)", store.PutCalls)
	}
}

func TestLodeClient_StoreFactoryFailure(t *testing.T) {
	client, err := NewLodeClientWithFactory(testConfig(), lode.NewMemoryFactory())
	if err != nil {
		t.Fatal(err)
	}
	client.storeFactory = func() (lode.Store, error) {
		return nil, errors.New("NoCredentialProviders: no valid providers")
	}

	err = client.PutFile(t.Context(), FileICC, "application/vnd.iccprofile", []byte{1})
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}

func TestLodeClient_PutFileRejectsPaths(t *testing.T) {
	client, err := NewLodeClientWithFactory(testConfig(), lode.NewMemoryFactory())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"", "../x", "a/b", `a\b`} {
		if err := client.PutFile(t.Context(), name, "", nil); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("PutFile(%q) = %v, want ErrInvalidConfig", name, err)
		}
	}
}

func TestLodeClient_WriteMetrics(t *testing.T) {
	store := lode.NewMemory()
	client, err := NewLodeClientWithFactory(testConfig(), sharedFactory(store))
	if err != nil {
		t.Fatal(err)
	}

	snap := metrics.Snapshot{FramesDecoded: 4, Backend: "script"}
	if err := client.WriteMetrics(t.Context(), snap, time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("WriteMetrics failed: %v", err)
	}

	ds, err := NewReadDataset(DefaultDataset, sharedFactory(store))
	if err != nil {
		t.Fatal(err)
	}
	latest, err := ds.Latest(t.Context())
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	data, err := ds.Read(t.Context(), latest.ID)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(data) != 1 {
		t.Fatalf("Read returned %d items, want 1", len(data))
	}
	record, ok := data[0].(map[string]any)
	if !ok {
		t.Fatalf("record type = %T, want map[string]any", data[0])
	}
	if record["record_kind"] != RecordKindMetrics || toInt64(record["frames_decoded"]) != 4 {
		t.Errorf("metrics record = %v", record)
	}
	if record["ts"] != "2026-10-18T09:00:00Z" {
		t.Errorf("ts = %v", record["ts"])
	}
}

func TestNewLodeClient_InvalidConfig(t *testing.T) {
	if _, err := NewLodeClient(Config{}, t.TempDir()); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewLodeClient_FS(t *testing.T) {
	client, err := NewLodeClient(testConfig(), t.TempDir())
	if err != nil {
		t.Fatalf("NewLodeClient failed: %v", err)
	}
	if err := client.WriteFrames(t.Context(), exportFrames(1)); err != nil {
		t.Fatalf("WriteFrames failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}
