package lode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/jxlframe/metrics"
	"github.com/justapithecus/jxlframe/types"
)

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{"source", "image", "day", "session_id", "record_kind"}

// ErrInvalidConfig is returned when a partition key is missing.
var ErrInvalidConfig = errors.New("invalid lode config")

// Validate checks that every partition key is set.
func (c Config) Validate() error {
	missing := make([]string, 0, 5)
	if c.Dataset == "" {
		missing = append(missing, "dataset")
	}
	if c.Source == "" {
		missing = append(missing, "source")
	}
	if c.Image == "" {
		missing = append(missing, "image")
	}
	if c.Day == "" {
		missing = append(missing, "day")
	}
	if c.SessionID == "" {
		missing = append(missing, "session_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

// LodeClient is a Lode-backed implementation of Client.
type LodeClient struct {
	dataset lode.Dataset
	config  Config

	storeFactory lode.StoreFactory
	storeOnce    sync.Once
	store        lode.Store
	storeErr     error

	mu sync.Mutex // serializes dataset writes
}

// NewLodeClient creates a new Lode client with filesystem storage.
// The root parameter is the base directory for Hive-partitioned storage.
func NewLodeClient(cfg Config, root string) (*LodeClient, error) {
	return NewLodeClientWithFactory(cfg, lode.NewFSFactory(root))
}

// NewLodeClientWithFactory creates a new Lode client with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewLodeClientWithFactory(cfg Config, factory lode.StoreFactory) (*LodeClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ds, err := newDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return newClient(ds, cfg, factory), nil
}

func newDataset(id string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(id),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

func newClient(ds lode.Dataset, cfg Config, factory lode.StoreFactory) *LodeClient {
	return &LodeClient{
		dataset:      ds,
		config:       cfg,
		storeFactory: factory,
	}
}

// WriteFrames writes one frame record per frame. With WritePixels set, raw
// pixels are put as sidecar files first so that a record never names a
// missing file.
func (c *LodeClient) WriteFrames(ctx context.Context, frames []*types.ExportFrame) error {
	if len(frames) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	records := make([]any, 0, len(frames))
	for _, f := range frames {
		var pixelsFile string
		if c.config.WritePixels {
			pixelsFile = FrameFileName(f.Index)
			if err := c.PutFile(ctx, pixelsFile, "application/octet-stream", f.Pixels); err != nil {
				return err
			}
		}
		records = append(records, toFrameRecordMap(f, pixelsFile, c.config))
	}

	if _, err := c.dataset.Write(ctx, records, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.PartitionPath())
	}
	return nil
}

// WriteSession writes the session record.
func (c *LodeClient) WriteSession(ctx context.Context, rec SessionRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.dataset.Write(ctx, []any{toSessionRecordMap(rec, c.config)}, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.PartitionPath())
	}
	return nil
}

// WriteMetrics writes a metrics snapshot record.
func (c *LodeClient) WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.dataset.Write(ctx, []any{toMetricsRecordMap(snap, completedAt, c.config)}, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.PartitionPath())
	}
	return nil
}

// Close releases client resources.
func (c *LodeClient) Close() error {
	// Dataset doesn't require explicit close in current Lode API
	return nil
}

// PartitionPath is the dataset-relative session partition.
func (c *LodeClient) PartitionPath() string {
	return fmt.Sprintf("datasets/%s/partitions/source=%s/image=%s/day=%s/session_id=%s",
		c.config.Dataset,
		c.config.Source,
		c.config.Image,
		c.config.Day,
		c.config.SessionID,
	)
}

// Verify LodeClient implements Client.
var _ Client = (*LodeClient)(nil)
