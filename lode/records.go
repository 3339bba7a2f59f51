package lode

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/justapithecus/jxlframe/metrics"
	"github.com/justapithecus/jxlframe/types"
)

// RecordKind discriminator values. record_kind is also the last Hive
// partition key.
const (
	RecordKindSession = "session"
	RecordKindFrame   = "frame"
	RecordKindMetrics = "metrics"
)

// Sidecar file names.
const (
	FileICC  = "icc.icc"
	FileEXIF = "exif.tiff"
	FileXMP  = "xmp.xml"
)

// FrameFileName returns the sidecar name for the raw pixels of frame index.
// Names are 1-based: frame 0 is frame-0001.raw.
func FrameFileName(index int) string {
	return fmt.Sprintf("frame-%04d.raw", index+1)
}

// PixelHash returns the hex xxhash64 digest recorded for frame pixels.
func PixelHash(pixels []byte) string {
	return strconv.FormatUint(xxhash.Sum64(pixels), 16)
}

// SessionRecord describes one exported image.
type SessionRecord struct {
	SessionID      string `json:"session_id"`
	Width          uint32 `json:"width"`
	Height         uint32 `json:"height"`
	Mode           string `json:"mode"`
	HasAnimation   bool   `json:"has_animation"`
	FrameCount     int64  `json:"frame_count"`
	NumLoops       uint32 `json:"num_loops"`
	TPSNumerator   uint32 `json:"tps_numerator"`
	TPSDenominator uint32 `json:"tps_denominator"`
	Orientation    uint32 `json:"orientation"`
	InputBytes     int64  `json:"input_bytes"`
	Backend        string `json:"backend"`
	HasICC         bool   `json:"has_icc"`
	HasEXIF        bool   `json:"has_exif"`
	HasXMP         bool   `json:"has_xmp"`
	// StartedAt is RFC3339Nano in UTC.
	StartedAt string `json:"started_at"`
}

// toSessionRecordMap converts a SessionRecord to a map for Lode storage.
// Lode HiveLayout requires records as map[string]any.
func toSessionRecordMap(r SessionRecord, cfg Config) map[string]any {
	return map[string]any{
		"record_kind":     RecordKindSession,
		"session_id":      cfg.SessionID,
		"width":           r.Width,
		"height":          r.Height,
		"mode":            r.Mode,
		"has_animation":   r.HasAnimation,
		"frame_count":     r.FrameCount,
		"num_loops":       r.NumLoops,
		"tps_numerator":   r.TPSNumerator,
		"tps_denominator": r.TPSDenominator,
		"orientation":     r.Orientation,
		"input_bytes":     r.InputBytes,
		"backend":         r.Backend,
		"has_icc":         r.HasICC,
		"has_exif":        r.HasEXIF,
		"has_xmp":         r.HasXMP,
		"started_at":      r.StartedAt,
		"policy":          cfg.Policy,
		"source":          cfg.Source,
		"image":           cfg.Image,
		"day":             cfg.Day,
	}
}

// toFrameRecordMap converts an exported frame to a map for Lode storage.
// pixelsFile is empty when raw pixels are not written.
func toFrameRecordMap(f *types.ExportFrame, pixelsFile string, cfg Config) map[string]any {
	m := map[string]any{
		"record_kind": RecordKindFrame,
		"session_id":  cfg.SessionID,
		"index":       f.Index,
		"duration":    f.Duration,
		"duration_ms": f.DurationMs,
		"timecode":    f.Timecode,
		"is_last":     f.IsLast,
		"name":        f.Name,
		"bytes":       f.Size(),
		"xxhash":      PixelHash(f.Pixels),
		"policy":      cfg.Policy,
		"source":      cfg.Source,
		"image":       cfg.Image,
		"day":         cfg.Day,
	}
	if pixelsFile != "" {
		m["pixels_file"] = pixelsFile
	}
	return m
}

// toMetricsRecordMap converts a metrics snapshot to a map for Lode storage.
func toMetricsRecordMap(snap metrics.Snapshot, completedAt time.Time, cfg Config) map[string]any {
	return map[string]any{
		"record_kind":          RecordKindMetrics,
		"session_id":           cfg.SessionID,
		"ts":                   completedAt.UTC().Format(time.RFC3339Nano),
		"sessions_opened":      snap.SessionsOpened,
		"sessions_failed":      snap.SessionsFailed,
		"frames_decoded":       snap.FramesDecoded,
		"frames_skipped":       snap.FramesSkipped,
		"enumeration_passes":   snap.EnumerationPasses,
		"rewinds":              snap.Rewinds,
		"buffer_reallocations": snap.BufferReallocations,
		"output_bytes":         snap.OutputBytes,
		"boxes_extracted":      snap.BoxesExtracted,
		"decode_errors":        snap.DecodeErrorsByKind,
		"frames_received":      snap.FramesReceived,
		"frames_persisted":     snap.FramesPersisted,
		"policy_flushes":       snap.PolicyFlushes,
		"lode_write_success":   snap.LodeWriteSuccess,
		"lode_write_failure":   snap.LodeWriteFailure,
		"backend":              snap.Backend,
		"policy":               snap.Policy,
		"storage_backend":      snap.StorageBackend,
		"source":               cfg.Source,
		"image":                cfg.Image,
		"day":                  cfg.Day,
	}
}
