// Package reader provides the read-side data access layer for the jxlframe CLI.
//
// Every read-only command builds its payload here so that json, table,
// yaml and TUI output all render the same data.
package reader

// InfoView is the payload of jxlframe info.
type InfoView struct {
	Source         string `json:"source" yaml:"source"`
	Container      string `json:"container" yaml:"container"`
	Width          uint32 `json:"width" yaml:"width"`
	Height         uint32 `json:"height" yaml:"height"`
	Mode           string `json:"mode" yaml:"mode"`
	PixelFormat    string `json:"pixel_format" yaml:"pixel_format"`
	Animated       bool   `json:"animated" yaml:"animated"`
	FrameCount     int64  `json:"frame_count" yaml:"frame_count"`
	NumLoops       uint32 `json:"num_loops" yaml:"num_loops"`
	TicksPerSecond string `json:"ticks_per_second" yaml:"ticks_per_second"`
	Orientation    uint32 `json:"orientation" yaml:"orientation"`
	HasICC         bool   `json:"has_icc" yaml:"has_icc"`
	InputBytes     int64  `json:"input_bytes" yaml:"input_bytes"`
}

// FrameRow is one row of jxlframe frames.
type FrameRow struct {
	Index      int     `json:"index" yaml:"index"`
	Name       string  `json:"name" yaml:"name"`
	Duration   uint32  `json:"duration" yaml:"duration"`
	DurationMs float64 `json:"duration_ms" yaml:"duration_ms"`
	Timecode   uint32  `json:"timecode" yaml:"timecode"`
	Last       bool    `json:"last" yaml:"last"`
	Bytes      int     `json:"bytes" yaml:"bytes"`
	Hash       string  `json:"hash" yaml:"hash"`
}

// FramesView is the payload of jxlframe frames.
type FramesView struct {
	Info   InfoView   `json:"info" yaml:"info"`
	Frames []FrameRow `json:"frames" yaml:"frames"`
	// Truncated is set when --limit stopped decoding early.
	Truncated bool `json:"truncated" yaml:"truncated"`
}

// MetaView is the payload of jxlframe meta.
type MetaView struct {
	ICCBytes  int `json:"icc_bytes" yaml:"icc_bytes"`
	EXIFBytes int `json:"exif_bytes" yaml:"exif_bytes"`
	XMPBytes  int `json:"xmp_bytes" yaml:"xmp_bytes"`

	ICC  []byte `json:"-" yaml:"-"`
	EXIF []byte `json:"-" yaml:"-"`
	XMP  []byte `json:"-" yaml:"-"`
}

// BoxRow is one row of jxlframe meta --raw.
type BoxRow struct {
	Type   string `json:"type" yaml:"type"`
	Offset int64  `json:"offset" yaml:"offset"`
	Size   int64  `json:"size" yaml:"size"`
	// Inner is the wrapped type of a brob box.
	Inner string `json:"inner,omitempty" yaml:"inner,omitempty"`
}

// SessionView is the payload of jxlframe session.
type SessionView struct {
	Session map[string]any   `json:"session" yaml:"session"`
	Frames  []map[string]any `json:"frames" yaml:"frames"`
}

// VersionView is the payload of jxlframe version.
type VersionView struct {
	Version  string   `json:"version" yaml:"version"`
	Commit   string   `json:"commit" yaml:"commit"`
	Backend  string   `json:"backend" yaml:"backend"`
	Engine   string   `json:"engine" yaml:"engine"`
	Backends []string `json:"backends" yaml:"backends"`
}
