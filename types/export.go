package types

// ExportFrame is one decoded frame on its way to storage.
// Pixels is owned by the frame; producers must not reuse it.
type ExportFrame struct {
	SessionID string
	Index     int
	// Duration is in animation ticks; DurationMs is the same value in milliseconds.
	Duration   uint32
	DurationMs float64
	Timecode   uint32
	IsLast     bool
	Name       string
	Pixels     []byte
}

// Size returns the number of pixel bytes carried by the frame.
func (f *ExportFrame) Size() int64 {
	return int64(len(f.Pixels))
}
