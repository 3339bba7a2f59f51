package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/justapithecus/jxlframe/types"
)

func TestLogger_SessionFields(t *testing.T) {
	var buf bytes.Buffer
	meta := &types.SessionMeta{SessionID: "sess-001", Source: "a.jxl", InputBytes: 42}
	l := newLoggerWithWriter(meta, &buf, zap.NewAtomicLevelAt(zapcore.DebugLevel))

	l.Info("basic info", map[string]any{"width": 3})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["session_id"] != "sess-001" {
		t.Errorf("session_id = %v", entry["session_id"])
	}
	if entry["source"] != "a.jxl" {
		t.Errorf("source = %v", entry["source"])
	}
	if entry["input_bytes"] != float64(42) {
		t.Errorf("input_bytes = %v", entry["input_bytes"])
	}
	if entry["message"] != "basic info" || entry["level"] != "info" {
		t.Errorf("unexpected entry: %v", entry)
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["width"] != float64(3) {
		t.Errorf("fields = %v", entry["fields"])
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(nil).WithOutput(&buf)
	l.SetLevel(zapcore.WarnLevel)

	l.Debug("hidden", nil)
	l.Info("hidden", nil)
	l.Warn("shown", nil)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("entries below warn were written: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn entry missing: %q", out)
	}
}

func TestLogger_ForSession(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(nil).WithOutput(&buf)
	base.ForSession(&types.SessionMeta{SessionID: "s-2"}).Error("boom", nil)

	if !strings.Contains(buf.String(), `"session_id":"s-2"`) {
		t.Errorf("session field missing: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Error("discarded", map[string]any{"k": "v"})
	l.Sugar().Infof("discarded %d", 1)
}
