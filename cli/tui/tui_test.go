package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/justapithecus/jxlframe/cli/reader"
)

func TestIsTUISupported(t *testing.T) {
	tests := []struct {
		viewType string
		want     bool
	}{
		{"info", true},
		{"frames", true},
		{"meta", false},
		{"export", false},
		{"session", false},
		{"version", false},
		{"unknown", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.viewType, func(t *testing.T) {
			if got := IsTUISupported(tt.viewType); got != tt.want {
				t.Errorf("IsTUISupported(%q) = %v, want %v", tt.viewType, got, tt.want)
			}
		})
	}
}

func TestRun_UnsupportedViewType(t *testing.T) {
	if err := Run("meta", nil); err == nil {
		t.Error("Expected error for unsupported view type")
	}
}

func TestRenderStatic_Info(t *testing.T) {
	out, err := RenderStatic(ViewInfo, &reader.InfoView{
		Source: "cat.jxl", Width: 640, Height: 480, Mode: "RGBA", FrameCount: 12,
	})
	if err != nil {
		t.Fatalf("RenderStatic failed: %v", err)
	}
	for _, want := range []string{"cat.jxl", "640x480", "RGBA", "12"} {
		if !strings.Contains(out, want) {
			t.Errorf("info view missing %q:\n%s", want, out)
		}
	}
}

func TestRenderStatic_WrongPayload(t *testing.T) {
	out, err := RenderStatic(ViewFrames, "not a view")
	if err != nil {
		t.Fatalf("RenderStatic failed: %v", err)
	}
	if !strings.Contains(out, "Invalid data type") {
		t.Errorf("expected invalid data message, got %q", out)
	}
}

func framesView(n int) *reader.FramesView {
	v := &reader.FramesView{Info: reader.InfoView{Source: "anim.jxl", Width: 2, Height: 2, Mode: "RGB"}}
	for i := 0; i < n; i++ {
		v.Frames = append(v.Frames, reader.FrameRow{Index: i, Name: "f", Duration: 10, Hash: "abc"})
	}
	return v
}

func TestFramesModel_Navigation(t *testing.T) {
	var m tea.Model = NewFramesModel(framesView(3))

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if got := m.(FramesModel).Cursor(); got != 2 {
		t.Errorf("cursor = %d, want 2", got)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if got := m.(FramesModel).Cursor(); got != 1 {
		t.Errorf("cursor = %d, want 1", got)
	}

	view := m.View()
	if !strings.Contains(view, "anim.jxl") || !strings.Contains(view, "3 frames") {
		t.Errorf("view missing title:\n%s", view)
	}
}

func TestFramesModel_Quit(t *testing.T) {
	var m tea.Model = NewFramesModel(framesView(1))
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if m.View() != "" {
		t.Error("view not empty after quit")
	}
}

func TestInfoModel_Quit(t *testing.T) {
	var m tea.Model = NewInfoModel(&reader.InfoView{})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if m.View() != "" {
		t.Error("view not empty after quit")
	}
}
