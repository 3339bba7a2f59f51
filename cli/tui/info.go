package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/jxlframe/cli/reader"
)

// InfoModel is a Bubble Tea model for the info view.
type InfoModel struct {
	data     *reader.InfoView
	width    int
	quitting bool
}

// NewInfoModel creates a new info model. data must be a *reader.InfoView.
func NewInfoModel(data any) InfoModel {
	v, _ := data.(*reader.InfoView)
	return InfoModel{data: v}
}

// Init implements tea.Model.
func (m InfoModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InfoModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m InfoModel) View() string {
	if m.quitting {
		return ""
	}
	if m.data == nil {
		return "Invalid data type for info"
	}
	d := m.data

	var b strings.Builder
	title := "Image"
	if d.Source != "" {
		title = d.Source
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Size", fmt.Sprintf("%dx%d", d.Width, d.Height), highlightColor),
		statBox("Mode", d.Mode, primaryColor),
		statBox("Frames", fmt.Sprintf("%d", d.FrameCount), warningColor),
	))
	b.WriteString("\n\n")

	rows := [][2]string{
		{"Container", ValueStyle.Render(d.Container)},
		{"Pixel format", ValueStyle.Render(d.PixelFormat)},
		{"Animated", BoolStyle(d.Animated)},
		{"Ticks/second", ValueStyle.Render(d.TicksPerSecond)},
		{"Loops", ValueStyle.Render(fmt.Sprintf("%d", d.NumLoops))},
		{"Orientation", ValueStyle.Render(fmt.Sprintf("%d", d.Orientation))},
		{"ICC profile", BoolStyle(d.HasICC)},
		{"Input bytes", ValueStyle.Render(fmt.Sprintf("%d", d.InputBytes))},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(row[0]+":"), row[1])
	}

	return BoxStyle.Render(b.String()) + "\n" + HelpStyle.Render("Press q to quit")
}
