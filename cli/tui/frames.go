package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/jxlframe/cli/reader"
)

// chromeHeight is the number of lines around the frame table.
const chromeHeight = 6

// FramesModel is a Bubble Tea model for the frames view: a scrollable
// table of decoded frames.
type FramesModel struct {
	data     *reader.FramesView
	table    table.Model
	quitting bool
}

// NewFramesModel creates a new frames model. data must be a *reader.FramesView.
func NewFramesModel(data any) FramesModel {
	v, _ := data.(*reader.FramesView)

	columns := []table.Column{
		{Title: "#", Width: 5},
		{Title: "Name", Width: 14},
		{Title: "Duration", Width: 10},
		{Title: "ms", Width: 8},
		{Title: "Timecode", Width: 10},
		{Title: "Bytes", Width: 10},
		{Title: "Hash", Width: 17},
	}

	var rows []table.Row
	if v != nil {
		rows = make([]table.Row, 0, len(v.Frames))
		for _, f := range v.Frames {
			rows = append(rows, table.Row{
				strconv.Itoa(f.Index),
				f.Name,
				strconv.FormatUint(uint64(f.Duration), 10),
				strconv.FormatFloat(f.DurationMs, 'f', -1, 64),
				strconv.FormatUint(uint64(f.Timecode), 10),
				strconv.Itoa(f.Bytes),
				f.Hash,
			})
		}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows)+1, 20)),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(mutedColor).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(primaryColor)
	t.SetStyles(styles)

	return FramesModel{data: v, table: t}
}

// Init implements tea.Model.
func (m FramesModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m FramesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-chromeHeight, 3))
		return m, nil
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// Cursor returns the selected row index.
func (m FramesModel) Cursor() int {
	return m.table.Cursor()
}

// View implements tea.Model.
func (m FramesModel) View() string {
	if m.quitting {
		return ""
	}
	if m.data == nil {
		return "Invalid data type for frames"
	}

	title := fmt.Sprintf("%s  %dx%d %s  %d frames",
		m.data.Info.Source, m.data.Info.Width, m.data.Info.Height, m.data.Info.Mode, len(m.data.Frames))
	if m.data.Truncated {
		title += " (truncated)"
	}

	help := fmt.Sprintf("%s %s  %s %s  %s %s",
		keys.Up.Help().Key, keys.Up.Help().Desc,
		keys.Down.Help().Key, keys.Down.Help().Desc,
		keys.Quit.Help().Key, keys.Quit.Help().Desc)

	return TitleStyle.Render(title) + "\n" + m.table.View() + "\n" + HelpStyle.Render(help)
}
