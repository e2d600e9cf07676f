package cli

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/vizgo/pkg/viz"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// PickerModel - Interactive engine and format selection
// =============================================================================

const (
	columnEngine = iota
	columnFormat
)

// PickerModel is the bubbletea model for choosing a layout engine and an
// output format side by side.
type PickerModel struct {
	Engines []string
	Formats []string

	EngineCursor int
	FormatCursor int

	// Column is the focused column, columnEngine or columnFormat.
	Column int

	// Done is set when the user confirmed with enter; quitting leaves it false.
	Done bool
}

// NewPickerModel creates a picker with the cursors on the current options.
func NewPickerModel(opts viz.Options) PickerModel {
	m := PickerModel{
		Engines: viz.ValidEngines,
		Formats: viz.ValidFormats,
	}
	m.EngineCursor = max(slices.Index(m.Engines, opts.Engine), 0)
	m.FormatCursor = max(slices.Index(m.Formats, opts.Format), 0)
	return m
}

// Engine returns the engine under the cursor.
func (m PickerModel) Engine() string { return m.Engines[m.EngineCursor] }

// Format returns the format under the cursor.
func (m PickerModel) Format() string { return m.Formats[m.FormatCursor] }

func (m PickerModel) Init() tea.Cmd {
	return nil
}

func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "left", "h", "shift+tab":
		m.Column = columnEngine
	case "right", "l", "tab":
		m.Column = columnFormat
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "enter":
		m.Done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *PickerModel) move(delta int) {
	if m.Column == columnEngine {
		m.EngineCursor = clamp(m.EngineCursor+delta, len(m.Engines))
		return
	}
	m.FormatCursor = clamp(m.FormatCursor+delta, len(m.Formats))
}

func clamp(i, n int) int {
	return min(max(i, 0), n-1)
}

func (m PickerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Engine and Format"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ←/→ switch column  ⏎ render  q quit"))
	b.WriteString("\n\n")

	n := max(len(m.Engines), len(m.Formats))
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{m.cell(m.Engines, i, m.EngineCursor), m.cell(m.Formats, i, m.FormatCursor)}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Engine", "Format").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			cursor := m.EngineCursor
			if col == columnFormat {
				cursor = m.FormatCursor
			}
			switch {
			case row == cursor && col == m.Column:
				return listSelectedStyle
			case row == cursor:
				return listNormalStyle
			}
			return listDimStyle
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  vizgo render -e %s -f %s", m.Engine(), m.Format())))

	return b.String()
}

func (m PickerModel) cell(items []string, i, cursor int) string {
	if i >= len(items) {
		return ""
	}
	if i == cursor {
		return "▸ " + items[i]
	}
	return "  " + items[i]
}

// pickOptions runs the picker. ok is false when the user quit without
// choosing.
func pickOptions(opts viz.Options) (viz.Options, bool, error) {
	final, err := tea.NewProgram(NewPickerModel(opts)).Run()
	if err != nil {
		return opts, false, fmt.Errorf("picker: %w", err)
	}
	m, ok := final.(PickerModel)
	if !ok || !m.Done {
		return opts, false, nil
	}
	opts.Engine = m.Engine()
	opts.Format = m.Format()
	return opts, true, nil
}
