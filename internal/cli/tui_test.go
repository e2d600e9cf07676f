package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/vizgo/pkg/viz"
)

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m PickerModel, keys ...string) (PickerModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyPress(k))
		m = next.(PickerModel)
	}
	return m, cmd
}

func TestNewPickerModel(t *testing.T) {
	m := NewPickerModel(viz.Options{Format: viz.FormatPNG, Engine: viz.EngineNeato})
	if m.Engine() != viz.EngineNeato || m.Format() != viz.FormatPNG {
		t.Errorf("cursor on %s/%s, want neato/png", m.Engine(), m.Format())
	}

	m = NewPickerModel(viz.Options{Format: "gif", Engine: "spring"})
	if m.Engine() != viz.ValidEngines[0] || m.Format() != viz.ValidFormats[0] {
		t.Errorf("unknown options should start at the top, got %s/%s", m.Engine(), m.Format())
	}
}

func TestPickerNavigation(t *testing.T) {
	m := NewPickerModel(viz.Options{Format: viz.FormatSVG, Engine: viz.EngineDot})

	m, _ = press(m, "j", "down")
	if m.Engine() != viz.ValidEngines[2] {
		t.Errorf("engine = %s, want %s", m.Engine(), viz.ValidEngines[2])
	}
	if m.Format() != viz.FormatSVG {
		t.Errorf("format moved with engine column focused: %s", m.Format())
	}

	m, _ = press(m, "tab", "j")
	if m.Column != columnFormat || m.Format() != viz.ValidFormats[1] {
		t.Errorf("column = %d, format = %s", m.Column, m.Format())
	}

	m, _ = press(m, "h", "k", "k", "k", "k")
	if m.EngineCursor != 0 {
		t.Errorf("engine cursor = %d, want clamped to 0", m.EngineCursor)
	}

	for range len(viz.ValidEngines) + 3 {
		m, _ = press(m, "down")
	}
	if m.EngineCursor != len(viz.ValidEngines)-1 {
		t.Errorf("engine cursor = %d, want clamped to last", m.EngineCursor)
	}
}

func TestPickerConfirmAndQuit(t *testing.T) {
	m := NewPickerModel(viz.Options{})

	done, cmd := press(m, "enter")
	if !done.Done || cmd == nil {
		t.Error("enter should confirm and quit")
	}

	for _, k := range []string{"q", "esc"} {
		quit, cmd := press(m, k)
		if quit.Done || cmd == nil {
			t.Errorf("%s should quit without confirming", k)
		}
	}
}

func TestPickerView(t *testing.T) {
	m := NewPickerModel(viz.Options{Format: viz.FormatPNG, Engine: viz.EngineCirco})
	view := m.View()

	for _, want := range []string{"Engine", "Format", "▸ circo", "▸ png", "vizgo render -e circo -f png"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}
