package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func testOptions() []MenuOption {
	return []MenuOption{
		{Label: "Deposits", Description: "hot account deposits", Value: "deposits"},
		{Label: "Scaling", Description: "worker scaling", Value: "scaling"},
		{Label: "All", Value: "all"},
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func TestMenu_SelectFirst(t *testing.T) {
	model, cmd := NewMenu("scenarios", testOptions()).Update(keyMsg("enter"))
	menu := model.(Menu)

	if cmd == nil {
		t.Fatal("expected quit command after selection")
	}
	if menu.Cancelled() {
		t.Error("selection should not be a cancel")
	}
	if menu.Value() != "deposits" {
		t.Errorf("Value() = %q, want %q", menu.Value(), "deposits")
	}
}

func TestMenu_NavigateDownAndSelect(t *testing.T) {
	var model tea.Model = NewMenu("scenarios", testOptions())

	model, _ = model.Update(keyMsg("down"))
	model, _ = model.Update(keyMsg("j"))
	model, _ = model.Update(keyMsg("enter"))

	menu := model.(Menu)
	if menu.Value() != "all" {
		t.Errorf("Value() = %q, want %q", menu.Value(), "all")
	}
}

func TestMenu_CursorClamps(t *testing.T) {
	var model tea.Model = NewMenu("scenarios", testOptions())

	model, _ = model.Update(keyMsg("up"))
	for i := 0; i < 10; i++ {
		model, _ = model.Update(keyMsg("down"))
	}
	model, _ = model.Update(keyMsg("enter"))

	menu := model.(Menu)
	if menu.Value() != "all" {
		t.Errorf("Value() = %q, want last option %q", menu.Value(), "all")
	}
}

func TestMenu_Cancel(t *testing.T) {
	model, cmd := NewMenu("scenarios", testOptions()).Update(keyMsg("esc"))
	menu := model.(Menu)

	if cmd == nil {
		t.Fatal("expected quit command after cancel")
	}
	if !menu.Cancelled() {
		t.Error("Cancelled() = false, want true")
	}
	if menu.Value() != "" {
		t.Errorf("Value() = %q, want empty", menu.Value())
	}
}

func TestMenu_ViewShowsOptions(t *testing.T) {
	view := NewMenu("choose a scenario", testOptions()).View()

	for _, want := range []string{"choose a scenario", "Deposits", "Scaling", "hot account deposits"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}
