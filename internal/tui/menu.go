package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// MenuOption is one selectable entry in the scenario menu.
type MenuOption struct {
	Label       string
	Description string
	Value       string
}

// Menu is a bubbletea model for picking a scenario to run.
type Menu struct {
	title     string
	options   []MenuOption
	cursor    int
	selected  int
	keyMap    menuKeyMap
	submitted bool
	cancelled bool
}

type menuKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Quit   key.Binding
}

func defaultMenuKeyMap() menuKeyMap {
	return menuKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "run"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q/esc", "quit"),
		),
	}
}

// NewMenu creates a scenario menu.
func NewMenu(title string, options []MenuOption) Menu {
	return Menu{
		title:    title,
		options:  options,
		selected: -1,
		keyMap:   defaultMenuKeyMap(),
	}
}

// Init implements tea.Model.
func (m Menu) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keyMap.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keyMap.Down):
			if m.cursor < len(m.options)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keyMap.Select):
			m.selected = m.cursor
			m.submitted = true
			return m, tea.Quit
		case key.Matches(msg, m.keyMap.Quit):
			m.cancelled = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Menu) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n\n")

	for i, opt := range m.options {
		style := UnselectedStyle
		symbol := SymbolUnselected
		if i == m.cursor {
			style = SelectedStyle
			symbol = SymbolSelected
		}

		b.WriteString(style.Render(symbol + " " + opt.Label))
		b.WriteString("\n")
		if opt.Description != "" {
			b.WriteString(DescriptionStyle.Render(opt.Description))
			b.WriteString("\n")
		}
	}

	b.WriteString(HelpStyle.Render("\n↑/↓ navigate • enter run • q quit"))
	return b.String()
}

// Cancelled returns true if the user quit without choosing.
func (m Menu) Cancelled() bool {
	return m.cancelled
}

// Value returns the Value of the chosen option, or "" if none was chosen.
func (m Menu) Value() string {
	if m.selected >= 0 && m.selected < len(m.options) {
		return m.options[m.selected].Value
	}
	return ""
}

// RunMenu displays the menu and blocks until the user chooses or quits.
// Returns the chosen value and true, or "" and false on cancel.
func RunMenu(title string, options []MenuOption) (string, bool, error) {
	program := tea.NewProgram(NewMenu(title, options))
	final, err := program.Run()
	if err != nil {
		return "", false, fmt.Errorf("menu failed: %w", err)
	}

	menu, ok := final.(Menu)
	if !ok || menu.Cancelled() || menu.Value() == "" {
		return "", false, nil
	}
	return menu.Value(), true, nil
}
