package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// MenuTitle is shown above the options.
const MenuTitle = "Please Select an Option To Continue:"

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	cursorStyle = lipgloss.NewStyle().Foreground(cyanColor).Bold(true)
	itemStyle   = lipgloss.NewStyle().Foreground(dimColor)
)

// MenuItem is one selectable option.
type MenuItem struct {
	Key   string
	Label string
}

func (i MenuItem) String() string {
	return fmt.Sprintf("%s - %s", i.Key, i.Label)
}

// menuModel is a single-choice list. Pressing an item's key selects it
// directly; any other printable key is returned as typed.
type menuModel struct {
	items       []MenuItem
	cursor      int
	choice      string
	interrupted bool
}

func newMenuModel(items []MenuItem) menuModel {
	return menuModel{items: items}
}

func (m menuModel) Init() tea.Cmd {
	return nil
}

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(km, keys.CtrlC):
		m.interrupted = true
		return m, tea.Quit
	case key.Matches(km, keys.Enter):
		if len(m.items) > 0 {
			m.choice = m.items[m.cursor].String()
		}
		return m, tea.Quit
	case key.Matches(km, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(km, keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
		return m, nil
	}

	if km.Type != tea.KeyRunes {
		return m, nil
	}
	typed := string(km.Runes)
	for _, item := range m.items {
		if strings.EqualFold(item.Key, typed) {
			m.choice = item.String()
			return m, tea.Quit
		}
	}
	m.choice = typed
	return m, tea.Quit
}

func (m menuModel) View() string {
	if m.choice != "" || m.interrupted {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("? " + MenuTitle))
	b.WriteString("\n")
	for i, item := range m.items {
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("❯ " + item.String()))
		} else {
			b.WriteString(itemStyle.Render("  " + item.String()))
		}
		b.WriteString("\n")
	}
	return b.String()
}
