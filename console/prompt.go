package console

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// promptModel reads one line of free text.
type promptModel struct {
	input       textinput.Model
	done        bool
	interrupted bool
}

func newPromptModel(label string) promptModel {
	ti := textinput.New()
	ti.Prompt = label + " "
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = 80
	return promptModel{input: ti}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.CtrlC):
			m.interrupted = true
			return m, tea.Quit
		case key.Matches(msg, keys.Enter):
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done || m.interrupted {
		// keep the answered prompt on screen
		return m.input.Prompt + m.input.Value() + "\n"
	}
	return m.input.View()
}

// Value is the text entered so far.
func (m promptModel) Value() string {
	return m.input.Value()
}
