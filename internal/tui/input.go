package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

type inputModel struct {
	textarea textarea.Model
	width    int
	height   int
}

func newInputModel() inputModel {
	ta := textarea.New()
	ta.Placeholder = "What's on your mind?"
	ta.Focus()
	ta.CharLimit = 2000
	ta.SetWidth(60)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	return inputModel{textarea: ta}
}

func (m inputModel) Update(msg tea.Msg) (inputModel, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		m.width, m.height = ws.Width, ws.Height
		if ws.Width > 4 {
			m.textarea.SetWidth(min(ws.Width-4, 100))
		}
	}
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	prompt := highlightStyle.Render("You:")
	help := helpStyle.Render("Enter: submit • quit, exit, q or Ctrl+C: leave")
	return prompt + "\n" + m.textarea.View() + "\n" + help
}

func (m inputModel) Value() string {
	return strings.TrimSpace(m.textarea.Value())
}

func (m *inputModel) Reset() {
	m.textarea.Reset()
}
