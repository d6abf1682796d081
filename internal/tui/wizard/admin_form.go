package wizard

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/arispretz/codeuniverse-backend/internal/tui"
)

type adminFormField int

const (
	admFieldUser adminFormField = iota
	admFieldPass
)

type adminFormModel struct {
	data *formData

	userInput textinput.Model
	passInput textinput.Model
	focused   adminFormField
	err       string
}

func newAdminForm(data *formData) adminFormModel {
	user := textinput.New()
	user.Placeholder = "admin"
	user.CharLimit = 64
	user.Width = 30

	pass := textinput.New()
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'
	pass.CharLimit = 128
	pass.Width = 30

	return adminFormModel{
		data:      data,
		userInput: user,
		passInput: pass,
	}
}

func (m adminFormModel) Init() tea.Cmd {
	m.focused = admFieldUser
	m.userInput.Focus()
	return textinput.Blink
}

func (m adminFormModel) Update(msg tea.Msg) (adminFormModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			return m.focusField(admFieldPass)
		case "shift+tab", "up":
			return m.focusField(admFieldUser)
		case "enter":
			if m.focused == admFieldPass {
				return m.finish()
			}
			return m.focusField(admFieldPass)
		case "esc":
			return m, func() tea.Msg { return stepBackMsg{} }
		}
	}

	var cmd tea.Cmd
	switch m.focused {
	case admFieldUser:
		m.userInput, cmd = m.userInput.Update(msg)
	case admFieldPass:
		m.passInput, cmd = m.passInput.Update(msg)
	}
	return m, cmd
}

func (m adminFormModel) focusField(f adminFormField) (adminFormModel, tea.Cmd) {
	m.userInput.Blur()
	m.passInput.Blur()
	m.focused = f

	switch f {
	case admFieldUser:
		m.userInput.Focus()
	case admFieldPass:
		m.passInput.Focus()
	}
	return m, textinput.Blink
}

func (m adminFormModel) finish() (adminFormModel, tea.Cmd) {
	user := m.userInput.Value()
	if user == "" {
		user = m.userInput.Placeholder
	}
	pass := m.passInput.Value()
	if len(pass) < 8 {
		m.err = "password must be at least 8 characters"
		return m, nil
	}

	m.data.AdminUser = user
	m.data.AdminPass = pass
	return m, func() tea.Msg { return stepCompleteMsg{} }
}

func (m adminFormModel) View() string {
	s := tui.Subtitle.Render("Admin User") + "\n\n"

	prefix := "  "
	if m.focused == admFieldUser {
		prefix = tui.Selected.Render("> ")
	}
	s += prefix + "Username:\n  " + m.userInput.View() + "\n"

	prefix = "  "
	if m.focused == admFieldPass {
		prefix = tui.Selected.Render("> ")
	}
	s += prefix + "Password:\n  " + m.passInput.View() + "\n"

	if m.err != "" {
		s += "\n  " + tui.ErrorStyle.Render(m.err) + "\n"
	}

	s += "\n" + tui.Help.Render("  tab/↓ next • shift+tab/↑ prev • enter submit • esc back")
	return s
}
