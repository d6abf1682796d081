package wizard

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/arispretz/codeuniverse-backend/internal/tui"
)

type serverFormField int

const (
	srvFieldAddr serverFormField = iota
	srvFieldOrigins
)

type serverFormModel struct {
	data *formData

	addrInput    textinput.Model
	originsInput textinput.Model
	focused      serverFormField
}

func newServerForm(data *formData) serverFormModel {
	addr := textinput.New()
	addr.Placeholder = ":8080"
	addr.CharLimit = 64
	addr.Width = 30

	origins := textinput.New()
	origins.Placeholder = "http://localhost:3000"
	origins.CharLimit = 512
	origins.Width = 60

	return serverFormModel{
		data:         data,
		addrInput:    addr,
		originsInput: origins,
	}
}

func (m serverFormModel) Init() tea.Cmd {
	m.focused = srvFieldAddr
	m.addrInput.Focus()
	return textinput.Blink
}

func (m serverFormModel) Update(msg tea.Msg) (serverFormModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			return m.focusField(srvFieldOrigins)
		case "shift+tab", "up":
			return m.focusField(srvFieldAddr)
		case "enter":
			if m.focused == srvFieldOrigins {
				return m.finish()
			}
			return m.focusField(srvFieldOrigins)
		}
	}

	var cmd tea.Cmd
	switch m.focused {
	case srvFieldAddr:
		m.addrInput, cmd = m.addrInput.Update(msg)
	case srvFieldOrigins:
		m.originsInput, cmd = m.originsInput.Update(msg)
	}
	return m, cmd
}

func (m serverFormModel) focusField(f serverFormField) (serverFormModel, tea.Cmd) {
	m.addrInput.Blur()
	m.originsInput.Blur()
	m.focused = f

	switch f {
	case srvFieldAddr:
		m.addrInput.Focus()
	case srvFieldOrigins:
		m.originsInput.Focus()
	}
	return m, textinput.Blink
}

func (m serverFormModel) finish() (serverFormModel, tea.Cmd) {
	addr := m.addrInput.Value()
	if addr == "" {
		addr = m.addrInput.Placeholder
	}
	m.data.Addr = addr

	origins := m.originsInput.Value()
	if origins == "" {
		origins = m.originsInput.Placeholder
	}
	var list []string
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	m.data.AllowedOrigins = list

	return m, func() tea.Msg { return stepCompleteMsg{} }
}

func (m serverFormModel) View() string {
	s := tui.Subtitle.Render("Server") + "\n\n"

	prefix := "  "
	if m.focused == srvFieldAddr {
		prefix = tui.Selected.Render("> ")
	}
	s += prefix + "Listen address:\n  " + m.addrInput.View() + "\n"

	prefix = "  "
	if m.focused == srvFieldOrigins {
		prefix = tui.Selected.Render("> ")
	}
	s += prefix + "Allowed origins (comma-separated):\n  " + m.originsInput.View() + "\n"

	s += "\n" + tui.Help.Render("  tab/↓ next • shift+tab/↑ prev • enter submit")
	return s
}
