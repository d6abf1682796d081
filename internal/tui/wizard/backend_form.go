package wizard

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/arispretz/codeuniverse-backend/internal/tui"
)

type backendFormModel struct {
	data     *formData
	urlInput textinput.Model
}

func newBackendForm(data *formData) backendFormModel {
	ti := textinput.New()
	ti.Placeholder = "http://localhost:8000"
	ti.CharLimit = 256
	ti.Width = 50

	return backendFormModel{
		data:     data,
		urlInput: ti,
	}
}

func (m backendFormModel) Init() tea.Cmd {
	m.urlInput.Focus()
	return textinput.Blink
}

func (m backendFormModel) Update(msg tea.Msg) (backendFormModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			url := m.urlInput.Value()
			if url == "" {
				url = m.urlInput.Placeholder
			}
			m.data.InferenceURL = url
			return m, func() tea.Msg { return stepCompleteMsg{} }
		case "esc":
			return m, func() tea.Msg { return stepBackMsg{} }
		}
	}

	var cmd tea.Cmd
	m.urlInput, cmd = m.urlInput.Update(msg)
	return m, cmd
}

func (m backendFormModel) View() string {
	s := tui.Subtitle.Render("Model Inference Service") + "\n\n"
	s += "  " + tui.Description.Render("Base URL of the service that runs the models.") + "\n\n"
	s += "  " + m.urlInput.View() + "\n"
	s += "\n" + tui.Help.Render("  enter submit • esc back")
	return s
}
