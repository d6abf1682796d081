package wizard

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arispretz/codeuniverse-backend/internal/config"
	"github.com/arispretz/codeuniverse-backend/internal/tui"
	"github.com/arispretz/codeuniverse-backend/internal/wizard"
)

type confirmAction int

const (
	actionWrite confirmAction = iota
	actionCancel
)

type confirmModel struct {
	data    *formData
	cursor  int
	actions []string
	err     string
}

func newConfirmModel(data *formData) confirmModel {
	return confirmModel{
		data:    data,
		actions: []string{"Write config", "Cancel"},
	}
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (confirmModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.actions)-1 {
				m.cursor++
			}
		case "enter":
			return m.execute()
		case "esc":
			return m, func() tea.Msg { return stepBackMsg{} }
		}
	}
	return m, nil
}

func (m confirmModel) execute() (confirmModel, tea.Cmd) {
	switch confirmAction(m.cursor) {
	case actionWrite:
		cfg, err := m.buildConfig()
		if err != nil {
			m.err = err.Error()
			return m, nil
		}

		path := m.data.OutputPath
		if path == "" {
			path = "./codeuniverse-gateway.json"
		}
		if err := wizard.WriteConfig(cfg, path); err != nil {
			m.err = err.Error()
			return m, nil
		}

		return m, func() tea.Msg {
			return wizardDoneMsg{result: Result{Config: cfg, Path: path}}
		}

	case actionCancel:
		return m, func() tea.Msg {
			return wizardDoneMsg{result: Result{Cancelled: true}}
		}
	}
	return m, nil
}

func (m confirmModel) buildConfig() (*config.Config, error) {
	secret, err := config.GenerateRandomSecret()
	if err != nil {
		return nil, fmt.Errorf("generate JWT secret: %w", err)
	}

	cfg := &config.Config{}
	cfg.Server.Addr = m.data.Addr
	cfg.Server.AllowedOrigins = m.data.AllowedOrigins
	cfg.Inference.BaseURL = m.data.InferenceURL
	cfg.Auth.JWTSecret = secret
	cfg.Auth.InitialAdmin = &config.InitialAdmin{
		Username: m.data.AdminUser,
		Password: m.data.AdminPass,
	}
	cfg.Storage.Driver = m.data.StorageDriver
	cfg.Storage.DSN = m.data.StorageDSN

	return cfg, nil
}

func (m confirmModel) View() string {
	s := tui.Subtitle.Render("Configuration Summary") + "\n\n"

	s += renderRow("Listen", m.data.Addr)
	s += renderRow("Origins", fmt.Sprintf("%v", m.data.AllowedOrigins))
	s += renderRow("Inference", m.data.InferenceURL)
	s += renderRow("Admin", m.data.AdminUser)
	s += renderRow("Storage", m.data.StorageDriver+" "+m.data.StorageDSN)
	s += "\n"

	for i, action := range m.actions {
		cursor := "  "
		style := tui.Dimmed
		if m.cursor == i {
			cursor = tui.Selected.Render("> ")
			style = tui.Selected
		}
		s += cursor + style.Render(action) + "\n"
	}

	if m.err != "" {
		s += "\n  " + tui.ErrorStyle.Render(m.err) + "\n"
	}

	return s
}

func renderRow(label, value string) string {
	return fmt.Sprintf("  %s %s\n", tui.Dimmed.Render(fmt.Sprintf("%-10s", label+":")), value)
}
