// Package wizard provides a bubbletea-based TUI wizard for gateway
// configuration.
package wizard

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/arispretz/codeuniverse-backend/internal/config"
	"github.com/arispretz/codeuniverse-backend/internal/tui"
)

// step enumerates the wizard steps.
type step int

const (
	stepServer step = iota
	stepBackend
	stepAdmin
	stepStorage
	stepConfirm
)

// formData collects all configuration from the wizard steps.
type formData struct {
	Addr           string
	AllowedOrigins []string

	InferenceURL string

	AdminUser string
	AdminPass string

	StorageDriver string
	StorageDSN    string

	OutputPath string
}

// Result is returned when the wizard completes.
type Result struct {
	Config    *config.Config
	Path      string
	Cancelled bool
}

// Model is the root wizard model.
type Model struct {
	step   step
	data   *formData
	width  int
	height int

	server  serverFormModel
	backend backendFormModel
	admin   adminFormModel
	storage storageFormModel
	confirm confirmModel

	result Result
	done   bool
}

// NewModel creates a new wizard model.
func NewModel(outputPath string) Model {
	data := &formData{OutputPath: outputPath}

	return Model{
		step:    stepServer,
		data:    data,
		server:  newServerForm(data),
		backend: newBackendForm(data),
		admin:   newAdminForm(data),
		storage: newStorageForm(data),
		confirm: newConfirmModel(data),
	}
}

// stepCompleteMsg signals the current step is done and we should advance.
type stepCompleteMsg struct{}

// stepBackMsg signals we should go back one step.
type stepBackMsg struct{}

// wizardDoneMsg signals the wizard is finished (confirm wrote config).
type wizardDoneMsg struct {
	result Result
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return m.server.Init()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+c"))) {
			m.result.Cancelled = true
			m.done = true
			return m, tea.Quit
		}

	case stepCompleteMsg:
		return m.advance()

	case stepBackMsg:
		return m.goBack()

	case wizardDoneMsg:
		m.result = msg.result
		m.done = true
		return m, tea.Quit
	}

	// Delegate to current step.
	var cmd tea.Cmd
	switch m.step {
	case stepServer:
		m.server, cmd = m.server.Update(msg)
	case stepBackend:
		m.backend, cmd = m.backend.Update(msg)
	case stepAdmin:
		m.admin, cmd = m.admin.Update(msg)
	case stepStorage:
		m.storage, cmd = m.storage.Update(msg)
	case stepConfirm:
		m.confirm, cmd = m.confirm.Update(msg)
	}
	return m, cmd
}

func (m Model) advance() (tea.Model, tea.Cmd) {
	switch m.step {
	case stepServer:
		m.step = stepBackend
		return m, m.backend.Init()
	case stepBackend:
		m.step = stepAdmin
		return m, m.admin.Init()
	case stepAdmin:
		m.step = stepStorage
		return m, m.storage.Init()
	case stepStorage:
		m.step = stepConfirm
		return m, m.confirm.Init()
	case stepConfirm:
		// handled by wizardDoneMsg
	}
	return m, nil
}

func (m Model) goBack() (tea.Model, tea.Cmd) {
	switch m.step {
	case stepBackend:
		m.step = stepServer
		return m, m.server.Init()
	case stepAdmin:
		m.step = stepBackend
		return m, m.backend.Init()
	case stepStorage:
		m.step = stepAdmin
		return m, m.admin.Init()
	case stepConfirm:
		m.step = stepStorage
		return m, m.storage.Init()
	}
	return m, nil
}

// View renders the current step.
func (m Model) View() string {
	header := tui.Title.Render("CodeUniverse Gateway Configuration Wizard")
	progress := m.progressBar()

	var body string
	switch m.step {
	case stepServer:
		body = m.server.View()
	case stepBackend:
		body = m.backend.View()
	case stepAdmin:
		body = m.admin.View()
	case stepStorage:
		body = m.storage.View()
	case stepConfirm:
		body = m.confirm.View()
	}

	help := tui.Help.Render("ctrl+c quit • esc back")

	return lipgloss.JoinVertical(lipgloss.Left,
		"",
		header,
		progress,
		"",
		body,
		"",
		help,
	)
}

// Done returns whether the wizard has completed.
func (m Model) Done() bool { return m.done }

// Result returns the wizard result.
func (m Model) Result() Result { return m.result }

func (m Model) progressBar() string {
	steps := []string{"Server", "Backend", "Admin", "Storage", "Confirm"}
	current := int(m.step)

	var parts []string
	for i, name := range steps {
		switch {
		case i == current:
			parts = append(parts, tui.Selected.Render("● "+name))
		case i < current:
			parts = append(parts, tui.Success.Render("✓ "+name))
		default:
			parts = append(parts, tui.Dimmed.Render("○ "+name))
		}
	}

	joined := make([]string, 0, len(parts)*2-1)
	for i, p := range parts {
		if i > 0 {
			joined = append(joined, "  ")
		}
		joined = append(joined, p)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, joined...)
}
