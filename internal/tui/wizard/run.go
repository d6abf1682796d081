package wizard

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	plainwizard "github.com/arispretz/codeuniverse-backend/internal/wizard"
	"github.com/arispretz/codeuniverse-backend/pkg/cli"
)

// Run launches the TUI wizard. If the terminal is not a TTY (piped, CI, etc.)
// it falls back to the plain-text wizard. Pass plain=true to force the fallback.
func Run(outputPath string, plain bool) error {
	if plain || !isTTY() {
		return plainwizard.New(cli.DefaultPrompter()).Run(outputPath)
	}
	return runTUI(outputPath)
}

func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func runTUI(outputPath string) error {
	m := NewModel(outputPath)

	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	result := finalModel.(Model).Result()
	if result.Cancelled {
		return fmt.Errorf("wizard cancelled")
	}

	fmt.Printf("\nConfig written to %s\n", result.Path)
	fmt.Printf("Start the gateway with:\n  codeuniverse-gateway run %s\n", result.Path)
	return nil
}
