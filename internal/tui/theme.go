// Package tui provides shared theme and styles for the gateway TUI.
package tui

import "github.com/charmbracelet/lipgloss"

// Brand palette.
var (
	ColorPrimary = lipgloss.Color("#0EA5E9") // sky
	ColorAccent  = lipgloss.Color("#8B5CF6") // violet

	ColorSuccess = lipgloss.Color("#22C55E") // green
	ColorError   = lipgloss.Color("#EF4444") // red
	ColorMuted   = lipgloss.Color("#6B7280") // gray-500
	ColorSubtle  = lipgloss.Color("#9CA3AF") // gray-400
)

// Shared styles used across the setup wizard.
var (
	// Title is the main heading style.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		MarginBottom(1)

	// Subtitle for step headings.
	Subtitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	// Description for helper text.
	Description = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	// Selected highlights the currently focused item.
	Selected = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	// Dimmed for non-focused items.
	Dimmed = lipgloss.NewStyle().
		Foreground(ColorMuted)

	// Success for positive messages.
	Success = lipgloss.NewStyle().
		Foreground(ColorSuccess)

	// ErrorStyle for error messages (avoiding collision with builtin error).
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	// Help for keybind hints at the bottom.
	Help = lipgloss.NewStyle().
		Foreground(ColorMuted)
)
