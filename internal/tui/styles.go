package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	PrimaryColor = lipgloss.Color("212")
	AccentColor  = lipgloss.Color("99")
	MutedColor   = lipgloss.Color("241")
	ErrorColor   = lipgloss.Color("196")
)

// Shared styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(AccentColor).
			Padding(0, 2).
			MarginTop(1)

	trackStyle  = lipgloss.NewStyle().Bold(true)
	artistStyle = lipgloss.NewStyle().Foreground(AccentColor)
	mutedStyle  = lipgloss.NewStyle().Foreground(MutedColor)
	errorStyle  = lipgloss.NewStyle().Foreground(ErrorColor)
)
