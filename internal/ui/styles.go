package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("160")).
			Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	dueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	exerciseStyle = lipgloss.NewStyle().PaddingLeft(2)

	timerRunStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)
