package main

import "github.com/charmbracelet/lipgloss"

// Theme defines the colors for the UI.
type Theme struct {
	PromptBorder   lipgloss.Color
	ChatBorder     lipgloss.Color
	ChatBackground lipgloss.Color
	TextColor      lipgloss.Color
	Warning        lipgloss.Color
	Error          lipgloss.Color
	DarkBorder     lipgloss.Color
}

// NewTheme creates and returns a new Theme with Terminal7 colors.
func NewTheme() *Theme {
	return &Theme{
		PromptBorder:   lipgloss.Color("#F952F9"),
		ChatBorder:     lipgloss.Color("#F4DB53"),
		ChatBackground: lipgloss.Color("#11051E"),
		TextColor:      lipgloss.Color("#01FAFA"),
		Warning:        lipgloss.Color("#F4DB53"),
		Error:          lipgloss.Color("#F54545"),
		DarkBorder:     lipgloss.Color("#373702"),
	}
}
