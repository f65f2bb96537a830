package main

import "github.com/charmbracelet/lipgloss"

// BaseModal is the framed overlay the pickers and prompts render into: a
// title bar over a centered body. Callers set Content and call Render.
type BaseModal struct {
	Title   string
	Content string
	Width   int
	Height  int

	frame lipgloss.Style
	bar   lipgloss.Style
}

func NewBaseModal(title, content string, width, height int) *BaseModal {
	return &BaseModal{
		Title:   title,
		Content: content,
		Width:   width,
		Height:  height,
		frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#F4DB53")).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center),
		bar: lipgloss.NewStyle().
			Background(lipgloss.Color("#11051E")).
			Foreground(lipgloss.Color("#01FAFA")).
			Bold(true).
			Padding(0, 1).
			Width(width - 2),
	}
}

func (m *BaseModal) Render() string {
	// Body height leaves room for the title bar inside the frame.
	body := lipgloss.NewStyle().
		Width(m.Width-2).
		Height(m.Height-4).
		Align(lipgloss.Center, lipgloss.Center).
		Render(m.Content)
	return m.frame.Render(lipgloss.JoinVertical(lipgloss.Center, m.bar.Render(m.Title), body))
}
