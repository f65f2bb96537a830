package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHomeView renders the home view shown before the first question
func renderHomeView(width, height int) string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#F952F9")).
		Align(lipgloss.Center).
		Width(width)

	title := titleStyle.Render("Artha — Ask About Your Money")

	subtitleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#01FAFA")).
		Align(lipgloss.Center).
		Width(width)

	subtitle := subtitleStyle.Render("Portfolio questions, market context, deep research")

	hints := []string{
		"▶ Type a question and press Enter (e.g. \"How did my portfolio do this month?\")",
		"▶ Use / to access commands (e.g., /help, /new, /deepsearch)",
		"▶ Press Esc to stop a streaming answer",
		"▶ Ctrl+T folds or unfolds the selected message",
		"▶ Press Ctrl+C to quit",
	}

	hintStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F4DB53")).
		PaddingLeft(2)

	var hintViews []string
	for _, hint := range hints {
		hintViews = append(hintViews, hintStyle.Render(hint))
	}

	hintsView := lipgloss.JoinVertical(lipgloss.Left, hintViews...)

	content := lipgloss.JoinVertical(lipgloss.Center, title, "", subtitle, "", hintsView)

	container := lipgloss.NewStyle().
		Width(width).
		Height(height).
		Background(lipgloss.Color("#000000")).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)

	return container
}

// renderHelpText lists the slash commands and key bindings.
func renderHelpText(registry CommandRegistry) string {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, cmd := range registry.GetAllCommands() {
		b.WriteString(fmt.Sprintf("  %s - %s\n", cmd.Name, cmd.Description))
	}
	b.WriteString("\nKeys:\n")
	b.WriteString("  esc          stop a streaming answer\n")
	b.WriteString("  ctrl+t       fold/unfold the selected message\n")
	b.WriteString("  shift+up/dn  move the message selection\n")
	b.WriteString("  up/down      recall prompt history (empty prompt)\n")
	b.WriteString("  pgup/pgdn    scroll the conversation\n")
	return b.String()
}
