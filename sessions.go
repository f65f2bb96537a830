package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type sessionAdoptedMsg struct {
	sessionID string
}

type modalCancelledMsg struct{}

// SessionSelectionModal lets the user pick one of the backend's conversation
// sessions to continue in this client.
type SessionSelectionModal struct {
	*BaseModal
	sessions     []RemoteSession
	selected     int
	scrollOffset int
	maxVisible   int
}

func NewSessionSelectionModal(sessions []RemoteSession) *SessionSelectionModal {
	baseModal := NewBaseModal("Continue a conversation", "", 70, 20)

	return &SessionSelectionModal{
		BaseModal:  baseModal,
		sessions:   sessions,
		maxVisible: 10,
	}
}

func (m *SessionSelectionModal) Render() string {
	var content strings.Builder

	if len(m.sessions) == 0 {
		content.WriteString("No sessions found on the backend.\n")
		content.WriteString("Ask a question to start one!\n\n")
		content.WriteString("Press Esc to close")
		m.BaseModal.Content = content.String()
		return m.BaseModal.Render()
	}

	instructionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	content.WriteString(instructionStyle.Render("↑/↓: Navigate • 1-9: Quick select • Enter: Select • Esc/Q: Cancel"))
	content.WriteString("\n\n")

	// Total items = sessions + cancel option
	totalItems := len(m.sessions) + 1

	start := m.scrollOffset
	end := m.scrollOffset + m.maxVisible
	if end > totalItems {
		end = totalItems
	}

	for i := start; i < end; i++ {
		isSelected := i == m.selected

		// Check if this is the cancel option (last item)
		if i == len(m.sessions) {
			prefix := "   "
			if isSelected {
				prefix = "▶ "
			}

			lineStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
			if isSelected {
				lineStyle = lineStyle.Foreground(lipgloss.Color("62")).Bold(true)
			}

			content.WriteString("\n")
			content.WriteString(lineStyle.Render(prefix + "Cancel"))
			continue
		}

		session := m.sessions[i]

		prefix := fmt.Sprintf(" %d. ", i+1)
		if isSelected {
			prefix = fmt.Sprintf("▶%d. ", i+1)
		}

		line := fmt.Sprintf("%s[%s] %s", prefix, formatRelativeTime(session.CreatedAt), shortID(session.SessionID))

		lineStyle := lipgloss.NewStyle()
		if isSelected {
			lineStyle = lineStyle.Foreground(lipgloss.Color("62")).Bold(true)
		}

		content.WriteString(lineStyle.Render(line))
		content.WriteString("\n")
	}

	if totalItems > m.maxVisible {
		scrollInfo := fmt.Sprintf("\n%d-%d of %d items", start+1, end, totalItems)
		scrollStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
		content.WriteString(scrollStyle.Render(scrollInfo))
	}

	m.BaseModal.Content = content.String()
	return m.BaseModal.Render()
}

func (m *SessionSelectionModal) Update(msg tea.Msg) (*SessionSelectionModal, tea.Cmd) {
	if len(m.sessions) == 0 {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			if keyMsg.String() == "esc" || keyMsg.String() == "q" {
				return m, func() tea.Msg { return modalCancelledMsg{} }
			}
		}
		return m, nil
	}

	// Total items = sessions + cancel option
	totalItems := len(m.sessions) + 1

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.selected > 0 {
				m.selected--
				if m.selected < m.scrollOffset {
					m.scrollOffset = m.selected
				}
			}
		case "down", "j":
			if m.selected < totalItems-1 {
				m.selected++
				if m.selected >= m.scrollOffset+m.maxVisible {
					m.scrollOffset = m.selected - m.maxVisible + 1
				}
			}
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			num := int(msg.String()[0] - '1')
			if num < len(m.sessions) {
				m.selected = num
				return m, m.adoptSelected()
			}
		case "enter":
			// If cancel option is selected (last item)
			if m.selected == len(m.sessions) {
				return m, func() tea.Msg { return modalCancelledMsg{} }
			}
			return m, m.adoptSelected()
		case "esc", "q":
			return m, func() tea.Msg { return modalCancelledMsg{} }
		}
	}

	return m, nil
}

func (m *SessionSelectionModal) adoptSelected() tea.Cmd {
	sessionID := m.sessions[m.selected].SessionID
	return func() tea.Msg {
		return sessionAdoptedMsg{sessionID: sessionID}
	}
}
