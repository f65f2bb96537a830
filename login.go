package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type tokenEnteredMsg struct {
	token string
}

// LoginModal captures a backend access token and stores it in the keyring.
// Tokens are issued out of band (the web app's settings page); the client
// only needs to hold one.
type LoginModal struct {
	*BaseModal
	input textinput.Model
}

func NewLoginModal() *LoginModal {
	ti := textinput.New()
	ti.Placeholder = "paste your access token"
	ti.EchoMode = textinput.EchoPassword
	ti.CharLimit = 512
	ti.Width = 56
	ti.Focus()

	return &LoginModal{
		BaseModal: NewBaseModal("Login", "", 70, 9),
		input:     ti,
	}
}

func (m *LoginModal) Render() string {
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)

	var content strings.Builder
	content.WriteString("Paste the access token from the Artha web app.\n\n")
	content.WriteString(m.input.View())
	content.WriteString("\n\n")
	content.WriteString(hintStyle.Render("Enter: Save • Esc: Cancel"))

	m.BaseModal.Content = content.String()
	return m.BaseModal.Render()
}

func (m *LoginModal) Update(msg tea.Msg) (*LoginModal, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg { return modalCancelledMsg{} }
		case "enter":
			token := strings.TrimSpace(m.input.Value())
			if token == "" {
				return m, nil
			}
			return m, func() tea.Msg { return tokenEnteredMsg{token: token} }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}
