package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// statusTickMsg drives the waiting timer while a turn is in flight.
type statusTickMsg time.Time

// TUIModel represents the bubbletea model for the TUI
type TUIModel struct {
	config        *Config
	width, height int
	theme         *Theme

	// UI Components
	status       StatusComponent
	prompt       PromptComponent
	chat         ChatComponent
	completions  CompletionDialog
	toastManager ToastManager
	modal        *BaseModal
	sessionModal *SessionSelectionModal
	loginModal   *LoginModal

	// UI Flags & State
	showCompletionDialog bool
	sessionActive        bool

	// Current-turn presentation state: the tool indicator shows only until
	// the first answer text arrives.
	assistantStarted bool

	// Command registry
	commandRegistry CommandRegistry

	// Application services (passed in, not owned)
	chatState *Chat
}

// NewTUIModel creates a new TUI model
func NewTUIModel(config *Config) *TUIModel {
	registry := NewCommandRegistry()
	theme := NewTheme()

	model := &TUIModel{
		config: config,
		width:  80, // Default width
		height: 24, // Default height
		theme:  theme,

		status:       NewStatusComponent(80),
		prompt:       NewPromptComponent(80, 5),
		chat:         NewChatComponent(80, 18, theme),
		completions:  NewCompletionDialog(),
		toastManager: NewToastManager(),

		commandRegistry: registry,
	}

	model.status.SetDeepSearch(config.Chat.DeepSearch)

	return model
}

// SetChat attaches the conversation services to the model.
func (m *TUIModel) SetChat(chat *Chat) {
	m.chatState = chat
	if chat != nil {
		m.status.SetDeepSearch(chat.engine.DeepSearch())
		m.prompt.SetHistory(chat.PromptHistory())
	}
}

// refreshChat re-renders the conversation from the stores.
func (m *TUIModel) refreshChat() {
	if m.chatState == nil {
		return
	}
	showTool := m.chatState.engine.State() == EngineStreaming && !m.assistantStarted
	m.chat.Render(m.chatState.store.Messages(), m.chatState.collapse, m.chatState.tools.Latest(), showTool)
}

func statusTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

// Init implements bubbletea.Model
func (m TUIModel) Init() tea.Cmd {
	return nil
}

// Update implements bubbletea.Model
func (m TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Update toast manager to remove expired toasts
	m.toastManager = m.toastManager.Update()

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSizeMsg(msg)

	default:
		return m.handleCustomMessages(msg)
	}
}

// handleKeyMsg processes keyboard input
func (m TUIModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Modals handle their own keys, including escape
	if m.sessionModal != nil {
		m.sessionModal, cmd = m.sessionModal.Update(msg)
		return m, cmd
	}
	if m.loginModal != nil {
		m.loginModal, cmd = m.loginModal.Update(msg)
		return m, cmd
	}

	if msg.String() == "esc" {
		return m.handleEscape()
	}

	if m.showCompletionDialog {
		return m.handleCompletionDialog(msg)
	}

	switch msg.String() {
	case "enter":
		return m.handleEnterKey()
	case "/":
		return m.handleSlashKey(msg)
	case "ctrl+t":
		return m.handleToggleCollapse()
	case "shift+up":
		m.chat.SelectPrev()
		m.refreshChat()
		return m, nil
	case "shift+down":
		m.chat.SelectNext()
		m.refreshChat()
		return m, nil
	case "up":
		if strings.TrimSpace(m.prompt.Value()) == "" || m.promptRecalling() {
			if m.prompt.HistoryPrev() {
				return m, nil
			}
		}
		m.prompt, _ = m.prompt.Update(msg)
		return m, nil
	case "down":
		if m.promptRecalling() {
			if m.prompt.HistoryNext() {
				return m, nil
			}
		}
		m.prompt, _ = m.prompt.Update(msg)
		return m, nil
	case "pgup", "pgdown", "home", "end":
		m.chat, _ = m.chat.Update(msg)
		return m, nil
	default:
		m.prompt, _ = m.prompt.Update(msg)
		return m, nil
	}
}

// promptRecalling reports whether the prompt is showing a recalled entry.
func (m *TUIModel) promptRecalling() bool {
	return m.prompt.historyIdx < len(m.prompt.history)
}

// handleEscape stops an in-flight answer, otherwise dismisses transient UI.
func (m TUIModel) handleEscape() (tea.Model, tea.Cmd) {
	if m.chatState != nil && m.chatState.engine.Busy() {
		m.chatState.engine.Stop()
		return m, nil
	}

	m.modal = nil
	if m.showCompletionDialog {
		m.showCompletionDialog = false
		m.completions.Hide()
	}
	return m, nil
}

// handleToggleCollapse folds or unfolds the selected chat entry.
func (m TUIModel) handleToggleCollapse() (tea.Model, tea.Cmd) {
	if m.chatState == nil {
		return m, nil
	}
	id, index, ok := m.chat.Selected()
	if !ok {
		return m, nil
	}
	lastUserIdx := m.chatState.store.LastUserIndex()
	m.chatState.collapse.Toggle(id, index, lastUserIdx)
	m.refreshChat()
	return m, nil
}

// handleCompletionDialog handles the completion dialog interactions
func (m TUIModel) handleCompletionDialog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "tab":
		return m.handleCompletionSelection()
	case "down":
		m.completions.SelectNext()
		return m, nil
	case "up":
		m.completions.SelectPrev()
		return m, nil
	default:
		// Any other key press updates the completion list
		m.prompt, _ = m.prompt.Update(msg)
		m.updateCommandCompletions()
		return m, nil
	}
}

// handleCompletionSelection handles when a completion is selected
func (m TUIModel) handleCompletionSelection() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	selected := m.completions.GetSelected()
	if selected != "" {
		cmd, exists := m.commandRegistry.GetCommand(selected)
		if exists {
			cmds = append(cmds, cmd.Handler(&m, []string{}))
		}
		m.prompt.SetValue("")
	}
	m.showCompletionDialog = false
	m.completions.Hide()
	return m, tea.Batch(cmds...)
}

// handleEnterKey handles the enter key press
func (m TUIModel) handleEnterKey() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	content := strings.TrimSpace(m.prompt.Value())
	if content == "" {
		return m, nil
	}
	if strings.HasPrefix(content, "/") {
		parts := strings.Fields(content)
		cmdName := parts[0]
		cmd, exists := m.commandRegistry.GetCommand(cmdName)
		if exists {
			cmds = append(cmds, cmd.Handler(&m, parts[1:]))
			m.prompt.SetValue("")
		} else {
			m.toastManager.AddToast(fmt.Sprintf("Unknown command: %s", cmdName), "error", toastShort)
		}
		return m, tea.Batch(cmds...)
	}

	if m.chatState == nil {
		m.toastManager.AddToast("Backend not configured", "error", toastLong)
		return m, nil
	}

	if err := m.chatState.engine.Append(content); err != nil {
		if errors.Is(err, ErrTurnInFlight) {
			m.toastManager.AddToast("Still answering, press Esc to stop", "warning", toastShort)
		} else {
			m.toastManager.AddToast(err.Error(), "error", toastShort)
		}
		return m, nil
	}

	m.sessionActive = true
	m.assistantStarted = false
	m.prompt.PushHistory(content)
	m.chatState.RecordPrompt(content)
	m.prompt.SetValue("")
	m.status.SetStreamState(EngineSending)
	m.status.StartWaiting()
	m.refreshChat()
	return m, statusTick()
}

// handleSlashKey handles the slash key for command completion
func (m TUIModel) handleSlashKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Only show command completion if we're at the beginning of the input
	if m.prompt.Value() == "" {
		m.prompt, _ = m.prompt.Update(msg)
		m.showCompletionDialog = true
		m.completions.SetOptions(append([]string(nil), m.commandRegistry.order...))
		m.completions.Show()
	} else {
		m.prompt, _ = m.prompt.Update(msg)
	}
	return m, nil
}

// handleMouseMsg handles mouse events
func (m TUIModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.MouseWheelUp, tea.MouseWheelDown:
		m.chat, _ = m.chat.Update(msg)
	}
	return m, nil
}

// handleWindowSizeMsg handles window resize events
func (m TUIModel) handleWindowSizeMsg(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.updateComponentDimensions()
	m.refreshChat()
	return m, nil
}

// handleCustomMessages handles all custom message types
func (m TUIModel) handleCustomMessages(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusTickMsg:
		if m.chatState != nil && m.chatState.engine.Busy() {
			return m, statusTick()
		}
		return m, nil

	case turnBeganMsg:
		m.status.SetSessionID(msg.SessionID)
		m.refreshChat()

	case streamStartMsg:
		m.assistantStarted = true
		m.status.SetStreamState(EngineStreaming)
		m.status.StopWaiting()
		m.refreshChat()

	case streamChunkMsg:
		m.refreshChat()

	case toolCallMsg:
		m.status.SetStreamState(EngineStreaming)
		m.refreshChat()

	case streamCompleteMsg:
		m.status.SetStreamState(EngineIdle)
		m.status.StopWaiting()
		m.refreshChat()

	case streamInterruptedMsg:
		// A stop is a deliberate act; the frozen partial answer speaks for
		// itself, no notice.
		m.status.SetStreamState(EngineIdle)
		m.status.StopWaiting()
		m.refreshChat()

	case streamErrorMsg:
		m.status.SetStreamState(EngineIdle)
		m.status.StopWaiting()
		if errors.Is(msg.Err, ErrUnauthorized) {
			m.toastManager.AddToast("Not authorized, use /login to store a token", "error", toastLong)
		} else {
			m.toastManager.AddToast(msg.Err.Error(), "error", toastLong)
		}
		m.refreshChat()

	case showHelpMsg:
		m.modal = NewBaseModal("Help", renderHelpText(m.commandRegistry), 70, 20)

	case remoteSessionsLoadedMsg:
		m.sessionModal = NewSessionSelectionModal(msg.sessions)

	case sessionListErrorMsg:
		m.toastManager.AddToast(fmt.Sprintf("Failed to list sessions: %v", msg.err), "error", toastLong)

	case sessionAdoptedMsg:
		m.sessionModal = nil
		if m.chatState != nil {
			if m.chatState.engine.Busy() {
				m.toastManager.AddToast("Finish or stop the current answer first", "warning", toastShort)
				return m, nil
			}
			m.chatState.NewConversation()
			m.chatState.sessions.Adopt(msg.sessionID)
			m.chat = NewChatComponent(m.chat.Width, m.chat.Height, m.theme)
			m.sessionActive = true
			m.status.SetSessionID(msg.sessionID)
			m.refreshChat()
			m.toastManager.AddToast(fmt.Sprintf("Continuing session %s", shortID(msg.sessionID)), "success", toastShort)
		}

	case modalCancelledMsg:
		m.sessionModal = nil
		m.loginModal = nil
		m.toastManager.AddToast("Cancelled", "info", toastBrief)

	case tokenEnteredMsg:
		m.loginModal = nil
		if err := SaveTokenToKeyring(msg.token, time.Time{}); err != nil {
			m.toastManager.AddToast(fmt.Sprintf("Failed to store token: %v", err), "error", toastLong)
		} else {
			m.toastManager.AddToast("Token stored", "success", toastShort)
		}

	case exportDoneMsg:
		if msg.err != nil {
			m.toastManager.AddToast(fmt.Sprintf("Export failed: %v", msg.err), "error", toastLong)
		} else {
			m.toastManager.AddToast(fmt.Sprintf("Exported to %s", msg.path), "success", toastLong)
		}
	}

	m.chat, _ = m.chat.Update(msg)

	return m, nil
}

// updateCommandCompletions filters commands based on current input
func (m *TUIModel) updateCommandCompletions() {
	inputValue := m.prompt.Value()

	if !strings.HasPrefix(inputValue, "/") {
		m.completions.SetOptions([]string{})
		return
	}

	searchQuery := strings.ToLower(inputValue[1:])

	var filteredCommands []string
	for _, name := range m.commandRegistry.order {
		if strings.HasPrefix(strings.ToLower(name[1:]), searchQuery) { // name already includes "/"
			filteredCommands = append(filteredCommands, name)
		}
	}

	m.completions.SetOptions(filteredCommands)
}

// updateComponentDimensions updates the dimensions of all components based on the window size
func (m *TUIModel) updateComponentDimensions() {
	// Layout: status bar 1 line at the bottom, prompt above it, chat on top
	statusHeight := 1
	promptHeight := 2
	width := m.width - 2
	chatHeight := m.height - statusHeight - promptHeight - 4

	m.status.SetWidth(width + 1)

	m.chat.SetWidth(width)
	m.chat.SetHeight(chatHeight)

	m.prompt.SetWidth(width)
	m.prompt.SetHeight(promptHeight)
}

// View implements bubbletea.Model
func (m TUIModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var mainContent string
	if !m.sessionActive {
		mainContent = renderHomeView(m.width, m.height-6) // Account for prompt and status
	} else {
		mainContent = m.chat.View()
	}

	view := lipgloss.JoinVertical(
		lipgloss.Left,
		mainContent,
		m.prompt.View(),
		m.status.View(),
	)

	// Add completion dialog if visible
	if m.showCompletionDialog {
		dialog := m.completions.View()
		if dialog != "" {
			view = lipgloss.JoinVertical(lipgloss.Left, view, dialog)
		}
	}

	if m.modal != nil {
		modalView := m.modal.Render()
		view = lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modalView)
	}

	if m.sessionModal != nil {
		modalView := m.sessionModal.Render()
		view = lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modalView)
	}

	if m.loginModal != nil {
		modalView := m.loginModal.Render()
		view = lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modalView)
	}

	// Add toast notifications
	toastView := m.toastManager.View()
	if toastView != "" {
		view = lipgloss.JoinVertical(lipgloss.Left, view, toastView)
	}

	return view
}
