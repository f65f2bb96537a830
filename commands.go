package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Command represents a slash command
type Command struct {
	Name        string
	Description string
	Handler     func(*TUIModel, []string) tea.Cmd
}

// CommandRegistry holds all available commands
type CommandRegistry struct {
	Commands map[string]Command
	order    []string
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() CommandRegistry {
	registry := CommandRegistry{
		Commands: make(map[string]Command),
	}

	// Register built-in commands
	registry.RegisterCommand("/help", "Show help information", handleHelpCommand)
	registry.RegisterCommand("/new", "Start a new conversation", handleNewCommand)
	registry.RegisterCommand("/sessions", "Pick up an earlier conversation", handleSessionsCommand)
	registry.RegisterCommand("/deepsearch", "Toggle deep search for the next questions", handleDeepSearchCommand)
	registry.RegisterCommand("/export", "Export the conversation to markdown", handleExportCommand)
	registry.RegisterCommand("/login", "Store a backend access token", handleLoginCommand)
	registry.RegisterCommand("/quit", "Quit the application", handleQuitCommand)

	return registry
}

// RegisterCommand registers a new command
func (cr *CommandRegistry) RegisterCommand(name, description string, handler func(*TUIModel, []string) tea.Cmd) {
	if _, exists := cr.Commands[name]; !exists {
		cr.order = append(cr.order, name)
	}
	cr.Commands[name] = Command{
		Name:        name,
		Description: description,
		Handler:     handler,
	}
}

// GetCommand gets a command by name
func (cr CommandRegistry) GetCommand(name string) (Command, bool) {
	cmd, exists := cr.Commands[name]
	return cmd, exists
}

// GetAllCommands returns all registered commands
func (cr CommandRegistry) GetAllCommands() []Command {
	var commands []Command
	for _, name := range cr.order {
		if cmd, ok := cr.Commands[name]; ok {
			commands = append(commands, cmd)
		}
	}
	return commands
}

// Command handlers

type showHelpMsg struct{}

type remoteSessionsLoadedMsg struct {
	sessions []RemoteSession
}

type sessionListErrorMsg struct {
	err error
}

type exportDoneMsg struct {
	path string
	err  error
}

func handleHelpCommand(model *TUIModel, args []string) tea.Cmd {
	return func() tea.Msg {
		return showHelpMsg{}
	}
}

func handleNewCommand(model *TUIModel, args []string) tea.Cmd {
	if model.chatState != nil {
		if model.chatState.engine.Busy() {
			model.toastManager.AddToast("Finish or stop the current answer first", "warning", toastShort)
			return nil
		}
		model.chatState.NewConversation()
	}
	model.chat = NewChatComponent(model.chat.Width, model.chat.Height, model.theme)
	model.refreshChat()
	model.toastManager.AddToast("Started a new conversation", "info", toastShort)
	return nil
}

func handleSessionsCommand(model *TUIModel, args []string) tea.Cmd {
	if model.chatState == nil {
		return nil
	}
	api := model.chatState.api
	return func() tea.Msg {
		sessions, err := api.ListSessions(context.Background())
		if err != nil {
			return sessionListErrorMsg{err: err}
		}
		return remoteSessionsLoadedMsg{sessions: sessions}
	}
}

func handleDeepSearchCommand(model *TUIModel, args []string) tea.Cmd {
	if model.chatState == nil {
		return nil
	}
	enabled := !model.chatState.engine.DeepSearch()
	model.chatState.engine.SetDeepSearch(enabled)
	model.status.SetDeepSearch(enabled)

	model.config.Chat.DeepSearch = enabled
	if err := SaveConfig(model.config); err != nil {
		model.toastManager.AddToast(fmt.Sprintf("Failed to save config: %v", err), "error", toastLong)
	}

	if enabled {
		model.toastManager.AddToast("Deep search enabled", "success", toastShort)
	} else {
		model.toastManager.AddToast("Deep search disabled", "info", toastShort)
	}
	return nil
}

func handleExportCommand(model *TUIModel, args []string) tea.Cmd {
	if model.chatState == nil {
		return nil
	}
	messages := model.chatState.store.Messages()
	sessionID := model.chatState.sessions.Current()
	deepSearch := model.chatState.engine.DeepSearch()
	return func() tea.Msg {
		path, err := exportConversation(messages, sessionID, deepSearch)
		return exportDoneMsg{path: path, err: err}
	}
}

func handleLoginCommand(model *TUIModel, args []string) tea.Cmd {
	model.loginModal = NewLoginModal()
	return nil
}

func handleQuitCommand(model *TUIModel, args []string) tea.Cmd {
	return tea.Quit
}
