package main

import (
	"log/slog"
)

// Chat bundles the state of one conversation: the message log, the tool
// tracker, collapse state, session binding and the engine driving turns. The
// TUI and the one-shot runner both sit on top of it.
type Chat struct {
	api      *APIClient
	config   *Config
	store    *MessageStore
	tools    *ToolEventTracker
	collapse *CollapseStore
	sessions *SessionManager
	engine   *ChatEngine

	transcripts *TranscriptStore
	history     *HistoryStore
}

// NewChat wires a conversation over the given backend client.
func NewChat(api *APIClient, config *Config, notify NotifyFunc) *Chat {
	store := NewMessageStore()
	tools := NewToolEventTracker()
	sessions := NewSessionManager(api)

	c := &Chat{
		api:      api,
		config:   config,
		store:    store,
		tools:    tools,
		collapse: NewCollapseStore(),
		sessions: sessions,
		engine:   NewChatEngine(api, sessions, store, tools, notify, config.TurnTimeout()),
	}

	if config.Transcript.Enabled {
		transcripts, err := NewTranscriptStore(config.Transcript.MaxTranscripts, config.Transcript.MaxAgeDays)
		if err != nil {
			slog.Error("failed to create transcript store", "error", err)
		} else {
			c.transcripts = transcripts
		}
	}

	if config.History.Enabled {
		history, err := NewHistoryStore(config.History.MaxEntries)
		if err != nil {
			slog.Error("failed to create history store", "error", err)
		} else {
			c.history = history
		}
	}

	return c
}

// NewConversation saves the current transcript, clears the log and forgets
// the session binding so the next turn starts fresh.
func (c *Chat) NewConversation() {
	c.saveTranscript()
	c.store.Clear()
	c.tools.Reset()
	c.collapse.Clear()
	c.sessions.Reset()
}

// RecordPrompt appends a sent prompt to the persisted history.
func (c *Chat) RecordPrompt(prompt string) {
	if c.history == nil {
		return
	}
	if err := c.history.Append(prompt); err != nil {
		slog.Warn("history.append_failed", "error", err)
	}
}

// PromptHistory returns past prompts, oldest first.
func (c *Chat) PromptHistory() []string {
	if c.history == nil {
		return nil
	}
	entries, err := c.history.Load()
	if err != nil {
		slog.Warn("history.load_failed", "error", err)
		return nil
	}
	prompts := make([]string, 0, len(entries))
	for _, e := range entries {
		prompts = append(prompts, e.Prompt)
	}
	return prompts
}

func (c *Chat) saveTranscript() {
	if c.transcripts == nil {
		return
	}
	messages := c.store.Messages()
	if len(messages) == 0 {
		return
	}
	c.transcripts.Save(c.sessions.Current(), messages, c.engine.DeepSearch())
}

// Shutdown persists the current conversation and flushes queued writes.
func (c *Chat) Shutdown() {
	c.engine.Stop()
	c.saveTranscript()
	if c.transcripts != nil {
		c.transcripts.Close()
	}
}
