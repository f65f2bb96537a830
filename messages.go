package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn entry in the conversation log. User content is fixed at
// creation; assistant content grows by deltas until the owning stream ends and
// the message is frozen.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   []string  `json:"sources,omitempty"`
	Done      bool      `json:"done"`
	Timestamp time.Time `json:"timestamp"`
}

// IsUser reports whether the message was authored by the user.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// FirstLine returns the first line of the content, for collapsed rendering.
func (m Message) FirstLine() string {
	if i := strings.IndexByte(m.Content, '\n'); i >= 0 {
		return m.Content[:i]
	}
	return m.Content
}

// MessageStore is the ordered log of conversation turns for one chat
// instance. The chat engine is the sole writer; the UI reads snapshots.
// Messages are never reordered after insertion.
type MessageStore struct {
	mu       sync.Mutex
	messages []Message
}

// NewMessageStore creates an empty store.
func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

// AppendUser appends a user message and returns it.
func (s *MessageStore) AppendUser(content string) Message {
	msg := Message{
		ID:        uuid.New().String(),
		Role:      RoleUser,
		Content:   strings.TrimSpace(content),
		Done:      true,
		Timestamp: time.Now(),
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg
}

// BeginAssistant appends an empty assistant message that will accumulate
// stream deltas, and returns it.
func (s *MessageStore) BeginAssistant() Message {
	msg := Message{
		ID:        uuid.New().String(),
		Role:      RoleAssistant,
		Timestamp: time.Now(),
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg
}

// AppendDelta appends text to an open assistant message. Deltas against a
// frozen or unknown message are dropped with a diagnostic.
func (s *MessageStore) AppendDelta(id, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID != id {
			continue
		}
		if s.messages[i].Done || s.messages[i].Role != RoleAssistant {
			slog.Warn("store.delta_dropped", "id", id, "done", s.messages[i].Done)
			return
		}
		s.messages[i].Content += text
		return
	}
	slog.Warn("store.delta_dropped", "id", id, "reason", "unknown message")
}

// AddSources appends source references to an open assistant message.
func (s *MessageStore) AddSources(id string, sources []string) {
	if len(sources) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id && !s.messages[i].Done {
			s.messages[i].Sources = append(s.messages[i].Sources, sources...)
			return
		}
	}
}

// Freeze marks a message complete; its content never changes afterwards.
func (s *MessageStore) Freeze(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Done = true
			return
		}
	}
}

// Remove deletes a message by id. Used to roll back an optimistic user
// message when the turn fails before any of it streamed.
func (s *MessageStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return true
		}
	}
	return false
}

// Messages returns a copy of the current log.
func (s *MessageStore) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages in the log.
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Get returns the message with the given id.
func (s *MessageStore) Get(id string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// Last returns the most recent message, if any.
func (s *MessageStore) Last() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// LastUserIndex returns the index of the most recent user message, or -1.
func (s *MessageStore) LastUserIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lastUserIndex(s.messages)
}

// Clear empties the log. Used when starting a fresh conversation.
func (s *MessageStore) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
}

func lastUserIndex(messages []Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].IsUser() {
			return i
		}
	}
	return -1
}
