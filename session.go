package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// SessionCreator is the slice of the backend API the manager needs.
type SessionCreator interface {
	CreateSession(ctx context.Context) (string, error)
}

// SessionManager binds the chat instance to one server-side session. Ensure
// is idempotent and single-flight: concurrent callers share one creation
// request and all observe the same id or the same error. A failed attempt
// caches nothing, so the next turn retries naturally.
type SessionManager struct {
	api SessionCreator

	mu sync.Mutex
	id string

	group singleflight.Group
}

// NewSessionManager creates a manager with no session bound.
func NewSessionManager(api SessionCreator) *SessionManager {
	return &SessionManager{api: api}
}

// Ensure returns the bound session id, creating one on first use.
func (m *SessionManager) Ensure(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.id != "" {
		id := m.id
		m.mu.Unlock()
		return id, nil
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do("session", func() (any, error) {
		// Re-check under the flight: a concurrent Adopt may have bound one.
		m.mu.Lock()
		if m.id != "" {
			id := m.id
			m.mu.Unlock()
			return id, nil
		}
		m.mu.Unlock()

		id, err := m.api.CreateSession(ctx)
		if err != nil {
			return "", err
		}
		m.mu.Lock()
		m.id = id
		m.mu.Unlock()
		slog.Info("session.created", "id", id)
		return id, nil
	})
	if err != nil {
		return "", fmt.Errorf("acquire session: %w", err)
	}
	return v.(string), nil
}

// Adopt binds the manager to an existing remote session.
func (m *SessionManager) Adopt(id string) {
	m.mu.Lock()
	m.id = id
	m.mu.Unlock()
	slog.Info("session.adopted", "id", id)
}

// Reset forgets the bound session; the next Ensure creates a fresh one.
func (m *SessionManager) Reset() {
	m.mu.Lock()
	m.id = ""
	m.mu.Unlock()
}

// Current returns the bound session id, or "" if none.
func (m *SessionManager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

// FormatSessionList renders the remote listing for display, newest first,
// with ids shortened the way the status bar shortens them.
func FormatSessionList(sessions []RemoteSession) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}
	var b strings.Builder
	for _, s := range sessions {
		fmt.Fprintf(&b, "%s  %s\n", s.CreatedAt.Local().Format(time.DateTime), shortID(s.SessionID))
	}
	return strings.TrimRight(b.String(), "\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
