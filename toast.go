package main

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Standard toast lifetimes.
const (
	toastBrief = 2 * time.Second
	toastShort = 3 * time.Second
	toastLong  = 5 * time.Second
)

// Toast is one transient notice with a level and a lifetime.
type Toast struct {
	Message string
	Level   string // info, success, warning, error
	Created time.Time
	Timeout time.Duration
}

// ToastManager holds the active notices. Expired ones drop out on Update;
// View shows the most recent one.
type ToastManager struct {
	Toasts []Toast

	base   lipgloss.Style
	levels map[string]lipgloss.Color
}

func NewToastManager() ToastManager {
	return ToastManager{
		base: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#11051E")).
			Padding(0, 1).
			MaxWidth(60),
		levels: map[string]lipgloss.Color{
			"info":    lipgloss.Color("#01FAFA"),
			"success": lipgloss.Color("76"),
			"warning": lipgloss.Color("#F4DB53"),
			"error":   lipgloss.Color("#F54545"),
		},
	}
}

// AddToast queues a notice.
func (tm *ToastManager) AddToast(message, level string, timeout time.Duration) {
	tm.Toasts = append(tm.Toasts, Toast{
		Message: message,
		Level:   level,
		Created: time.Now(),
		Timeout: timeout,
	})
}

// Update drops expired notices.
func (tm ToastManager) Update() ToastManager {
	now := time.Now()
	var active []Toast
	for _, t := range tm.Toasts {
		if now.Sub(t.Created) < t.Timeout {
			active = append(active, t)
		}
	}
	tm.Toasts = active
	return tm
}

// View renders the newest notice, colored by level.
func (tm ToastManager) View() string {
	if len(tm.Toasts) == 0 {
		return ""
	}
	t := tm.Toasts[len(tm.Toasts)-1]
	style := tm.base
	if bg, ok := tm.levels[t.Level]; ok {
		style = style.Background(bg)
	}
	return style.Render(t.Message)
}
