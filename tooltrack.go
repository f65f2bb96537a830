package main

import (
	"encoding/json"
	"sync"
	"time"
)

// ToolEvent is one observed tool invocation during a turn.
type ToolEvent struct {
	CallID   string
	State    string
	ToolName string
	Args     map[string]any
	At       time.Time
}

// Working reports whether the tool is still running (a call frame with no
// result frame seen yet for it).
func (e ToolEvent) Working() bool {
	return e.State == ToolStateCall
}

// ToolEventTracker keeps only the most recent tool event of the turn in
// flight. It is reset whenever a new turn starts, so an event never leaks
// into the next question's "tool working" window.
type ToolEventTracker struct {
	mu     sync.Mutex
	latest *ToolEvent
}

// NewToolEventTracker creates an empty tracker.
func NewToolEventTracker() *ToolEventTracker {
	return &ToolEventTracker{}
}

// Observe records a tool-call frame, replacing any earlier event.
func (t *ToolEventTracker) Observe(f Frame) {
	if f.Kind != FrameToolCall {
		return
	}
	ev := &ToolEvent{
		CallID:   f.ToolCallID,
		State:    f.State,
		ToolName: f.ToolName,
		Args:     parseToolArgs(f.ArgsJSON),
		At:       time.Now(),
	}
	t.mu.Lock()
	t.latest = ev
	t.mu.Unlock()
}

// Latest returns the most recent event, or nil if none this turn.
func (t *ToolEventTracker) Latest() *ToolEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest == nil {
		return nil
	}
	ev := *t.latest
	return &ev
}

// Reset clears the tracker for a new turn.
func (t *ToolEventTracker) Reset() {
	t.mu.Lock()
	t.latest = nil
	t.mu.Unlock()
}

// parseToolArgs decodes tool arguments. Backends send either a JSON object or
// that object wrapped in a JSON string; both forms decode to the same map.
// Anything else yields nil, the event is still tracked.
func parseToolArgs(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	data := []byte(raw)

	var wrapped string
	if err := json.Unmarshal(data, &wrapped); err == nil {
		data = []byte(wrapped)
	}

	var args map[string]any
	if err := json.Unmarshal(data, &args); err != nil {
		return nil
	}
	return args
}
