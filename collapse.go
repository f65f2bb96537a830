package main

// pendingToolID is the synthetic collapsible id for the transient
// "tool working" indicator shown before any assistant content arrives.
// It is not a message id and never appears in the message log.
const pendingToolID = "pending-tool-call"

// CollapseStore tracks expand/collapse presentation state for chat entries.
// Entries have a default derived from their position relative to the latest
// user message; an explicit toggle overrides the default for the lifetime of
// the chat instance, surviving stream updates and later appends.
type CollapseStore struct {
	overrides map[string]bool
}

// NewCollapseStore creates a store with no overrides.
func NewCollapseStore() *CollapseStore {
	return &CollapseStore{overrides: make(map[string]bool)}
}

// defaultOpen is the positional rule: entries from the latest user message
// onward are open, older ones are collapsed. The pending-tool indicator is
// always open by default. With no user message yet everything is open.
func defaultOpen(id string, index, lastUserIdx int) bool {
	if id == pendingToolID {
		return true
	}
	if lastUserIdx < 0 {
		return true
	}
	return index >= lastUserIdx
}

// IsOpen reports whether the entry at index with the given id should render
// expanded, given the index of the most recent user message (-1 for none).
func (c *CollapseStore) IsOpen(id string, index, lastUserIdx int) bool {
	if v, ok := c.overrides[id]; ok {
		return v
	}
	return defaultOpen(id, index, lastUserIdx)
}

// Toggle flips the entry's current effective state and records the result as
// an override.
func (c *CollapseStore) Toggle(id string, index, lastUserIdx int) {
	c.overrides[id] = !c.IsOpen(id, index, lastUserIdx)
}

// SetOpen records an explicit state for the entry.
func (c *CollapseStore) SetOpen(id string, open bool) {
	c.overrides[id] = open
}

// Overridden reports whether the entry has an explicit override.
func (c *CollapseStore) Overridden(id string) bool {
	_, ok := c.overrides[id]
	return ok
}

// Clear drops all overrides. Used when the conversation is replaced
// wholesale, not when individual messages are removed.
func (c *CollapseStore) Clear() {
	c.overrides = make(map[string]bool)
}
