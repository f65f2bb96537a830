package main

import (
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// PromptComponent is the user input text area with prompt-history recall.
type PromptComponent struct {
	TextArea    textarea.Model
	Placeholder string
	Height      int
	Width       int
	Style       lipgloss.Style

	// history recall state; historyIdx == len(history) means "live" input
	history    []string
	historyIdx int
	draft      string
}

// NewPromptComponent creates a new prompt component
func NewPromptComponent(width, height int) PromptComponent {
	ta := textarea.New()
	ta.Placeholder = "Ask about your money..."
	ta.ShowLineNumbers = false
	ta.Focus()

	ta.SetWidth(width - 2) // Account for borders
	ta.SetHeight(height)

	return PromptComponent{
		TextArea: ta,
		Height:   height,
		Width:    width,
		Style: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#F952F9")).
			Width(width).
			Height(height),
	}
}

// SetWidth updates the width of the prompt component
func (p *PromptComponent) SetWidth(width int) {
	p.Width = width
	p.Style = p.Style.Width(width)
	p.TextArea.SetWidth(width - 2)
}

// SetHeight updates the height of the prompt component
func (p *PromptComponent) SetHeight(height int) {
	p.Height = height
	p.Style = p.Style.Height(height)
	p.TextArea.SetHeight(height)
}

// SetValue sets the text value of the prompt
func (p *PromptComponent) SetValue(value string) {
	p.TextArea.SetValue(value)
}

// Value returns the current text value
func (p PromptComponent) Value() string {
	return p.TextArea.Value()
}

// Focus gives focus to the prompt
func (p *PromptComponent) Focus() {
	p.TextArea.Focus()
}

// Blur removes focus from the prompt
func (p *PromptComponent) Blur() {
	p.TextArea.Blur()
}

// SetHistory loads past prompts for up/down recall, oldest first.
func (p *PromptComponent) SetHistory(prompts []string) {
	p.history = prompts
	p.historyIdx = len(prompts)
}

// PushHistory appends a sent prompt and resets the recall cursor.
func (p *PromptComponent) PushHistory(prompt string) {
	if len(p.history) == 0 || p.history[len(p.history)-1] != prompt {
		p.history = append(p.history, prompt)
	}
	p.historyIdx = len(p.history)
	p.draft = ""
}

// HistoryPrev recalls the previous prompt. Returns false when there is
// nothing further back.
func (p *PromptComponent) HistoryPrev() bool {
	if p.historyIdx == 0 || len(p.history) == 0 {
		return false
	}
	if p.historyIdx == len(p.history) {
		p.draft = p.TextArea.Value()
	}
	p.historyIdx--
	p.TextArea.SetValue(p.history[p.historyIdx])
	p.TextArea.CursorEnd()
	return true
}

// HistoryNext moves forward through recalled prompts, restoring the draft at
// the end.
func (p *PromptComponent) HistoryNext() bool {
	if p.historyIdx >= len(p.history) {
		return false
	}
	p.historyIdx++
	if p.historyIdx == len(p.history) {
		p.TextArea.SetValue(p.draft)
	} else {
		p.TextArea.SetValue(p.history[p.historyIdx])
	}
	p.TextArea.CursorEnd()
	return true
}

// Update handles messages for the prompt component
func (p PromptComponent) Update(msg interface{}) (PromptComponent, interface{}) {
	var cmd interface{}
	p.TextArea, cmd = p.TextArea.Update(msg)
	return p, cmd
}

// View renders the prompt component
func (p PromptComponent) View() string {
	return p.Style.Render(wordwrap.String(p.TextArea.View(), p.Width))
}
