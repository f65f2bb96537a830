package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// chatEntry is one renderable row of the conversation: a message or the
// synthetic pending-tool indicator.
type chatEntry struct {
	id    string
	index int
}

// ChatComponent renders the conversation log. Entries respect the collapse
// store; collapsed entries show only their first line. A selection cursor
// picks the entry that ctrl+t toggles.
type ChatComponent struct {
	Viewport     viewport.Model
	Width        int
	Height       int
	Style        lipgloss.Style
	AutoScroll   bool
	UserScrolled bool

	theme    *Theme
	entries  []chatEntry
	selected int
}

// NewChatComponent creates a new chat component
func NewChatComponent(width, height int, theme *Theme) ChatComponent {
	vp := viewport.New(width-2, height-2) // Account for borders
	vp.SetContent("Welcome to Artha! Ask about your money.")

	return ChatComponent{
		Viewport:     vp,
		Width:        width,
		Height:       height,
		AutoScroll:   true,
		UserScrolled: false,
		theme:        theme,
		selected:     -1,
		Style: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.ChatBorder).
			Background(theme.ChatBackground).
			Width(width).
			Height(height),
	}
}

// SetWidth updates the width of the chat component
func (c *ChatComponent) SetWidth(width int) {
	c.Width = width
	c.Style = c.Style.Width(width)
	c.Viewport.Width = width - 2
}

// SetHeight updates the height of the chat component
func (c *ChatComponent) SetHeight(height int) {
	c.Height = height
	c.Style = c.Style.Height(height)
	c.Viewport.Height = height
}

// Render rebuilds the viewport from the current conversation state. The
// pending tool event is rendered as its own entry while showTool holds, so
// the user sees what the assistant is doing before any text arrives.
func (c *ChatComponent) Render(messages []Message, collapse *CollapseStore, pendingTool *ToolEvent, showTool bool) {
	lastUserIdx := lastUserIndex(messages)

	c.entries = c.entries[:0]
	var views []string

	for i, msg := range messages {
		c.entries = append(c.entries, chatEntry{id: msg.ID, index: i})
		open := collapse.IsOpen(msg.ID, i, lastUserIdx)
		views = append(views, c.renderMessage(msg, open, len(c.entries)-1 == c.selected))
	}

	if showTool && pendingTool != nil {
		idx := len(messages)
		c.entries = append(c.entries, chatEntry{id: pendingToolID, index: idx})
		open := collapse.IsOpen(pendingToolID, idx, lastUserIdx)
		views = append(views, c.renderToolIndicator(*pendingTool, open, len(c.entries)-1 == c.selected))
	}

	if c.selected >= len(c.entries) {
		c.selected = len(c.entries) - 1
	}

	if len(views) == 0 {
		c.Viewport.SetContent("Welcome to Artha! Ask about your money.")
		return
	}

	c.Viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, views...))
	if c.AutoScroll && !c.UserScrolled {
		c.Viewport.GotoBottom()
	}
}

func (c *ChatComponent) renderMessage(msg Message, open, selected bool) string {
	var style lipgloss.Style
	prefix := ""
	if msg.IsUser() {
		style = lipgloss.NewStyle().Foreground(c.theme.PromptBorder).Padding(0, 1)
		prefix = "You: "
	} else {
		style = lipgloss.NewStyle().Foreground(c.theme.TextColor).Padding(0, 1)
	}

	marker := "  "
	if selected {
		marker = "▶ "
	}

	if !open {
		line := msg.FirstLine()
		// Truncate on runes so a multibyte character is never split; skip
		// entirely when the component is too narrow to fit an ellipsis.
		if max := c.Width - 10; max > 3 {
			if runes := []rune(line); len(runes) > max {
				line = string(runes[:max-3]) + "..."
			}
		}
		collapsedStyle := lipgloss.NewStyle().Foreground(c.theme.DarkBorder).Padding(0, 1)
		return collapsedStyle.Render(marker + "▸ " + prefix + line)
	}

	body := marker + "▾ " + prefix + msg.Content
	if len(msg.Sources) > 0 {
		body += "\n" + renderSources(msg.Sources)
	}
	return style.Render(wordwrap.String(body, c.Width-4))
}

func (c *ChatComponent) renderToolIndicator(ev ToolEvent, open, selected bool) string {
	style := lipgloss.NewStyle().Foreground(c.theme.Warning).Padding(0, 1)

	marker := "  "
	if selected {
		marker = "▶ "
	}

	verb := "working"
	if !ev.Working() {
		verb = "finished"
	}
	head := fmt.Sprintf("%s⚙ %s %s...", marker, ev.ToolName, verb)
	if !open {
		return style.Render("▸ " + head)
	}
	if len(ev.Args) > 0 {
		head += "\n    " + formatToolArgs(ev.Args)
	}
	return style.Render(wordwrap.String(head, c.Width-4))
}

func renderSources(sources []string) string {
	var b strings.Builder
	b.WriteString("  Sources:")
	for _, s := range sources {
		b.WriteString("\n    • " + s)
	}
	return b.String()
}

func formatToolArgs(args map[string]any) string {
	parts := make([]string, 0, len(args))
	for k, v := range args {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, " ")
}

// SelectPrev moves the selection cursor up one entry.
func (c *ChatComponent) SelectPrev() {
	if len(c.entries) == 0 {
		return
	}
	if c.selected < 0 {
		c.selected = len(c.entries) - 1
		return
	}
	if c.selected > 0 {
		c.selected--
	}
}

// SelectNext moves the selection cursor down one entry.
func (c *ChatComponent) SelectNext() {
	if len(c.entries) == 0 {
		return
	}
	if c.selected < 0 {
		c.selected = len(c.entries) - 1
		return
	}
	if c.selected < len(c.entries)-1 {
		c.selected++
	}
}

// Selected returns the id and index of the entry under the cursor. With no
// explicit selection it targets the last entry.
func (c *ChatComponent) Selected() (string, int, bool) {
	if len(c.entries) == 0 {
		return "", 0, false
	}
	idx := c.selected
	if idx < 0 {
		idx = len(c.entries) - 1
	}
	return c.entries[idx].id, c.entries[idx].index, true
}

// Update handles messages for the chat component
func (c ChatComponent) Update(msg interface{}) (ChatComponent, interface{}) {
	var cmd interface{}
	switch msg := msg.(type) {
	case tea.MouseMsg:
		switch msg.Type {
		case tea.MouseWheelUp:
			c.Viewport.LineUp(1)
			c.UserScrolled = true
		case tea.MouseWheelDown:
			c.Viewport.LineDown(1)
			c.UserScrolled = true
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "pgup":
			c.Viewport.HalfViewUp()
			c.UserScrolled = true
		case "pgdown":
			c.Viewport.HalfViewDown()
			c.UserScrolled = true
		case "home":
			c.Viewport.GotoTop()
			c.UserScrolled = true
		case "end":
			c.Viewport.GotoBottom()
			// Back at the bottom, resume following the stream
			c.UserScrolled = false
			c.AutoScroll = true
		}
	}
	c.Viewport, cmd = c.Viewport.Update(msg)
	return c, cmd
}

// View renders the chat component
func (c ChatComponent) View() string {
	content := lipgloss.JoinVertical(lipgloss.Left, c.Viewport.View())

	c.Style = c.Style.Height(c.Height)
	c.Viewport.Height = c.Height - 3

	return c.Style.Render(content)
}
