package main

import "github.com/charmbracelet/lipgloss"

// CompletionDialog is the command picker shown under the prompt while the
// user types a slash command. It windows the option list: Height rows are
// visible at a time and the window follows the selection, keeping a margin
// of rows in view past the cursor.
type CompletionDialog struct {
	Options  []string
	Selected int
	Visible  bool
	Height   int
	Offset   int

	scrollMargin int
	frame        lipgloss.Style
	cursor       lipgloss.Style
}

func NewCompletionDialog() CompletionDialog {
	return CompletionDialog{
		Height:       8,
		scrollMargin: 2,
		frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#F4DB53")).
			Background(lipgloss.Color("#11051E")).
			Foreground(lipgloss.Color("#01FAFA")),
		cursor: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F952F9")).
			Bold(true),
	}
}

// SetOptions replaces the option list, clamping the selection and rewinding
// the window to the top.
func (c *CompletionDialog) SetOptions(options []string) {
	c.Options = options
	if c.Selected >= len(options) {
		c.Selected = len(options) - 1
	}
	if c.Selected < 0 {
		c.Selected = 0
	}
	c.Offset = 0
}

func (c *CompletionDialog) Show() { c.Visible = true }

func (c *CompletionDialog) Hide() { c.Visible = false }

// SelectNext moves the cursor down, scrolling the window once the cursor
// nears its bottom edge.
func (c *CompletionDialog) SelectNext() {
	if c.Selected >= len(c.Options)-1 {
		return
	}
	c.Selected++
	if c.Selected >= c.Offset+c.Height-c.scrollMargin && c.Offset < len(c.Options)-c.Height {
		c.Offset++
	}
}

// SelectPrev moves the cursor up, scrolling the window once the cursor nears
// its top edge.
func (c *CompletionDialog) SelectPrev() {
	if c.Selected == 0 {
		return
	}
	c.Selected--
	if c.Selected < c.Offset+c.scrollMargin && c.Offset > 0 {
		c.Offset--
	}
}

// GetSelected returns the option under the cursor, or "" when there is none.
func (c CompletionDialog) GetSelected() string {
	if c.Selected >= 0 && c.Selected < len(c.Options) {
		return c.Options[c.Selected]
	}
	return ""
}

// View renders the visible window of options, marking overflow below it.
func (c CompletionDialog) View() string {
	if !c.Visible || len(c.Options) == 0 {
		return ""
	}
	end := c.Offset + c.Height
	if end > len(c.Options) {
		end = len(c.Options)
	}
	lines := make([]string, 0, c.Height+1)
	for i := c.Offset; i < end; i++ {
		if i == c.Selected {
			lines = append(lines, c.cursor.Render("▶ "+c.Options[i]))
		} else {
			lines = append(lines, "  "+c.Options[i])
		}
	}
	if end < len(c.Options) {
		lines = append(lines, "  …")
	}
	return c.frame.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
