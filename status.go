package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// StatusComponent is the one-line status bar: session binding on the left,
// stream state in the middle, chat flags on the right.
type StatusComponent struct {
	SessionID  string
	DeepSearch bool
	Connected  bool
	Width      int
	Style      lipgloss.Style

	streamState EngineState

	// Waiting indicator
	waitingForResponse bool
	waitingSince       time.Time
}

// NewStatusComponent creates a new status component
func NewStatusComponent(width int) StatusComponent {
	return StatusComponent{
		Width: width,
		Style: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#01FAFA")).
			Padding(0),
	}
}

// SetSessionID sets the bound backend session, empty for none.
func (s *StatusComponent) SetSessionID(id string) {
	s.SessionID = id
	s.Connected = id != ""
}

// SetDeepSearch sets the deep-search flag shown on the right.
func (s *StatusComponent) SetDeepSearch(v bool) {
	s.DeepSearch = v
}

// SetStreamState updates the displayed engine phase.
func (s *StatusComponent) SetStreamState(state EngineState) {
	s.streamState = state
}

// StartWaiting marks the status component as waiting for an answer
func (s *StatusComponent) StartWaiting() {
	s.waitingForResponse = true
	s.waitingSince = time.Now()
}

// StopWaiting clears the waiting indicator
func (s *StatusComponent) StopWaiting() {
	s.waitingForResponse = false
}

// SetWidth updates the width of the status component
func (s *StatusComponent) SetWidth(width int) {
	s.Width = width
}

// View renders the status component
func (s StatusComponent) View() string {
	leftSection := s.renderLeftSection()
	middleSection := s.renderMiddleSection()
	rightSection := s.renderRightSection()

	leftWidth := lipgloss.Width(leftSection)
	rightWidth := lipgloss.Width(rightSection)
	middleWidth := lipgloss.Width(middleSection)

	totalContentWidth := leftWidth + middleWidth + rightWidth
	availableSpace := s.Width - 2

	if totalContentWidth > availableSpace {
		if leftWidth+rightWidth > availableSpace {
			maxRightWidth := availableSpace - leftWidth - 3
			if maxRightWidth > 0 {
				rightSection = truncateWithEllipsis(rightSection, maxRightWidth)
			} else {
				rightSection = ""
			}
		}
		middleSection = ""
	}

	leftWidth = lipgloss.Width(leftSection)
	rightWidth = lipgloss.Width(rightSection)
	middleWidth = lipgloss.Width(middleSection)

	var statusLine string
	if middleSection != "" {
		totalContentWidth = leftWidth + middleWidth + rightWidth
		if totalContentWidth < availableSpace {
			leftSpacing := (availableSpace - totalContentWidth) / 2
			rightSpacing := availableSpace - totalContentWidth - leftSpacing
			statusLine = leftSection + strings.Repeat(" ", leftSpacing) + middleSection + strings.Repeat(" ", rightSpacing) + rightSection
		} else {
			statusLine = leftSection + " " + middleSection + " " + rightSection
		}
	} else {
		spacing := availableSpace - leftWidth - rightWidth
		if spacing < 0 {
			spacing = 0
		}
		statusLine = leftSection + strings.Repeat(" ", spacing) + rightSection
	}

	return s.Style.Render(statusLine)
}

// renderLeftSection shows the session binding.
func (s StatusComponent) renderLeftSection() string {
	if s.SessionID == "" {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("#F4DB53"))
		return "○ " + style.Render("no session")
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	return "● " + style.Render(shortID(s.SessionID))
}

// renderMiddleSection shows the stream state and the waiting timer.
func (s StatusComponent) renderMiddleSection() string {
	var statusStr string
	switch s.streamState {
	case EngineSending:
		statusStr = "sending"
	case EngineStreaming:
		statusStr = "streaming"
	default:
		return ""
	}

	if s.waitingForResponse && !s.waitingSince.IsZero() {
		waitSeconds := int(time.Since(s.waitingSince).Seconds())
		if waitSeconds >= 3 {
			statusStr += fmt.Sprintf("  ⏳ %ds", waitSeconds)
		}
	}

	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#01FAFA"))
	return statusStyle.Render(statusStr + " (esc to stop)")
}

// renderRightSection shows the chat flags.
func (s StatusComponent) renderRightSection() string {
	parts := []string{"artha"}
	if s.DeepSearch {
		parts = append([]string{"🔍 deep search"}, parts...)
	}
	providerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#01FAFA"))
	return providerStyle.Render(strings.Join(parts, " • "))
}

// truncateWithEllipsis truncates a string to fit within maxWidth
func truncateWithEllipsis(str string, maxWidth int) string {
	if lipgloss.Width(str) <= maxWidth {
		return str
	}

	if maxWidth <= 3 {
		return "..."
	}

	left, right := 0, len(str)
	for left < right {
		mid := (left + right + 1) / 2
		candidate := str[:mid] + "..."
		if lipgloss.Width(candidate) <= maxWidth {
			left = mid
		} else {
			right = mid - 1
		}
	}

	if left == 0 {
		return "..."
	}

	return str[:left] + "..."
}
