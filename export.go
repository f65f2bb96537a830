package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// exportConversation writes the conversation to a markdown file and returns
// its path.
func exportConversation(messages []Message, sessionID string, deepSearch bool) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("nothing to export")
	}

	content := generateExportContent(messages, sessionID, deepSearch, time.Now())

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("artha-export-%s.md", timestamp)
	path := filepath.Join(os.TempDir(), filename)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

// generateExportContent renders the markdown body: a metadata header followed
// by the user/assistant exchanges. Tool activity is transient presentation
// state and is not exported.
func generateExportContent(messages []Message, sessionID string, deepSearch bool, now time.Time) string {
	var b strings.Builder

	b.WriteString("# Artha Conversation\n\n")
	b.WriteString(fmt.Sprintf("- **Exported:** %s\n", now.Format(time.RFC1123)))
	if sessionID != "" {
		b.WriteString(fmt.Sprintf("- **Session:** %s\n", sessionID))
	}
	b.WriteString(fmt.Sprintf("- **Messages:** %d\n", len(messages)))
	if deepSearch {
		b.WriteString("- **Deep search:** on\n")
	}
	b.WriteString("\n---\n\n")

	for _, msg := range messages {
		if msg.IsUser() {
			b.WriteString("### User\n\n")
		} else {
			b.WriteString("### Assistant\n\n")
		}
		b.WriteString(msg.Content)
		b.WriteString("\n\n")

		if len(msg.Sources) > 0 {
			b.WriteString("**Sources:**\n\n")
			for _, s := range msg.Sources {
				b.WriteString(fmt.Sprintf("- %s\n", s))
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}
