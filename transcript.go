package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TranscriptMetadata is the index entry for one saved conversation.
type TranscriptMetadata struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastUpdated  time.Time `json:"last_updated"`
	FirstPrompt  string    `json:"first_prompt"`
	MessageCount int       `json:"message_count"`
	DeepSearch   bool      `json:"deep_search"`
}

// TranscriptData is the full saved conversation.
type TranscriptData struct {
	Metadata TranscriptMetadata `json:"metadata"`
	Messages []Message          `json:"messages"`
}

type transcriptIndex struct {
	Transcripts []TranscriptMetadata `json:"transcripts"`
}

// TranscriptStore persists finished conversations as JSON under the app data
// directory. Saves go through a background worker so the UI never blocks on
// disk; Close drains the queue.
type TranscriptStore struct {
	storageDir     string
	maxTranscripts int
	maxAgeDays     int

	saveQueue chan TranscriptData
	done      chan struct{}
}

// NewTranscriptStore creates the store and starts its save worker.
func NewTranscriptStore(maxTranscripts, maxAgeDays int) (*TranscriptStore, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, err
	}
	storageDir := filepath.Join(dir, "transcripts")
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}
	return newTranscriptStoreAt(storageDir, maxTranscripts, maxAgeDays), nil
}

// newTranscriptStoreAt is split out so tests can point the store at a temp dir.
func newTranscriptStoreAt(storageDir string, maxTranscripts, maxAgeDays int) *TranscriptStore {
	s := &TranscriptStore{
		storageDir:     storageDir,
		maxTranscripts: maxTranscripts,
		maxAgeDays:     maxAgeDays,
		saveQueue:      make(chan TranscriptData, 8),
		done:           make(chan struct{}),
	}

	if err := s.CleanupOldTranscripts(); err != nil {
		slog.Warn("transcript.cleanup_failed", "error", err)
	}

	go s.saveWorker()
	return s
}

func (s *TranscriptStore) saveWorker() {
	defer close(s.done)
	for data := range s.saveQueue {
		if err := s.writeTranscript(data); err != nil {
			slog.Error("transcript.save_failed", "id", data.Metadata.ID, "error", err)
		}
	}
}

// Save queues a conversation for persistence. Conversations without a user
// message are skipped.
func (s *TranscriptStore) Save(sessionID string, messages []Message, deepSearch bool) {
	firstPrompt := ""
	for _, m := range messages {
		if m.IsUser() {
			firstPrompt = m.FirstLine()
			break
		}
	}
	if firstPrompt == "" {
		return
	}
	if len(firstPrompt) > 60 {
		firstPrompt = firstPrompt[:57] + "..."
	}

	now := time.Now()
	s.saveQueue <- TranscriptData{
		Metadata: TranscriptMetadata{
			ID:           now.Format("2006-01-02-150405") + "-" + shortID(sessionID),
			SessionID:    sessionID,
			CreatedAt:    messages[0].Timestamp,
			LastUpdated:  now,
			FirstPrompt:  firstPrompt,
			MessageCount: len(messages),
			DeepSearch:   deepSearch,
		},
		Messages: messages,
	}
}

// Close stops accepting saves and waits for queued writes to finish.
func (s *TranscriptStore) Close() {
	close(s.saveQueue)
	<-s.done
}

func (s *TranscriptStore) writeTranscript(data TranscriptData) error {
	path := filepath.Join(s.storageDir, data.Metadata.ID+".json")

	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write transcript file: %w", err)
	}

	return s.updateIndex(data.Metadata)
}

// Load reads one saved conversation by id.
func (s *TranscriptStore) Load(id string) (*TranscriptData, error) {
	data, err := os.ReadFile(filepath.Join(s.storageDir, id+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript file: %w", err)
	}

	var transcript TranscriptData
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return &transcript, nil
}

// List returns saved conversations, most recent first.
func (s *TranscriptStore) List(limit int) ([]TranscriptMetadata, error) {
	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}

	sort.Slice(index.Transcripts, func(i, j int) bool {
		return index.Transcripts[i].LastUpdated.After(index.Transcripts[j].LastUpdated)
	})

	if limit > 0 && len(index.Transcripts) > limit {
		return index.Transcripts[:limit], nil
	}
	return index.Transcripts, nil
}

// CleanupOldTranscripts drops transcripts over the count cap or past the age
// cutoff, removing their files.
func (s *TranscriptStore) CleanupOldTranscripts() error {
	index, err := s.loadIndex()
	if err != nil {
		return err
	}

	sort.Slice(index.Transcripts, func(i, j int) bool {
		return index.Transcripts[i].LastUpdated.After(index.Transcripts[j].LastUpdated)
	})

	var keep []TranscriptMetadata
	cutoff := time.Now().AddDate(0, 0, -s.maxAgeDays)

	for i, t := range index.Transcripts {
		if i < s.maxTranscripts && t.LastUpdated.After(cutoff) {
			keep = append(keep, t)
			continue
		}
		if err := os.Remove(filepath.Join(s.storageDir, t.ID+".json")); err != nil && !os.IsNotExist(err) {
			slog.Warn("transcript.remove_failed", "id", t.ID, "error", err)
		}
	}

	index.Transcripts = keep
	return s.saveIndex(index)
}

func (s *TranscriptStore) loadIndex() (*transcriptIndex, error) {
	indexFile := filepath.Join(s.storageDir, "index.json")

	if _, err := os.Stat(indexFile); os.IsNotExist(err) {
		return &transcriptIndex{Transcripts: []TranscriptMetadata{}}, nil
	}

	data, err := os.ReadFile(indexFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	var index transcriptIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal index: %w", err)
	}
	return &index, nil
}

func (s *TranscriptStore) saveIndex(index *transcriptIndex) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.storageDir, "index.json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}
	return nil
}

func (s *TranscriptStore) updateIndex(metadata TranscriptMetadata) error {
	index, err := s.loadIndex()
	if err != nil {
		return err
	}

	found := false
	for i, t := range index.Transcripts {
		if t.ID == metadata.ID {
			index.Transcripts[i] = metadata
			found = true
			break
		}
	}
	if !found {
		index.Transcripts = append(index.Transcripts, metadata)
	}
	return s.saveIndex(index)
}

func formatRelativeTime(t time.Time) string {
	now := time.Now()

	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return fmt.Sprintf("Today %s", t.Format("15:04"))
	}

	yesterday := now.AddDate(0, 0, -1)
	if t.Year() == yesterday.Year() && t.YearDay() == yesterday.YearDay() {
		return fmt.Sprintf("Yesterday %s", t.Format("15:04"))
	}

	if t.Year() == now.Year() {
		return t.Format("Jan 2, 15:04")
	}

	return t.Format("Jan 2 2006, 15:04")
}

// FormatTranscriptList renders saved conversations for display.
func FormatTranscriptList(transcripts []TranscriptMetadata) string {
	if len(transcripts) == 0 {
		return "No saved conversations found."
	}

	var b strings.Builder
	b.WriteString("Saved conversations:\n\n")

	for i, t := range transcripts {
		b.WriteString(fmt.Sprintf("%2d. [%s] %s\n", i+1, formatRelativeTime(t.LastUpdated), t.FirstPrompt))
		b.WriteString(fmt.Sprintf("    %d messages • session %s", t.MessageCount, shortID(t.SessionID)))
		if t.DeepSearch {
			b.WriteString(" • deep search")
		}
		b.WriteString("\n")
		if i < len(transcripts)-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}
