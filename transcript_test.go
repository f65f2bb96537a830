package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleConversation(t *testing.T) []Message {
	t.Helper()
	store := NewMessageStore()
	store.AppendUser("How did my mutual funds do this quarter?")
	msg := store.BeginAssistant()
	store.AppendDelta(msg.ID, "They returned 6.2% overall.")
	store.Freeze(msg.ID)
	return store.Messages()
}

func TestTranscriptStore_SaveAndLoad(t *testing.T) {
	store := newTranscriptStoreAt(t.TempDir(), 50, 30)
	messages := sampleConversation(t)

	store.Save("sess-abcdef12", messages, true)
	store.Close()

	list, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "How did my mutual funds do this quarter?", list[0].FirstPrompt)
	require.Equal(t, 2, list[0].MessageCount)
	require.True(t, list[0].DeepSearch)

	loaded, err := store.Load(list[0].ID)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 2)
	require.Equal(t, messages[1].Content, loaded.Messages[1].Content)
}

func TestTranscriptStore_SkipsConversationWithoutUserMessage(t *testing.T) {
	dir := t.TempDir()
	store := newTranscriptStoreAt(dir, 50, 30)

	msgStore := NewMessageStore()
	msg := msgStore.BeginAssistant()
	msgStore.AppendDelta(msg.ID, "orphan answer")

	store.Save("sess-1", msgStore.Messages(), false)
	store.Close()

	list, err := store.List(0)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestTranscriptStore_FirstPromptTruncated(t *testing.T) {
	store := newTranscriptStoreAt(t.TempDir(), 50, 30)

	msgStore := NewMessageStore()
	long := "Tell me everything about the expense ratios of every index fund available in India today please"
	msgStore.AppendUser(long)

	store.Save("sess-1", msgStore.Messages(), false)
	store.Close()

	list, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].FirstPrompt, 60)
	require.Contains(t, list[0].FirstPrompt, "...")
}

func TestTranscriptStore_ListNewestFirstWithLimit(t *testing.T) {
	dir := t.TempDir()
	store := newTranscriptStoreAt(dir, 50, 30)

	now := time.Now()
	index := &transcriptIndex{Transcripts: []TranscriptMetadata{
		{ID: "a", LastUpdated: now.Add(-2 * time.Hour), FirstPrompt: "oldest"},
		{ID: "b", LastUpdated: now, FirstPrompt: "newest"},
		{ID: "c", LastUpdated: now.Add(-time.Hour), FirstPrompt: "middle"},
	}}
	require.NoError(t, store.saveIndex(index))

	list, err := store.List(2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "newest", list[0].FirstPrompt)
	require.Equal(t, "middle", list[1].FirstPrompt)
	store.Close()
}

func TestTranscriptStore_CleanupDropsOldAndExcess(t *testing.T) {
	dir := t.TempDir()

	// Seed files and an index with one stale and three fresh entries before
	// the store starts
	now := time.Now()
	seed := []TranscriptMetadata{
		{ID: "fresh-1", LastUpdated: now},
		{ID: "fresh-2", LastUpdated: now.Add(-time.Hour)},
		{ID: "fresh-3", LastUpdated: now.Add(-2 * time.Hour)},
		{ID: "stale", LastUpdated: now.AddDate(0, 0, -45)},
	}
	for _, m := range seed {
		require.NoError(t, os.WriteFile(filepath.Join(dir, m.ID+".json"), []byte("{}"), 0o644))
	}
	pre := &TranscriptStore{storageDir: dir}
	require.NoError(t, pre.saveIndex(&transcriptIndex{Transcripts: seed}))

	// Cap of 2 transcripts and 30 days: cleanup keeps the two freshest
	store := newTranscriptStoreAt(dir, 2, 30)
	store.Close()

	list, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "fresh-1", list[0].ID)
	require.Equal(t, "fresh-2", list[1].ID)

	_, err = os.Stat(filepath.Join(dir, "stale.json"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "fresh-3.json"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "fresh-1.json"))
	require.NoError(t, err)
}

func TestFormatTranscriptList(t *testing.T) {
	require.Equal(t, "No saved conversations found.", FormatTranscriptList(nil))

	out := FormatTranscriptList([]TranscriptMetadata{
		{
			ID:           "x",
			SessionID:    "sess-abcdef1234",
			LastUpdated:  time.Now(),
			FirstPrompt:  "how did gold do?",
			MessageCount: 4,
			DeepSearch:   true,
		},
	})
	require.Contains(t, out, "how did gold do?")
	require.Contains(t, out, "4 messages")
	require.Contains(t, out, "deep search")
	require.Contains(t, out, "sess-abc")
}
