package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeSessionCreator counts creation calls and can be told to fail.
type fakeSessionCreator struct {
	calls atomic.Int32
	fail  atomic.Bool
	delay time.Duration
}

func (f *fakeSessionCreator) CreateSession(ctx context.Context) (string, error) {
	n := f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail.Load() {
		return "", errors.New("backend down")
	}
	return fmt.Sprintf("sess-%d", n), nil
}

func TestSessionManager_EnsureCreatesOnce(t *testing.T) {
	api := &fakeSessionCreator{}
	m := NewSessionManager(api)

	id1, err := m.Ensure(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sess-1", id1)

	id2, err := m.Ensure(context.Background())
	require.NoError(t, err)
	require.Equal(t, id1, id2)
	require.Equal(t, int32(1), api.calls.Load())
}

func TestSessionManager_ConcurrentEnsureSingleFlight(t *testing.T) {
	api := &fakeSessionCreator{delay: 20 * time.Millisecond}
	m := NewSessionManager(api)

	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := m.Ensure(context.Background())
			require.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), api.calls.Load())
	for _, id := range ids {
		require.Equal(t, ids[0], id)
	}
}

func TestSessionManager_FailureIsRetryable(t *testing.T) {
	api := &fakeSessionCreator{}
	api.fail.Store(true)
	m := NewSessionManager(api)

	_, err := m.Ensure(context.Background())
	require.Error(t, err)
	require.Empty(t, m.Current())

	// Backend recovers, the next Ensure succeeds
	api.fail.Store(false)
	id, err := m.Ensure(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, id)
}

func TestSessionManager_AdoptAndReset(t *testing.T) {
	api := &fakeSessionCreator{}
	m := NewSessionManager(api)

	m.Adopt("remote-42")
	require.Equal(t, "remote-42", m.Current())

	// Ensure keeps the adopted binding, no creation request
	id, err := m.Ensure(context.Background())
	require.NoError(t, err)
	require.Equal(t, "remote-42", id)
	require.Equal(t, int32(0), api.calls.Load())

	m.Reset()
	require.Empty(t, m.Current())

	id, err = m.Ensure(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sess-1", id)
}

func TestFormatSessionList(t *testing.T) {
	require.Equal(t, "No sessions found.", FormatSessionList(nil))

	sessions := []RemoteSession{
		{SessionID: "abcdefgh-1234", CreatedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)},
	}
	out := FormatSessionList(sessions)
	require.Contains(t, out, "abcdefgh")
	require.NotContains(t, out, "abcdefgh-")
}
