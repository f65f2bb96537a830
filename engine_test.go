package main

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeStreamer scripts the backend's answer stream for engine tests.
type fakeStreamer struct {
	open func(ctx context.Context, sessionID, message string, deepSearch bool) (io.ReadCloser, error)
}

func (f *fakeStreamer) StreamMessage(ctx context.Context, sessionID, message string, deepSearch bool) (io.ReadCloser, error) {
	return f.open(ctx, sessionID, message, deepSearch)
}

// scriptedStream serves pre-arranged chunks one Read at a time. A Read past
// the script blocks until the context is cancelled, like a live answer stream
// that has gone quiet.
type scriptedStream struct {
	ctx    context.Context
	chunks chan string
	err    error
}

func newScriptedStream(ctx context.Context, chunks ...string) *scriptedStream {
	ch := make(chan string, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	return &scriptedStream{ctx: ctx, chunks: ch}
}

func (s *scriptedStream) Read(p []byte) (int, error) {
	select {
	case chunk := <-s.chunks:
		return copy(p, chunk), nil
	default:
	}
	if s.err != nil {
		return 0, s.err
	}
	select {
	case chunk := <-s.chunks:
		return copy(p, chunk), nil
	case <-s.ctx.Done():
		return 0, s.ctx.Err()
	}
}

func (s *scriptedStream) Close() error { return nil }

// engineHarness bundles an engine with its collaborators and a notify
// collector.
type engineHarness struct {
	store  *MessageStore
	tools  *ToolEventTracker
	engine *ChatEngine
	msgs   chan any
}

func newEngineHarness(t *testing.T, streamer Streamer) *engineHarness {
	t.Helper()
	h := &engineHarness{
		store: NewMessageStore(),
		tools: NewToolEventTracker(),
		msgs:  make(chan any, 64),
	}
	sessions := NewSessionManager(&fakeSessionCreator{})
	h.engine = NewChatEngine(streamer, sessions, h.store, h.tools, func(m any) {
		h.msgs <- m
	}, 5*time.Second)
	return h
}

// waitForMsg drains notify messages until one satisfies match.
func (h *engineHarness) waitForMsg(t *testing.T, match func(any) bool) any {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case m := <-h.msgs:
			if match(m) {
				return m
			}
		case <-deadline:
			t.Fatal("timed out waiting for engine message")
			return nil
		}
	}
}

func isTerminal(m any) bool {
	switch m.(type) {
	case streamCompleteMsg, streamInterruptedMsg, streamErrorMsg:
		return true
	}
	return false
}

func TestChatEngine_SuccessfulTurn(t *testing.T) {
	streamer := &fakeStreamer{open: func(ctx context.Context, sessionID, message string, deepSearch bool) (io.ReadCloser, error) {
		require.Equal(t, "sess-1", sessionID)
		require.Equal(t, "How did my portfolio do?", message)
		return newScriptedStream(ctx,
			"data: {\"type\":\"content\",\"content\":\"Your portfolio gained \"}\n",
			"data: {\"type\":\"content\",\"content\":\"₹10,000 \"}\n",
			"data: {\"type\":\"content\",\"content\":\"this month.\"}\n",
			"data: {\"type\":\"sources\",\"sources\":[\"AMC statement\"]}\n",
			"data: [DONE]\n",
		), nil
	}}
	h := newEngineHarness(t, streamer)

	require.NoError(t, h.engine.Append("How did my portfolio do?"))
	done := h.waitForMsg(t, isTerminal)
	complete, ok := done.(streamCompleteMsg)
	require.True(t, ok, "expected a completed turn, got %T", done)

	messages := h.store.Messages()
	require.Len(t, messages, 2)
	require.True(t, messages[0].IsUser())
	require.Equal(t, "Your portfolio gained ₹10,000 this month.", messages[1].Content)
	require.Equal(t, []string{"AMC statement"}, messages[1].Sources)
	require.True(t, messages[1].Done)
	require.Equal(t, complete.AssistantID, messages[1].ID)
	require.Equal(t, EngineIdle, h.engine.State())
}

func TestChatEngine_RejectsBlankInput(t *testing.T) {
	h := newEngineHarness(t, &fakeStreamer{})
	require.Error(t, h.engine.Append("   \n  "))
	require.Equal(t, 0, h.store.Len())
	require.Equal(t, EngineIdle, h.engine.State())
}

func TestChatEngine_RejectsOverlappingTurns(t *testing.T) {
	release := make(chan struct{})
	streamer := &fakeStreamer{open: func(ctx context.Context, sessionID, message string, deepSearch bool) (io.ReadCloser, error) {
		<-release
		return newScriptedStream(ctx, "data: [DONE]\n"), nil
	}}
	h := newEngineHarness(t, streamer)

	require.NoError(t, h.engine.Append("first"))
	require.ErrorIs(t, h.engine.Append("second"), ErrTurnInFlight)

	close(release)
	h.waitForMsg(t, isTerminal)

	// Back to idle, a new turn is accepted again
	require.NoError(t, h.engine.Append("third"))
	h.waitForMsg(t, isTerminal)
}

func TestChatEngine_RequestFailureRollsBackUserMessage(t *testing.T) {
	streamer := &fakeStreamer{open: func(ctx context.Context, sessionID, message string, deepSearch bool) (io.ReadCloser, error) {
		return nil, errors.New("connection refused")
	}}
	h := newEngineHarness(t, streamer)

	require.NoError(t, h.engine.Append("hello"))
	m := h.waitForMsg(t, isTerminal)
	errMsg, ok := m.(streamErrorMsg)
	require.True(t, ok)
	require.True(t, errMsg.RolledBack)
	require.Equal(t, 0, h.store.Len())
}

func TestChatEngine_SessionFailureLeavesStoreUntouched(t *testing.T) {
	api := &fakeSessionCreator{}
	api.fail.Store(true)
	h := &engineHarness{
		store: NewMessageStore(),
		tools: NewToolEventTracker(),
		msgs:  make(chan any, 64),
	}
	h.engine = NewChatEngine(&fakeStreamer{}, NewSessionManager(api), h.store, h.tools, func(m any) {
		h.msgs <- m
	}, time.Second)

	require.NoError(t, h.engine.Append("hello"))
	m := h.waitForMsg(t, isTerminal)
	_, ok := m.(streamErrorMsg)
	require.True(t, ok)
	require.Equal(t, 0, h.store.Len())
}

func TestChatEngine_StopFreezesPartialAnswer(t *testing.T) {
	firstDelta := make(chan struct{})
	streamer := &fakeStreamer{open: func(ctx context.Context, sessionID, message string, deepSearch bool) (io.ReadCloser, error) {
		s := newScriptedStream(ctx, "data: {\"type\":\"content\",\"content\":\"The NIFTY 50 rose\"}\n")
		// No further chunks: the next Read blocks until cancellation
		return &notifyingStream{scriptedStream: s, onRead: func() {
			select {
			case firstDelta <- struct{}{}:
			default:
			}
		}}, nil
	}}
	h := newEngineHarness(t, streamer)

	require.NoError(t, h.engine.Append("market today?"))
	<-firstDelta
	h.waitForMsg(t, func(m any) bool {
		_, ok := m.(streamChunkMsg)
		return ok
	})

	h.engine.Stop()
	m := h.waitForMsg(t, isTerminal)
	interrupted, ok := m.(streamInterruptedMsg)
	require.True(t, ok, "expected interruption, got %T", m)
	require.Equal(t, "The NIFTY 50 rose", interrupted.PartialContent)

	messages := h.store.Messages()
	require.Len(t, messages, 2)
	require.True(t, messages[0].IsUser(), "user message stays after a stop")
	require.Equal(t, "The NIFTY 50 rose", messages[1].Content)
	require.True(t, messages[1].Done)
	require.Equal(t, EngineIdle, h.engine.State())
}

// notifyingStream signals each Read so tests can sequence against stream
// progress.
type notifyingStream struct {
	*scriptedStream
	onRead func()
}

func (n *notifyingStream) Read(p []byte) (int, error) {
	n.onRead()
	return n.scriptedStream.Read(p)
}

func TestChatEngine_StreamFailureAfterContentKeepsPartial(t *testing.T) {
	streamer := &fakeStreamer{open: func(ctx context.Context, sessionID, message string, deepSearch bool) (io.ReadCloser, error) {
		s := newScriptedStream(ctx, "data: {\"type\":\"content\",\"content\":\"partial answer\"}\n")
		s.err = errors.New("connection reset")
		return s, nil
	}}
	h := newEngineHarness(t, streamer)

	require.NoError(t, h.engine.Append("question"))
	m := h.waitForMsg(t, isTerminal)
	errMsg, ok := m.(streamErrorMsg)
	require.True(t, ok)
	require.False(t, errMsg.RolledBack)

	messages := h.store.Messages()
	require.Len(t, messages, 2)
	require.Equal(t, "partial answer", messages[1].Content)
	require.True(t, messages[1].Done)
}

func TestChatEngine_StreamFailureBeforeContentRollsBack(t *testing.T) {
	streamer := &fakeStreamer{open: func(ctx context.Context, sessionID, message string, deepSearch bool) (io.ReadCloser, error) {
		s := newScriptedStream(ctx)
		s.err = errors.New("connection reset")
		return s, nil
	}}
	h := newEngineHarness(t, streamer)

	require.NoError(t, h.engine.Append("question"))
	m := h.waitForMsg(t, isTerminal)
	errMsg, ok := m.(streamErrorMsg)
	require.True(t, ok)
	require.True(t, errMsg.RolledBack)
	require.Equal(t, 0, h.store.Len())
}

func TestChatEngine_EmptyStreamRollsBack(t *testing.T) {
	streamer := &fakeStreamer{open: func(ctx context.Context, sessionID, message string, deepSearch bool) (io.ReadCloser, error) {
		return newScriptedStream(ctx, "data: [DONE]\n"), nil
	}}
	h := newEngineHarness(t, streamer)

	require.NoError(t, h.engine.Append("question"))
	m := h.waitForMsg(t, isTerminal)
	errMsg, ok := m.(streamErrorMsg)
	require.True(t, ok)
	require.True(t, errMsg.RolledBack)
	require.Equal(t, 0, h.store.Len())
}

func TestChatEngine_ToolFramesTrackedBeforeContent(t *testing.T) {
	streamer := &fakeStreamer{open: func(ctx context.Context, sessionID, message string, deepSearch bool) (io.ReadCloser, error) {
		return newScriptedStream(ctx,
			"data: {\"type\":\"tool_call\",\"toolCallId\":\"c1\",\"toolName\":\"portfolio_lookup\",\"state\":\"call\",\"args\":{\"period\":\"1M\"}}\n",
			"data: {\"type\":\"tool_call\",\"toolCallId\":\"c1\",\"toolName\":\"portfolio_lookup\",\"state\":\"result\"}\n",
			"data: {\"type\":\"content\",\"content\":\"Done looking.\"}\n",
			"data: [DONE]\n",
		), nil
	}}
	h := newEngineHarness(t, streamer)

	require.NoError(t, h.engine.Append("check my holdings"))

	toolMsg := h.waitForMsg(t, func(m any) bool {
		_, ok := m.(toolCallMsg)
		return ok
	}).(toolCallMsg)
	require.Equal(t, "portfolio_lookup", toolMsg.Event.ToolName)
	require.True(t, toolMsg.Event.Working())
	require.Equal(t, "1M", toolMsg.Event.Args["period"])

	h.waitForMsg(t, isTerminal)

	latest := h.tools.Latest()
	require.NotNil(t, latest)
	require.False(t, latest.Working())
}

func TestChatEngine_ToolTrackerResetsOnNewTurn(t *testing.T) {
	turn := 0
	streamer := &fakeStreamer{open: func(ctx context.Context, sessionID, message string, deepSearch bool) (io.ReadCloser, error) {
		turn++
		if turn == 1 {
			return newScriptedStream(ctx,
				"data: {\"type\":\"tool_call\",\"toolCallId\":\"c1\",\"toolName\":\"fund_screener\",\"state\":\"call\"}\n",
				"data: {\"type\":\"content\",\"content\":\"a\"}\n",
				"data: [DONE]\n",
			), nil
		}
		return newScriptedStream(ctx,
			"data: {\"type\":\"content\",\"content\":\"b\"}\n",
			"data: [DONE]\n",
		), nil
	}}
	h := newEngineHarness(t, streamer)

	require.NoError(t, h.engine.Append("first"))
	h.waitForMsg(t, isTerminal)
	require.NotNil(t, h.tools.Latest())

	require.NoError(t, h.engine.Append("second"))
	h.waitForMsg(t, isTerminal)
	require.Nil(t, h.tools.Latest())
}

func TestChatEngine_StreamWithoutTrailingNewlineStillCompletes(t *testing.T) {
	// EOF right after an unterminated data line: Flush must deliver it
	streamer := &fakeStreamer{open: func(ctx context.Context, sessionID, message string, deepSearch bool) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(
			"data: {\"type\":\"content\",\"content\":\"tail answer\"}")), nil
	}}
	h := newEngineHarness(t, streamer)

	require.NoError(t, h.engine.Append("question"))
	m := h.waitForMsg(t, isTerminal)
	complete, ok := m.(streamCompleteMsg)
	require.True(t, ok, "expected completion, got %T", m)

	got, _ := h.store.Get(complete.AssistantID)
	require.Equal(t, "tail answer", got.Content)
}

func TestChatEngine_IdleWhenTerminalMessageDelivered(t *testing.T) {
	streamer := &fakeStreamer{open: func(ctx context.Context, sessionID, message string, deepSearch bool) (io.ReadCloser, error) {
		return newScriptedStream(ctx,
			"data: {\"type\":\"content\",\"content\":\"ok\"}\n",
			"data: [DONE]\n",
		), nil
	}}

	store := NewMessageStore()
	tools := NewToolEventTracker()
	msgs := make(chan any, 64)
	states := make(chan EngineState, 4)
	resubmit := make(chan error, 1)

	// The engine promises to be idle by the time a terminal message lands,
	// so an observer may submit the next turn from inside the callback.
	var engine *ChatEngine
	var once sync.Once
	engine = NewChatEngine(streamer, NewSessionManager(&fakeSessionCreator{}), store, tools, func(m any) {
		if isTerminal(m) {
			states <- engine.State()
			once.Do(func() { resubmit <- engine.Append("and one more") })
		}
		msgs <- m
	}, 5*time.Second)

	require.NoError(t, engine.Append("question"))

	require.Equal(t, EngineIdle, <-states)
	require.NoError(t, <-resubmit)
	require.Equal(t, EngineIdle, <-states)

	deadline := time.After(3 * time.Second)
	completions := 0
	for completions < 2 {
		select {
		case m := <-msgs:
			if _, ok := m.(streamCompleteMsg); ok {
				completions++
			}
		case <-deadline:
			t.Fatal("timed out waiting for both turns to complete")
		}
	}
	require.Equal(t, 4, store.Len())
}

func TestChatEngine_TurnBeganCarriesSession(t *testing.T) {
	streamer := &fakeStreamer{open: func(ctx context.Context, sessionID, message string, deepSearch bool) (io.ReadCloser, error) {
		return newScriptedStream(ctx, "data: {\"type\":\"content\",\"content\":\"x\"}\ndata: [DONE]\n"), nil
	}}
	h := newEngineHarness(t, streamer)

	require.NoError(t, h.engine.Append("question"))
	began := h.waitForMsg(t, func(m any) bool {
		_, ok := m.(turnBeganMsg)
		return ok
	}).(turnBeganMsg)
	require.Equal(t, "sess-1", began.SessionID)
	h.waitForMsg(t, isTerminal)
}
