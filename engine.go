package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// EngineState is the chat engine's lifecycle phase.
type EngineState int

const (
	EngineIdle EngineState = iota
	EngineSending
	EngineStreaming
)

func (s EngineState) String() string {
	switch s {
	case EngineSending:
		return "sending"
	case EngineStreaming:
		return "streaming"
	default:
		return "idle"
	}
}

// NotifyFunc delivers engine events into the UI event loop.
type NotifyFunc func(any)

// Messages published through NotifyFunc as the turn progresses.
type (
	// turnBeganMsg signals that the turn is bound to a session and the user
	// message is in the store.
	turnBeganMsg struct{ SessionID string }
	// streamStartMsg signals the first content delta; AssistantID names the
	// message now accumulating the answer.
	streamStartMsg struct{ AssistantID string }
	// streamChunkMsg carries one content delta already appended to the store.
	streamChunkMsg struct{ Text string }
	// toolCallMsg signals a tool event was recorded on the tracker.
	toolCallMsg struct{ Event ToolEvent }
	// streamCompleteMsg signals normal end of the answer.
	streamCompleteMsg struct{ AssistantID string }
	// streamInterruptedMsg signals a user stop or timeout; partial content
	// stays frozen in the log, no notice is raised.
	streamInterruptedMsg struct{ PartialContent string }
	// streamErrorMsg signals a failed turn the UI should surface.
	// RolledBack reports whether the optimistic user message was removed.
	streamErrorMsg struct {
		Err        error
		RolledBack bool
	}
)

// ErrTurnInFlight rejects a send while a previous turn is still running.
var ErrTurnInFlight = errors.New("a message is already being processed")

// Streamer is the slice of the backend API the engine needs.
type Streamer interface {
	StreamMessage(ctx context.Context, sessionID, message string, deepSearch bool) (io.ReadCloser, error)
}

// ChatEngine runs one conversation: it owns the turn state machine, writes
// the message store, and feeds the tool tracker. Each accepted turn runs in
// its own goroutine and reports through the notify func; the engine is back
// to idle by the time a terminal message is delivered.
type ChatEngine struct {
	api      Streamer
	sessions *SessionManager
	store    *MessageStore
	tools    *ToolEventTracker
	notify   NotifyFunc

	turnTimeout time.Duration
	deepSearch  bool

	mu     sync.Mutex
	state  EngineState
	cancel context.CancelFunc
}

// NewChatEngine wires an engine over its collaborators. A zero turnTimeout
// means no deadline.
func NewChatEngine(api Streamer, sessions *SessionManager, store *MessageStore, tools *ToolEventTracker, notify NotifyFunc, turnTimeout time.Duration) *ChatEngine {
	if notify == nil {
		notify = func(any) {}
	}
	return &ChatEngine{
		api:         api,
		sessions:    sessions,
		store:       store,
		tools:       tools,
		notify:      notify,
		turnTimeout: turnTimeout,
	}
}

// State returns the current phase.
func (e *ChatEngine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Busy reports whether a turn is in flight.
func (e *ChatEngine) Busy() bool {
	return e.State() != EngineIdle
}

// SetDeepSearch toggles the deep-search flag sent with subsequent turns.
func (e *ChatEngine) SetDeepSearch(v bool) {
	e.mu.Lock()
	e.deepSearch = v
	e.mu.Unlock()
}

// DeepSearch returns the current deep-search flag.
func (e *ChatEngine) DeepSearch() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deepSearch
}

// Append submits one user turn. It rejects blank input and overlapping turns
// synchronously with no store mutation; an accepted turn proceeds in the
// background and finishes with exactly one terminal notify message.
func (e *ChatEngine) Append(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("message is empty")
	}

	e.mu.Lock()
	if e.state != EngineIdle {
		e.mu.Unlock()
		return ErrTurnInFlight
	}
	var ctx context.Context
	var cancel context.CancelFunc
	if e.turnTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), e.turnTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	e.state = EngineSending
	e.cancel = cancel
	deep := e.deepSearch
	e.mu.Unlock()

	go e.runTurn(ctx, cancel, text, deep)
	return nil
}

// Stop aborts the in-flight turn. The cancellation reaches the transport, so
// a blocked stream read unblocks promptly. Partial content stays; no error is
// surfaced. Stopping an idle engine is a no-op.
func (e *ChatEngine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (e *ChatEngine) setState(s EngineState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// finish returns the engine to idle and then delivers the terminal message,
// so an observer reacting to it can submit the next turn immediately.
func (e *ChatEngine) finish(msg any) {
	e.mu.Lock()
	e.state = EngineIdle
	e.cancel = nil
	e.mu.Unlock()
	e.notify(msg)
}

// runTurn is the whole lifecycle of one accepted turn.
func (e *ChatEngine) runTurn(ctx context.Context, cancel context.CancelFunc, text string, deepSearch bool) {
	defer cancel()

	e.tools.Reset()

	sessionID, err := e.sessions.Ensure(ctx)
	if err != nil {
		slog.Error("engine.session_failed", "error", err)
		e.finish(streamErrorMsg{Err: err})
		return
	}

	userMsg := e.store.AppendUser(text)
	e.notify(turnBeganMsg{SessionID: sessionID})

	body, err := e.api.StreamMessage(ctx, sessionID, text, deepSearch)
	if err != nil {
		e.store.Remove(userMsg.ID)
		if ctx.Err() != nil {
			e.finish(streamInterruptedMsg{})
			return
		}
		slog.Error("engine.request_failed", "error", err)
		e.finish(streamErrorMsg{Err: err, RolledBack: true})
		return
	}

	e.setState(EngineStreaming)
	final := e.consumeStream(ctx, body, userMsg.ID)
	body.Close()
	e.finish(final)
}

// consumeStream reads the answer body to completion, cancellation or error,
// applying frames to the store and tracker as they decode. It returns the
// terminal message for the turn; the caller delivers it after going idle.
func (e *ChatEngine) consumeStream(ctx context.Context, body io.Reader, userMsgID string) any {
	decoder := NewFrameDecoder()
	assistantID := ""
	buf := make([]byte, 4096)

	apply := func(frames []Frame) bool {
		for _, f := range frames {
			switch f.Kind {
			case FrameContentDelta:
				if f.Text == "" {
					continue
				}
				if assistantID == "" {
					msg := e.store.BeginAssistant()
					assistantID = msg.ID
					e.notify(streamStartMsg{AssistantID: assistantID})
				}
				e.store.AppendDelta(assistantID, f.Text)
				e.notify(streamChunkMsg{Text: f.Text})
			case FrameToolCall:
				e.tools.Observe(f)
				if ev := e.tools.Latest(); ev != nil {
					e.notify(toolCallMsg{Event: *ev})
				}
			case FrameSources:
				if assistantID != "" {
					e.store.AddSources(assistantID, f.Sources)
				}
			case FrameEnd:
				return true
			}
		}
		return false
	}

	finishPartial := func() string {
		if assistantID == "" {
			return ""
		}
		e.store.Freeze(assistantID)
		msg, _ := e.store.Get(assistantID)
		return msg.Content
	}

	for {
		if ctx.Err() != nil {
			return streamInterruptedMsg{PartialContent: finishPartial()}
		}

		n, err := body.Read(buf)
		if n > 0 {
			if done := apply(decoder.Feed(buf[:n])); done {
				break
			}
		}
		if err == io.EOF {
			apply(decoder.Flush())
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return streamInterruptedMsg{PartialContent: finishPartial()}
			}
			slog.Error("engine.stream_failed", "error", err)
			if assistantID != "" {
				finishPartial()
				return streamErrorMsg{Err: fmt.Errorf("answer stream failed: %w", err)}
			}
			e.store.Remove(userMsgID)
			return streamErrorMsg{Err: fmt.Errorf("answer stream failed: %w", err), RolledBack: true}
		}
	}

	if assistantID == "" {
		// A stream that ends without any content is treated as a failed
		// turn, the user can resend.
		e.store.Remove(userMsgID)
		return streamErrorMsg{Err: errors.New("the assistant returned no answer"), RolledBack: true}
	}
	e.store.Freeze(assistantID)
	return streamCompleteMsg{AssistantID: assistantID}
}
