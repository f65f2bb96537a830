package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
)

// FrameKind identifies the type of a decoded stream frame.
type FrameKind int

const (
	FrameContentDelta FrameKind = iota
	FrameToolCall
	FrameSources
	FrameEnd
)

// Tool call states carried on tool_call frames.
const (
	ToolStateCall   = "call"
	ToolStateResult = "result"
)

// Frame is one decoded unit from the answer stream.
type Frame struct {
	Kind FrameKind

	// Set for FrameContentDelta
	Text string

	// Set for FrameToolCall
	ToolCallID string
	State      string
	ToolName   string
	ArgsJSON   string

	// Set for FrameSources
	Sources []string
}

// frameEnvelope is the JSON payload carried on each data line.
type frameEnvelope struct {
	Type       string          `json:"type"`
	Content    string          `json:"content,omitempty"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	State      string          `json:"state,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	Args       json.RawMessage `json:"args,omitempty"`
	Sources    []string        `json:"sources,omitempty"`
}

const streamDoneMarker = "[DONE]"

// FrameDecoder turns raw stream chunks into frames. Chunk boundaries carry no
// meaning: a data line split across any number of Feed calls decodes the same
// as a single-chunk stream. A frame is only emitted once its newline
// terminator has been seen; Flush drains an unterminated tail at end of input.
type FrameDecoder struct {
	buf  []byte
	done bool
}

// NewFrameDecoder creates a decoder for one response stream.
func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{}
}

// Feed consumes the next chunk and returns the frames completed by it.
func (d *FrameDecoder) Feed(p []byte) []Frame {
	if d.done {
		return nil
	}
	d.buf = append(d.buf, p...)

	var frames []Frame
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := string(d.buf[:i])
		d.buf = d.buf[i+1:]

		frame, ok := d.parseLine(line)
		if !ok {
			continue
		}
		frames = append(frames, frame)
		if frame.Kind == FrameEnd {
			d.done = true
			d.buf = nil
			break
		}
	}
	return frames
}

// Flush decodes whatever remains in the buffer. Call once at end of input; a
// final data line without a trailing newline is still delivered.
func (d *FrameDecoder) Flush() []Frame {
	if d.done || len(d.buf) == 0 {
		d.buf = nil
		return nil
	}
	line := string(d.buf)
	d.buf = nil
	d.done = true

	frame, ok := d.parseLine(line)
	if !ok {
		return nil
	}
	return []Frame{frame}
}

// parseLine decodes a single SSE line. Blank lines, comments and non-data
// fields are skipped silently; malformed data payloads are dropped with a
// diagnostic so one bad frame never kills the rest of the stream.
func (d *FrameDecoder) parseLine(line string) (Frame, bool) {
	line = strings.TrimSuffix(line, "\r")
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, ":") {
		return Frame{}, false
	}

	payload, ok := strings.CutPrefix(trimmed, "data:")
	if !ok {
		// event:/id:/retry: fields carry nothing we consume
		return Frame{}, false
	}
	payload = strings.TrimSpace(payload)

	if payload == streamDoneMarker {
		return Frame{Kind: FrameEnd}, true
	}

	var env frameEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		slog.Warn("stream.frame_dropped", "error", err, "payload", truncateForLog(payload))
		return Frame{}, false
	}

	switch env.Type {
	case "content":
		return Frame{Kind: FrameContentDelta, Text: env.Content}, true
	case "tool_call":
		if env.ToolCallID == "" || env.ToolName == "" {
			slog.Warn("stream.frame_dropped", "reason", "tool_call missing id or name")
			return Frame{}, false
		}
		state := env.State
		if state == "" {
			state = ToolStateCall
		}
		return Frame{
			Kind:       FrameToolCall,
			ToolCallID: env.ToolCallID,
			State:      state,
			ToolName:   env.ToolName,
			ArgsJSON:   string(env.Args),
		}, true
	case "sources":
		return Frame{Kind: FrameSources, Sources: env.Sources}, true
	case "done":
		return Frame{Kind: FrameEnd}, true
	default:
		slog.Warn("stream.frame_dropped", "reason", "unknown frame type", "type", env.Type)
		return Frame{}, false
	}
}

func truncateForLog(s string) string {
	if len(s) > 120 {
		return s[:117] + "..."
	}
	return s
}
