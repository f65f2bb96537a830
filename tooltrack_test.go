package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToolEventTracker_LatestWins(t *testing.T) {
	tracker := NewToolEventTracker()
	require.Nil(t, tracker.Latest())

	tracker.Observe(Frame{Kind: FrameToolCall, ToolCallID: "c1", ToolName: "portfolio_lookup", State: ToolStateCall})
	tracker.Observe(Frame{Kind: FrameToolCall, ToolCallID: "c2", ToolName: "fund_screener", State: ToolStateCall})

	ev := tracker.Latest()
	require.NotNil(t, ev)
	require.Equal(t, "c2", ev.CallID)
	require.Equal(t, "fund_screener", ev.ToolName)
	require.True(t, ev.Working())
}

func TestToolEventTracker_ResultEndsWorking(t *testing.T) {
	tracker := NewToolEventTracker()
	tracker.Observe(Frame{Kind: FrameToolCall, ToolCallID: "c1", ToolName: "portfolio_lookup", State: ToolStateCall})
	tracker.Observe(Frame{Kind: FrameToolCall, ToolCallID: "c1", ToolName: "portfolio_lookup", State: ToolStateResult})

	ev := tracker.Latest()
	require.NotNil(t, ev)
	require.False(t, ev.Working())
}

func TestToolEventTracker_IgnoresNonToolFrames(t *testing.T) {
	tracker := NewToolEventTracker()
	tracker.Observe(Frame{Kind: FrameContentDelta, Text: "hello"})
	require.Nil(t, tracker.Latest())
}

func TestToolEventTracker_Reset(t *testing.T) {
	tracker := NewToolEventTracker()
	tracker.Observe(Frame{Kind: FrameToolCall, ToolCallID: "c1", ToolName: "x", State: ToolStateCall})
	tracker.Reset()
	require.Nil(t, tracker.Latest())
}

func TestToolEventTracker_LatestReturnsCopy(t *testing.T) {
	tracker := NewToolEventTracker()
	tracker.Observe(Frame{Kind: FrameToolCall, ToolCallID: "c1", ToolName: "x", State: ToolStateCall})

	ev := tracker.Latest()
	ev.ToolName = "mutated"

	require.Equal(t, "x", tracker.Latest().ToolName)
}

func TestParseToolArgs(t *testing.T) {
	// Plain object
	args := parseToolArgs(`{"period":"1M","fund":"NIFTY index"}`)
	require.Equal(t, "1M", args["period"])

	// Object wrapped in a JSON string
	args = parseToolArgs(`"{\"period\":\"3M\"}"`)
	require.Equal(t, "3M", args["period"])

	// Garbage and empty input yield nil without error
	require.Nil(t, parseToolArgs("not json"))
	require.Nil(t, parseToolArgs(""))
}
