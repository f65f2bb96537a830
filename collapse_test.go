package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollapseStore_DefaultRule(t *testing.T) {
	c := NewCollapseStore()

	// Entries before the latest user message collapse, the rest stay open
	require.False(t, c.IsOpen("m0", 0, 2))
	require.False(t, c.IsOpen("m1", 1, 2))
	require.True(t, c.IsOpen("m2", 2, 2))
	require.True(t, c.IsOpen("m3", 3, 2))
}

func TestCollapseStore_AllOpenBeforeFirstQuestion(t *testing.T) {
	c := NewCollapseStore()
	require.True(t, c.IsOpen("m0", 0, -1))
	require.True(t, c.IsOpen("m1", 1, -1))
}

func TestCollapseStore_PendingToolAlwaysOpenByDefault(t *testing.T) {
	c := NewCollapseStore()
	// Even when positioned before the last user message
	require.True(t, c.IsOpen(pendingToolID, 0, 5))
}

func TestCollapseStore_ToggleOverridesDefault(t *testing.T) {
	c := NewCollapseStore()

	c.Toggle("m2", 2, 2) // open by default, now collapsed
	require.False(t, c.IsOpen("m2", 2, 2))
	require.True(t, c.Overridden("m2"))

	c.Toggle("m2", 2, 2)
	require.True(t, c.IsOpen("m2", 2, 2))
}

func TestCollapseStore_OverrideSurvivesNewTurns(t *testing.T) {
	c := NewCollapseStore()

	// Old entry expanded by hand stays expanded as the conversation grows
	c.Toggle("m0", 0, 2)
	require.True(t, c.IsOpen("m0", 0, 2))
	require.True(t, c.IsOpen("m0", 0, 6))

	// And a collapsed recent entry stays collapsed when it ages
	c.Toggle("m2", 2, 2)
	require.False(t, c.IsOpen("m2", 2, 6))
}

func TestCollapseStore_Clear(t *testing.T) {
	c := NewCollapseStore()
	c.SetOpen("m0", true)
	c.Clear()
	require.False(t, c.Overridden("m0"))
	require.False(t, c.IsOpen("m0", 0, 2))
}
