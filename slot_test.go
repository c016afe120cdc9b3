package cmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOccupiedStateRoundTrip(t *testing.T) {
	for f := range uint8(128) {
		state := occupiedState(f)
		got, ok := isOccupied(state)
		require.True(t, ok)
		require.Equal(t, f, got)
	}
}

func TestSentinelStatesAreNeverOccupied(t *testing.T) {
	for _, s := range []int32{stateEmpty, stateTombstone, stateInProgress, stateResizing} {
		_, ok := isOccupied(s)
		require.False(t, ok)
	}
}

func TestCslotStoredEmptyIsNotOccupied(t *testing.T) {
	var s cslot[int, string]
	s.state.Store(stateEmpty)

	_, ok := isOccupied(s.state.Load())
	require.False(t, ok)
}
