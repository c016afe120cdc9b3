package cmap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMigrateStepWaitsForAllClaimedChunks runs migrateStep on the same
// table from two goroutines at once, so the chunks of the walk may be
// claimed by either of them, then asserts that the visible table is the
// successor and that every key survived the migration — i.e. the
// table-pointer swap only happens after every claimed chunk was forwarded.
func TestMigrateStepWaitsForAllClaimedChunks(t *testing.T) {
	m, err := New[int, int](16)
	require.NoError(t, err)

	tbl := m.table.Load()
	for i := 0; i < 40; i++ {
		require.True(t, m.Emplace(i, i))
	}
	tbl = m.table.Load()

	release := make(chan struct{})
	var slowDone sync.WaitGroup
	slowDone.Add(1)

	go func() {
		defer slowDone.Done()
		<-release
		m.migrateStep(tbl, 0)
	}()

	// Start the other goroutine and migrate from this one concurrently.
	close(release)
	m.migrateStep(tbl, 0)
	slowDone.Wait()

	next := tbl.successor.Load()
	require.NotNil(t, next)
	require.Equal(t, next, m.table.Load(), "swap must only happen after every claimed chunk completed")

	for i := 0; i < 40; i++ {
		v, ok := m.Get(i)
		require.True(t, ok, "key %d must survive migration", i)
		require.Equal(t, i, v)
	}
	require.Equal(t, 40, m.Count())
}
