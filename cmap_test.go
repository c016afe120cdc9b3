package cmap

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestCMapEmplaceGetContains(t *testing.T) {
	m, err := New[string, int](16)
	require.NoError(t, err)

	require.True(t, m.Emplace("a", 1))
	require.False(t, m.Emplace("a", 2))

	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.True(t, m.Contains("a"))
	require.False(t, m.Contains("nope"))
}

func TestCMapUpdate(t *testing.T) {
	m, err := New[string, int](16)
	require.NoError(t, err)

	require.False(t, m.Update("a", 1))

	m.Emplace("a", 1)
	require.True(t, m.Update("a", 42))

	v, _ := m.Get("a")
	require.Equal(t, 42, v)
}

func TestCMapRemove(t *testing.T) {
	m, err := New[string, int](16)
	require.NoError(t, err)

	m.Emplace("a", 1)

	v, ok := m.Remove("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.False(t, m.Contains("a"))

	_, ok = m.Remove("a")
	require.False(t, ok)
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	_, err := New[int, int](0)
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = New[int, int](16, WithLoadFactor[int, int](0))
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestCMapClear(t *testing.T) {
	m, err := New[int, int](16)
	require.NoError(t, err)

	for i := range 10 {
		m.Emplace(i, i)
	}
	m.Clear()

	require.Equal(t, 0, m.Count())
}

// TestCMapGrowsPastInitialCapacity exercises the cooperative migration
// path under single-goroutine use: enough inserts to cross threshold
// several times over.
func TestCMapGrowsPastInitialCapacity(t *testing.T) {
	m, err := New[int, int](16)
	require.NoError(t, err)

	const n = 20_000
	for i := range n {
		require.True(t, m.Emplace(i, i*2))
	}

	require.Equal(t, n, m.Count())
	for i := range n {
		v, ok := m.Get(i)
		require.True(t, ok)
		require.Equal(t, i*2, v)
	}
}

// TestCMapConcurrentDisjointInserts has many goroutines each insert a
// disjoint key range concurrently, forcing several cooperative
// migrations while the writers race; every key is read back once all
// writers have finished.
func TestCMapConcurrentDisjointInserts(t *testing.T) {
	m, err := New[int, int](16)
	require.NoError(t, err)

	const goroutines = 32
	const perGoroutine = 2000

	var g errgroup.Group
	for gi := range goroutines {
		gi := gi
		g.Go(func() error {
			for i := range perGoroutine {
				key := gi*perGoroutine + i
				if !m.Emplace(key, key) {
					return fmt.Errorf("unexpected duplicate for key %d", key)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Equal(t, goroutines*perGoroutine, m.Count())

	for gi := range goroutines {
		for i := range perGoroutine {
			key := gi*perGoroutine + i
			v, ok := m.Get(key)
			require.True(t, ok, "key %d", key)
			require.Equal(t, key, v)
		}
	}
}

// TestCMapConcurrentReadersDuringMigration has a writer grow the table
// while a pool of readers continuously look up already-inserted keys; no
// reader should ever see a false negative for a key that was fully
// published before it started reading.
func TestCMapConcurrentReadersDuringMigration(t *testing.T) {
	m, err := New[int, int](16)
	require.NoError(t, err)

	const preloaded = 500
	for i := range preloaded {
		m.Emplace(i, i)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for i := range preloaded {
					v, ok := m.Get(i)
					if !ok || v != i {
						panic("lost a pre-existing key during migration")
					}
				}
			}
		}()
	}

	for i := preloaded; i < preloaded+20_000; i++ {
		m.Emplace(i, i)
	}

	close(stop)
	wg.Wait()
}

// TestCMapConcurrentUpdateAndRemove runs concurrent Updates, then
// concurrent Removes, over keys preloaded into the same table.
func TestCMapConcurrentUpdateAndRemove(t *testing.T) {
	m, err := New[int, int](64)
	require.NoError(t, err)

	const n = 1000
	for i := range n {
		m.Emplace(i, 0)
	}

	var g errgroup.Group
	for i := range n {
		i := i
		g.Go(func() error {
			if !m.Update(i, i) {
				return fmt.Errorf("update missed key %d", i)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for i := range n {
		v, ok := m.Get(i)
		require.True(t, ok)
		require.Equal(t, i, v)
	}

	var g2 errgroup.Group
	for i := 0; i < n; i += 2 {
		i := i
		g2.Go(func() error {
			if _, ok := m.Remove(i); !ok {
				return fmt.Errorf("remove missed key %d", i)
			}
			return nil
		})
	}
	require.NoError(t, g2.Wait())

	for i := range n {
		_, ok := m.Get(i)
		if i%2 == 0 {
			require.False(t, ok)
		} else {
			require.True(t, ok)
		}
	}
}

func TestCMapStatsReportsMigrating(t *testing.T) {
	m, err := New[int, int](16)
	require.NoError(t, err)

	stats := m.Stats()
	require.False(t, stats.Migrating)
	require.Greater(t, stats.EffectiveCapacity, 0)
}
