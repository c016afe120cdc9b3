package cmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCMapEntriesVisitsEveryOccupiedSlot(t *testing.T) {
	m, err := New[int, int](16)
	require.NoError(t, err)

	want := make(map[int]int)
	for i := range 50 {
		m.Emplace(i, i*i)
		want[i] = i * i
	}

	got := make(map[int]int)
	for k, v := range m.Entries() {
		got[k] = v
	}

	require.Equal(t, want, got)
}

func TestCMapKeysAndValues(t *testing.T) {
	m, err := New[int, string](16)
	require.NoError(t, err)

	m.Emplace(1, "a")
	m.Emplace(2, "b")

	keys := map[int]struct{}{}
	for k := range m.Keys() {
		keys[k] = struct{}{}
	}
	require.Equal(t, map[int]struct{}{1: {}, 2: {}}, keys)

	values := map[string]struct{}{}
	for v := range m.Values() {
		values[v] = struct{}{}
	}
	require.Equal(t, map[string]struct{}{"a": {}, "b": {}}, values)
}

func TestCMapEntriesEarlyStop(t *testing.T) {
	m, err := New[int, int](16)
	require.NoError(t, err)

	for i := range 20 {
		m.Emplace(i, i)
	}

	count := 0
	for range m.Entries() {
		count++
		if count == 3 {
			break
		}
	}
	require.Equal(t, 3, count)
}

func TestDenseMapEntriesVisitsEveryOccupiedSlot(t *testing.T) {
	dm, err := NewDense[int, int](16)
	require.NoError(t, err)

	want := make(map[int]int)
	for i := range 50 {
		dm.Emplace(i, i*i)
		want[i] = i * i
	}

	got := make(map[int]int)
	for k, v := range dm.Entries() {
		got[k] = v
	}

	require.Equal(t, want, got)
}
