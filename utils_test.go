package cmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextPowerOf2(t *testing.T) {
	tests := []struct {
		in   uint64
		want uint64
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{4, 4},
		{5, 8},
		{17, 32},
		{1024, 1024},
		{1025, 2048},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, NextPowerOf2(tt.in), "NextPowerOf2(%d)", tt.in)
	}
}

func TestRoundCapacity(t *testing.T) {
	require.Equal(t, uintptr(16), roundCapacity(1, 16))
	require.Equal(t, uintptr(16), roundCapacity(16, 16))
	require.Equal(t, uintptr(32), roundCapacity(17, 16))
	require.Equal(t, uintptr(4), roundCapacity(1, 4))
	require.Equal(t, uintptr(8), roundCapacity(5, 4))
}

func TestDenseCapacityFromSize(t *testing.T) {
	cap1 := DenseCapacityFromSize[int, int](0)
	require.Equal(t, 0, cap1)

	cap2 := DenseCapacityFromSize[int, int](1 << 20)
	require.Greater(t, cap2, 0)
	require.Equal(t, 0, cap2%denseGroupSize, "capacity must be a whole number of groups")
}
