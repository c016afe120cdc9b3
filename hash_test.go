package cmap

import (
	"hash/maphash"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakeDefaultHashFunc(t *testing.T) {
	h := MakeDefaultHashFunc[string]()

	require.Equal(t, h("foo"), h("foo"), "must be deterministic for equal keys")
	require.NotEqual(t, h("foo"), h("bar"))
}

func TestStringAndBytesHasher(t *testing.T) {
	require.Equal(t, StringHasher("foo"), StringHasher("foo"))
	require.Equal(t, StringHasher("foo"), BytesHasher([]byte("foo")))
}

func TestHashSplitFingerprintRange(t *testing.T) {
	seed := maphash.MakeSeed()

	for i := range 1000 {
		h := maphash.Comparable(seed, i)
		_, f := HashSplit(h)
		require.LessOrEqual(t, f, uint8(0x7F), "fingerprint must fit in 7 bits")
	}
}

func TestHashSplitDeterministic(t *testing.T) {
	h1a, f1a := HashSplit(0xABCD1234567890EF)
	h1b, f1b := HashSplit(0xABCD1234567890EF)

	require.Equal(t, h1a, h1b)
	require.Equal(t, f1a, f1b)
}

func TestScatterChangesSmallIntegerPeriodicity(t *testing.T) {
	// Sequential small integers, run through a weak identity-like hash,
	// would otherwise land on a short periodic cycle of buckets; scatter
	// exists to break that up.
	seen := make(map[uint64]struct{})
	for i := range uint64(64) {
		seen[scatter(i)] = struct{}{}
	}
	require.Len(t, seen, 64, "scatter must not collapse distinct small integers")
}
