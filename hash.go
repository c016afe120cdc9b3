package cmap

import (
	"hash/maphash"

	"github.com/cespare/xxhash/v2"
)

// HashFunc maps a key of type K to a 64-bit hash. Implementations must be
// deterministic for equal keys (spec §4.1).
type HashFunc[K comparable] func(K) uint64

// MakeDefaultHashFunc returns the default hasher for an arbitrary comparable
// key type, grounded on homier-stablemap/hash.go. hash/maphash.Comparable is
// the only stdlib (or pack) mechanism that hashes an arbitrary comparable
// type without reflection-based serialization, so it remains the fallback
// for non-byte-like keys; StringHasher/BytesHasher below cover the faster,
// explicitly out-of-scope "byte-span fast-hash utility" path (spec §1) for
// callers who know their key type.
func MakeDefaultHashFunc[K comparable]() HashFunc[K] {
	seed := maphash.MakeSeed()

	return func(k K) uint64 {
		return maphash.Comparable(seed, k)
	}
}

// StringHasher is a HashFunc[string] backed by xxhash, the pack's byte-span
// fast-hash utility of choice (grounded on grafana-tempo's
// github.com/cespare/xxhash/v2 dependency). Spec §1 treats this kind of
// utility as an external black-box collaborator; wiring it in here is how a
// caller opts into it via WithHashFunc.
func StringHasher(s string) uint64 {
	return xxhash.Sum64String(s)
}

// BytesHasher is the []byte counterpart of StringHasher.
func BytesHasher(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// mixHash applies the two-round xor-shift-multiply avalanche mixer spec
// §4.1 recommends ("constants such as 0x7FEB352D, 0x846CA68B are known to
// work"), folded down to 32 bits. Used to derive the fingerprint so that a
// weak caller-supplied hash still avalanches reasonably.
func mixHash(h uint64) uint32 {
	x := uint32(h) ^ uint32(h>>32)
	x ^= x >> 16
	x *= 0x7FEB352D
	x ^= x >> 15
	x *= 0x846CA68B
	x ^= x >> 13
	return x
}

// scatter applies the additional small-integer scatter step spec §4.1
// requires on the concurrent (CMap) path only: "h ^= h>>15; h ^= h>>8;
// h += (h>>3)*phi". This breaks periodicities that small sequential integer
// keys would otherwise produce when probing a power-of-two table.
func scatter(h uint64) uint64 {
	const phi = 0x9E3779B97F4A7C15
	h ^= h >> 15
	h ^= h >> 8
	h += (h >> 3) * phi
	return h
}

// HashSplit derives (home-bucket seed, fingerprint) from a raw hash, the way
// homier-stablemap/hash.go's HashSplit does. h1 is the bucket seed (not yet
// masked against a table's length); h2 is the low 7 bits of the mixed hash,
// reinterpreted as a fingerprint in [0, 128).
func HashSplit(hash uint64) (uintptr, uint8) {
	mixed := mixHash(hash)
	h1 := uintptr(mixed) >> 7
	h2 := uint8(mixed) & 0x7F

	return h1, h2
}
