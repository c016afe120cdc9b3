package cmap

// fingerprint and home-bucket derivation shared by DenseMap (C5) and CMap
// (C6), per spec §4.1: "Home bucket = mix(h) & mask... Fingerprint = low 6
// or 7 bits of the hash."

// denseSplit derives the starting group index and fingerprint for
// DenseMap. DenseMap does not apply the concurrent-path scatter step (spec
// §4.1 scopes that to CMap specifically, to break small-integer
// periodicities that matter more once many goroutines probe the same
// table concurrently).
func denseSplit(hash uint64, groupMask uintptr) (startGroup uintptr, h2 uint8) {
	h1, f := HashSplit(hash)
	return h1 & groupMask, f
}

// cmapSplit derives the starting slot index and fingerprint for CMap,
// applying the additional scatter step spec §4.1 calls for on the
// concurrent path.
func cmapSplit(hash uint64, mask uintptr) (startSlot uintptr, h2 uint8) {
	h1, f := HashSplit(scatter(hash))
	return h1 & mask, f
}
