package cmap

import "sync/atomic"

// Slot lifecycle state word (C2), spec §3/§9/Open Question 2.
//
// The whole lifecycle tag + fingerprint pair lives in one atomic.Int32 so
// it can be read/written atomically with a single CAS, exactly as §3
// requires ("Encoding is a single machine word so the state is
// readable/writable atomically"). Negative values are reserved sentinels;
// any value >= 0 means OCCUPIED with that value as the fingerprint
// (0..127). This is the one sentinel convention used throughout this
// repository — Open Question 2 ("pick one reserved sentinel per
// implementation and document it") is resolved here, once.
const (
	stateEmpty      int32 = -1
	stateTombstone  int32 = -2
	stateInProgress int32 = -3
	stateResizing   int32 = -4
)

// occupiedState returns the state word encoding OCCUPIED(f).
func occupiedState(f uint8) int32 {
	return int32(f)
}

// isOccupied reports whether a state word encodes OCCUPIED, and if so its
// fingerprint.
func isOccupied(state int32) (f uint8, ok bool) {
	if state >= 0 {
		return uint8(state), true
	}
	return 0, false
}

// cslot is one slot of a CMap table (C3's per-slot unit). The state word is
// the sole synchronization primitive (spec §5): key/value are plain fields,
// written only by the goroutine that holds the slot in IN_PROGRESS and read
// only after observing OCCUPIED via an acquire load — the publish/consume
// contract of spec §4.4.1.
type cslot[K comparable, V any] struct {
	state atomic.Int32
	key   K
	value V
}
