package cmap

import "sync/atomic"

// table is CMap's backing array (C3): a fixed-capacity, power-of-two-sized
// slice of slots plus the derived constants and atomics spec §3 requires.
// Everything but count/successor/cursor/completed is immutable after
// construction (spec §5: "All other fields of Table... are immutable after
// construction").
type table[K comparable, V any] struct {
	slots []cslot[K, V]

	length    uintptr
	mask      uintptr
	threshold uintptr

	count     atomic.Int64
	successor atomic.Pointer[table[K, V]]

	// cursor coordinates the cooperative migration walk
	// (cmap_migration.go): each helper fetch-adds it to claim a disjoint
	// chunk of slot indices to freeze and forward.
	cursor atomic.Uintptr

	// completed counts slots whose migrateRange call has actually
	// returned, as opposed to merely been claimed via cursor. The table
	// pointer swap in finishMigration waits for completed to reach
	// length so it never fires while another helper's claimed chunk is
	// still mid-flight.
	completed atomic.Uintptr
}

// newTable allocates a fresh table of the given power-of-two length with
// every slot initialized to EMPTY.
func newTable[K comparable, V any](length uintptr, loadFactor float64) *table[K, V] {
	t := &table[K, V]{
		slots:  make([]cslot[K, V], length),
		length: length,
		mask:   length - 1,
	}
	t.threshold = uintptr(float64(length) * loadFactor)

	for i := range t.slots {
		t.slots[i].state.Store(stateEmpty)
	}

	return t
}
