package cmap

import "iter"

// Iteration views (C7). Both CMap and DenseMap expose Go 1.23
// range-over-func iterators instead of a Range(func) callback, grounded
// on absir-cmap's Range doc comment's own disclaimer carried forward
// here: a snapshot taken while concurrent writers are active observes
// each entry at most once but offers no isolation guarantee across the
// whole walk (an entry inserted or removed mid-iteration may or may not
// be seen). DenseMap's iteration has no such caveat since it is
// single-threaded only.

// Entries returns an iterator over (key, value) pairs currently in m.
// Safe to call concurrently with other CMap operations; the walk reads
// each slot's state atomically and only yields slots observed OCCUPIED.
func (m *CMap[K, V]) Entries() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		tbl := m.table.Load()
		for i := len(tbl.slots) - 1; i >= 0; i-- {
			slot := &tbl.slots[i]
			state := slot.state.Load()
			if _, ok := isOccupied(state); ok {
				if !yield(slot.key, slot.value) {
					return
				}
			}
		}
	}
}

// Keys returns an iterator over m's keys.
func (m *CMap[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range m.Entries() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values returns an iterator over m's values.
func (m *CMap[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range m.Entries() {
			if !yield(v) {
				return
			}
		}
	}
}

// Entries returns an iterator over (key, value) pairs currently in dm.
// Not safe to call concurrently with a mutating DenseMap call on another
// goroutine (spec §5: DenseMap is single-threaded only).
func (dm *DenseMap[K, V]) Entries() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for gi := len(dm.groups) - 1; gi >= 0; gi-- {
			g := &dm.groups[gi]
			for j := range denseGroupSize {
				if g.ctrls[j] < slotEmptyByte {
					if !yield(g.keys[j], g.vals[j]) {
						return
					}
				}
			}
		}
	}
}

// Keys returns an iterator over dm's keys.
func (dm *DenseMap[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range dm.Entries() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values returns an iterator over dm's values.
func (dm *DenseMap[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range dm.Entries() {
			if !yield(v) {
				return
			}
		}
	}
}
