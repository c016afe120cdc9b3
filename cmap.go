package cmap

import (
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
)

// CMap is the lock-free concurrent open-addressed hash map (C6). Multiple
// goroutines may call any method concurrently; migration to a larger
// table happens cooperatively, driven by whichever goroutine first
// notices the table is at threshold (spec §4.4, §5).
type CMap[K comparable, V any] struct {
	table atomic.Pointer[table[K, V]]

	hashFunc HashFunc[K]
	equal    func(a, b K) bool

	loadFactor float64
	logger     *zap.Logger
	metrics    MetricsRecorder
}

// New constructs a CMap with the given initial capacity (rounded up to a
// power of two, floored at 16 — spec §6). Fails with
// ErrInvalidConfiguration if capacity <= 0 or the configured load factor
// is outside (0, 1].
func New[K comparable, V any](capacity int, opts ...Option[K, V]) (*CMap[K, V], error) {
	cfg := newConfig[K, V](0.5, opts)

	if capacity <= 0 {
		logInvalidConfiguration(cfg.logger, "capacity must be positive")
		return nil, ErrInvalidConfiguration
	}
	if cfg.loadFactor <= 0 || cfg.loadFactor > 1 {
		logInvalidConfiguration(cfg.logger, "load factor must be in (0, 1]")
		return nil, ErrInvalidConfiguration
	}

	length := roundCapacity(capacity, 16)

	m := &CMap[K, V]{
		hashFunc:   cfg.hashFunc,
		equal:      cfg.equal,
		loadFactor: cfg.loadFactor,
		logger:     cfg.logger,
		metrics:    cfg.metrics,
	}
	m.table.Store(newTable[K, V](length, cfg.loadFactor))

	return m, nil
}

// Get returns the value stored for key and whether it was present (spec
// §4.4.3). Lock-free: never blocks, never CASes, only assists a
// migration it happens to walk through.
func (m *CMap[K, V]) Get(key K) (V, bool) {
	hash := m.hashFunc(key)

outer:
	for {
		tbl := m.table.Load()
		start, f := cmapSplit(hash, tbl.mask)

		probe := newUnitProbe(start, tbl.mask)
		for !probe.done() {
			slot := &tbl.slots[probe.index()]
			state := slot.state.Load()

			switch {
			case state == stateEmpty:
				var zero V
				return zero, false
			case state == stateResizing:
				m.migrateStep(tbl, probe.index())
				continue outer
			default:
				if sf, ok := isOccupied(state); ok && sf == f && m.equal(slot.key, key) {
					return slot.value, true
				}
			}
			probe.advance()
		}

		var zero V
		return zero, false
	}
}

// Contains reports whether key is present.
func (m *CMap[K, V]) Contains(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Emplace inserts (key, value) if key is absent. Returns false, leaving
// the map unchanged, if key is already present (spec §4.4.2, §6: strict
// insert-if-absent).
func (m *CMap[K, V]) Emplace(key K, value V) bool {
	hash := m.hashFunc(key)

	for {
		tbl := m.table.Load()
		if tbl.count.Load() >= int64(tbl.threshold) {
			m.migrateStep(tbl, 0)
			continue
		}

		result, retry := m.emplaceAttempt(tbl, hash, key, value)
		if !retry {
			return result
		}
	}
}

// emplaceAttempt runs one pass of the probe sequence against tbl. retry
// is true when the caller must restart the whole Emplace against
// whatever table is now current (tbl was mid-migration or is full).
func (m *CMap[K, V]) emplaceAttempt(tbl *table[K, V], hash uint64, key K, value V) (result bool, retry bool) {
	start, f := cmapSplit(hash, tbl.mask)

	probe := newUnitProbe(start, tbl.mask)
	for !probe.done() {
		slot := &tbl.slots[probe.index()]
		state := slot.state.Load()

		switch {
		case state == stateEmpty:
			if tbl.successor.Load() != nil {
				return false, true
			}
			if !slot.state.CompareAndSwap(stateEmpty, stateInProgress) {
				continue
			}
			m.publish(tbl, slot, key, value, f)
			return true, false

		case state == stateTombstone:
			if tbl.successor.Load() != nil {
				return false, true
			}
			// key may still be live further along the probe, past this
			// tombstone; look for it before reusing the slot.
			rest := *probe
			for rest.advance(); !rest.done(); rest.advance() {
				later := &tbl.slots[rest.index()]
				ls := later.state.Load()
				if ls == stateEmpty {
					break
				}
				if lf, ok := isOccupied(ls); ok && lf == f && m.equal(later.key, key) {
					return false, false
				}
			}
			if !slot.state.CompareAndSwap(stateTombstone, stateInProgress) {
				continue
			}
			m.publish(tbl, slot, key, value, f)
			return true, false

		case state == stateInProgress:
			runtime.Gosched()
			continue

		case state == stateResizing:
			m.migrateStep(tbl, probe.index())
			return false, true

		default:
			if sf, ok := isOccupied(state); ok && sf == f && m.equal(slot.key, key) {
				return false, false
			}
		}

		probe.advance()
	}

	// Walked every slot without finding room or a match: the table is
	// pathologically full (shouldn't happen given threshold < length, but
	// a run of IN_PROGRESS/RESIZING retries could in principle exhaust the
	// probe). Force a migration and have the caller retry.
	m.migrateStep(tbl, 0)
	return false, true
}

// publish writes key/value into a slot already claimed IN_PROGRESS and
// transitions it to OCCUPIED(f) — spec §4.4.1's publish half of the
// publish/consume contract. If a migration's successor table was
// published for tbl while this write was in flight, the writer itself
// also forwards the entry into the new table, closing the race spec's
// Open Question 3 calls out: an old-table insert must never complete
// invisibly to a migration that has already moved past this slot.
func (m *CMap[K, V]) publish(tbl *table[K, V], slot *cslot[K, V], key K, value V, f uint8) {
	slot.key = key
	slot.value = value
	slot.state.Store(occupiedState(f))
	tbl.count.Add(1)
	m.metrics.ObserveCount(tbl.count.Load())

	if next := tbl.successor.Load(); next != nil {
		m.forwardInto(next, key, value)
	}
}

// forwardInto inserts (key, value) into next if absent — used both by
// publish's race-closing check and by the migration walk itself (see
// cmap_migration.go). Idempotent: a key already present in next (because
// migration or a concurrent forwarder got there first) is left alone.
func (m *CMap[K, V]) forwardInto(next *table[K, V], key K, value V) {
	hash := m.hashFunc(key)
	for {
		_, retry := m.emplaceAttempt(next, hash, key, value)
		if !retry {
			return
		}
		if deeper := next.successor.Load(); deeper != nil {
			next = deeper
			continue
		}
	}
}

// Update overwrites the value for an existing key, CASing through the
// slot itself rather than a local copy (Open Question 1). Returns false
// if key is absent.
func (m *CMap[K, V]) Update(key K, value V) bool {
	hash := m.hashFunc(key)

outer:
	for {
		tbl := m.table.Load()
		start, f := cmapSplit(hash, tbl.mask)

		probe := newUnitProbe(start, tbl.mask)

		for !probe.done() {
			slot := &tbl.slots[probe.index()]
			state := slot.state.Load()

			switch {
			case state == stateEmpty:
				return false

			case state == stateResizing:
				m.migrateStep(tbl, probe.index())
				continue outer

			case state == stateInProgress:
				runtime.Gosched()
				continue

			default:
				sf, ok := isOccupied(state)
				if ok && sf == f && m.equal(slot.key, key) {
					if !slot.state.CompareAndSwap(state, stateInProgress) {
						continue
					}
					slot.value = value
					slot.state.Store(state)
					if next := tbl.successor.Load(); next != nil {
						m.forwardUpdate(next, key, value)
					}
					return true
				}
			}

			probe.advance()
		}

		return false
	}
}

func (m *CMap[K, V]) forwardUpdate(next *table[K, V], key K, value V) {
	for {
		if m.Update(key, value) {
			return
		}
		if deeper := next.successor.Load(); deeper != nil {
			next = deeper
			continue
		}
		return
	}
}

// Remove deletes key, returning its value and true, or the zero value
// and false if key is absent (spec §6, extending §4.4.1's transition
// table with the necessary OCCUPIED(f) -> TOMBSTONE edge Remove needs;
// the fine-grained insert/migration machine the spec diagrams doesn't
// enumerate Remove's own transition, but the table's external interface
// in §6 requires it).
func (m *CMap[K, V]) Remove(key K) (V, bool) {
	hash := m.hashFunc(key)

outer:
	for {
		tbl := m.table.Load()
		start, f := cmapSplit(hash, tbl.mask)

		probe := newUnitProbe(start, tbl.mask)

		for !probe.done() {
			slot := &tbl.slots[probe.index()]
			state := slot.state.Load()

			switch {
			case state == stateEmpty:
				var zero V
				return zero, false

			case state == stateResizing:
				m.migrateStep(tbl, probe.index())
				continue outer

			case state == stateInProgress:
				runtime.Gosched()
				continue

			default:
				sf, ok := isOccupied(state)
				if ok && sf == f && m.equal(slot.key, key) {
					if !slot.state.CompareAndSwap(state, stateTombstone) {
						continue
					}
					removed := slot.value
					var zeroK K
					var zeroV V
					slot.key, slot.value = zeroK, zeroV
					tbl.count.Add(-1)
					m.metrics.ObserveCount(tbl.count.Load())
					return removed, true
				}
			}

			probe.advance()
		}

		var zero V
		return zero, false
	}
}

// Count returns the number of occupied entries. Exact outside of an
// in-flight migration, approximate (but monotone with respect to
// completed ops) during one — spec §6.
func (m *CMap[K, V]) Count() int {
	return int(m.table.Load().count.Load())
}

// Stats returns a snapshot of CMap's bookkeeping.
func (m *CMap[K, V]) Stats() Stats {
	tbl := m.table.Load()
	return Stats{
		Size:              int(tbl.count.Load()),
		EffectiveCapacity: int(tbl.threshold),
		Migrating:         tbl.successor.Load() != nil,
	}
}

// Clear empties the map in place. Not safe to call concurrently with any
// other method (spec §6) — callers needing a concurrency-safe wipe
// should instead drop and reconstruct the CMap.
func (m *CMap[K, V]) Clear() {
	tbl := m.table.Load()
	m.table.Store(newTable[K, V](tbl.length, m.loadFactor))
}
