package cmap

import "runtime"

// migrationChunk is the number of slots each helper claims per fetch-add,
// bounding how much work one goroutine does before yielding the cursor to
// others — the cooperative analogue of Go runtime's own incremental map
// growth (gramework-threadsafe/map.go's embedded runtime source was the
// grounding read for this shape), adapted to spec §4.4.5's "any thread
// may assist" cooperative migration.
const migrationChunk = 64

// migrateStep is the single entry point every CMap operation calls
// through when it observes a table at or above threshold, or a RESIZING
// slot mid-probe (spec §4.4.5). It ensures a successor table exists,
// claims and forwards whatever chunks of the old table are still
// unclaimed, then waits for every chunk — including ones claimed by
// other helpers — to actually finish before swapping the publicly
// visible table pointer over to the successor.
//
// The wait matters: the cursor being exhausted only means every slot has
// been *claimed* by some goroutine's migrateRange call, not that those
// calls have returned. Swapping on claim alone would let a reader
// observe the new table while a still-in-flight migrateRange elsewhere
// hasn't yet forwarded its chunk — a lost key, and a would-be duplicate
// insert if a writer raced in underneath it. completed (incremented only
// when a migrateRange call returns) is the actual completion signal.
func (m *CMap[K, V]) migrateStep(tbl *table[K, V], _ uintptr) {
	next := tbl.successor.Load()
	if next == nil {
		candidate := newTable[K, V](tbl.length*2, m.loadFactor)
		if tbl.successor.CompareAndSwap(nil, candidate) {
			next = candidate
			m.metrics.MigrationStarted(tbl.length, next.length)
			logMigrationStart(m.logger, tbl.length, next.length)
		} else {
			next = tbl.successor.Load()
		}
	}

	for {
		start := tbl.cursor.Add(migrationChunk) - migrationChunk
		if start >= tbl.length {
			break
		}
		end := start + migrationChunk
		if end > tbl.length {
			end = tbl.length
		}
		m.migrateRange(tbl, next, start, end)
		tbl.completed.Add(end - start)
	}

	for tbl.completed.Load() < tbl.length {
		runtime.Gosched()
	}

	m.finishMigration(tbl, next)
}

// migrateRange freezes and forwards every slot in [start, end) of the
// old table.
func (m *CMap[K, V]) migrateRange(tbl, next *table[K, V], start, end uintptr) {
	for i := start; i < end; i++ {
		m.migrateSlot(next, &tbl.slots[i])
	}
}

// migrateSlot freezes one slot to RESIZING (spec §4.4.1's EMPTY/TOMBSTONE
// -> RESIZING and OCCUPIED(f) -> RESIZING edges) and, if it held a live
// entry, forwards it into next. A slot already RESIZING has been frozen
// before and is skipped. IN_PROGRESS is
// transient: the writer holding it is already past the successor-nil
// check that would have redirected it to next, so it is about to publish
// OCCUPIED in the old table and, per publish's own successor check, will
// forward itself — this spin just waits that out instead of racing it.
func (m *CMap[K, V]) migrateSlot(next *table[K, V], slot *cslot[K, V]) {
	for {
		state := slot.state.Load()

		if state == stateResizing {
			return
		}
		if state == stateInProgress {
			runtime.Gosched()
			continue
		}

		if !slot.state.CompareAndSwap(state, stateResizing) {
			continue
		}

		if _, ok := isOccupied(state); ok {
			m.forwardInto(next, slot.key, slot.value)
		}
		return
	}
}

// finishMigration swaps the CMap's visible table pointer over to next.
// The CompareAndSwap makes this safe to call redundantly from every
// helper that reaches the end of the walk: only the first one to arrive
// actually performs (and logs/records) the swap.
func (m *CMap[K, V]) finishMigration(tbl, next *table[K, V]) {
	if m.table.CompareAndSwap(tbl, next) {
		m.metrics.MigrationCompleted(tbl.length, next.length, next.count.Load())
		logMigrationDone(m.logger, tbl.length, next.length, next.count.Load())
	}
}
