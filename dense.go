package cmap

import (
	"go.uber.org/zap"

	"github.com/corehash/cmap/internal/cpufeature"
)

// maxDenseLoadFactor is DenseMap's hard ceiling (spec §4.3: "Load factor
// default 0.875 (capped at 0.875)"), grounded on
// homier-stablemap/table.go's `capacityEffective = normalizedCapacity * 7 / 8`.
const maxDenseLoadFactor = 0.875

// denseMinLength is the smallest table DenseMap will allocate. Spec §6
// floors "the sequential variants" at capacity 4, but DenseMap's storage
// is organized in fixed 16-slot groups (§4.2/§4.3) — a table smaller than
// one group has no meaningful group-probe granularity, so DenseMap floors
// at one full group instead. internal/seq.RobinhoodMap, which has no group
// structure, honors the literal floor of 4 (see DESIGN.md).
const denseMinLength = denseGroupSize

// DenseMap is the single-threaded, SIMD-style group-probed table (C5).
// Concurrent use is undefined behavior (spec §5) — callers needing
// concurrency safety should use CMap instead.
type DenseMap[K comparable, V any] struct {
	groups []denseGroup[K, V]

	length     uintptr
	groupMask  uintptr
	threshold  uintptr
	loadFactor float64

	size       uintptr
	tombstones uintptr

	hashFunc HashFunc[K]
	equal    func(a, b K) bool
	logger   *zap.Logger
	metrics  MetricsRecorder

	emptyV V
}

// NewDense constructs a DenseMap. Fails with ErrInvalidConfiguration if
// capacity <= 0 or the configured load factor is outside (0, 1], and with
// ErrHardwareUnsupported if the target machine has no usable
// 128-bit-equivalent group compare (spec §4.3, §7).
func NewDense[K comparable, V any](capacity int, opts ...Option[K, V]) (*DenseMap[K, V], error) {
	cfg := newConfig[K, V](maxDenseLoadFactor, opts)

	if capacity <= 0 {
		logInvalidConfiguration(cfg.logger, "capacity must be positive")
		return nil, ErrInvalidConfiguration
	}
	if cfg.loadFactor <= 0 || cfg.loadFactor > 1 {
		logInvalidConfiguration(cfg.logger, "load factor must be in (0, 1]")
		return nil, ErrInvalidConfiguration
	}
	if !cpufeature.HasGroupEquality() {
		logHardwareUnsupported(cfg.logger)
		return nil, ErrHardwareUnsupported
	}

	lf := cfg.loadFactor
	if lf > maxDenseLoadFactor {
		lf = maxDenseLoadFactor
	}

	length := roundCapacity(capacity, denseMinLength)

	dm := &DenseMap[K, V]{
		hashFunc:   cfg.hashFunc,
		equal:      cfg.equal,
		logger:     cfg.logger,
		metrics:    cfg.metrics,
		loadFactor: lf,
	}
	dm.allocate(length)

	return dm, nil
}

func (dm *DenseMap[K, V]) allocate(length uintptr) {
	numGroups := length / denseGroupSize

	dm.groups = make([]denseGroup[K, V], numGroups)
	dm.length = length
	dm.groupMask = numGroups - 1
	dm.threshold = uintptr(float64(length) * dm.loadFactor)
	dm.size = 0
	dm.tombstones = 0

	for i := range dm.groups {
		dm.groups[i].ctrls = emptyDenseCtrls
	}
}

// EffectiveCapacity is the occupancy threshold above which an insert
// triggers a doubling resize.
func (dm *DenseMap[K, V]) EffectiveCapacity() int {
	return int(dm.threshold)
}

// Stats returns a snapshot of DenseMap's bookkeeping.
func (dm *DenseMap[K, V]) Stats() Stats {
	var capRatio, sizeRatio float32
	if dm.length > 0 {
		capRatio = float32(dm.tombstones) / float32(dm.length)
	}
	if dm.size > 0 {
		sizeRatio = float32(dm.tombstones) / float32(dm.size)
	}

	return Stats{
		Size:                    int(dm.size),
		EffectiveCapacity:       int(dm.threshold),
		Tombstones:              int(dm.tombstones),
		TombstonesCapacityRatio: capRatio,
		TombstonesSizeRatio:     sizeRatio,
	}
}

// Get returns the value stored for key, and whether it was present (§4.3
// step 4/5, §6).
func (dm *DenseMap[K, V]) Get(key K) (V, bool) {
	hash := dm.hashFunc(key)
	startGroup, f := denseSplit(hash, dm.groupMask)

	probe := newGroupProbe(startGroup, dm.groupMask)
	for !probe.done() {
		g := &dm.groups[probe.index()]
		lo, hi := g.ctrlHalves()

		matches := matchH2Group(lo, hi, f)
		for matches != 0 {
			idx := firstSet16(matches)
			if dm.equal(g.keys[idx], key) {
				return g.vals[idx], true
			}
			matches = clearBit16(matches, idx)
		}

		if matchEmptyGroup(lo, hi) != 0 {
			return dm.emptyV, false
		}

		probe.advance()
	}

	return dm.emptyV, false
}

// Contains reports whether key is present.
func (dm *DenseMap[K, V]) Contains(key K) bool {
	_, ok := dm.Get(key)
	return ok
}

// Emplace inserts (key, value) if key is absent. Returns false, leaving
// the map unchanged, if key is already present — the strict
// insert-if-absent semantics of spec §6's external interface table.
// Automatically grows the table first if it is at threshold (spec §4.3:
// "No operation fails under normal conditions" — this is the one
// behavior this reimplementation changes from the teacher, which instead
// surfaced ErrTableFull; see DESIGN.md).
func (dm *DenseMap[K, V]) Emplace(key K, value V) bool {
	dm.maybeGrowOrCompact()

	ok, _ := dm.insert(key, value, false)
	return ok
}

// Set upserts (key, value): inserts if absent, overwrites if present.
// This is the upsert variant spec §6 allows for ("Upsert variants may
// exist"), grounded directly on homier-stablemap/table.go's `set`.
func (dm *DenseMap[K, V]) Set(key K, value V) {
	dm.maybeGrowOrCompact()

	dm.insert(key, value, true)
}

// Update overwrites the value for an existing key. Returns false if key
// is absent (§6).
func (dm *DenseMap[K, V]) Update(key K, value V) bool {
	hash := dm.hashFunc(key)
	startGroup, f := denseSplit(hash, dm.groupMask)

	probe := newGroupProbe(startGroup, dm.groupMask)
	for !probe.done() {
		g := &dm.groups[probe.index()]
		lo, hi := g.ctrlHalves()

		matches := matchH2Group(lo, hi, f)
		for matches != 0 {
			idx := firstSet16(matches)
			if dm.equal(g.keys[idx], key) {
				g.vals[idx] = value
				return true
			}
			matches = clearBit16(matches, idx)
		}

		if matchEmptyGroup(lo, hi) != 0 {
			return false
		}

		probe.advance()
	}

	return false
}

// GetValueRefOrAddDefault returns a pointer directly into the backing
// array for key's value, inserting a zero value first if key is absent
// (spec §4.3). The returned pointer is only valid until the next
// mutating call that might trigger a resize or compaction — a resize
// reallocates the backing arrays and a compaction moves entries between
// slots in place, exactly like taking `&m[k]` is
// disallowed on Go's builtin map for the same reason.
func (dm *DenseMap[K, V]) GetValueRefOrAddDefault(key K) *V {
	dm.maybeGrowOrCompact()

	hash := dm.hashFunc(key)
	startGroup, f := denseSplit(hash, dm.groupMask)

	var (
		targetGroup *denseGroup[K, V]
		targetSlot  uintptr
		foundSlot   bool
	)

	probe := newGroupProbe(startGroup, dm.groupMask)
	for !probe.done() {
		g := &dm.groups[probe.index()]
		lo, hi := g.ctrlHalves()

		matches := matchH2Group(lo, hi, f)
		for matches != 0 {
			idx := firstSet16(matches)
			if dm.equal(g.keys[idx], key) {
				return &g.vals[idx]
			}
			matches = clearBit16(matches, idx)
		}

		if !foundSlot {
			if m := matchEmptyOrDeletedGroup(lo, hi); m != 0 {
				targetGroup, targetSlot, foundSlot = g, firstSet16(m), true
			}
		}

		if matchEmptyGroup(lo, hi) != 0 {
			break
		}

		probe.advance()
	}

	if !foundSlot {
		dm.grow()
		return dm.GetValueRefOrAddDefault(key)
	}

	if targetGroup.ctrls[targetSlot] == slotDeletedByte {
		dm.tombstones--
	}
	targetGroup.ctrls[targetSlot] = f
	targetGroup.keys[targetSlot] = key
	var zero V
	targetGroup.vals[targetSlot] = zero
	dm.size++

	return &targetGroup.vals[targetSlot]
}

// Remove deletes key, returning its value and true, or the zero value and
// false if absent (§6). Preserves the probe chain by leaving an EMPTY
// byte behind when the group still has room, and a tombstone otherwise —
// homier-stablemap/table.go's delete policy, applied at 16-slot
// granularity (spec §4.3 "Delete policy").
func (dm *DenseMap[K, V]) Remove(key K) (V, bool) {
	hash := dm.hashFunc(key)
	startGroup, f := denseSplit(hash, dm.groupMask)

	probe := newGroupProbe(startGroup, dm.groupMask)
	for !probe.done() {
		g := &dm.groups[probe.index()]
		lo, hi := g.ctrlHalves()

		matches := matchH2Group(lo, hi, f)
		for matches != 0 {
			idx := firstSet16(matches)
			if dm.equal(g.keys[idx], key) {
				removed := g.vals[idx]

				if matchEmptyGroup(lo, hi) != 0 {
					g.ctrls[idx] = slotEmptyByte
				} else {
					g.ctrls[idx] = slotDeletedByte
					dm.tombstones++
				}

				var zeroK K
				var zeroV V
				g.keys[idx] = zeroK
				g.vals[idx] = zeroV
				dm.size--

				dm.metrics.TombstoneRatio(float64(dm.tombstones) / float64(dm.length))
				return removed, true
			}
			matches = clearBit16(matches, idx)
		}

		if matchEmptyGroup(lo, hi) != 0 {
			return dm.emptyV, false
		}

		probe.advance()
	}

	return dm.emptyV, false
}

// Count returns the number of occupied entries.
func (dm *DenseMap[K, V]) Count() int { return int(dm.size) }

// Clear empties the map in place, keeping its current capacity —
// grounded on homier-stablemap/table.go's Reset.
func (dm *DenseMap[K, V]) Clear() {
	for i := range dm.groups {
		dm.groups[i].ctrls = emptyDenseCtrls
	}
	dm.size = 0
	dm.tombstones = 0
}

// Compact rebuilds the table in place, dropping every tombstone while
// keeping the table's current size — grounded near-verbatim on
// homier-stablemap/table.go's two-pass Compact (invert ctrls, then walk
// and relocate formerly-FULL slots into their true probe position).
func (dm *DenseMap[K, V]) Compact() {
	for i := range dm.groups {
		g := &dm.groups[i]
		for j := range denseGroupSize {
			c := g.ctrls[j]
			if c < slotEmptyByte {
				g.ctrls[j] = slotDeletedByte
			} else if c == slotDeletedByte {
				g.ctrls[j] = slotEmptyByte
			}
		}
	}

	for gi := range dm.groups {
		g := &dm.groups[gi]
		for j := uintptr(0); j < denseGroupSize; j++ {
			if g.ctrls[j] != slotDeletedByte {
				continue
			}

			key := g.keys[j]
			value := g.vals[j]
			hash := dm.hashFunc(key)
			destGroup, f := denseSplit(hash, dm.groupMask)

			var (
				targetGroup *denseGroup[K, V]
				targetSlot  uintptr
			)

			p := newGroupProbe(destGroup, dm.groupMask)
			for {
				tg := &dm.groups[p.index()]
				tlo, thi := tg.ctrlHalves()
				if m := matchEmptyOrDeletedGroup(tlo, thi); m != 0 {
					targetGroup, targetSlot = tg, firstSet16(m)
					break
				}
				p.advance()
			}

			switch {
			case targetGroup == g && targetSlot == j:
				g.ctrls[j] = f
			case targetGroup.ctrls[targetSlot] == slotEmptyByte:
				targetGroup.ctrls[targetSlot] = f
				targetGroup.keys[targetSlot] = key
				targetGroup.vals[targetSlot] = value
				g.ctrls[j] = slotEmptyByte
			default:
				targetGroup.ctrls[targetSlot] = f
				g.keys[j], targetGroup.keys[targetSlot] = targetGroup.keys[targetSlot], g.keys[j]
				g.vals[j], targetGroup.vals[targetSlot] = targetGroup.vals[targetSlot], g.vals[j]
				j--
			}
		}
	}

	dm.tombstones = 0
}

func (dm *DenseMap[K, V]) maybeGrowOrCompact() {
	if dm.size >= dm.threshold {
		dm.grow()
		return
	}
	if dm.tombstones > dm.length/8 {
		dm.Compact()
	}
}

func (dm *DenseMap[K, V]) grow() {
	old := dm.groups
	oldSize := dm.size

	dm.allocate(dm.length * 2)

	for gi := range old {
		g := &old[gi]
		for j := range denseGroupSize {
			if g.ctrls[j] < slotEmptyByte {
				dm.insert(g.keys[j], g.vals[j], true)
			}
		}
	}

	if dm.size != oldSize {
		panic("dense: grow lost or duplicated entries")
	}
}

// insert is the shared Emplace/Set body. upsert selects overwrite (Set)
// vs strict insert-if-absent (Emplace) behavior on a match.
func (dm *DenseMap[K, V]) insert(key K, value V, upsert bool) (inserted bool, updated bool) {
	hash := dm.hashFunc(key)
	startGroup, f := denseSplit(hash, dm.groupMask)

	var (
		targetGroup *denseGroup[K, V]
		targetSlot  uintptr
		foundSlot   bool
	)

	probe := newGroupProbe(startGroup, dm.groupMask)
	for !probe.done() {
		g := &dm.groups[probe.index()]
		lo, hi := g.ctrlHalves()

		matches := matchH2Group(lo, hi, f)
		for matches != 0 {
			idx := firstSet16(matches)
			if dm.equal(g.keys[idx], key) {
				if upsert {
					g.vals[idx] = value
					return false, true
				}
				return false, false
			}
			matches = clearBit16(matches, idx)
		}

		if !foundSlot {
			if m := matchEmptyOrDeletedGroup(lo, hi); m != 0 {
				targetGroup, targetSlot, foundSlot = g, firstSet16(m), true
			}
		}

		if matchEmptyGroup(lo, hi) != 0 {
			break
		}

		probe.advance()
	}

	if !foundSlot {
		dm.grow()
		return dm.insert(key, value, upsert)
	}

	if targetGroup.ctrls[targetSlot] == slotDeletedByte {
		dm.tombstones--
	}
	targetGroup.ctrls[targetSlot] = f
	targetGroup.keys[targetSlot] = key
	targetGroup.vals[targetSlot] = value
	dm.size++
	dm.metrics.ObserveCount(int64(dm.size))

	return true, false
}
