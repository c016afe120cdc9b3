package cmap

import (
	"math/bits"
	"unsafe"
)

// DenseMap's groups widen the teacher's 8-slot control layout to the 16-slot
// groups §4.2/§4.3 call for. A group's 16 control bytes are kept as two
// 8-byte halves so each half can still be loaded as a single uint64 and
// matched with the classic SWAR byte-compare trick below — two 64-bit lane
// compares standing in for one 128-bit SIMD compare where true vector
// instructions aren't wired up (see internal/cpufeature for the capability
// gate). Both halves are folded straight into one assembled 16-bit slot
// mask; nothing downstream ever sees a bare 8-lane intermediate.
const denseGroupSize = 16

const (
	slotEmptyByte   uint8 = 0x80
	slotDeletedByte uint8 = 0xFE
)

const (
	laneLSB = 0x0101010101010101
	laneMSB = 0x8080808080808080
)

var emptyDenseCtrls = [denseGroupSize]uint8{
	slotEmptyByte, slotEmptyByte, slotEmptyByte, slotEmptyByte,
	slotEmptyByte, slotEmptyByte, slotEmptyByte, slotEmptyByte,
	slotEmptyByte, slotEmptyByte, slotEmptyByte, slotEmptyByte,
	slotEmptyByte, slotEmptyByte, slotEmptyByte, slotEmptyByte,
}

// denseGroup is one 16-slot group of DenseMap's backing array: 16 control
// bytes (one per slot: empty/deleted/fingerprint) plus 16 parallel key/value
// slots.
type denseGroup[K comparable, V any] struct {
	ctrls [denseGroupSize]uint8
	keys  [denseGroupSize]K
	vals  [denseGroupSize]V
}

// ctrlHalves returns the low and high 8-byte control halves as two uint64
// loads, the moral equivalent of loading a 128-bit control vector.
func (g *denseGroup[K, V]) ctrlHalves() (lo, hi uint64) {
	lo = bytesToUint64(&g.ctrls[0])
	hi = bytesToUint64(&g.ctrls[8])
	return lo, hi
}

// matchH2Group returns a 16-bit mask (bit i set ⇒ slot i's control byte
// equals h2), assembled from both control halves in one pass.
func matchH2Group(lo, hi uint64, h2 uint8) uint16 {
	return laneMaskToBits(laneEq(lo, h2)) | laneMaskToBits(laneEq(hi, h2))<<8
}

// matchEmptyGroup returns a 16-bit mask of every EMPTY slot in the group.
func matchEmptyGroup(lo, hi uint64) uint16 {
	return laneMaskToBits(laneEmpty(lo)) | laneMaskToBits(laneEmpty(hi))<<8
}

// matchEmptyOrDeletedGroup returns a 16-bit mask of every EMPTY or DELETED
// slot in the group (both sentinel bytes carry the MSB).
func matchEmptyOrDeletedGroup(lo, hi uint64) uint16 {
	return laneMaskToBits(lo&laneMSB) | laneMaskToBits(hi&laneMSB)<<8
}

// laneEq tags (MSB set) every byte of half equal to h2.
//
//go:inline
func laneEq(half uint64, h2 uint8) uint64 {
	v := half ^ (laneLSB * uint64(h2))
	return ((v - laneLSB) &^ v) & laneMSB
}

// laneEmpty tags every byte of half equal to slotEmptyByte: MSB set, bit 1
// clear (0x80 has bit 1 clear; 0xFE, the deleted sentinel, has it set).
//
//go:inline
func laneEmpty(half uint64) uint64 {
	return (half &^ (half << 6)) & laneMSB
}

// laneMaskToBits collapses an 8-lane, MSB-tagged byte mask (each lane either
// 0x80 or 0x00) down to an 8-bit mask, one bit per lane, lowest lane in the
// lowest bit.
func laneMaskToBits(lanes uint64) uint16 {
	var mask uint16
	for lanes != 0 {
		lane := bits.TrailingZeros64(lanes) >> 3
		mask |= 1 << uint(lane)
		lanes &^= uint64(0xFF) << uint(lane*8)
	}
	return mask
}

// firstSet16 returns the index (0..15) of the lowest set bit; callers only
// call this after checking mask != 0.
func firstSet16(mask uint16) uintptr {
	return uintptr(bits.TrailingZeros16(mask))
}

func clearBit16(mask uint16, i uintptr) uint16 {
	return mask &^ (1 << i)
}

//go:nocheckptr
func bytesToUint64(p *uint8) uint64 {
	return *(*uint64)(unsafe.Pointer(p))
}
