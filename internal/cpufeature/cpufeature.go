// Package cpufeature gates DenseMap's group-compare fast path on the
// hardware actually being able to do it. Grounded on the pack's
// github.com/klauspost/cpuid/v2 dependency: rather than hand-rolling
// CPUID parsing, this wraps the same capability probe the rest of the
// ecosystem uses.
package cpufeature

import "github.com/klauspost/cpuid/v2"

// HasGroupEquality reports whether this machine has a usable SIMD
// instruction set for DenseMap's 16-slot group compare (spec §4.3,
// §7's ErrHardwareUnsupported). The group-compare code itself is a
// portable SWAR emulation (see densegroup.go) that runs correctly on
// any machine; this gate exists because the spec requires construction
// to fail loudly on hardware the real vectorized version could never
// target, rather than silently falling back forever.
func HasGroupEquality() bool {
	return cpuid.CPU.Supports(cpuid.SSE2) || cpuid.CPU.Supports(cpuid.ASIMD)
}
