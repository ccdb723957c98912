// Package safeconv provides integer conversions that panic on overflow.
// Use them only where an overflow is logically impossible and would indicate
// a programming fault rather than bad input.
package safeconv

import "math"

// MaxInt is the maximum value for the int type (platform-dependent).
const MaxInt = int(^uint(0) >> 1)

// MustIntToUint32 converts int to uint32, panicking on bounds violation.
func MustIntToUint32(v int) uint32 {
	if v < 0 || uint64(v) > uint64(math.MaxUint32) {
		panic("safeconv: int to uint32 out of bounds")
	}

	return uint32(v)
}

// MustUint32ToInt converts uint32 to int, panicking on overflow. Cannot
// trigger on 64-bit platforms.
func MustUint32ToInt(v uint32) int {
	if uint64(v) > uint64(MaxInt) {
		panic("safeconv: uint32 to int overflow")
	}

	return int(v)
}
