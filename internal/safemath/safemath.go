// Package safemath provides overflow-checked uint64 arithmetic.
// Each function returns the result and whether the operation overflowed;
// on overflow the result is zero and must not be used.
package safemath

import "math/bits"

// Add returns a + b. It overflows when b exceeds MaxUint64 - a.
func Add(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, true
	}

	return sum, false
}

// Sub returns a - b. It overflows when b exceeds a.
func Sub(a, b uint64) (uint64, bool) {
	if b > a {
		return 0, true
	}

	return a - b, false
}

// Mul returns a * b. A zero operand yields zero without overflow.
func Mul(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}

	hi, lo := bits.Mul64(a, b)
	if hi > 0 {
		return 0, true
	}

	return lo, false
}
