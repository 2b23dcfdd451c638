package safemath

import (
	"math"
	"testing"
)

func TestAdd(t *testing.T) {
	tests := []struct {
		a, b     uint64
		want     uint64
		overflow bool
	}{
		{1, 2, 3, false},
		{math.MaxUint64 - 1, 1, math.MaxUint64, false},
		{math.MaxUint64, 1, 0, true},
		{math.MaxUint64, math.MaxUint64, 0, true},
	}

	for _, tt := range tests {
		got, overflow := Add(tt.a, tt.b)
		if got != tt.want || overflow != tt.overflow {
			t.Errorf("Add(%d, %d) = %d, %v; want %d, %v", tt.a, tt.b, got, overflow, tt.want, tt.overflow)
		}
	}
}

func TestSub(t *testing.T) {
	tests := []struct {
		a, b     uint64
		want     uint64
		overflow bool
	}{
		{5, 3, 2, false},
		{3, 3, 0, false},
		{3, 4, 0, true},
		{0, 1, 0, true},
	}

	for _, tt := range tests {
		got, overflow := Sub(tt.a, tt.b)
		if got != tt.want || overflow != tt.overflow {
			t.Errorf("Sub(%d, %d) = %d, %v; want %d, %v", tt.a, tt.b, got, overflow, tt.want, tt.overflow)
		}
	}
}

// TestMulZeroOperand checks a zero operand never reports overflow.
func TestMulZeroOperand(t *testing.T) {
	for _, v := range []uint64{0, 1, math.MaxUint64} {
		if got, overflow := Mul(0, v); got != 0 || overflow {
			t.Errorf("Mul(0, %d) = %d, %v", v, got, overflow)
		}

		if got, overflow := Mul(v, 0); got != 0 || overflow {
			t.Errorf("Mul(%d, 0) = %d, %v", v, got, overflow)
		}
	}
}

func TestMul(t *testing.T) {
	if got, overflow := Mul(50, 100); got != 5000 || overflow {
		t.Errorf("Mul(50, 100) = %d, %v", got, overflow)
	}

	if _, overflow := Mul(math.MaxUint64/2+1, 2); !overflow {
		t.Error("Mul(2^63, 2) did not overflow")
	}

	if got, overflow := Mul(math.MaxUint64, 1); got != math.MaxUint64 || overflow {
		t.Errorf("Mul(max, 1) = %d, %v", got, overflow)
	}
}
