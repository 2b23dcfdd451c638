package note

import (
	"fmt"
	"io"
	"math"

	"github.com/ethereum/go-ethereum/rlp"
)

// PublicValue is the signed amount crossing the private ledger boundary.
// Positive values leave the ledger (withdraw), negative values enter it (deposit).
type PublicValue int64

// publicValueWire is the RLP form: RLP has no signed integers.
type publicValueWire struct {
	Negative  bool
	Magnitude uint64
}

// Abs returns |v|. It is exact for math.MinInt64.
func (v PublicValue) Abs() uint64 {
	if v < 0 {
		return uint64(^int64(v)) + 1
	}

	return uint64(v)
}

// IsDeposit reports whether value enters the private ledger.
func (v PublicValue) IsDeposit() bool { return v < 0 }

// IsWithdraw reports whether value leaves the private ledger.
func (v PublicValue) IsWithdraw() bool { return v > 0 }

// DepositOf returns the public value of a deposit of amount.
func DepositOf(amount uint64) (PublicValue, error) {
	if amount > math.MaxInt64+1 {
		return 0, fmt.Errorf("deposit %d out of range", amount)
	}

	if amount == math.MaxInt64+1 {
		return math.MinInt64, nil
	}

	return -PublicValue(amount), nil
}

// WithdrawOf returns the public value of a withdrawal of amount.
func WithdrawOf(amount uint64) (PublicValue, error) {
	if amount > math.MaxInt64 {
		return 0, fmt.Errorf("withdraw %d out of range", amount)
	}

	return PublicValue(amount), nil
}

// EncodeRLP implements rlp.Encoder.
func (v PublicValue) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, publicValueWire{Negative: v < 0, Magnitude: v.Abs()})
}

// DecodeRLP implements rlp.Decoder and rejects non-canonical forms.
func (v *PublicValue) DecodeRLP(s *rlp.Stream) error {
	var wire publicValueWire
	if err := s.Decode(&wire); err != nil {
		return err
	}

	if !wire.Negative {
		out, err := WithdrawOf(wire.Magnitude)
		if err != nil {
			return err
		}

		*v = out
		return nil
	}

	if wire.Magnitude == 0 {
		return fmt.Errorf("negative zero public value")
	}

	out, err := DepositOf(wire.Magnitude)
	if err != nil {
		return err
	}

	*v = out

	return nil
}
