// Package validator turns signed proofs into structured note results.
//
// Two variants share one pipeline: the plaintext validator reads cleartext
// notes, the confidential validator delegates amount hiding to a Verifier and
// then applies the same structural checks. Validators are stateless per call.
package validator

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"NoteVault/internal/fault"
	"NoteVault/internal/note"
	"NoteVault/internal/safemath"
)

// Algorithm names, the high byte of a version.
const (
	AlgorithmPlaintext    uint8 = 1
	AlgorithmConfidential uint8 = 2
)

// Validator validates proofs for one algorithm.
type Validator interface {
	// ValidateProof checks a proof and returns its effect.
	ValidateProof(ctx context.Context, raw []byte) (*note.Result, error)

	// ValidateSignature reports whether sig over hash was produced by owner.
	ValidateSignature(owner []byte, hash common.Hash, sig []byte) bool

	// SupportProof reports whether proofs of version are accepted.
	SupportProof(version note.Version) bool
}

// Policy is the newest (major, minor) a validator understands.
type Policy struct {
	Major uint8
	Minor uint8
}

// DefaultPolicy is the policy of the built-in validators.
var DefaultPolicy = Policy{Major: 1, Minor: 1}

// Match reports whether a proof version is accepted.
// Older majors are accepted. Within the current major the minor must be
// non-zero and not newer than the policy. The proof type must be known.
func (p Policy) Match(v note.Version) bool {
	major, minor := v.Major(), v.Minor()

	compatible := p.Major > major || (major == p.Major && p.Minor >= minor && minor > 0)

	return compatible && v.Type().Valid()
}

// checkVersion rejects proofs outside the policy.
func (p Policy) checkVersion(v note.Version) error {
	if !p.Match(v) {
		return fault.Authorizationf("unsupported proof version %s", v)
	}

	return nil
}

// checkBalance enforces the balance equation on note value sums.
// A deposit (negative public value) consumes no inputs and creates exactly
// the deposited value; otherwise inputs equal outputs plus the public value.
func checkBalance(inputs, outputs uint64, pv note.PublicValue) error {
	if pv.IsDeposit() {
		if inputs != 0 {
			return fault.Invariantf("deposit consumes input value %d", inputs)
		}

		if outputs != pv.Abs() {
			return fault.Invariantf("balance mismatch: outputs %d, deposit %d", outputs, pv.Abs())
		}

		return nil
	}

	want, overflow := safemath.Add(outputs, pv.Abs())
	if overflow {
		return fault.Overflowf("outputs %d plus public value %d overflow", outputs, pv.Abs())
	}

	if inputs != want {
		return fault.Invariantf("balance mismatch: inputs %d, outputs %d, public value %d", inputs, outputs, int64(pv))
	}

	return nil
}

// decode parses an RLP body, reporting malformed input as an invariant violation.
func decode(data []byte, v any, what string) error {
	if err := rlp.DecodeBytes(data, v); err != nil {
		return fault.Invariantf("malformed %s: %v", what, err)
	}

	return nil
}
