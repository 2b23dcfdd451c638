// Package pedersen is the reference confidential-transaction verifier.
//
// Amounts are hidden in Pedersen commitments C = v*G + r*H on BLS12-377 G1.
// A transaction proves balance with a Schnorr signature, keyed by H, over the
// excess commitment: the value terms cancel, leaving only blinding factors.
// Every output carries a range proof so that no commitment hides a negative
// amount, and every note id is derived from its commitment so that an input
// can only name the commitment its note was created with.
package pedersen

import (
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"NoteVault/internal/note"
)

// PointSize is the size of a compressed G1 point.
const PointSize = bls12377.SizeOfG1AffineCompressed

var (
	hashDST = []byte("NOTEVAULT-PEDERSEN-V01-CS01-with-BLS12377G1_XMD:SHA-256_SSWU_RO_")

	g bls12377.G1Affine
	h bls12377.G1Affine
)

func init() {
	_, _, g, _ = bls12377.Generators()

	var err error
	if h, err = bls12377.HashToG1([]byte("blinding generator"), hashDST); err != nil {
		panic("pedersen: derive blinding generator: " + err.Error())
	}
}

// Input spends a committed note.
type Input struct {
	NoteID      []byte
	EphemeralPK []byte
	SignPK      []byte
	Commitment  []byte // Commitment is a compressed G1 point
}

// Output creates a committed note.
type Output struct {
	NoteID      []byte
	EphemeralPK []byte
	SignPK      []byte
	Commitment  []byte
	CipherValue []byte
	Range       RangeProof
}

// BalanceProof is a Schnorr proof of knowledge of k with E = k*H.
type BalanceProof struct {
	R []byte // R is the nonce commitment t*H
	S []byte // S is t + c*k, a canonical scalar
}

// Tx is the wire form of a confidential transaction.
type Tx struct {
	Type        uint8
	Inputs      []Input
	Outputs     []Output
	PublicValue uint64
	Authorized  common.Address
	Proof       BalanceProof
}

// statement is the part of a transaction the balance proof binds to.
type statement struct {
	Type        uint8
	Inputs      []Input
	Outputs     []Output
	PublicValue uint64
	Authorized  common.Address
}

func (tx *Tx) statement() statement {
	return statement{
		Type:        tx.Type,
		Inputs:      tx.Inputs,
		Outputs:     tx.Outputs,
		PublicValue: tx.PublicValue,
		Authorized:  tx.Authorized,
	}
}

// Commit returns v*G + r*H.
func Commit(value uint64, blind *fr.Element) bls12377.G1Affine {
	var vG, rH, c bls12377.G1Affine

	vG.ScalarMultiplication(&g, new(big.Int).SetUint64(value))
	rH.ScalarMultiplication(&h, blind.BigInt(new(big.Int)))
	c.Add(&vG, &rH)

	return c
}

// NoteID returns the identifier binding a note to its commitment and keys.
func NoteID(commitment, ephemeralPK, signPK []byte) []byte {
	return note.Keccak(commitment, ephemeralPK, signPK).Bytes()
}

// decodePoint parses a compressed point, checking subgroup membership.
func decodePoint(buf []byte) (bls12377.G1Affine, error) {
	var p bls12377.G1Affine
	if len(buf) != PointSize {
		return p, errBadPoint
	}

	if _, err := p.SetBytes(buf); err != nil {
		return p, errBadPoint
	}

	return p, nil
}

// publicSign reports how the public value enters the excess.
// Value leaving the notes (withdraw, burn) is subtracted from the inputs;
// value entering (deposit, mint) is added to them.
func publicSign(t note.ProofType) int {
	switch t {
	case note.ProofWithdraw, note.ProofBurn:
		return -1
	case note.ProofDeposit, note.ProofMint:
		return 1
	default:
		return 0
	}
}

// excess returns sum(inputs) - sum(outputs) + sign*pv*G, which equals
// (sum r_in - sum r_out)*H exactly when the amounts balance.
func excess(ins, outs []bls12377.G1Affine, t note.ProofType, pv uint64) bls12377.G1Affine {
	var acc, out bls12377.G1Jac

	for i := range ins {
		acc.AddMixed(&ins[i])
	}

	for i := range outs {
		out.AddMixed(&outs[i])
	}

	acc.SubAssign(&out)

	if sign := publicSign(t); sign != 0 && pv != 0 {
		var pvG bls12377.G1Jac
		pvG.FromAffine(&g)
		pvG.ScalarMultiplication(&pvG, new(big.Int).SetUint64(pv))

		if sign > 0 {
			acc.AddAssign(&pvG)
		} else {
			acc.SubAssign(&pvG)
		}
	}

	var e bls12377.G1Affine
	e.FromJacobian(&acc)

	return e
}

// challenge derives the Fiat-Shamir scalar binding the proof to the statement.
func challenge(st statement, e, r *bls12377.G1Affine) (fr.Element, error) {
	enc, err := rlp.EncodeToBytes(st)
	if err != nil {
		return fr.Element{}, err
	}

	eb := e.Bytes()
	rb := r.Bytes()

	var c fr.Element
	c.SetBytes(note.Keccak(enc, eb[:], rb[:]).Bytes())

	return c, nil
}
