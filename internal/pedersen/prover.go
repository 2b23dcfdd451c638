package pedersen

import (
	"crypto/rand"
	"fmt"
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"NoteVault/internal/note"
)

// Note is a committed note together with its opening.
type Note struct {
	Value       uint64
	Blind       fr.Element
	NoteID      []byte
	EphemeralPK []byte
	SignPK      []byte
}

// NewNote returns a note of value with fresh blinding and identifiers.
func NewNote(value uint64) (Note, error) {
	n := Note{Value: value}

	if _, err := n.Blind.SetRandom(); err != nil {
		return Note{}, fmt.Errorf("draw blinding:\n%w", err)
	}

	for _, field := range []*[]byte{&n.EphemeralPK, &n.SignPK} {
		*field = make([]byte, 32)
		if _, err := rand.Read(*field); err != nil {
			return Note{}, fmt.Errorf("read randomness:\n%w", err)
		}
	}

	n.NoteID = NoteID(n.Commitment(), n.EphemeralPK, n.SignPK)

	return n, nil
}

// Commitment returns the compressed commitment of n.
func (n Note) Commitment() []byte {
	c := Commit(n.Value, &n.Blind)
	b := c.Bytes()

	return b[:]
}

// Prove builds a transaction spending ins and creating outs, with a balance proof.
// It does not check that the amounts balance: an unbalanced transaction
// produces a proof that fails verification.
func Prove(t note.ProofType, ins, outs []Note, pv uint64, authorized common.Address) ([]byte, error) {
	tx := Tx{Type: uint8(t), PublicValue: pv, Authorized: authorized}

	inPoints := make([]bls12377.G1Affine, len(ins))
	outPoints := make([]bls12377.G1Affine, len(outs))

	// k = sum r_in - sum r_out
	var k fr.Element

	for i, n := range ins {
		inPoints[i] = Commit(n.Value, &n.Blind)
		k.Add(&k, &n.Blind)
		tx.Inputs = append(tx.Inputs, Input{
			NoteID:      n.NoteID,
			EphemeralPK: n.EphemeralPK,
			SignPK:      n.SignPK,
			Commitment:  n.Commitment(),
		})
	}

	for i, n := range outs {
		outPoints[i] = Commit(n.Value, &n.Blind)
		k.Sub(&k, &n.Blind)

		commitment := n.Commitment()

		rp, err := proveRange(n.Value, &n.Blind, commitment)
		if err != nil {
			return nil, fmt.Errorf("output %d range:\n%w", i, err)
		}

		tx.Outputs = append(tx.Outputs, Output{
			NoteID:      n.NoteID,
			EphemeralPK: n.EphemeralPK,
			SignPK:      n.SignPK,
			Commitment:  commitment,
			Range:       rp,
		})
	}

	if err := seal(&tx, inPoints, outPoints, &k); err != nil {
		return nil, err
	}

	return rlp.EncodeToBytes(&tx)
}

// seal attaches a balance proof for the blinding excess k.
func seal(tx *Tx, ins, outs []bls12377.G1Affine, k *fr.Element) error {
	var nonce fr.Element
	if _, err := nonce.SetRandom(); err != nil {
		return fmt.Errorf("draw nonce:\n%w", err)
	}

	var r bls12377.G1Affine
	r.ScalarMultiplication(&h, nonce.BigInt(new(big.Int)))

	e := excess(ins, outs, note.ProofType(tx.Type), tx.PublicValue)

	c, err := challenge(tx.statement(), &e, &r)
	if err != nil {
		return fmt.Errorf("derive challenge:\n%w", err)
	}

	// s = nonce + c*k
	var s fr.Element
	s.Mul(&c, k)
	s.Add(&s, &nonce)

	rb := r.Bytes()
	sb := s.Bytes()
	tx.Proof = BalanceProof{R: rb[:], S: sb[:]}

	return nil
}
