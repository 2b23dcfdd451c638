package pedersen

import (
	"fmt"
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"

	"NoteVault/internal/note"
)

// RangeBits is the width of a committed amount.
const RangeBits = 64

// BitProof shows that Commitment opens to 0 or 1. It is a two-branch Schnorr
// proof: one branch is known, the other simulated, and the branch challenges
// must add up to the Fiat-Shamir challenge.
type BitProof struct {
	Commitment []byte // Commitment is b*G + r*H
	C0         []byte
	C1         []byte
	S0         []byte
	S1         []byte
}

// RangeProof shows that a commitment holds a value in [0, 2^64).
type RangeProof struct {
	Bits []BitProof // Bits are ordered from the least significant
}

// proveRange commits to the bits of value with blindings weighted to sum to blind.
func proveRange(value uint64, blind *fr.Element, commitment []byte) (RangeProof, error) {
	blinds := make([]fr.Element, RangeBits)

	// r_0 = blind - sum 2^j r_j for j >= 1
	var rest fr.Element
	for j := 1; j < RangeBits; j++ {
		if _, err := blinds[j].SetRandom(); err != nil {
			return RangeProof{}, fmt.Errorf("draw bit blinding:\n%w", err)
		}

		var weighted fr.Element
		weighted.SetUint64(1 << j)
		weighted.Mul(&weighted, &blinds[j])
		rest.Add(&rest, &weighted)
	}

	blinds[0].Sub(blind, &rest)

	rp := RangeProof{Bits: make([]BitProof, RangeBits)}

	for j := range RangeBits {
		bp, err := proveBit(commitment, j, (value>>j)&1, &blinds[j])
		if err != nil {
			return RangeProof{}, err
		}

		rp.Bits[j] = bp
	}

	return rp, nil
}

func proveBit(commitment []byte, j int, bit uint64, r *fr.Element) (BitProof, error) {
	b := Commit(bit, r)
	p := branches(&b)

	known, fake := bit, 1-bit

	var (
		k    fr.Element
		c, s [2]fr.Element
		a    [2]bls12377.G1Affine
	)

	for _, e := range []*fr.Element{&k, &c[fake], &s[fake]} {
		if _, err := e.SetRandom(); err != nil {
			return BitProof{}, fmt.Errorf("draw bit proof scalar:\n%w", err)
		}
	}

	a[known].ScalarMultiplication(&h, k.BigInt(new(big.Int)))
	a[fake] = branchNonce(&s[fake], &c[fake], &p[fake])

	total := bitChallenge(commitment, j, &b, &a[0], &a[1])

	// c_known = c - c_fake, s_known = k + c_known*r
	c[known].Sub(&total, &c[fake])
	s[known].Mul(&c[known], r)
	s[known].Add(&s[known], &k)

	bb := b.Bytes()
	c0, c1 := c[0].Bytes(), c[1].Bytes()
	s0, s1 := s[0].Bytes(), s[1].Bytes()

	return BitProof{Commitment: bb[:], C0: c0[:], C1: c1[:], S0: s0[:], S1: s1[:]}, nil
}

// verifyRange checks every bit proof and that the weighted bits add up to c.
func verifyRange(c *bls12377.G1Affine, commitment []byte, rp RangeProof) error {
	if len(rp.Bits) != RangeBits {
		return errRange
	}

	bits := make([]bls12377.G1Affine, RangeBits)
	for j, bp := range rp.Bits {
		b, err := verifyBit(commitment, j, bp)
		if err != nil {
			return err
		}

		bits[j] = b
	}

	// Horner from the most significant bit: acc = 2*acc + B_j
	var acc bls12377.G1Jac
	for j := RangeBits - 1; j >= 0; j-- {
		acc.DoubleAssign()
		acc.AddMixed(&bits[j])
	}

	var sum bls12377.G1Affine
	sum.FromJacobian(&acc)

	if !sum.Equal(c) {
		return errRange
	}

	return nil
}

func verifyBit(commitment []byte, j int, bp BitProof) (bls12377.G1Affine, error) {
	b, err := decodePoint(bp.Commitment)
	if err != nil {
		return b, err
	}

	var c, s [2]fr.Element
	for i, raw := range [][]byte{bp.C0, bp.C1} {
		if err := c[i].SetBytesCanonical(raw); err != nil {
			return b, errBadScalar
		}
	}

	for i, raw := range [][]byte{bp.S0, bp.S1} {
		if err := s[i].SetBytesCanonical(raw); err != nil {
			return b, errBadScalar
		}
	}

	p := branches(&b)
	a0 := branchNonce(&s[0], &c[0], &p[0])
	a1 := branchNonce(&s[1], &c[1], &p[1])

	var sum fr.Element
	sum.Add(&c[0], &c[1])

	total := bitChallenge(commitment, j, &b, &a0, &a1)
	if !sum.Equal(&total) {
		return b, errRange
	}

	return b, nil
}

// branches returns B and B - G, the points whose H-discrete log the prover knows
// when the bit is 0 or 1.
func branches(b *bls12377.G1Affine) [2]bls12377.G1Affine {
	var negG, one bls12377.G1Affine
	negG.Neg(&g)
	one.Add(b, &negG)

	return [2]bls12377.G1Affine{*b, one}
}

// branchNonce returns s*H - c*P.
func branchNonce(s, c *fr.Element, p *bls12377.G1Affine) bls12377.G1Affine {
	var sH, cP, out bls12377.G1Affine

	sH.ScalarMultiplication(&h, s.BigInt(new(big.Int)))
	cP.ScalarMultiplication(p, c.BigInt(new(big.Int)))
	cP.Neg(&cP)
	out.Add(&sH, &cP)

	return out
}

func bitChallenge(commitment []byte, j int, b, a0, a1 *bls12377.G1Affine) fr.Element {
	bb, ab0, ab1 := b.Bytes(), a0.Bytes(), a1.Bytes()

	var c fr.Element
	c.SetBytes(note.Keccak(commitment, []byte{byte(j)}, bb[:], ab0[:], ab1[:]).Bytes())

	return c
}
