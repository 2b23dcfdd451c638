package pedersen

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru"

	"NoteVault/internal/logger"
	"NoteVault/internal/note"
	"NoteVault/internal/proof"
)

// DefaultCacheSize is the number of verified transactions remembered.
const DefaultCacheSize = 1024

var (
	errBadPoint     = errors.New("invalid commitment point")
	errBadScalar    = errors.New("invalid proof scalar")
	errBadType      = errors.New("unsupported transaction type")
	errPublicValue  = errors.New("transfer carries a public value")
	errNoNotes      = errors.New("transaction has no notes")
	errBalanceProof = errors.New("balance proof does not verify")
	errRange        = errors.New("range proof does not verify")
	errNoteID       = errors.New("note id does not match its commitment")
)

// Verifier checks Pedersen transactions and remembers the ones that passed.
type Verifier struct {
	cache *lru.Cache // cache maps keccak(tx) to *proof.ConfidentialUTXO

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewVerifier creates a verifier caching up to size results.
func NewVerifier(size int) (*Verifier, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create cache:\n%w", err)
	}

	return &Verifier{cache: cache}, nil
}

// Stats returns cache hits and misses.
func (v *Verifier) Stats() (hits, misses uint64) {
	return v.hits.Load(), v.misses.Load()
}

// Verify checks the balance and range proofs and returns the transaction structure.
func (v *Verifier) Verify(raw []byte) (*proof.ConfidentialUTXO, error) {
	key := note.Keccak(raw)

	if cached, ok := v.cache.Get(key); ok {
		v.hits.Add(1)
		return cached.(*proof.ConfidentialUTXO), nil
	}

	v.misses.Add(1)

	utxo, err := verify(raw)
	if err != nil {
		return nil, err
	}

	v.cache.Add(key, utxo)

	return utxo, nil
}

// verify is the uncached check.
func verify(raw []byte) (*proof.ConfidentialUTXO, error) {
	var tx Tx
	if err := rlp.DecodeBytes(raw, &tx); err != nil {
		return nil, fmt.Errorf("decode transaction:\n%w", err)
	}

	t := note.ProofType(tx.Type)

	switch t {
	case note.ProofTransfer:
		if tx.PublicValue != 0 {
			return nil, errPublicValue
		}
	case note.ProofDeposit, note.ProofWithdraw, note.ProofMint, note.ProofBurn:
	default:
		return nil, errBadType
	}

	if len(tx.Inputs) == 0 && len(tx.Outputs) == 0 {
		return nil, errNoNotes
	}

	// 1. Decode commitments, each bound to its note id
	ins := make([]bls12377.G1Affine, len(tx.Inputs))
	for i, in := range tx.Inputs {
		if !bytes.Equal(in.NoteID, NoteID(in.Commitment, in.EphemeralPK, in.SignPK)) {
			return nil, fmt.Errorf("input %d:\n%w", i, errNoteID)
		}

		p, err := decodePoint(in.Commitment)
		if err != nil {
			return nil, fmt.Errorf("input %d:\n%w", i, err)
		}

		ins[i] = p
	}

	outs := make([]bls12377.G1Affine, len(tx.Outputs))
	for i, out := range tx.Outputs {
		if !bytes.Equal(out.NoteID, NoteID(out.Commitment, out.EphemeralPK, out.SignPK)) {
			return nil, fmt.Errorf("output %d:\n%w", i, errNoteID)
		}

		p, err := decodePoint(out.Commitment)
		if err != nil {
			return nil, fmt.Errorf("output %d:\n%w", i, err)
		}

		outs[i] = p
	}

	// 2. Check s*H == R + c*E
	r, err := decodePoint(tx.Proof.R)
	if err != nil {
		return nil, fmt.Errorf("proof nonce:\n%w", err)
	}

	var s fr.Element
	if err := s.SetBytesCanonical(tx.Proof.S); err != nil {
		return nil, errBadScalar
	}

	e := excess(ins, outs, t, tx.PublicValue)

	c, err := challenge(tx.statement(), &e, &r)
	if err != nil {
		return nil, fmt.Errorf("derive challenge:\n%w", err)
	}

	var lhs, rhs, cE bls12377.G1Affine
	lhs.ScalarMultiplication(&h, s.BigInt(new(big.Int)))
	cE.ScalarMultiplication(&e, c.BigInt(new(big.Int)))
	rhs.Add(&r, &cE)

	if !lhs.Equal(&rhs) {
		return nil, errBalanceProof
	}

	// 3. Check every output amount is in [0, 2^64)
	for i, out := range tx.Outputs {
		if err := verifyRange(&outs[i], out.Commitment, out.Range); err != nil {
			return nil, fmt.Errorf("output %d:\n%w", i, err)
		}
	}

	logger.Debug("confidential transaction verified",
		"type", t,
		"inputs", len(tx.Inputs),
		"outputs", len(tx.Outputs),
	)

	return toUTXO(&tx), nil
}

func toUTXO(tx *Tx) *proof.ConfidentialUTXO {
	utxo := &proof.ConfidentialUTXO{
		TxType:            tx.Type,
		Inputs:            make([]proof.ConfidentialInput, len(tx.Inputs)),
		Outputs:           make([]proof.ConfidentialOutput, len(tx.Outputs)),
		PublicValue:       tx.PublicValue,
		AuthorizedAddress: tx.Authorized,
	}

	for i, in := range tx.Inputs {
		utxo.Inputs[i] = proof.ConfidentialInput{
			NoteID:      in.NoteID,
			EphemeralPK: in.EphemeralPK,
			SignPK:      in.SignPK,
			Token:       in.Commitment,
		}
	}

	for i, out := range tx.Outputs {
		utxo.Outputs[i] = proof.ConfidentialOutput{
			NoteID:      out.NoteID,
			EphemeralPK: out.EphemeralPK,
			SignPK:      out.SignPK,
			Token:       out.Commitment,
			CipherValue: out.CipherValue,
		}
	}

	return utxo
}
