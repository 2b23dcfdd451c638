package proof

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"NoteVault/internal/fault"
	"NoteVault/internal/note"
)

// randomSize is the size of note randomness.
const randomSize = 32

// Signer builds and signs proofs for one key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner wraps a secp256k1 key.
func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// GenerateSigner creates a signer with a fresh key.
func GenerateSigner() (*Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	return NewSigner(key), nil
}

// Address returns the signer's address.
func (s *Signer) Address() common.Address {
	return s.address
}

// Sign signs a digest.
func (s *Signer) Sign(hash common.Hash) ([]byte, error) {
	return note.Sign(hash, s.key)
}

// NewNote returns a note owned by owner with fresh randomness.
func NewNote(owner common.Address, value uint64) (Note, error) {
	random := make([]byte, randomSize)
	if _, err := rand.Read(random); err != nil {
		return Note{}, fmt.Errorf("read randomness:\n%w", err)
	}

	return Note{Owner: owner.Bytes(), Value: value, Random: random}, nil
}

// Output returns an output creating n.
func (n Note) Output(meta []byte) Output {
	return Output{Owner: n.Owner, Value: n.Value, Random: n.Random, MetaData: meta}
}

// Spend signs n as its owner so that spender may consume it.
func (s *Signer) Spend(n Note, spender common.Address) (Input, error) {
	hash, err := SpenderNote{Owner: n.Owner, Value: n.Value, Random: n.Random, Spender: spender}.Hash()
	if err != nil {
		return Input{}, err
	}

	sig, err := s.Sign(hash)
	if err != nil {
		return Input{}, fmt.Errorf("sign input:\n%w", err)
	}

	return Input{Owner: n.Owner, Value: n.Value, Random: n.Random, Signature: sig}, nil
}

// Seal encodes body under version and signs the result.
func (s *Signer) Seal(version note.Version, body any) ([]byte, error) {
	enc, err := rlp.EncodeToBytes(body)
	if err != nil {
		return nil, fmt.Errorf("encode body:\n%w", err)
	}

	data, err := rlp.EncodeToBytes(Data{Version: uint32(version), Body: enc})
	if err != nil {
		return nil, fmt.Errorf("encode data:\n%w", err)
	}

	return s.sealData(data)
}

// SealConfidential wraps a confidential transaction and its extra data.
func (s *Signer) SealConfidential(version note.Version, tx []byte, extra any) ([]byte, error) {
	enc, err := rlp.EncodeToBytes(extra)
	if err != nil {
		return nil, fmt.Errorf("encode extra:\n%w", err)
	}

	data, err := rlp.EncodeToBytes(ConfidentialData{Version: uint32(version), ConfidentialTx: tx, ExtraData: enc})
	if err != nil {
		return nil, fmt.Errorf("encode data:\n%w", err)
	}

	return s.sealData(data)
}

func (s *Signer) sealData(data []byte) ([]byte, error) {
	sig, err := s.Sign(note.Keccak(data))
	if err != nil {
		return nil, fmt.Errorf("sign proof:\n%w", err)
	}

	return rlp.EncodeToBytes(Proof{Data: data, Signature: sig})
}

// Open decodes the outer envelope and recovers its signer.
func Open(raw []byte) (*Proof, common.Address, error) {
	var p Proof
	if err := rlp.DecodeBytes(raw, &p); err != nil {
		return nil, common.Address{}, fault.Invariantf("malformed proof: %v", err)
	}

	signer, err := note.RecoverSigner(note.Keccak(p.Data), p.Signature)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("proof signature:\n%w", err)
	}

	return &p, signer, nil
}
