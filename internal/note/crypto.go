package note

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"NoteVault/internal/fault"
)

// SignatureSize is the size of a recoverable secp256k1 signature (R || S || V).
const SignatureSize = crypto.SignatureLength

// Keccak hashes the concatenation of data.
func Keccak(data ...[]byte) common.Hash {
	return crypto.Keccak256Hash(data...)
}

// RLPHash hashes the RLP encoding of v.
func RLPHash(v any) (common.Hash, error) {
	enc, err := rlp.EncodeToBytes(v)
	if err != nil {
		return common.Hash{}, fmt.Errorf("rlp encode:\n%w", err)
	}

	return Keccak(enc), nil
}

// Sign produces a recoverable signature over hash.
func Sign(hash common.Hash, key *ecdsa.PrivateKey) ([]byte, error) {
	return crypto.Sign(hash[:], key)
}

// RecoverSigner returns the address that produced sig over hash.
func RecoverSigner(hash common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != SignatureSize {
		return common.Address{}, fault.Authorizationf("signature length %d, want %d", len(sig), SignatureSize)
	}

	pub, err := crypto.SigToPub(hash[:], sig)
	if err != nil {
		return common.Address{}, fault.Authorizationf("recover signer: %v", err)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

// VerifySigner reports whether sig over hash was produced by the owner address.
func VerifySigner(owner []byte, hash common.Hash, sig []byte) bool {
	if len(owner) != common.AddressLength {
		return false
	}

	signer, err := RecoverSigner(hash, sig)
	if err != nil {
		return false
	}

	return signer == common.BytesToAddress(owner)
}

// OwnerAddress interprets an owner commitment as an address.
func OwnerAddress(owner []byte) (common.Address, error) {
	if len(owner) != common.AddressLength {
		return common.Address{}, fault.Invariantf("owner length %d, want %d", len(owner), common.AddressLength)
	}

	return common.BytesToAddress(owner), nil
}
