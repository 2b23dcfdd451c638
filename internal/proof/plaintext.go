// Package proof defines the wire layout of signed proofs and helpers to build them.
//
// A proof is rlp(Proof{Data, Signature}) where Data is rlp(Data{Version, Body})
// and Signature is a recoverable secp256k1 signature over keccak(Data).
// The body layout depends on the algorithm and the proof type in Version.
package proof

import (
	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/note"
)

// Proof is the outer signed envelope.
type Proof struct {
	Data      []byte
	Signature []byte
}

// Data carries the version and the type-specific body.
type Data struct {
	Version uint32
	Body    []byte
}

// Note is a plaintext note. Its hash identifies it in the store.
type Note struct {
	Owner  []byte
	Value  uint64
	Random []byte
}

// Hash returns keccak(rlp(note)).
func (n Note) Hash() (common.Hash, error) {
	return note.RLPHash(n)
}

// SpenderNote binds a note to the identity allowed to spend it.
type SpenderNote struct {
	Owner   []byte
	Value   uint64
	Random  []byte
	Spender common.Address
}

// Hash returns keccak(rlp(spender note)), the digest an input signature covers.
func (n SpenderNote) Hash() (common.Hash, error) {
	return note.RLPHash(n)
}

// Input spends a note. Signature is the owner's signature over the SpenderNote
// whose spender is the proof signer.
type Input struct {
	Owner     []byte
	Value     uint64
	Random    []byte
	Signature []byte
}

// Note returns the spent note.
func (in Input) Note() Note {
	return Note{Owner: in.Owner, Value: in.Value, Random: in.Random}
}

// Output creates a note.
type Output struct {
	Owner    []byte
	Value    uint64
	Random   []byte
	MetaData []byte
}

// Note returns the created note.
func (out Output) Note() Note {
	return Note{Owner: out.Owner, Value: out.Value, Random: out.Random}
}

// Transfer moves value between notes and across the public boundary.
type Transfer struct {
	Inputs      []Input
	Outputs     []Output
	PublicOwner common.Address
	PublicValue note.PublicValue
}

// Approve hands a shared secret for a note to a third party.
type Approve struct {
	Owner      []byte
	Value      uint64
	Random     []byte
	SharedSign []byte
}

// Note returns the approved note.
func (a Approve) Note() Note {
	return Note{Owner: a.Owner, Value: a.Value, Random: a.Random}
}

// Mint creates notes out of nothing, chained to the previous mint.
type Mint struct {
	OldMintHash common.Hash
	Outputs     []Output
}

// Burn destroys notes, chained to the previous burn.
type Burn struct {
	OldBurnHash common.Hash
	Inputs      []Input
}
