package note

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"NoteVault/internal/fault"
)

// InputNote is a note consumed by an operation.
type InputNote struct {
	Owner []byte      // Owner is the owner commitment
	Hash  common.Hash // Hash identifies the note
}

// OutputNote is a note created by an operation.
type OutputNote struct {
	Owner    []byte      // Owner is the owner commitment
	Hash     common.Hash // Hash identifies the note
	MetaData []byte      // MetaData is an optional remark
}

// TransferResult is the validated effect of a transfer, deposit or withdraw.
type TransferResult struct {
	Inputs      []InputNote
	Outputs     []OutputNote
	PublicOwner common.Address // PublicOwner sends or receives the public value
	PublicValue PublicValue
	Sender      []byte // Sender is the authorizing identity
}

// MintResult is the validated effect of a mint.
type MintResult struct {
	OldMintHash common.Hash
	NewMintHash common.Hash
	TotalMint   uint64
	Outputs     []OutputNote
	Sender      []byte
}

// BurnResult is the validated effect of a burn.
type BurnResult struct {
	OldBurnHash common.Hash
	NewBurnHash common.Hash
	TotalBurn   uint64
	Inputs      []InputNote
	Sender      []byte
}

// ApproveResult authorizes a third party to spend a note.
type ApproveResult struct {
	NoteHash   common.Hash
	SharedSign []byte
	Sender     []byte
}

// NoteStatus is the stored view of an unspent note.
type NoteStatus struct {
	Owner  []byte
	Hash   common.Hash
	Sender []byte
}

// Result is the self-describing envelope returned by a validator.
type Result struct {
	Type ProofType
	Body []byte // Body is the RLP encoding of the typed result
}

// NewResult wraps a typed result.
func NewResult(t ProofType, body any) (*Result, error) {
	enc, err := rlp.EncodeToBytes(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s result:\n%w", t, err)
	}

	return &Result{Type: t, Body: enc}, nil
}

// Encode returns the wire form of the envelope.
func (r *Result) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(r)
}

// DecodeResult parses an envelope.
func DecodeResult(data []byte) (*Result, error) {
	var r Result
	if err := rlp.DecodeBytes(data, &r); err != nil {
		return nil, fmt.Errorf("decode result:\n%w", err)
	}

	return &r, nil
}

// Transfer decodes a transfer, deposit or withdraw result.
func (r *Result) Transfer() (*TransferResult, error) {
	if !r.Type.IsTransfer() {
		return nil, fault.Invariantf("%s result is not a transfer", r.Type)
	}

	var out TransferResult
	if err := rlp.DecodeBytes(r.Body, &out); err != nil {
		return nil, fmt.Errorf("decode transfer result:\n%w", err)
	}

	return &out, nil
}

// Mint decodes a mint result.
func (r *Result) Mint() (*MintResult, error) {
	if r.Type != ProofMint {
		return nil, fault.Invariantf("%s result is not a mint", r.Type)
	}

	var out MintResult
	if err := rlp.DecodeBytes(r.Body, &out); err != nil {
		return nil, fmt.Errorf("decode mint result:\n%w", err)
	}

	return &out, nil
}

// Burn decodes a burn result.
func (r *Result) Burn() (*BurnResult, error) {
	if r.Type != ProofBurn {
		return nil, fault.Invariantf("%s result is not a burn", r.Type)
	}

	var out BurnResult
	if err := rlp.DecodeBytes(r.Body, &out); err != nil {
		return nil, fmt.Errorf("decode burn result:\n%w", err)
	}

	return &out, nil
}

// Approve decodes an approve result.
func (r *Result) Approve() (*ApproveResult, error) {
	if r.Type != ProofApprove {
		return nil, fault.Invariantf("%s result is not an approve", r.Type)
	}

	var out ApproveResult
	if err := rlp.DecodeBytes(r.Body, &out); err != nil {
		return nil, fmt.Errorf("decode approve result:\n%w", err)
	}

	return &out, nil
}
