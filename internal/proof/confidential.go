package proof

import "github.com/ethereum/go-ethereum/common"

// ConfidentialData carries an opaque confidential transaction and its extra data.
type ConfidentialData struct {
	Version        uint32
	ConfidentialTx []byte // ConfidentialTx is checked by the cryptographic verifier
	ExtraData      []byte // ExtraData is rlp of TransferExtra, MintExtra or BurnExtra
}

// ConfidentialInput is a spent hidden-amount note.
type ConfidentialInput struct {
	NoteID      []byte // NoteID is hashed to obtain the note hash
	EphemeralPK []byte // EphemeralPK is the sender's one-time public key
	SignPK      []byte // SignPK is the encrypted owner
	Token       []byte // Token is the value commitment
}

// ConfidentialOutput is a created hidden-amount note.
type ConfidentialOutput struct {
	NoteID      []byte
	EphemeralPK []byte
	SignPK      []byte
	Token       []byte
	CipherValue []byte // CipherValue is the amount and blinding encrypted for the owner
}

// ConfidentialUTXO is the structure a verifier extracts from a valid transaction.
type ConfidentialUTXO struct {
	TxType            uint8
	Inputs            []ConfidentialInput
	Outputs           []ConfidentialOutput
	PublicValue       uint64
	AuthorizedAddress common.Address // AuthorizedAddress must sign the proof
}

// TransferExtra accompanies transfer, deposit and withdraw proofs.
type TransferExtra struct {
	PublicOwner      common.Address
	DepositSignature []byte   // DepositSignature is the public owner's signature over keccak(tx)
	MetaData         [][]byte // MetaData holds one optional remark per output
}

// MintExtra accompanies mint proofs.
type MintExtra struct {
	OldMintHash common.Hash
	MetaData    [][]byte
}

// BurnExtra accompanies burn proofs.
type BurnExtra struct {
	OldBurnHash common.Hash
}
