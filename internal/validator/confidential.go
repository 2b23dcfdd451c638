package validator

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"NoteVault/internal/fault"
	"NoteVault/internal/logger"
	"NoteVault/internal/note"
	"NoteVault/internal/proof"
)

// Verifier checks a confidential transaction and extracts its structure.
type Verifier interface {
	Verify(tx []byte) (*proof.ConfidentialUTXO, error)
}

// Confidential validates proofs whose amounts are hidden in commitments.
type Confidential struct {
	policy   Policy
	verifier Verifier
}

// NewConfidential creates a confidential validator backed by verifier.
func NewConfidential(policy Policy, verifier Verifier) *Confidential {
	return &Confidential{policy: policy, verifier: verifier}
}

// SupportProof reports whether proofs of version are accepted.
func (c *Confidential) SupportProof(version note.Version) bool {
	return c.policy.Match(version)
}

// ValidateSignature reports whether sig over hash was produced by owner.
func (c *Confidential) ValidateSignature(owner []byte, hash common.Hash, sig []byte) bool {
	return note.VerifySigner(owner, hash, sig)
}

// ValidateProof checks the version, the transaction, then the signature.
func (c *Confidential) ValidateProof(_ context.Context, raw []byte) (*note.Result, error) {
	var env proof.Proof
	if err := decode(raw, &env, "proof"); err != nil {
		return nil, err
	}

	var data proof.ConfidentialData
	if err := decode(env.Data, &data, "confidential data"); err != nil {
		return nil, err
	}

	version := note.Version(data.Version)
	if err := c.policy.checkVersion(version); err != nil {
		return nil, err
	}

	utxo, err := c.verifier.Verify(data.ConfidentialTx)
	if err != nil {
		return nil, fault.Authorizationf("confidential transaction rejected: %v", err)
	}

	signer, err := note.RecoverSigner(note.Keccak(env.Data), env.Signature)
	if err != nil {
		return nil, err
	}

	if signer != utxo.AuthorizedAddress {
		return nil, fault.Authorizationf("proof signed by %s, authorized %s", signer, utxo.AuthorizedAddress)
	}

	txType := note.ProofType(utxo.TxType)
	if txType != version.Type() {
		return nil, fault.Invariantf("version tags %s, transaction is %s", version.Type(), txType)
	}

	switch txType {
	case note.ProofTransfer, note.ProofDeposit, note.ProofWithdraw:
		return c.validateTransfer(utxo, data)
	case note.ProofMint:
		return c.validateMint(utxo, data.ExtraData, env.Data)
	case note.ProofBurn:
		return c.validateBurn(utxo, data.ExtraData, env.Data)
	default:
		return nil, fault.Invariantf("confidential proofs do not support %s", txType)
	}
}

func (c *Confidential) validateTransfer(utxo *proof.ConfidentialUTXO, data proof.ConfidentialData) (*note.Result, error) {
	var extra proof.TransferExtra
	if err := decode(data.ExtraData, &extra, "transfer extra"); err != nil {
		return nil, err
	}

	inputs, err := makeConfidentialInputs(utxo.Inputs)
	if err != nil {
		return nil, err
	}

	outputs, err := makeConfidentialOutputs(utxo.Outputs, extra.MetaData)
	if err != nil {
		return nil, err
	}

	txType := note.ProofType(utxo.TxType)

	var pv note.PublicValue

	switch txType {
	case note.ProofDeposit:
		// The public owner must consent to the funds being pulled
		depositor, err := note.RecoverSigner(note.Keccak(data.ConfidentialTx), extra.DepositSignature)
		if err != nil {
			return nil, err
		}

		if depositor != extra.PublicOwner {
			return nil, fault.Authorizationf("deposit signed by %s, public owner %s", depositor, extra.PublicOwner)
		}

		if pv, err = note.DepositOf(utxo.PublicValue); err != nil {
			return nil, fault.Overflowf("%v", err)
		}

	case note.ProofWithdraw:
		if extra.PublicOwner == (common.Address{}) {
			return nil, fault.Invariantf("withdraw to the zero address")
		}

		if pv, err = note.WithdrawOf(utxo.PublicValue); err != nil {
			return nil, fault.Overflowf("%v", err)
		}
	}

	logger.Debug("confidential transfer validated",
		"type", txType,
		"inputs", len(inputs),
		"outputs", len(outputs),
		"public", int64(pv),
	)

	return note.NewResult(txType, &note.TransferResult{
		Inputs:      inputs,
		Outputs:     outputs,
		PublicOwner: extra.PublicOwner,
		PublicValue: pv,
		Sender:      utxo.AuthorizedAddress.Bytes(),
	})
}

func (c *Confidential) validateMint(utxo *proof.ConfidentialUTXO, extraData, signed []byte) (*note.Result, error) {
	var extra proof.MintExtra
	if err := decode(extraData, &extra, "mint extra"); err != nil {
		return nil, err
	}

	outputs, err := makeConfidentialOutputs(utxo.Outputs, extra.MetaData)
	if err != nil {
		return nil, err
	}

	return note.NewResult(note.ProofMint, &note.MintResult{
		OldMintHash: extra.OldMintHash,
		NewMintHash: note.Keccak(signed),
		TotalMint:   utxo.PublicValue,
		Outputs:     outputs,
		Sender:      utxo.AuthorizedAddress.Bytes(),
	})
}

func (c *Confidential) validateBurn(utxo *proof.ConfidentialUTXO, extraData, signed []byte) (*note.Result, error) {
	var extra proof.BurnExtra
	if err := decode(extraData, &extra, "burn extra"); err != nil {
		return nil, err
	}

	inputs, err := makeConfidentialInputs(utxo.Inputs)
	if err != nil {
		return nil, err
	}

	return note.NewResult(note.ProofBurn, &note.BurnResult{
		OldBurnHash: extra.OldBurnHash,
		NewBurnHash: note.Keccak(signed),
		TotalBurn:   utxo.PublicValue,
		Inputs:      inputs,
		Sender:      utxo.AuthorizedAddress.Bytes(),
	})
}

// confidentialOwner encodes the owner commitment of a hidden note.
func confidentialOwner(ephemeralPK, signPK []byte) ([]byte, error) {
	owner, err := rlp.EncodeToBytes([][]byte{ephemeralPK, signPK})
	if err != nil {
		return nil, fault.Invariantf("encode owner: %v", err)
	}

	return owner, nil
}

func makeConfidentialInputs(ins []proof.ConfidentialInput) ([]note.InputNote, error) {
	notes := make([]note.InputNote, 0, len(ins))

	for _, in := range ins {
		owner, err := confidentialOwner(in.EphemeralPK, in.SignPK)
		if err != nil {
			return nil, err
		}

		notes = append(notes, note.InputNote{Owner: owner, Hash: note.Keccak(in.NoteID)})
	}

	return notes, nil
}

func makeConfidentialOutputs(outs []proof.ConfidentialOutput, meta [][]byte) ([]note.OutputNote, error) {
	notes := make([]note.OutputNote, 0, len(outs))

	for i, out := range outs {
		owner, err := confidentialOwner(out.EphemeralPK, out.SignPK)
		if err != nil {
			return nil, err
		}

		var remark []byte
		if i < len(meta) {
			remark = meta[i]
		}

		notes = append(notes, note.OutputNote{Owner: owner, Hash: note.Keccak(out.NoteID), MetaData: remark})
	}

	return notes, nil
}
