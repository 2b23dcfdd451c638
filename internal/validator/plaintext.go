package validator

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/fault"
	"NoteVault/internal/logger"
	"NoteVault/internal/note"
	"NoteVault/internal/proof"
	"NoteVault/internal/safemath"
)

// Plaintext validates proofs whose notes carry cleartext owners and values.
type Plaintext struct {
	policy Policy
}

// NewPlaintext creates a plaintext validator.
func NewPlaintext(policy Policy) *Plaintext {
	return &Plaintext{policy: policy}
}

// SupportProof reports whether proofs of version are accepted.
func (p *Plaintext) SupportProof(version note.Version) bool {
	return p.policy.Match(version)
}

// ValidateSignature reports whether sig over hash was produced by owner.
func (p *Plaintext) ValidateSignature(owner []byte, hash common.Hash, sig []byte) bool {
	return note.VerifySigner(owner, hash, sig)
}

// ValidateProof checks the signature, then the version, then the body.
func (p *Plaintext) ValidateProof(_ context.Context, raw []byte) (*note.Result, error) {
	// 1. Recover the signer of the envelope
	env, spender, err := proof.Open(raw)
	if err != nil {
		return nil, err
	}

	// 2. Check the version
	var data proof.Data
	if err := decode(env.Data, &data, "proof data"); err != nil {
		return nil, err
	}

	version := note.Version(data.Version)
	if err := p.policy.checkVersion(version); err != nil {
		return nil, err
	}

	// 3. Validate the body for its proof type
	switch version.Type() {
	case note.ProofTransfer:
		return p.validateTransfer(spender, data.Body)
	case note.ProofApprove:
		return p.validateApprove(spender, data.Body)
	case note.ProofMint:
		return p.validateMint(spender, data.Body)
	case note.ProofBurn:
		return p.validateBurn(spender, data.Body)
	default:
		return nil, fault.Invariantf("plaintext proofs do not support %s", version.Type())
	}
}

func (p *Plaintext) validateTransfer(spender common.Address, body []byte) (*note.Result, error) {
	var utxo proof.Transfer
	if err := decode(body, &utxo, "transfer"); err != nil {
		return nil, err
	}

	// A deposit draws on the public owner's funds, so only that owner may sign it
	if utxo.PublicValue.IsDeposit() && utxo.PublicOwner != spender {
		return nil, fault.Authorizationf("deposit from %s signed by %s", utxo.PublicOwner, spender)
	}

	inputs, inputTotal, err := checkInputs(utxo.Inputs, spender)
	if err != nil {
		return nil, fmt.Errorf("check inputs:\n%w", err)
	}

	outputs, outputTotal, err := makeOutputs(utxo.Outputs)
	if err != nil {
		return nil, fmt.Errorf("make outputs:\n%w", err)
	}

	if err := checkBalance(inputTotal, outputTotal, utxo.PublicValue); err != nil {
		return nil, err
	}

	logger.Debug("transfer validated",
		"spender", spender,
		"inputs", len(inputs),
		"outputs", len(outputs),
		"public", int64(utxo.PublicValue),
	)

	return note.NewResult(note.ProofTransfer, &note.TransferResult{
		Inputs:      inputs,
		Outputs:     outputs,
		PublicOwner: utxo.PublicOwner,
		PublicValue: utxo.PublicValue,
		Sender:      spender.Bytes(),
	})
}

func (p *Plaintext) validateApprove(signer common.Address, body []byte) (*note.Result, error) {
	var approve proof.Approve
	if err := decode(body, &approve, "approve"); err != nil {
		return nil, err
	}

	owner, err := note.OwnerAddress(approve.Owner)
	if err != nil {
		return nil, err
	}

	if owner != signer {
		return nil, fault.Authorizationf("approve signed by %s, note owned by %s", signer, owner)
	}

	hash, err := approve.Note().Hash()
	if err != nil {
		return nil, err
	}

	return note.NewResult(note.ProofApprove, &note.ApproveResult{
		NoteHash:   hash,
		SharedSign: approve.SharedSign,
		Sender:     signer.Bytes(),
	})
}

func (p *Plaintext) validateMint(signer common.Address, body []byte) (*note.Result, error) {
	var mint proof.Mint
	if err := decode(body, &mint, "mint"); err != nil {
		return nil, err
	}

	// Minted notes go to the minter
	for i, out := range mint.Outputs {
		owner, err := note.OwnerAddress(out.Owner)
		if err != nil {
			return nil, err
		}

		if owner != signer {
			return nil, fault.Authorizationf("mint output %d owned by %s, signer %s", i, owner, signer)
		}
	}

	outputs, total, err := makeOutputs(mint.Outputs)
	if err != nil {
		return nil, fmt.Errorf("make outputs:\n%w", err)
	}

	return note.NewResult(note.ProofMint, &note.MintResult{
		OldMintHash: mint.OldMintHash,
		NewMintHash: note.Keccak(body),
		TotalMint:   total,
		Outputs:     outputs,
		Sender:      signer.Bytes(),
	})
}

func (p *Plaintext) validateBurn(signer common.Address, body []byte) (*note.Result, error) {
	var burn proof.Burn
	if err := decode(body, &burn, "burn"); err != nil {
		return nil, err
	}

	inputs, total, err := checkInputs(burn.Inputs, signer)
	if err != nil {
		return nil, fmt.Errorf("check inputs:\n%w", err)
	}

	return note.NewResult(note.ProofBurn, &note.BurnResult{
		OldBurnHash: burn.OldBurnHash,
		NewBurnHash: note.Keccak(body),
		TotalBurn:   total,
		Inputs:      inputs,
		Sender:      signer.Bytes(),
	})
}

// checkInputs verifies each input was signed by its owner for this spender
// and returns the spent notes with their value total.
func checkInputs(ins []proof.Input, spender common.Address) ([]note.InputNote, uint64, error) {
	notes := make([]note.InputNote, 0, len(ins))

	var total uint64

	for i, in := range ins {
		n := in.Note()

		digest, err := proof.SpenderNote{Owner: n.Owner, Value: n.Value, Random: n.Random, Spender: spender}.Hash()
		if err != nil {
			return nil, 0, err
		}

		if !note.VerifySigner(in.Owner, digest, in.Signature) {
			return nil, 0, fault.Authorizationf("input %d signature does not match owner", i)
		}

		hash, err := n.Hash()
		if err != nil {
			return nil, 0, err
		}

		var overflow bool

		total, overflow = safemath.Add(total, in.Value)
		if overflow {
			return nil, 0, fault.Overflowf("input total overflows at input %d", i)
		}

		notes = append(notes, note.InputNote{Owner: in.Owner, Hash: hash})
	}

	return notes, total, nil
}

// makeOutputs hashes each output and returns the created notes with their value total.
func makeOutputs(outs []proof.Output) ([]note.OutputNote, uint64, error) {
	notes := make([]note.OutputNote, 0, len(outs))

	var total uint64

	for i, out := range outs {
		hash, err := out.Note().Hash()
		if err != nil {
			return nil, 0, err
		}

		var overflow bool

		total, overflow = safemath.Add(total, out.Value)
		if overflow {
			return nil, 0, fault.Overflowf("output total overflows at output %d", i)
		}

		notes = append(notes, note.OutputNote{Owner: out.Owner, Hash: hash, MetaData: out.MetaData})
	}

	return notes, total, nil
}
