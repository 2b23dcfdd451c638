package validator

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/fault"
	"NoteVault/internal/note"
	"NoteVault/internal/pedersen"
	"NoteVault/internal/proof"
)

func confidentialV(t note.ProofType) note.Version {
	return note.MakeVersion(AlgorithmConfidential, 1, 1).WithType(t)
}

func newConfidential(t *testing.T) *Confidential {
	t.Helper()

	verifier, err := pedersen.NewVerifier(pedersen.DefaultCacheSize)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	return NewConfidential(DefaultPolicy, verifier)
}

func pnotes(t *testing.T, values ...uint64) []pedersen.Note {
	t.Helper()

	out := make([]pedersen.Note, len(values))
	for i, v := range values {
		n, err := pedersen.NewNote(v)
		if err != nil {
			t.Fatalf("NewNote: %v", err)
		}

		out[i] = n
	}

	return out
}

func TestConfidentialTransfer(t *testing.T) {
	v := newConfidential(t)
	signer := newSigner(t)

	tx, err := pedersen.Prove(note.ProofTransfer, pnotes(t, 100), pnotes(t, 60, 40), 0, signer.Address())
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}

	raw, err := signer.SealConfidential(confidentialV(note.ProofTransfer), tx,
		proof.TransferExtra{MetaData: [][]byte{[]byte("a")}})
	if err != nil {
		t.Fatalf("SealConfidential: %v", err)
	}

	res, err := v.ValidateProof(context.Background(), raw)
	if err != nil {
		t.Fatalf("ValidateProof: %v", err)
	}

	tr, err := res.Transfer()
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if len(tr.Inputs) != 1 || len(tr.Outputs) != 2 || tr.PublicValue != 0 {
		t.Errorf("transfer = %+v", tr)
	}

	if string(tr.Outputs[0].MetaData) != "a" || len(tr.Outputs[1].MetaData) != 0 {
		t.Errorf("metadata %q %q", tr.Outputs[0].MetaData, tr.Outputs[1].MetaData)
	}
}

func TestConfidentialWrongSigner(t *testing.T) {
	v := newConfidential(t)
	authorized := newSigner(t)
	other := newSigner(t)

	tx, _ := pedersen.Prove(note.ProofTransfer, pnotes(t, 5), pnotes(t, 5), 0, authorized.Address())

	raw, _ := other.SealConfidential(confidentialV(note.ProofTransfer), tx, proof.TransferExtra{})
	if _, err := v.ValidateProof(context.Background(), raw); !fault.Is(err, fault.ErrAuthorization) {
		t.Fatalf("err = %v, want authorization", err)
	}
}

func TestConfidentialUnbalanced(t *testing.T) {
	v := newConfidential(t)
	signer := newSigner(t)

	tx, _ := pedersen.Prove(note.ProofTransfer, pnotes(t, 5), pnotes(t, 6), 0, signer.Address())

	raw, _ := signer.SealConfidential(confidentialV(note.ProofTransfer), tx, proof.TransferExtra{})
	if _, err := v.ValidateProof(context.Background(), raw); !fault.Is(err, fault.ErrAuthorization) {
		t.Fatalf("err = %v, want authorization", err)
	}
}

func TestConfidentialTypeMismatch(t *testing.T) {
	v := newConfidential(t)
	signer := newSigner(t)

	tx, _ := pedersen.Prove(note.ProofWithdraw, pnotes(t, 5), pnotes(t, 3), 2, signer.Address())

	raw, _ := signer.SealConfidential(confidentialV(note.ProofTransfer), tx, proof.TransferExtra{})
	if _, err := v.ValidateProof(context.Background(), raw); !fault.Is(err, fault.ErrInvariant) {
		t.Fatalf("err = %v, want invariant", err)
	}
}

func TestConfidentialDeposit(t *testing.T) {
	v := newConfidential(t)
	signer := newSigner(t)
	depositor := newSigner(t)

	tx, _ := pedersen.Prove(note.ProofDeposit, nil, pnotes(t, 25), 25, signer.Address())

	consent, err := depositor.Sign(note.Keccak(tx))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	raw, _ := signer.SealConfidential(confidentialV(note.ProofDeposit), tx, proof.TransferExtra{
		PublicOwner:      depositor.Address(),
		DepositSignature: consent,
	})

	res, err := v.ValidateProof(context.Background(), raw)
	if err != nil {
		t.Fatalf("ValidateProof: %v", err)
	}

	if res.Type != note.ProofDeposit {
		t.Errorf("type = %s", res.Type)
	}

	tr, _ := res.Transfer()
	if tr.PublicValue != -25 || tr.PublicOwner != depositor.Address() {
		t.Errorf("transfer = %+v", tr)
	}

	// Consent from someone other than the public owner
	forged, _ := signer.SealConfidential(confidentialV(note.ProofDeposit), tx, proof.TransferExtra{
		PublicOwner:      signer.Address(),
		DepositSignature: consent,
	})
	if _, err := v.ValidateProof(context.Background(), forged); !fault.Is(err, fault.ErrAuthorization) {
		t.Fatalf("err = %v, want authorization", err)
	}
}

func TestConfidentialWithdraw(t *testing.T) {
	v := newConfidential(t)
	signer := newSigner(t)

	tx, _ := pedersen.Prove(note.ProofWithdraw, pnotes(t, 50), pnotes(t, 20), 30, signer.Address())

	raw, _ := signer.SealConfidential(confidentialV(note.ProofWithdraw), tx, proof.TransferExtra{})
	if _, err := v.ValidateProof(context.Background(), raw); !fault.Is(err, fault.ErrInvariant) {
		t.Fatalf("zero owner: err = %v, want invariant", err)
	}

	to := common.HexToAddress("0xbeef")

	raw, _ = signer.SealConfidential(confidentialV(note.ProofWithdraw), tx, proof.TransferExtra{PublicOwner: to})

	res, err := v.ValidateProof(context.Background(), raw)
	if err != nil {
		t.Fatalf("ValidateProof: %v", err)
	}

	tr, _ := res.Transfer()
	if tr.PublicValue != 30 || tr.PublicOwner != to {
		t.Errorf("transfer = %+v", tr)
	}
}

func TestConfidentialMintBurn(t *testing.T) {
	v := newConfidential(t)
	signer := newSigner(t)

	tx, _ := pedersen.Prove(note.ProofMint, nil, pnotes(t, 4, 6), 10, signer.Address())

	raw, _ := signer.SealConfidential(confidentialV(note.ProofMint), tx, proof.MintExtra{})

	res, err := v.ValidateProof(context.Background(), raw)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	mint, _ := res.Mint()
	if mint.TotalMint != 10 || len(mint.Outputs) != 2 {
		t.Errorf("mint = %+v", mint)
	}

	tx, _ = pedersen.Prove(note.ProofBurn, pnotes(t, 4), nil, 4, signer.Address())

	raw, _ = signer.SealConfidential(confidentialV(note.ProofBurn), tx, proof.BurnExtra{OldBurnHash: mint.NewMintHash})

	res, err = v.ValidateProof(context.Background(), raw)
	if err != nil {
		t.Fatalf("burn: %v", err)
	}

	burn, _ := res.Burn()
	if burn.TotalBurn != 4 || burn.OldBurnHash != mint.NewMintHash {
		t.Errorf("burn = %+v", burn)
	}
}
