package validator

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/fault"
	"NoteVault/internal/host"
	"NoteVault/internal/note"
	"NoteVault/internal/storage"
)

func deployPlaintext(t *testing.T) (*host.Host, *Client) {
	t.Helper()

	db, err := storage.NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	h := host.New(db)
	tmpl := h.Register(Template("plaintext-validator", NewPlaintext(DefaultPolicy)))

	addr, err := h.Deploy(context.Background(), tmpl, common.HexToAddress("0xac1"))
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	return h, NewClient(h, addr)
}

// TestClientValidateProof tests validation through a deployed instance.
func TestClientValidateProof(t *testing.T) {
	_, c := deployPlaintext(t)
	owner := newSigner(t)

	res, err := c.ValidateProof(context.Background(), buildTransfer(t, owner, 100, 40, 60))
	if err != nil {
		t.Fatalf("ValidateProof: %v", err)
	}

	tr, err := res.Transfer()
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if tr.PublicValue != 40 || tr.PublicOwner != owner.Address() {
		t.Errorf("result = %+v", tr)
	}

	_, err = c.ValidateProof(context.Background(), buildTransfer(t, owner, 100, 41, 60))
	if !fault.Is(err, fault.ErrInvariant) {
		t.Fatalf("err = %v, want invariant", err)
	}
}

func TestClientSupportProof(t *testing.T) {
	_, c := deployPlaintext(t)

	ok, err := c.SupportProof(context.Background(), transferV)
	if err != nil || !ok {
		t.Errorf("SupportProof(%s) = %v, %v", transferV, ok, err)
	}

	ok, _ = c.SupportProof(context.Background(), note.MakeVersion(AlgorithmPlaintext, 2, 0).WithType(note.ProofTransfer))
	if ok {
		t.Error("newer major accepted")
	}
}

func TestClientValidateSignature(t *testing.T) {
	_, c := deployPlaintext(t)
	owner := newSigner(t)

	hash := note.Keccak([]byte("message"))

	sig, err := owner.Sign(hash)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	ok, err := c.ValidateSignature(context.Background(), owner.Address().Bytes(), hash, sig)
	if err != nil || !ok {
		t.Errorf("ValidateSignature = %v, %v", ok, err)
	}

	ok, _ = c.ValidateSignature(context.Background(), common.HexToAddress("0x1").Bytes(), hash, sig)
	if ok {
		t.Error("signature accepted for another owner")
	}
}
