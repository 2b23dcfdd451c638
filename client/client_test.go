package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/note"
	"NoteVault/internal/validator"
)

func newWallet(t *testing.T) *Wallet {
	t.Helper()

	w, err := NewWallet()
	if err != nil {
		t.Fatalf("NewWallet: %v", err)
	}

	return w
}

// TestDepositProofValidates tests that a deposit proof passes the plaintext validator.
func TestDepositProofValidates(t *testing.T) {
	w := newWallet(t)

	p, err := w.Deposit(100)
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	res, err := validator.NewPlaintext(validator.DefaultPolicy).ValidateProof(context.Background(), p.Proof)
	if err != nil {
		t.Fatalf("ValidateProof: %v", err)
	}

	tr, err := res.Transfer()
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if tr.PublicValue != -100 || len(tr.Outputs) != 1 {
		t.Errorf("result = %+v", tr)
	}

	if err := w.Apply(p); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if w.Balance() != 100 {
		t.Errorf("balance = %d", w.Balance())
	}
}

// TestSendWithChange tests note selection, change and recipient tracking.
func TestSendWithChange(t *testing.T) {
	alice, bob := newWallet(t), newWallet(t)

	dep, _ := alice.Deposit(100)
	_ = alice.Apply(dep)

	p, err := alice.Send(bob.Address(), 60, []byte("rent"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	v := validator.NewPlaintext(validator.DefaultPolicy)
	if _, err := v.ValidateProof(context.Background(), p.Proof); err != nil {
		t.Fatalf("ValidateProof: %v", err)
	}

	_ = alice.Apply(p)
	_ = bob.Apply(p)

	if alice.Balance() != 40 || bob.Balance() != 60 {
		t.Errorf("balances alice %d bob %d", alice.Balance(), bob.Balance())
	}

	if _, err := alice.Send(bob.Address(), 41, nil); err == nil {
		t.Error("expected insufficient notes")
	}
}

func TestWithdrawAndBurn(t *testing.T) {
	w := newWallet(t)
	v := validator.NewPlaintext(validator.DefaultPolicy)

	mint, err := w.Mint(common.Hash{}, 30)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	res, err := v.ValidateProof(context.Background(), mint.Proof)
	if err != nil {
		t.Fatalf("ValidateProof(mint): %v", err)
	}

	mr, _ := res.Mint()
	if mr.NewMintHash != mint.NewHash {
		t.Errorf("chain hash %s, validator says %s", mint.NewHash, mr.NewMintHash)
	}

	_ = w.Apply(mint)

	withdraw, err := w.Withdraw(10)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}

	if _, err := v.ValidateProof(context.Background(), withdraw.Proof); err != nil {
		t.Fatalf("ValidateProof(withdraw): %v", err)
	}

	_ = w.Apply(withdraw)

	burn, err := w.Burn(common.Hash{}, w.Notes()...)
	if err != nil {
		t.Fatalf("Burn: %v", err)
	}

	res, err = v.ValidateProof(context.Background(), burn.Proof)
	if err != nil {
		t.Fatalf("ValidateProof(burn): %v", err)
	}

	if br, _ := res.Burn(); br.TotalBurn != 20 || br.NewBurnHash != burn.NewHash {
		t.Errorf("burn result = %+v", br)
	}
}

// TestErrorDecoding tests that server failures keep their status and class.
func TestErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"missing note","class":"invariant"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	_, err := c.Note(common.HexToAddress("0x1"), common.Hash{})

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *Error", err)
	}

	if apiErr.Status != http.StatusConflict || apiErr.Class != "invariant" || apiErr.Message != "missing note" {
		t.Errorf("error = %+v", apiErr)
	}
}

func TestProofVersions(t *testing.T) {
	p := validator.NewPlaintext(validator.DefaultPolicy)

	for _, v := range []note.Version{TransferVersion, MintVersion, BurnVersion, ApproveVersion} {
		if !p.SupportProof(v) {
			t.Errorf("version %s not supported", v)
		}
	}
}
