package proof

import (
	"testing"

	"github.com/ethereum/go-ethereum/rlp"

	"NoteVault/internal/note"
)

// TestSealOpen checks the outer signature recovers the sealing signer.
func TestSealOpen(t *testing.T) {
	signer, err := GenerateSigner()
	if err != nil {
		t.Fatalf("GenerateSigner: %v", err)
	}

	n, err := NewNote(signer.Address(), 50)
	if err != nil {
		t.Fatalf("NewNote: %v", err)
	}

	version := note.MakeVersion(1, 1, 1).WithType(note.ProofMint)

	raw, err := signer.Seal(version, Mint{Outputs: []Output{n.Output(nil)}})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	p, who, err := Open(raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if who != signer.Address() {
		t.Errorf("recovered %s, want %s", who, signer.Address())
	}

	var data Data
	if err := rlp.DecodeBytes(p.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}

	if note.Version(data.Version) != version {
		t.Errorf("version = %#x, want %#x", data.Version, uint32(version))
	}

	var mint Mint
	if err := rlp.DecodeBytes(data.Body, &mint); err != nil {
		t.Fatalf("decode mint: %v", err)
	}

	if len(mint.Outputs) != 1 || mint.Outputs[0].Value != 50 {
		t.Errorf("decoded mint %+v", mint)
	}
}

// TestSpendBindsSpender checks the input signature covers the spender.
func TestSpendBindsSpender(t *testing.T) {
	owner, _ := GenerateSigner()
	spender, _ := GenerateSigner()

	n, _ := NewNote(owner.Address(), 10)

	in, err := owner.Spend(n, spender.Address())
	if err != nil {
		t.Fatalf("Spend: %v", err)
	}

	bound, _ := SpenderNote{Owner: n.Owner, Value: n.Value, Random: n.Random, Spender: spender.Address()}.Hash()
	other, _ := SpenderNote{Owner: n.Owner, Value: n.Value, Random: n.Random, Spender: owner.Address()}.Hash()

	if !note.VerifySigner(n.Owner, bound, in.Signature) {
		t.Error("signature does not verify for the bound spender")
	}

	if note.VerifySigner(n.Owner, other, in.Signature) {
		t.Error("signature verifies for a different spender")
	}
}

// TestNoteHashDistinct checks fresh randomness separates equal-value notes.
func TestNoteHashDistinct(t *testing.T) {
	signer, _ := GenerateSigner()

	a, _ := NewNote(signer.Address(), 5)
	b, _ := NewNote(signer.Address(), 5)

	ha, _ := a.Hash()
	hb, _ := b.Hash()

	if ha == hb {
		t.Error("distinct notes share a hash")
	}

	again, _ := a.Hash()
	if again != ha {
		t.Error("note hash is not deterministic")
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	if _, _, err := Open([]byte{0x01, 0x02}); err == nil {
		t.Error("Open accepted garbage")
	}
}
