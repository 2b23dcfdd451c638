package note

import (
	"bytes"
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"NoteVault/internal/fault"
)

// TestVersionPacking checks the byte layout name<<24 | major<<16 | minor<<8 | type.
func TestVersionPacking(t *testing.T) {
	v := MakeVersion(1, 2, 3).WithType(ProofBurn)

	if uint32(v) != 0x01020303 {
		t.Fatalf("packed version = %#x, want 0x01020303", uint32(v))
	}

	if v.Name() != 1 || v.Major() != 2 || v.Minor() != 3 || v.Type() != ProofBurn {
		t.Errorf("unpacked = %d.%d.%d/%d", v.Name(), v.Major(), v.Minor(), v.Type())
	}

	if v.Template() != MakeVersion(1, 2, 3) {
		t.Errorf("Template() = %#x", uint32(v.Template()))
	}

	if MakeVersion(0, 1, 1) != 0x010100 {
		t.Errorf("MakeVersion(0,1,1) = %#x", uint32(MakeVersion(0, 1, 1)))
	}
}

func TestProofTypeClasses(t *testing.T) {
	for _, pt := range []ProofType{ProofTransfer, ProofDeposit, ProofWithdraw} {
		if !pt.IsTransfer() {
			t.Errorf("%s not a transfer kind", pt)
		}
	}

	if ProofMint.IsTransfer() || ProofApprove.IsTransfer() {
		t.Error("mint or approve reported as transfer kind")
	}

	if ProofType(0).Valid() || ProofType(7).Valid() {
		t.Error("out-of-range proof type reported valid")
	}
}

// TestPublicValueRLP checks the signed encoding including both extremes.
func TestPublicValueRLP(t *testing.T) {
	for _, v := range []PublicValue{0, 40, -40, math.MaxInt64, math.MinInt64} {
		enc, err := rlp.EncodeToBytes(v)
		if err != nil {
			t.Fatalf("encode %d: %v", v, err)
		}

		var out PublicValue
		if err := rlp.DecodeBytes(enc, &out); err != nil {
			t.Fatalf("decode %d: %v", v, err)
		}

		if out != v {
			t.Errorf("round trip %d = %d", v, out)
		}
	}
}

func TestPublicValueRejectsNonCanonical(t *testing.T) {
	bad := []publicValueWire{
		{Negative: true, Magnitude: 0},
		{Negative: false, Magnitude: math.MaxInt64 + 1},
		{Negative: true, Magnitude: math.MaxInt64 + 2},
	}

	for _, w := range bad {
		enc, _ := rlp.EncodeToBytes(w)

		var out PublicValue
		if err := rlp.DecodeBytes(enc, &out); err == nil {
			t.Errorf("decoded non-canonical %+v as %d", w, out)
		}
	}
}

func TestPublicValueAbs(t *testing.T) {
	if got := PublicValue(math.MinInt64).Abs(); got != 1<<63 {
		t.Errorf("Abs(MinInt64) = %d", got)
	}

	if got := PublicValue(-5).Abs(); got != 5 {
		t.Errorf("Abs(-5) = %d", got)
	}
}

// TestRecoverSigner checks sign-then-recover yields the key's address.
func TestRecoverSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	addr := crypto.PubkeyToAddress(key.PublicKey)
	hash := Keccak([]byte("payload"))

	sig, err := Sign(hash, key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	got, err := RecoverSigner(hash, sig)
	if err != nil {
		t.Fatalf("RecoverSigner: %v", err)
	}

	if got != addr {
		t.Errorf("recovered %s, want %s", got, addr)
	}

	if !VerifySigner(addr.Bytes(), hash, sig) {
		t.Error("VerifySigner rejected valid signature")
	}

	if VerifySigner(common.Address{1}.Bytes(), hash, sig) {
		t.Error("VerifySigner accepted wrong owner")
	}

	if _, err := RecoverSigner(hash, sig[:64]); !fault.Is(err, fault.ErrAuthorization) {
		t.Errorf("short signature error = %v, want authorization", err)
	}
}

// TestResultEnvelope checks typed decoding honours the proof type tag.
func TestResultEnvelope(t *testing.T) {
	in := &TransferResult{
		Inputs:      []InputNote{{Owner: []byte{1}, Hash: common.Hash{2}}},
		Outputs:     []OutputNote{{Owner: []byte{3}, Hash: common.Hash{4}, MetaData: []byte("memo")}},
		PublicOwner: common.Address{5},
		PublicValue: -7,
		Sender:      []byte{6},
	}

	res, err := NewResult(ProofDeposit, in)
	if err != nil {
		t.Fatalf("NewResult: %v", err)
	}

	wire, err := res.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	back, err := DecodeResult(wire)
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}

	out, err := back.Transfer()
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if out.PublicValue != -7 || out.Outputs[0].Hash != (common.Hash{4}) || !bytes.Equal(out.Outputs[0].MetaData, []byte("memo")) {
		t.Errorf("decoded %+v", out)
	}

	if _, err := back.Mint(); !fault.Is(err, fault.ErrInvariant) {
		t.Errorf("Mint() on deposit result = %v, want invariant", err)
	}
}
