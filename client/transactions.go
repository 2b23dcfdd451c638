package client

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"NoteVault/internal/note"
	"NoteVault/internal/proof"
	"NoteVault/internal/safemath"
	"NoteVault/internal/validator"
)

// Proof versions produced by wallets.
var (
	TransferVersion = proofVersion(note.ProofTransfer)
	MintVersion     = proofVersion(note.ProofMint)
	BurnVersion     = proofVersion(note.ProofBurn)
	ApproveVersion  = proofVersion(note.ProofApprove)
)

func proofVersion(t note.ProofType) note.Version {
	p := validator.DefaultPolicy
	return note.MakeVersion(validator.AlgorithmPlaintext, p.Major, p.Minor).WithType(t)
}

// Wallet holds a key and tracks the plaintext notes it owns.
type Wallet struct {
	signer *proof.Signer
	notes  map[common.Hash]proof.Note // notes tracks unspent notes by hash
}

// Pending is a sealed proof and the note changes it makes once accepted.
type Pending struct {
	Proof   []byte        // Proof is the wire proof
	Spent   []common.Hash // Spent are the consumed notes of the wallet
	Created []proof.Note  // Created are the new notes, the wallet's and others'
	NewHash common.Hash   // NewHash is the next mint or burn chain hash
}

// NewWallet creates a wallet with a fresh key.
func NewWallet() (*Wallet, error) {
	s, err := proof.GenerateSigner()
	if err != nil {
		return nil, err
	}

	return &Wallet{signer: s, notes: make(map[common.Hash]proof.Note)}, nil
}

// WalletFromKey creates a wallet for an existing key.
func WalletFromKey(key *ecdsa.PrivateKey) *Wallet {
	return &Wallet{signer: proof.NewSigner(key), notes: make(map[common.Hash]proof.Note)}
}

// Address returns the wallet's address.
func (w *Wallet) Address() common.Address {
	return w.signer.Address()
}

// Balance returns the value of the tracked notes.
func (w *Wallet) Balance() uint64 {
	var total uint64
	for _, n := range w.notes {
		total += n.Value
	}

	return total
}

// Notes returns the hashes of the tracked notes, sorted.
func (w *Wallet) Notes() []common.Hash {
	hashes := make([]common.Hash, 0, len(w.notes))
	for h := range w.notes {
		hashes = append(hashes, h)
	}

	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})

	return hashes
}

// Receive starts tracking n when the wallet owns it.
func (w *Wallet) Receive(n proof.Note) error {
	if !bytes.Equal(n.Owner, w.Address().Bytes()) {
		return nil
	}

	h, err := n.Hash()
	if err != nil {
		return err
	}

	w.notes[h] = n

	return nil
}

// Apply records the effect of an accepted proof.
func (w *Wallet) Apply(p *Pending) error {
	for _, h := range p.Spent {
		delete(w.notes, h)
	}

	for _, n := range p.Created {
		if err := w.Receive(n); err != nil {
			return err
		}
	}

	return nil
}

// selectNotes picks notes covering amount, largest first.
func (w *Wallet) selectNotes(amount uint64) ([]proof.Note, []common.Hash, uint64, error) {
	hashes := w.Notes()
	sort.SliceStable(hashes, func(i, j int) bool {
		return w.notes[hashes[i]].Value > w.notes[hashes[j]].Value
	})

	var (
		picked []proof.Note
		spent  []common.Hash
		total  uint64
	)

	for _, h := range hashes {
		if total >= amount && len(picked) > 0 {
			break
		}

		picked = append(picked, w.notes[h])
		spent = append(spent, h)
		total += w.notes[h].Value
	}

	if total < amount {
		return nil, nil, 0, fmt.Errorf("insufficient notes: have %d, need %d", total, amount)
	}

	return picked, spent, total, nil
}

func (w *Wallet) spendAll(notes []proof.Note) ([]proof.Input, error) {
	inputs := make([]proof.Input, 0, len(notes))

	for _, n := range notes {
		in, err := w.signer.Spend(n, w.Address())
		if err != nil {
			return nil, err
		}

		inputs = append(inputs, in)
	}

	return inputs, nil
}

// Deposit builds a proof moving amount of public funds into one new note.
func (w *Wallet) Deposit(amount uint64) (*Pending, error) {
	pv, err := note.DepositOf(amount)
	if err != nil {
		return nil, err
	}

	out, err := proof.NewNote(w.Address(), amount)
	if err != nil {
		return nil, err
	}

	raw, err := w.signer.Seal(TransferVersion, proof.Transfer{
		Outputs:     []proof.Output{out.Output(nil)},
		PublicOwner: w.Address(),
		PublicValue: pv,
	})
	if err != nil {
		return nil, err
	}

	return &Pending{Proof: raw, Created: []proof.Note{out}}, nil
}

// Send builds a transfer of amount to recipient, returning the change to the wallet.
func (w *Wallet) Send(recipient common.Address, amount uint64, meta []byte) (*Pending, error) {
	return w.move(recipient, amount, 0, meta)
}

// Withdraw builds a proof paying amount out of the private ledger to the wallet.
func (w *Wallet) Withdraw(amount uint64) (*Pending, error) {
	pv, err := note.WithdrawOf(amount)
	if err != nil {
		return nil, err
	}

	return w.move(common.Address{}, 0, pv, nil)
}

// move spends notes covering amount plus a withdrawal and creates the recipient note and change.
func (w *Wallet) move(recipient common.Address, amount uint64, pv note.PublicValue, meta []byte) (*Pending, error) {
	need, overflow := safemath.Add(amount, pv.Abs())
	if overflow {
		return nil, fmt.Errorf("amount %d plus withdrawal %d overflows", amount, pv.Abs())
	}

	picked, spent, total, err := w.selectNotes(need)
	if err != nil {
		return nil, err
	}

	inputs, err := w.spendAll(picked)
	if err != nil {
		return nil, err
	}

	var created []proof.Note

	if amount > 0 {
		n, err := proof.NewNote(recipient, amount)
		if err != nil {
			return nil, err
		}

		created = append(created, n)
	}

	if change := total - need; change > 0 {
		n, err := proof.NewNote(w.Address(), change)
		if err != nil {
			return nil, err
		}

		created = append(created, n)
	}

	body := proof.Transfer{Inputs: inputs, PublicOwner: w.Address(), PublicValue: pv}
	for _, n := range created {
		body.Outputs = append(body.Outputs, n.Output(meta))
	}

	raw, err := w.signer.Seal(TransferVersion, body)
	if err != nil {
		return nil, err
	}

	return &Pending{Proof: raw, Spent: spent, Created: created}, nil
}

// Mint builds a mint of amount to the wallet continuing the chain at prev.
func (w *Wallet) Mint(prev common.Hash, amount uint64) (*Pending, error) {
	out, err := proof.NewNote(w.Address(), amount)
	if err != nil {
		return nil, err
	}

	body := proof.Mint{OldMintHash: prev, Outputs: []proof.Output{out.Output(nil)}}

	next, err := chainHash(body)
	if err != nil {
		return nil, err
	}

	raw, err := w.signer.Seal(MintVersion, body)
	if err != nil {
		return nil, err
	}

	return &Pending{Proof: raw, Created: []proof.Note{out}, NewHash: next}, nil
}

// Burn builds a burn of the given notes continuing the chain at prev.
func (w *Wallet) Burn(prev common.Hash, hashes ...common.Hash) (*Pending, error) {
	notes := make([]proof.Note, 0, len(hashes))
	for _, h := range hashes {
		n, ok := w.notes[h]
		if !ok {
			return nil, fmt.Errorf("note %s is not tracked", h)
		}

		notes = append(notes, n)
	}

	inputs, err := w.spendAll(notes)
	if err != nil {
		return nil, err
	}

	body := proof.Burn{OldBurnHash: prev, Inputs: inputs}

	next, err := chainHash(body)
	if err != nil {
		return nil, err
	}

	raw, err := w.signer.Seal(BurnVersion, body)
	if err != nil {
		return nil, err
	}

	return &Pending{Proof: raw, Spent: hashes, NewHash: next}, nil
}

// Approve builds an approval handing shared to the spender of a tracked note.
func (w *Wallet) Approve(hash common.Hash, shared []byte) (*Pending, error) {
	n, ok := w.notes[hash]
	if !ok {
		return nil, fmt.Errorf("note %s is not tracked", hash)
	}

	raw, err := w.signer.Seal(ApproveVersion, proof.Approve{Owner: n.Owner, Value: n.Value, Random: n.Random, SharedSign: shared})
	if err != nil {
		return nil, err
	}

	return &Pending{Proof: raw}, nil
}

// chainHash returns the hash a mint or burn body advances its chain to.
func chainHash(body any) (common.Hash, error) {
	enc, err := rlp.EncodeToBytes(body)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode body:\n%w", err)
	}

	return note.Keccak(enc), nil
}
