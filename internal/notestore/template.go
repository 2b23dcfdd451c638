package notestore

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/host"
	"NoteVault/internal/note"
	"NoteVault/internal/rpc"
	"NoteVault/internal/storage"
)

// RPC methods served by store instances.
var (
	CreateRegistryMethod = rpc.NewMethod[bool, rpc.Empty]("create_registry")
	DestroyInputMethod   = rpc.NewMethod[common.Hash, rpc.Empty]("destroy_input")
	CreateOutputMethod   = rpc.NewMethod[OutputArgs, rpc.Empty]("create_output")
	UpdateNotesMethod    = rpc.NewMethod[note.TransferResult, rpc.Empty]("update_notes")
	MintMethod           = rpc.NewMethod[note.MintResult, rpc.Empty]("mint")
	BurnMethod           = rpc.NewMethod[note.BurnResult, rpc.Empty]("burn")
	ApproveMethod        = rpc.NewMethod[note.ApproveResult, rpc.Empty]("approve")
	GetApprovalMethod    = rpc.NewMethod[common.Hash, []byte]("get_approval")
	GetNoteMethod        = rpc.NewMethod[common.Hash, note.NoteStatus]("get_note")
)

// OutputArgs are the arguments of CreateOutputMethod.
type OutputArgs struct {
	Hash     common.Hash
	Owner    []byte
	Sender   []byte
	MetaData []byte
}

// Template returns a store template. Every method is restricted to the
// instance creator, the orchestrator that owns the asset.
func Template(name string, approvals bool) host.Template {
	return host.Template{
		Name: name,
		Build: func(env host.Env) *rpc.Mux {
			return serve(env, New(env.DB(), storage.Scope(env.Self), approvals))
		},
	}
}

// guarded wraps fn with the creator check.
func guarded[A, R any](env host.Env, fn func(ctx context.Context, args A) (R, error)) func(ctx context.Context, args A) (R, error) {
	return func(ctx context.Context, args A) (R, error) {
		if err := env.RequireCreator(ctx); err != nil {
			var zero R
			return zero, err
		}

		return fn(ctx, args)
	}
}

func serve(env host.Env, s *Store) *rpc.Mux {
	mux := rpc.NewMux()

	rpc.Handle(mux, CreateRegistryMethod, guarded(env, func(ctx context.Context, canMintBurn bool) (rpc.Empty, error) {
		return rpc.Empty{}, s.CreateRegistry(ctx, canMintBurn)
	}))

	rpc.Handle(mux, DestroyInputMethod, guarded(env, func(ctx context.Context, hash common.Hash) (rpc.Empty, error) {
		return rpc.Empty{}, s.DestroyInput(ctx, hash)
	}))

	rpc.Handle(mux, CreateOutputMethod, guarded(env, func(ctx context.Context, args OutputArgs) (rpc.Empty, error) {
		return rpc.Empty{}, s.CreateOutput(ctx, args.Hash, args.Owner, args.Sender, args.MetaData)
	}))

	rpc.Handle(mux, UpdateNotesMethod, guarded(env, func(ctx context.Context, r note.TransferResult) (rpc.Empty, error) {
		return rpc.Empty{}, s.UpdateNotes(ctx, &r)
	}))

	rpc.Handle(mux, MintMethod, guarded(env, func(ctx context.Context, r note.MintResult) (rpc.Empty, error) {
		return rpc.Empty{}, s.Mint(ctx, &r)
	}))

	rpc.Handle(mux, BurnMethod, guarded(env, func(ctx context.Context, r note.BurnResult) (rpc.Empty, error) {
		return rpc.Empty{}, s.Burn(ctx, &r)
	}))

	rpc.Handle(mux, ApproveMethod, guarded(env, func(ctx context.Context, r note.ApproveResult) (rpc.Empty, error) {
		return rpc.Empty{}, s.Approve(ctx, &r)
	}))

	rpc.Handle(mux, GetApprovalMethod, guarded(env, s.GetApproval))

	rpc.Handle(mux, GetNoteMethod, guarded(env, func(ctx context.Context, hash common.Hash) (note.NoteStatus, error) {
		status, err := s.GetNote(ctx, hash)
		if err != nil {
			return note.NoteStatus{}, err
		}

		return *status, nil
	}))

	return mux
}

// Client calls a store instance.
type Client struct {
	transport rpc.Transport
	addr      common.Address
}

// NewClient returns a client for the store at addr.
func NewClient(t rpc.Transport, addr common.Address) *Client {
	return &Client{transport: t, addr: addr}
}

// Address returns the instance address.
func (c *Client) Address() common.Address {
	return c.addr
}

// CreateRegistry initializes the store.
func (c *Client) CreateRegistry(ctx context.Context, canMintBurn bool) error {
	_, err := CreateRegistryMethod.Call(ctx, c.transport, c.addr, canMintBurn)
	return err
}

// UpdateNotes applies a transfer result.
func (c *Client) UpdateNotes(ctx context.Context, r *note.TransferResult) error {
	_, err := UpdateNotesMethod.Call(ctx, c.transport, c.addr, *r)
	return err
}

// Mint creates minted notes.
func (c *Client) Mint(ctx context.Context, r *note.MintResult) error {
	_, err := MintMethod.Call(ctx, c.transport, c.addr, *r)
	return err
}

// Burn destroys burned notes.
func (c *Client) Burn(ctx context.Context, r *note.BurnResult) error {
	_, err := BurnMethod.Call(ctx, c.transport, c.addr, *r)
	return err
}

// Approve records an approval.
func (c *Client) Approve(ctx context.Context, r *note.ApproveResult) error {
	_, err := ApproveMethod.Call(ctx, c.transport, c.addr, *r)
	return err
}

// GetApproval returns the approval of a note.
func (c *Client) GetApproval(ctx context.Context, hash common.Hash) ([]byte, error) {
	return GetApprovalMethod.Call(ctx, c.transport, c.addr, hash)
}

// GetNote returns an unspent note.
func (c *Client) GetNote(ctx context.Context, hash common.Hash) (*note.NoteStatus, error) {
	status, err := GetNoteMethod.Call(ctx, c.transport, c.addr, hash)
	if err != nil {
		return nil, err
	}

	return &status, nil
}
