// Package notestore keeps the set of unspent notes of one asset.
//
// A note hash is created at most once and destroyed at most once. Every
// operation runs inside the caller's storage transaction: when any note of a
// batch is missing or duplicated, the error aborts the whole transaction and
// none of the batch is applied.
package notestore

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/fault"
	"NoteVault/internal/logger"
	"NoteVault/internal/note"
	"NoteVault/internal/storage"
)

// initKey holds the registry settings under SpaceMeta.
var initKey = []byte("init")

// settings is the one-time registry configuration.
type settings struct {
	CanMintBurn bool `cbor:"1,keyasint"`
}

// record is a stored note.
type record struct {
	Owner    []byte `cbor:"1,keyasint"`
	Sender   []byte `cbor:"2,keyasint"`
	MetaData []byte `cbor:"3,keyasint,omitempty"`
}

// Store is the note set of one instance.
type Store struct {
	db        *storage.Storage
	scope     storage.Scope
	approvals bool
}

// New returns the store kept under scope.
// A store without approvals rejects Approve and GetApproval.
func New(db *storage.Storage, scope storage.Scope, approvals bool) *Store {
	return &Store{db: db, scope: scope, approvals: approvals}
}

func (s *Store) noteKey(hash common.Hash) []byte {
	return storage.Key(s.scope, storage.SpaceNote, hash.Bytes())
}

func (s *Store) approvalKey(hash common.Hash) []byte {
	return storage.Key(s.scope, storage.SpaceApproval, hash.Bytes())
}

// settings loads the registry configuration.
func (s *Store) settings(ctx context.Context) (settings, error) {
	var cfg settings

	found, err := s.db.GetRecord(ctx, storage.Key(s.scope, storage.SpaceMeta, initKey), &cfg)
	if err != nil {
		return settings{}, fmt.Errorf("load settings:\n%w", err)
	}

	if !found {
		return settings{}, fault.Invariantf("uninitialized")
	}

	return cfg, nil
}

// CreateRegistry initializes the store. It succeeds once.
func (s *Store) CreateRegistry(ctx context.Context, canMintBurn bool) error {
	key := storage.Key(s.scope, storage.SpaceMeta, initKey)

	return s.db.Update(ctx, func(ctx context.Context) error {
		exists, err := s.db.Has(ctx, key)
		if err != nil {
			return err
		}

		if exists {
			return fault.Invariantf("already initialized")
		}

		return s.db.PutRecord(ctx, key, settings{CanMintBurn: canMintBurn})
	})
}

// DestroyInput removes a note and its approval.
func (s *Store) DestroyInput(ctx context.Context, hash common.Hash) error {
	return s.db.Update(ctx, func(ctx context.Context) error {
		if _, err := s.settings(ctx); err != nil {
			return err
		}

		return s.destroy(ctx, hash)
	})
}

// CreateOutput adds a note.
func (s *Store) CreateOutput(ctx context.Context, hash common.Hash, owner, sender, meta []byte) error {
	return s.db.Update(ctx, func(ctx context.Context) error {
		if _, err := s.settings(ctx); err != nil {
			return err
		}

		return s.create(ctx, hash, record{Owner: owner, Sender: sender, MetaData: meta})
	})
}

func (s *Store) destroy(ctx context.Context, hash common.Hash) error {
	key := s.noteKey(hash)

	exists, err := s.db.Has(ctx, key)
	if err != nil {
		return err
	}

	if !exists {
		return fault.Invariantf("missing note %s", hash)
	}

	if err := s.db.Delete(ctx, key); err != nil {
		return err
	}

	if s.approvals {
		if err := s.db.Delete(ctx, s.approvalKey(hash)); err != nil {
			return err
		}
	}

	logger.Debug("note destroyed", "hash", hash)

	return nil
}

func (s *Store) create(ctx context.Context, hash common.Hash, rec record) error {
	key := s.noteKey(hash)

	exists, err := s.db.Has(ctx, key)
	if err != nil {
		return err
	}

	if exists {
		return fault.Invariantf("duplicate note %s", hash)
	}

	if err := s.db.PutRecord(ctx, key, rec); err != nil {
		return err
	}

	logger.Debug("note created", "hash", hash)

	return nil
}

// apply destroys inputs, then creates outputs owned by sender.
// Destroys come first so an output can never be spent by its own operation.
func (s *Store) apply(ctx context.Context, inputs []note.InputNote, outputs []note.OutputNote, sender []byte) error {
	for _, in := range inputs {
		if err := s.destroy(ctx, in.Hash); err != nil {
			return err
		}
	}

	for _, out := range outputs {
		if err := s.create(ctx, out.Hash, record{Owner: out.Owner, Sender: sender, MetaData: out.MetaData}); err != nil {
			return err
		}
	}

	return nil
}

// UpdateNotes applies a transfer result.
func (s *Store) UpdateNotes(ctx context.Context, r *note.TransferResult) error {
	return s.db.Update(ctx, func(ctx context.Context) error {
		if _, err := s.settings(ctx); err != nil {
			return err
		}

		return s.apply(ctx, r.Inputs, r.Outputs, r.Sender)
	})
}

// Mint creates the minted notes.
func (s *Store) Mint(ctx context.Context, r *note.MintResult) error {
	return s.db.Update(ctx, func(ctx context.Context) error {
		if err := s.requireMintBurn(ctx); err != nil {
			return err
		}

		return s.apply(ctx, nil, r.Outputs, r.Sender)
	})
}

// Burn destroys the burned notes.
func (s *Store) Burn(ctx context.Context, r *note.BurnResult) error {
	return s.db.Update(ctx, func(ctx context.Context) error {
		if err := s.requireMintBurn(ctx); err != nil {
			return err
		}

		return s.apply(ctx, r.Inputs, nil, r.Sender)
	})
}

func (s *Store) requireMintBurn(ctx context.Context) error {
	cfg, err := s.settings(ctx)
	if err != nil {
		return err
	}

	if !cfg.CanMintBurn {
		return fault.Authorizationf("mint and burn are disabled")
	}

	return nil
}

// Approve stores the shared secret of an existing note, replacing any prior one.
func (s *Store) Approve(ctx context.Context, r *note.ApproveResult) error {
	if !s.approvals {
		return fault.Invariantf("approvals are not supported")
	}

	return s.db.Update(ctx, func(ctx context.Context) error {
		if _, err := s.settings(ctx); err != nil {
			return err
		}

		exists, err := s.db.Has(ctx, s.noteKey(r.NoteHash))
		if err != nil {
			return err
		}

		if !exists {
			return fault.Invariantf("missing note %s", r.NoteHash)
		}

		return s.db.Set(ctx, s.approvalKey(r.NoteHash), r.SharedSign)
	})
}

// GetApproval returns the shared secret approved for a note.
func (s *Store) GetApproval(ctx context.Context, hash common.Hash) ([]byte, error) {
	if !s.approvals {
		return nil, fault.Invariantf("approvals are not supported")
	}

	if _, err := s.settings(ctx); err != nil {
		return nil, err
	}

	sign, err := s.db.Get(ctx, s.approvalKey(hash))
	if err != nil {
		return nil, err
	}

	if sign == nil {
		return nil, fault.Invariantf("no approval for %s", hash)
	}

	return sign, nil
}

// GetNote returns an unspent note.
func (s *Store) GetNote(ctx context.Context, hash common.Hash) (*note.NoteStatus, error) {
	if _, err := s.settings(ctx); err != nil {
		return nil, err
	}

	var rec record

	found, err := s.db.GetRecord(ctx, s.noteKey(hash), &rec)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fault.Invariantf("missing note %s", hash)
	}

	return &note.NoteStatus{Owner: rec.Owner, Hash: hash, Sender: rec.Sender}, nil
}
