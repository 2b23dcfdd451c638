// Package names maps short identifiers to component addresses.
//
// The first registration of an identifier must come from the registered
// address itself, which also becomes its manager. Later changes are made by
// the manager.
package names

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/fault"
	"NoteVault/internal/logger"
	"NoteVault/internal/storage"
)

// MaxIDLength bounds identifiers.
const MaxIDLength = 16

type entry struct {
	Address common.Address `cbor:"1,keyasint"`
	Manager common.Address `cbor:"2,keyasint"`
}

// Registry is the name table of one instance.
type Registry struct {
	db    *storage.Storage
	scope storage.Scope
}

// New returns the registry kept under scope.
func New(db *storage.Storage, scope storage.Scope) *Registry {
	return &Registry{db: db, scope: scope}
}

func checkID(id string) error {
	if len(id) == 0 || len(id) > MaxIDLength {
		return fault.Invariantf("identifier %q must be 1 to %d bytes", id, MaxIDLength)
	}

	return nil
}

func (r *Registry) load(ctx context.Context, id string) (entry, bool, error) {
	var e entry

	found, err := r.db.GetRecord(ctx, storage.Key(r.scope, storage.SpaceName, []byte(id)), &e)
	if err != nil {
		return entry{}, false, err
	}

	return e, found, nil
}

func (r *Registry) store(ctx context.Context, id string, e entry) error {
	return r.db.PutRecord(ctx, storage.Key(r.scope, storage.SpaceName, []byte(id)), e)
}

// SetContractAddress binds id to addr on behalf of caller.
func (r *Registry) SetContractAddress(ctx context.Context, caller common.Address, id string, addr common.Address) error {
	if err := checkID(id); err != nil {
		return err
	}

	return r.db.Update(ctx, func(ctx context.Context) error {
		e, found, err := r.load(ctx, id)
		if err != nil {
			return err
		}

		if !found {
			if caller != addr {
				return fault.Authorizationf("%s can only be registered by itself", id)
			}

			logger.Debug("name registered", "id", id, "address", addr)

			return r.store(ctx, id, entry{Address: addr, Manager: addr})
		}

		if caller != e.Manager {
			return fault.Authorizationf("%s is not the manager of %s", caller, id)
		}

		e.Address = addr

		return r.store(ctx, id, e)
	})
}

// GetContractAddress returns the address bound to id, zero when unset.
func (r *Registry) GetContractAddress(ctx context.Context, id string) (common.Address, error) {
	if err := checkID(id); err != nil {
		return common.Address{}, err
	}

	e, _, err := r.load(ctx, id)

	return e.Address, err
}

// SetManager hands the management of id over.
func (r *Registry) SetManager(ctx context.Context, caller common.Address, id string, manager common.Address) error {
	if err := checkID(id); err != nil {
		return err
	}

	return r.db.Update(ctx, func(ctx context.Context) error {
		e, found, err := r.load(ctx, id)
		if err != nil {
			return err
		}

		if !found {
			return fault.Invariantf("%s is not registered", id)
		}

		if caller != e.Manager {
			return fault.Authorizationf("%s is not the manager of %s", caller, id)
		}

		e.Manager = manager

		return r.store(ctx, id, e)
	})
}

// GetManager returns the manager of id, zero when unset.
func (r *Registry) GetManager(ctx context.Context, id string) (common.Address, error) {
	if err := checkID(id); err != nil {
		return common.Address{}, err
	}

	e, _, err := r.load(ctx, id)

	return e.Manager, err
}
