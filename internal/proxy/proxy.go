// Package proxy binds an owner and a role to the instance currently serving it.
package proxy

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/fault"
	"NoteVault/internal/logger"
	"NoteVault/internal/storage"
	"NoteVault/internal/versions"
)

// MigrateFunc moves the state of current into a new instance and returns it.
type MigrateFunc func(ctx context.Context, current common.Address) (common.Address, error)

// Proxy stores the bindings under one scope.
type Proxy struct {
	db    *storage.Storage
	scope storage.Scope
}

// New returns the proxy kept under scope.
func New(db *storage.Storage, scope storage.Scope) *Proxy {
	return &Proxy{db: db, scope: scope}
}

func (p *Proxy) key(owner common.Address, role versions.Role) []byte {
	return storage.Key(p.scope, storage.SpaceProxy, owner.Bytes(), []byte{byte(role)})
}

// Bind records the first instance of (owner, role).
func (p *Proxy) Bind(ctx context.Context, owner common.Address, role versions.Role, addr common.Address) error {
	return p.db.Update(ctx, func(ctx context.Context) error {
		exists, err := p.db.Has(ctx, p.key(owner, role))
		if err != nil {
			return err
		}

		if exists {
			return fault.Invariantf("%s of %s is already bound", role, owner)
		}

		return p.db.Set(ctx, p.key(owner, role), addr.Bytes())
	})
}

// Address returns the instance bound to (owner, role).
func (p *Proxy) Address(ctx context.Context, owner common.Address, role versions.Role) (common.Address, error) {
	v, err := p.db.Get(ctx, p.key(owner, role))
	if err != nil {
		return common.Address{}, err
	}

	if v == nil {
		return common.Address{}, fault.Invariantf("no %s bound for %s", role, owner)
	}

	return common.BytesToAddress(v), nil
}

// Upgrade migrates the instance bound to (owner, role) and repoints the binding.
// Only the owner may upgrade. A migration yielding the zero address aborts
// and leaves the binding unchanged.
func (p *Proxy) Upgrade(ctx context.Context, caller, owner common.Address, role versions.Role, migrate MigrateFunc) (common.Address, error) {
	if caller != owner {
		return common.Address{}, fault.Authorizationf("%s cannot upgrade the %s of %s", caller, role, owner)
	}

	var next common.Address

	err := p.db.Update(ctx, func(ctx context.Context) error {
		current, err := p.Address(ctx, owner, role)
		if err != nil {
			return err
		}

		if next, err = migrate(ctx, current); err != nil {
			return fmt.Errorf("migrate %s:\n%w", current, err)
		}

		if next == (common.Address{}) {
			return fault.Externalf("migrate returned null address")
		}

		return p.db.Set(ctx, p.key(owner, role), next.Bytes())
	})
	if err != nil {
		return common.Address{}, err
	}

	logger.Info("proxy upgraded", "owner", owner, "role", role, "address", next)

	return next, nil
}
