package proxy

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/fault"
	"NoteVault/internal/storage"
	"NoteVault/internal/versions"
)

var (
	owner   = common.HexToAddress("0x0a")
	current = common.HexToAddress("0xc1")
	next    = common.HexToAddress("0xc2")
)

func newBoundProxy(t *testing.T) *Proxy {
	t.Helper()

	db, err := storage.NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	p := New(db, storage.Scope{3})
	if err := p.Bind(context.Background(), owner, versions.RoleStorage, current); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	return p
}

func bound(t *testing.T, p *Proxy) common.Address {
	t.Helper()

	addr, err := p.Address(context.Background(), owner, versions.RoleStorage)
	if err != nil {
		t.Fatalf("Address: %v", err)
	}

	return addr
}

func TestBindOnce(t *testing.T) {
	p := newBoundProxy(t)

	if err := p.Bind(context.Background(), owner, versions.RoleStorage, next); !fault.Is(err, fault.ErrInvariant) {
		t.Fatalf("rebind: err = %v", err)
	}

	// The other role is independent
	if _, err := p.Address(context.Background(), owner, versions.RoleValidator); !fault.Is(err, fault.ErrInvariant) {
		t.Fatalf("unbound role: err = %v", err)
	}
}

func TestUpgrade(t *testing.T) {
	p := newBoundProxy(t)

	var migrated common.Address
	got, err := p.Upgrade(context.Background(), owner, owner, versions.RoleStorage, func(_ context.Context, from common.Address) (common.Address, error) {
		migrated = from
		return next, nil
	})
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}

	if migrated != current || got != next || bound(t, p) != next {
		t.Errorf("migrated %s, returned %s, bound %s", migrated, got, bound(t, p))
	}
}

// TestUpgradeNullAddress tests that a null migration leaves the binding in place.
func TestUpgradeNullAddress(t *testing.T) {
	p := newBoundProxy(t)

	_, err := p.Upgrade(context.Background(), owner, owner, versions.RoleStorage, func(context.Context, common.Address) (common.Address, error) {
		return common.Address{}, nil
	})
	if !fault.Is(err, fault.ErrExternal) {
		t.Fatalf("err = %v, want external", err)
	}

	if bound(t, p) != current {
		t.Error("binding moved to the null address")
	}
}

func TestUpgradeMigrateFails(t *testing.T) {
	p := newBoundProxy(t)
	boom := errors.New("boom")

	_, err := p.Upgrade(context.Background(), owner, owner, versions.RoleStorage, func(context.Context, common.Address) (common.Address, error) {
		return next, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	if bound(t, p) != current {
		t.Error("binding moved after a failed migration")
	}
}

func TestUpgradeOwnerOnly(t *testing.T) {
	p := newBoundProxy(t)

	called := false
	_, err := p.Upgrade(context.Background(), common.HexToAddress("0xbad"), owner, versions.RoleStorage, func(context.Context, common.Address) (common.Address, error) {
		called = true
		return next, nil
	})
	if !fault.Is(err, fault.ErrAuthorization) {
		t.Fatalf("err = %v, want authorization", err)
	}

	if called {
		t.Error("migration ran for a stranger")
	}
}
