// Package funds is the fungible token ledger backing public values.
//
// Balances are kept per (token, account). The funds instance holds custody
// of deposited tokens under its own address: Deposit moves units from an
// account into custody and Withdraw pays them out. Both are restricted to the
// ledger owner, the orchestrator that deployed it.
package funds

import (
	"context"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/fault"
	"NoteVault/internal/logger"
	"NoteVault/internal/safemath"
	"NoteVault/internal/storage"
)

var ownerKey = []byte("owner")

// Ledger is the balance table of one funds instance.
type Ledger struct {
	db      *storage.Storage
	scope   storage.Scope
	custody common.Address
}

// New returns the ledger kept under the scope of custody.
func New(db *storage.Storage, custody common.Address) *Ledger {
	return &Ledger{db: db, scope: storage.Scope(custody), custody: custody}
}

func (l *Ledger) balanceKey(token, account common.Address) []byte {
	return storage.Key(l.scope, storage.SpaceBalance, token.Bytes(), account.Bytes())
}

// Balance returns the units of token held by account.
func (l *Ledger) Balance(ctx context.Context, token, account common.Address) (uint64, error) {
	v, err := l.db.Get(ctx, l.balanceKey(token, account))
	if err != nil {
		return 0, err
	}

	if len(v) != 8 {
		return 0, nil
	}

	return binary.BigEndian.Uint64(v), nil
}

func (l *Ledger) setBalance(ctx context.Context, token, account common.Address, amount uint64) error {
	key := l.balanceKey(token, account)
	if amount == 0 {
		return l.db.Delete(ctx, key)
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], amount)

	return l.db.Set(ctx, key, buf[:])
}

// move transfers amount of token between two accounts.
func (l *Ledger) move(ctx context.Context, token, from, to common.Address, amount uint64) error {
	return l.db.Update(ctx, func(ctx context.Context) error {
		src, err := l.Balance(ctx, token, from)
		if err != nil {
			return err
		}

		left, underflow := safemath.Sub(src, amount)
		if underflow {
			return fault.Invariantf("insufficient %s balance of %s: %d < %d", token, from, src, amount)
		}

		if err := l.setBalance(ctx, token, from, left); err != nil {
			return err
		}

		dst, err := l.Balance(ctx, token, to)
		if err != nil {
			return err
		}

		total, overflow := safemath.Add(dst, amount)
		if overflow {
			return fault.Overflowf("%s balance of %s overflows", token, to)
		}

		return l.setBalance(ctx, token, to, total)
	})
}

// Deposit moves amount of token from an account into custody.
func (l *Ledger) Deposit(ctx context.Context, token, from common.Address, amount uint64) error {
	if err := l.move(ctx, token, from, l.custody, amount); err != nil {
		return err
	}

	logger.Debug("funds deposited", "token", token, "from", from, "amount", amount)

	return nil
}

// Withdraw pays amount of token out of custody.
func (l *Ledger) Withdraw(ctx context.Context, token, to common.Address, amount uint64) error {
	if err := l.move(ctx, token, l.custody, to, amount); err != nil {
		return err
	}

	logger.Debug("funds withdrawn", "token", token, "to", to, "amount", amount)

	return nil
}

// Issue credits new units of token to an account.
func (l *Ledger) Issue(ctx context.Context, token, to common.Address, amount uint64) error {
	return l.db.Update(ctx, func(ctx context.Context) error {
		bal, err := l.Balance(ctx, token, to)
		if err != nil {
			return err
		}

		total, overflow := safemath.Add(bal, amount)
		if overflow {
			return fault.Overflowf("%s balance of %s overflows", token, to)
		}

		return l.setBalance(ctx, token, to, total)
	})
}

// Owner returns the account allowed to move custody, or fallback when unset.
func (l *Ledger) Owner(ctx context.Context, fallback common.Address) (common.Address, error) {
	v, err := l.db.Get(ctx, storage.Key(l.scope, storage.SpaceMeta, ownerKey))
	if err != nil {
		return common.Address{}, err
	}

	if v == nil {
		return fallback, nil
	}

	return common.BytesToAddress(v), nil
}

// SetOwner replaces the owner.
func (l *Ledger) SetOwner(ctx context.Context, owner common.Address) error {
	return l.db.Set(ctx, storage.Key(l.scope, storage.SpaceMeta, ownerKey), owner.Bytes())
}
