package acl

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/fault"
	"NoteVault/internal/logger"
	"NoteVault/internal/note"
	"NoteVault/internal/rpc"
	"NoteVault/internal/safemath"
)

// Transfer validates a transfer, deposit or withdraw proof of the caller's
// asset, applies its notes and settles its public value.
func (a *ACL) Transfer(ctx context.Context, proof []byte) (result *note.Result, err error) {
	defer func(start time.Time) { a.metrics.Observe("transfer", start, err) }(time.Now())

	asset := rpc.Caller(ctx)

	var res *note.TransferResult

	err = a.db.Update(ctx, func(ctx context.Context) error {
		v, err := a.validator(ctx, asset)
		if err != nil {
			return err
		}

		if result, err = v.ValidateProof(ctx, proof); err != nil {
			return fmt.Errorf("validate:\n%w", err)
		}

		if res, err = result.Transfer(); err != nil {
			return err
		}

		store, err := a.store(ctx, asset)
		if err != nil {
			return err
		}

		if err := store.UpdateNotes(ctx, res); err != nil {
			return fmt.Errorf("update notes:\n%w", err)
		}

		if res.PublicValue == 0 {
			return nil
		}

		return a.settle(ctx, asset, res)
	})
	if err != nil {
		return nil, err
	}

	a.metrics.Notes(len(res.Outputs), len(res.Inputs))

	switch {
	case res.PublicValue.IsDeposit():
		a.metrics.Supply(res.PublicValue.Abs(), 0)
	case res.PublicValue.IsWithdraw():
		a.metrics.Supply(0, res.PublicValue.Abs())
	}

	logger.Debug("transfer applied",
		"asset", asset,
		"inputs", len(res.Inputs),
		"outputs", len(res.Outputs),
		"public", int64(res.PublicValue),
	)

	return result, nil
}

// settle moves the public value of res between the private ledger and the
// funds manager. The funds call comes last so that every local check has
// passed before value moves.
func (a *ACL) settle(ctx context.Context, asset common.Address, res *note.TransferResult) error {
	reg, err := a.loadRegistry(ctx, asset)
	if err != nil {
		return err
	}

	units := res.PublicValue.Abs()

	amount, overflow := safemath.Mul(units, reg.ScalingFactor)
	if overflow {
		return fault.Overflowf("public value %d scaled by %d", units, reg.ScalingFactor)
	}

	if res.PublicValue.IsWithdraw() {
		if reg.TotalSupply, overflow = safemath.Sub(reg.TotalSupply, units); overflow {
			return fault.Overflowf("withdraw %d exceeds supply", units)
		}
	} else {
		if reg.TotalSupply, overflow = safemath.Add(reg.TotalSupply, units); overflow {
			return fault.Overflowf("deposit %d overflows supply", units)
		}
	}

	if err := a.storeRegistry(ctx, asset, reg); err != nil {
		return err
	}

	funds, err := a.funds(ctx)
	if err != nil {
		return err
	}

	if res.PublicValue.IsWithdraw() {
		err = funds.Withdraw(ctx, reg.Token, res.PublicOwner, amount)
	} else {
		err = funds.Deposit(ctx, reg.Token, res.PublicOwner, amount)
	}

	if err != nil {
		return fault.External(err, "settle public value")
	}

	return nil
}

// Mint validates a mint proof and issues its notes.
func (a *ACL) Mint(ctx context.Context, proof []byte) (err error) {
	defer func(start time.Time) { a.metrics.Observe("mint", start, err) }(time.Now())

	asset := rpc.Caller(ctx)

	var res *note.MintResult

	err = a.db.Update(ctx, func(ctx context.Context) error {
		reg, err := a.loadRegistry(ctx, asset)
		if err != nil {
			return err
		}

		if !reg.CanMintBurn {
			return fault.Authorizationf("%s cannot mint", asset)
		}

		v, err := a.validator(ctx, asset)
		if err != nil {
			return err
		}

		result, err := v.ValidateProof(ctx, proof)
		if err != nil {
			return fmt.Errorf("validate:\n%w", err)
		}

		if res, err = result.Mint(); err != nil {
			return err
		}

		if res.OldMintHash != reg.LastMintHash {
			return fault.Invariantf("mint chain is at %s, proof continues %s", reg.LastMintHash, res.OldMintHash)
		}

		supply, overflow := safemath.Add(reg.TotalSupply, res.TotalMint)
		if overflow {
			return fault.Overflowf("mint %d overflows supply %d", res.TotalMint, reg.TotalSupply)
		}

		reg.TotalSupply = supply
		reg.LastMintHash = res.NewMintHash

		if err := a.storeRegistry(ctx, asset, reg); err != nil {
			return err
		}

		store, err := a.store(ctx, asset)
		if err != nil {
			return err
		}

		return store.Mint(ctx, res)
	})
	if err != nil {
		return err
	}

	a.metrics.Notes(len(res.Outputs), 0)
	a.metrics.Supply(res.TotalMint, 0)

	logger.Debug("minted", "asset", asset, "amount", res.TotalMint, "hash", res.NewMintHash)

	return nil
}

// Burn validates a burn proof and retires its notes.
func (a *ACL) Burn(ctx context.Context, proof []byte) (err error) {
	defer func(start time.Time) { a.metrics.Observe("burn", start, err) }(time.Now())

	asset := rpc.Caller(ctx)

	var res *note.BurnResult

	err = a.db.Update(ctx, func(ctx context.Context) error {
		reg, err := a.loadRegistry(ctx, asset)
		if err != nil {
			return err
		}

		if !reg.CanMintBurn {
			return fault.Authorizationf("%s cannot burn", asset)
		}

		v, err := a.validator(ctx, asset)
		if err != nil {
			return err
		}

		result, err := v.ValidateProof(ctx, proof)
		if err != nil {
			return fmt.Errorf("validate:\n%w", err)
		}

		if res, err = result.Burn(); err != nil {
			return err
		}

		if res.OldBurnHash != reg.LastBurnHash {
			return fault.Invariantf("burn chain is at %s, proof continues %s", reg.LastBurnHash, res.OldBurnHash)
		}

		supply, overflow := safemath.Sub(reg.TotalSupply, res.TotalBurn)
		if overflow {
			return fault.Overflowf("burn %d exceeds supply %d", res.TotalBurn, reg.TotalSupply)
		}

		reg.TotalSupply = supply
		reg.LastBurnHash = res.NewBurnHash

		if err := a.storeRegistry(ctx, asset, reg); err != nil {
			return err
		}

		store, err := a.store(ctx, asset)
		if err != nil {
			return err
		}

		return store.Burn(ctx, res)
	})
	if err != nil {
		return err
	}

	a.metrics.Notes(0, len(res.Inputs))
	a.metrics.Supply(0, res.TotalBurn)

	logger.Debug("burned", "asset", asset, "amount", res.TotalBurn, "hash", res.NewBurnHash)

	return nil
}

// Approve validates an approve proof and records the shared signature.
func (a *ACL) Approve(ctx context.Context, proof []byte) (err error) {
	defer func(start time.Time) { a.metrics.Observe("approve", start, err) }(time.Now())

	asset := rpc.Caller(ctx)

	return a.db.Update(ctx, func(ctx context.Context) error {
		v, err := a.validator(ctx, asset)
		if err != nil {
			return err
		}

		result, err := v.ValidateProof(ctx, proof)
		if err != nil {
			return fmt.Errorf("validate:\n%w", err)
		}

		res, err := result.Approve()
		if err != nil {
			return err
		}

		store, err := a.store(ctx, asset)
		if err != nil {
			return err
		}

		return store.Approve(ctx, res)
	})
}

// ValidateProof validates proof with the caller's validator without applying it.
func (a *ACL) ValidateProof(ctx context.Context, proof []byte) (*note.Result, error) {
	v, err := a.validator(ctx, rpc.Caller(ctx))
	if err != nil {
		return nil, err
	}

	return v.ValidateProof(ctx, proof)
}

// ValidateSignature checks sig over hash against owner with the caller's validator.
func (a *ACL) ValidateSignature(ctx context.Context, owner []byte, hash common.Hash, sig []byte) (bool, error) {
	v, err := a.validator(ctx, rpc.Caller(ctx))
	if err != nil {
		return false, err
	}

	return v.ValidateSignature(ctx, owner, hash, sig)
}

// SupportProof reports whether the caller's validator accepts version.
func (a *ACL) SupportProof(ctx context.Context, version note.Version) (bool, error) {
	v, err := a.validator(ctx, rpc.Caller(ctx))
	if err != nil {
		return false, err
	}

	return v.SupportProof(ctx, version)
}

// GetApproval returns the shared signature recorded for a note of the caller's asset.
func (a *ACL) GetApproval(ctx context.Context, hash common.Hash) ([]byte, error) {
	store, err := a.store(ctx, rpc.Caller(ctx))
	if err != nil {
		return nil, err
	}

	return store.GetApproval(ctx, hash)
}

// GetNote returns an unspent note of the caller's asset.
func (a *ACL) GetNote(ctx context.Context, hash common.Hash) (*note.NoteStatus, error) {
	store, err := a.store(ctx, rpc.Caller(ctx))
	if err != nil {
		return nil, err
	}

	return store.GetNote(ctx, hash)
}
