// Package acl is the orchestrator of private assets.
//
// Each asset (the calling identity) owns a registry and a pair of instances,
// a validator and a note store, reached through the upgrade proxy. A proof
// submitted by the asset is validated, applied to the note store and
// reconciled against the registry's total supply and, for public values,
// against the funds manager. Every operation runs in one storage
// transaction and fails as a whole.
package acl

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/fault"
	"NoteVault/internal/funds"
	"NoteVault/internal/host"
	"NoteVault/internal/logger"
	"NoteVault/internal/metrics"
	"NoteVault/internal/names"
	"NoteVault/internal/note"
	"NoteVault/internal/notestore"
	"NoteVault/internal/proxy"
	"NoteVault/internal/rpc"
	"NoteVault/internal/storage"
	"NoteVault/internal/validator"
	"NoteVault/internal/versions"
)

// NameID is the identifier the orchestrator registers under in the name registry.
const NameID = "acl"

var (
	authorityKey = []byte("authority")
	fundsKey     = []byte("funds")
	namesKey     = []byte("names")
)

// Registry is the accounting record of one asset.
type Registry struct {
	Token            common.Address `cbor:"1,keyasint" json:"token"`
	ScalingFactor    uint64         `cbor:"2,keyasint" json:"scalingFactor"`
	ValidatorVersion note.Version   `cbor:"3,keyasint" json:"validatorVersion"`
	StorageVersion   note.Version   `cbor:"4,keyasint" json:"storageVersion"`
	CanMintBurn      bool           `cbor:"5,keyasint" json:"canMintBurn"`
	TotalSupply      uint64         `cbor:"6,keyasint" json:"totalSupply"`
	LastMintHash     common.Hash    `cbor:"7,keyasint" json:"lastMintHash"`
	LastBurnHash     common.Hash    `cbor:"8,keyasint" json:"lastBurnHash"`

	// Bound instances, filled in by GetRegistry
	Validator common.Address `cbor:"-" json:"validator"`
	Storage   common.Address `cbor:"-" json:"storage"`
}

// ACL is the orchestrator running as one instance.
type ACL struct {
	env     host.Env
	db      *storage.Storage
	scope   storage.Scope
	proxy   *proxy.Proxy
	roles   map[versions.Role]*versions.Registry
	metrics *metrics.Metrics
}

// New returns the orchestrator of env. m may be nil.
func New(env host.Env, m *metrics.Metrics) *ACL {
	db := env.DB()
	scope := storage.Scope(env.Self)

	return &ACL{
		env:   env,
		db:    db,
		scope: scope,
		proxy: proxy.New(db, scope),
		roles: map[versions.Role]*versions.Registry{
			versions.RoleValidator: versions.New(db, scope, versions.RoleValidator),
			versions.RoleStorage:   versions.New(db, scope, versions.RoleStorage),
		},
		metrics: m,
	}
}

func (a *ACL) metaKey(name []byte) []byte {
	return storage.Key(a.scope, storage.SpaceMeta, name)
}

func (a *ACL) registryKey(asset common.Address) []byte {
	return storage.Key(a.scope, storage.SpaceRegistry, asset.Bytes())
}

func (a *ACL) loadAddress(ctx context.Context, name []byte) (common.Address, error) {
	v, err := a.db.Get(ctx, a.metaKey(name))
	if err != nil {
		return common.Address{}, err
	}

	return common.BytesToAddress(v), nil
}

// Init sets the caller as authority, deploys the funds manager and
// advertises the orchestrator in the name registry. Zero addresses skip the
// matching step.
func (a *ACL) Init(ctx context.Context, namesAddr, fundsTemplate common.Address) error {
	caller := rpc.Caller(ctx)

	return a.db.Update(ctx, func(ctx context.Context) error {
		exists, err := a.db.Has(ctx, a.metaKey(authorityKey))
		if err != nil {
			return err
		}

		if exists {
			return fault.Invariantf("already initialized")
		}

		if err := a.db.Set(ctx, a.metaKey(authorityKey), caller.Bytes()); err != nil {
			return err
		}

		if fundsTemplate != (common.Address{}) {
			addr, err := a.env.Deploy(ctx, fundsTemplate)
			if err != nil {
				return fmt.Errorf("deploy funds manager:\n%w", err)
			}

			if err := a.db.Set(ctx, a.metaKey(fundsKey), addr.Bytes()); err != nil {
				return err
			}
		}

		if namesAddr != (common.Address{}) {
			err := names.NewClient(a.env.Transport(), namesAddr).SetContractAddress(ctx, NameID, a.env.Self)
			if err != nil {
				return fault.External(err, "register name")
			}

			if err := a.db.Set(ctx, a.metaKey(namesKey), namesAddr.Bytes()); err != nil {
				return err
			}
		}

		logger.Info("orchestrator initialized", "address", a.env.Self, "authority", caller)

		return nil
	})
}

// Authority returns the account allowed to administer versions.
func (a *ACL) Authority(ctx context.Context) (common.Address, error) {
	return a.loadAddress(ctx, authorityKey)
}

func (a *ACL) requireAuthority(ctx context.Context) error {
	authority, err := a.Authority(ctx)
	if err != nil {
		return err
	}

	if caller := rpc.Caller(ctx); authority == (common.Address{}) || caller != authority {
		return fault.Authorizationf("%s is not the authority", caller)
	}

	return nil
}

// GetFundsManager returns the funds manager deployed at init.
func (a *ACL) GetFundsManager(ctx context.Context) (common.Address, error) {
	return a.loadAddress(ctx, fundsKey)
}

func (a *ACL) loadRegistry(ctx context.Context, asset common.Address) (*Registry, error) {
	var reg Registry

	found, err := a.db.GetRecord(ctx, a.registryKey(asset), &reg)
	if err != nil {
		return nil, fmt.Errorf("load registry:\n%w", err)
	}

	if !found {
		return nil, fault.Invariantf("%s has no registry", asset)
	}

	return &reg, nil
}

func (a *ACL) storeRegistry(ctx context.Context, asset common.Address, reg *Registry) error {
	return a.db.PutRecord(ctx, a.registryKey(asset), reg)
}

// validator returns the validator bound to asset.
func (a *ACL) validator(ctx context.Context, asset common.Address) (*validator.Client, error) {
	addr, err := a.proxy.Address(ctx, asset, versions.RoleValidator)
	if err != nil {
		return nil, err
	}

	return validator.NewClient(a.env.Transport(), addr), nil
}

// store returns the note store bound to asset.
func (a *ACL) store(ctx context.Context, asset common.Address) (*notestore.Client, error) {
	addr, err := a.proxy.Address(ctx, asset, versions.RoleStorage)
	if err != nil {
		return nil, err
	}

	return notestore.NewClient(a.env.Transport(), addr), nil
}

// funds returns the funds manager.
func (a *ACL) funds(ctx context.Context) (*funds.Client, error) {
	addr, err := a.GetFundsManager(ctx)
	if err != nil {
		return nil, err
	}

	if addr == (common.Address{}) {
		return nil, fault.Externalf("no funds manager")
	}

	return funds.NewClient(a.env.Transport(), addr), nil
}

// CreateRegistryArgs configure a new asset.
type CreateRegistryArgs struct {
	ValidatorVersion note.Version
	StorageVersion   note.Version
	ScalingFactor    uint64
	Token            common.Address
	CanMintBurn      bool
}

// CreateRegistry deploys the caller's validator and store and records its registry.
func (a *ACL) CreateRegistry(ctx context.Context, args CreateRegistryArgs) error {
	asset := rpc.Caller(ctx)

	return a.db.Update(ctx, func(ctx context.Context) error {
		exists, err := a.db.Has(ctx, a.registryKey(asset))
		if err != nil {
			return err
		}

		if exists {
			return fault.Invariantf("%s is already registered", asset)
		}

		validatorAddr, err := a.roles[versions.RoleValidator].Deploy(ctx, args.ValidatorVersion, a.env)
		if err != nil {
			return err
		}

		storageAddr, err := a.roles[versions.RoleStorage].Deploy(ctx, args.StorageVersion, a.env)
		if err != nil {
			return err
		}

		if err := a.proxy.Bind(ctx, asset, versions.RoleValidator, validatorAddr); err != nil {
			return err
		}

		if err := a.proxy.Bind(ctx, asset, versions.RoleStorage, storageAddr); err != nil {
			return err
		}

		if err := notestore.NewClient(a.env.Transport(), storageAddr).CreateRegistry(ctx, args.CanMintBurn); err != nil {
			return fmt.Errorf("initialize store:\n%w", err)
		}

		reg := &Registry{
			Token:            args.Token,
			ScalingFactor:    args.ScalingFactor,
			ValidatorVersion: args.ValidatorVersion,
			StorageVersion:   args.StorageVersion,
			CanMintBurn:      args.CanMintBurn,
		}

		if err := a.storeRegistry(ctx, asset, reg); err != nil {
			return err
		}

		logger.Info("registry created",
			"asset", asset,
			"validator", validatorAddr,
			"storage", storageAddr,
			"token", args.Token,
		)

		return nil
	})
}

// GetRegistry returns the registry of asset with its bound instances.
func (a *ACL) GetRegistry(ctx context.Context, asset common.Address) (*Registry, error) {
	reg, err := a.loadRegistry(ctx, asset)
	if err != nil {
		return nil, err
	}

	if reg.Validator, err = a.proxy.Address(ctx, asset, versions.RoleValidator); err != nil {
		return nil, err
	}

	if reg.Storage, err = a.proxy.Address(ctx, asset, versions.RoleStorage); err != nil {
		return nil, err
	}

	return reg, nil
}
