package acl

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/fault"
	"NoteVault/internal/host"
	"NoteVault/internal/logger"
	"NoteVault/internal/note"
	"NoteVault/internal/rpc"
	"NoteVault/internal/versions"
)

func (a *ACL) versions(role versions.Role) (*versions.Registry, error) {
	r, ok := a.roles[role]
	if !ok {
		return nil, fault.Invariantf("unknown role %d", uint8(role))
	}

	return r, nil
}

// CreateVersion records the first version of an algorithm. Authority only.
func (a *ACL) CreateVersion(ctx context.Context, role versions.Role, info versions.Info) error {
	r, err := a.versions(role)
	if err != nil {
		return err
	}

	return a.db.Update(ctx, func(ctx context.Context) error {
		if err := a.requireAuthority(ctx); err != nil {
			return err
		}

		return r.Create(ctx, info.Version, info.Template, info.Description)
	})
}

// UpdateVersion records a newer version of an existing algorithm. Authority only.
func (a *ACL) UpdateVersion(ctx context.Context, role versions.Role, info versions.Info) error {
	r, err := a.versions(role)
	if err != nil {
		return err
	}

	return a.db.Update(ctx, func(ctx context.Context) error {
		if err := a.requireAuthority(ctx); err != nil {
			return err
		}

		return r.Update(ctx, info.Version, info.Template, info.Description)
	})
}

// Latest returns the newest version of algorithm name for role.
func (a *ACL) Latest(ctx context.Context, role versions.Role, name uint8) (*versions.Info, error) {
	r, err := a.versions(role)
	if err != nil {
		return nil, err
	}

	return r.Latest(ctx, name)
}

// LatestMinor returns the newest minor of major for role.
func (a *ACL) LatestMinor(ctx context.Context, role versions.Role, name, major uint8) (*versions.Info, error) {
	r, err := a.versions(role)
	if err != nil {
		return nil, err
	}

	return r.LatestMinor(ctx, name, major)
}

// ListVersions returns every version recorded for role.
func (a *ACL) ListVersions(ctx context.Context, role versions.Role) ([]versions.Info, error) {
	r, err := a.versions(role)
	if err != nil {
		return nil, err
	}

	return r.List(ctx)
}

// Upgrade migrates the role instance of asset to version. Only the asset may
// move its own binding. The instance state is carried over by the host.
func (a *ACL) Upgrade(ctx context.Context, asset common.Address, role versions.Role, version note.Version) (next common.Address, err error) {
	defer func(start time.Time) { a.metrics.Observe("upgrade", start, err) }(time.Now())

	r, err := a.versions(role)
	if err != nil {
		return common.Address{}, err
	}

	caller := rpc.Caller(ctx)

	err = a.db.Update(ctx, func(ctx context.Context) error {
		reg, err := a.loadRegistry(ctx, asset)
		if err != nil {
			return err
		}

		template, err := r.VersionAddress(ctx, version)
		if err != nil {
			return err
		}

		migrate := func(ctx context.Context, current common.Address) (common.Address, error) {
			return host.MigrateMethod.Call(ctx, a.env.Transport(), current, template)
		}

		if next, err = a.proxy.Upgrade(ctx, caller, asset, role, migrate); err != nil {
			return err
		}

		switch role {
		case versions.RoleValidator:
			reg.ValidatorVersion = version
		case versions.RoleStorage:
			reg.StorageVersion = version
		}

		return a.storeRegistry(ctx, asset, reg)
	})
	if err != nil {
		return common.Address{}, err
	}

	logger.Info("asset upgraded", "asset", asset, "role", role, "version", version, "instance", next)

	return next, nil
}
