// Package versions maps template versions to deployable templates.
//
// A version packs name<<24 | major<<16 | minor<<8. Within one name, new
// majors must exceed every existing major and new minors must exceed the
// current maximum minor of their major. Each role keeps its own registry.
package versions

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/fault"
	"NoteVault/internal/logger"
	"NoteVault/internal/note"
	"NoteVault/internal/storage"
)

// Role is the kind of component a registry versions.
type Role uint8

const (
	RoleValidator Role = 1
	RoleStorage   Role = 2
)

func (r Role) String() string {
	switch r {
	case RoleValidator:
		return "validator"
	case RoleStorage:
		return "storage"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// ParseRole maps a role name to its value.
func ParseRole(s string) (Role, error) {
	switch s {
	case "validator":
		return RoleValidator, nil
	case "storage":
		return RoleStorage, nil
	default:
		return 0, fault.Invariantf("unknown role %q", s)
	}
}

// Info describes one registered version.
type Info struct {
	Version     note.Version   `cbor:"1,keyasint" json:"version"`
	Template    common.Address `cbor:"2,keyasint" json:"template"`
	Description string         `cbor:"3,keyasint" json:"description"`
}

// Deployer instantiates templates.
type Deployer interface {
	Deploy(ctx context.Context, template common.Address) (common.Address, error)
}

// Registry is the version table of one role.
type Registry struct {
	db    *storage.Storage
	scope storage.Scope
	role  Role
}

// New returns the registry of role kept under scope.
func New(db *storage.Storage, scope storage.Scope, role Role) *Registry {
	return &Registry{db: db, scope: scope, role: role}
}

// Role returns the role versioned by r.
func (r *Registry) Role() Role {
	return r.role
}

func (r *Registry) key(v note.Version) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))

	return storage.Key(r.scope, storage.SpaceVersion, []byte{byte(r.role)}, buf[:])
}

func (r *Registry) get(ctx context.Context, v note.Version) (*Info, error) {
	var info Info

	found, err := r.db.GetRecord(ctx, r.key(v), &info)
	if err != nil {
		return nil, fmt.Errorf("load version %s:\n%w", v, err)
	}

	if !found {
		return nil, fault.Invariantf("unknown %s version %s", r.role, v)
	}

	return &info, nil
}

func (r *Registry) put(ctx context.Context, info Info) error {
	exists, err := r.db.Has(ctx, r.key(info.Version))
	if err != nil {
		return err
	}

	if exists {
		return fault.Invariantf("%s version %s already exists", r.role, info.Version)
	}

	return r.db.PutRecord(ctx, r.key(info.Version), info)
}

func checkPacked(v note.Version) error {
	if v.Type() != 0 {
		return fault.Invariantf("template version %s carries a proof type", v)
	}

	return nil
}

// Create registers a version. The version must not exist yet.
func (r *Registry) Create(ctx context.Context, v note.Version, template common.Address, description string) error {
	if err := checkPacked(v); err != nil {
		return err
	}

	err := r.db.Update(ctx, func(ctx context.Context) error {
		return r.put(ctx, Info{Version: v, Template: template, Description: description})
	})
	if err != nil {
		return err
	}

	logger.Info("version created", "role", r.role, "version", v, "template", template)

	return nil
}

// Update registers a newer version of an existing name.
func (r *Registry) Update(ctx context.Context, v note.Version, template common.Address, description string) error {
	if err := checkPacked(v); err != nil {
		return err
	}

	err := r.db.Update(ctx, func(ctx context.Context) error {
		infos, err := r.byName(ctx, v.Name())
		if err != nil {
			return err
		}

		if len(infos) == 0 {
			return fault.Invariantf("unknown %s name %d", r.role, v.Name())
		}

		// Highest minor per major, and the highest major
		minors := make(map[uint8]uint8)
		var topMajor uint8
		for _, info := range infos {
			major, minor := info.Version.Major(), info.Version.Minor()
			minors[major] = max(minors[major], minor)
			topMajor = max(topMajor, major)
		}

		if maxMinor, ok := minors[v.Major()]; ok {
			if v.Minor() <= maxMinor {
				return fault.Invariantf("minor %d must exceed %d", v.Minor(), maxMinor)
			}
		} else if v.Major() <= topMajor {
			return fault.Invariantf("major %d must exceed %d", v.Major(), topMajor)
		}

		return r.put(ctx, Info{Version: v, Template: template, Description: description})
	})
	if err != nil {
		return err
	}

	logger.Info("version updated", "role", r.role, "version", v, "template", template)

	return nil
}

// byName returns every version of name in ascending order.
func (r *Registry) byName(ctx context.Context, name uint8) ([]Info, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	var infos []Info
	for _, info := range all {
		if info.Version.Name() == name {
			infos = append(infos, info)
		}
	}

	return infos, nil
}

// List returns every version in ascending order.
func (r *Registry) List(ctx context.Context) ([]Info, error) {
	var infos []Info

	prefix := append(storage.SpacePrefix(r.scope, storage.SpaceVersion), byte(r.role))

	err := r.db.IteratePrefix(ctx, prefix, func(_, value []byte) error {
		var info Info
		if err := storage.Decode(value, &info); err != nil {
			return fmt.Errorf("decode version:\n%w", err)
		}

		infos = append(infos, info)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return infos, nil
}

// Latest returns the greatest version of name.
func (r *Registry) Latest(ctx context.Context, name uint8) (*Info, error) {
	infos, err := r.byName(ctx, name)
	if err != nil {
		return nil, err
	}

	if len(infos) == 0 {
		return nil, fault.Invariantf("unknown %s name %d", r.role, name)
	}

	// Keys are big-endian versions, so the last one is the greatest
	return &infos[len(infos)-1], nil
}

// LatestMinor returns the greatest minor within (name, major).
func (r *Registry) LatestMinor(ctx context.Context, name, major uint8) (*Info, error) {
	infos, err := r.byName(ctx, name)
	if err != nil {
		return nil, err
	}

	for i := len(infos) - 1; i >= 0; i-- {
		if infos[i].Version.Major() == major {
			return &infos[i], nil
		}
	}

	return nil, fault.Invariantf("no %s version %d.%d", r.role, name, major)
}

// VersionAddress returns the template of a version.
func (r *Registry) VersionAddress(ctx context.Context, v note.Version) (common.Address, error) {
	info, err := r.get(ctx, v)
	if err != nil {
		return common.Address{}, err
	}

	return info.Template, nil
}

// Deploy instantiates the template of a version through d.
func (r *Registry) Deploy(ctx context.Context, v note.Version, d Deployer) (common.Address, error) {
	template, err := r.VersionAddress(ctx, v)
	if err != nil {
		return common.Address{}, err
	}

	addr, err := d.Deploy(ctx, template)
	if err != nil {
		return common.Address{}, fmt.Errorf("deploy %s %s:\n%w", r.role, v, err)
	}

	return addr, nil
}
