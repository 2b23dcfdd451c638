// Package host runs component instances.
//
// A template is a Go factory building an rpc.Mux over an instance
// environment. Deploying a template creates an instance: an address, a
// creator and a private key scope in storage. Every call runs inside one
// storage transaction with the caller identity on the context, so a nested
// failure rolls back the whole call tree.
package host

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeebo/blake3"

	"NoteVault/internal/fault"
	"NoteVault/internal/logger"
	"NoteVault/internal/rpc"
	"NoteVault/internal/snapshot"
	"NoteVault/internal/storage"
)

// Address is the address of the host itself, serving system methods.
var Address = common.Address{}

// hostScope holds instance metadata and deploy nonces.
var hostScope = storage.Scope(Address)

var (
	// MigrateMethod clones the instance into a fresh instance of another template.
	MigrateMethod = rpc.NewMethod[common.Address, common.Address]("migrate")

	// DeployMethod deploys a template on a remote host.
	DeployMethod = rpc.NewMethod[DeployArgs, common.Address]("deploy")
)

// DeployArgs are the arguments of DeployMethod.
type DeployArgs struct {
	Template common.Address
	Creator  common.Address
}

// Factory builds the method table of one instance.
type Factory func(env Env) *rpc.Mux

// UpgradeFunc transforms the state of an instance migrating into a template.
type UpgradeFunc func(ctx context.Context, env Env, state *snapshot.State) (*snapshot.State, error)

// Template describes deployable code.
type Template struct {
	Name    string      // Name identifies the template and derives its address
	Build   Factory     // Build creates the instance's methods
	Upgrade UpgradeFunc // Upgrade transforms migrated state, identity when nil
	Pinned  bool        // Pinned instances cannot be migrated
}

// Instance is the persisted metadata of a deployed instance.
type Instance struct {
	Template common.Address `cbor:"1,keyasint"`
	Creator  common.Address `cbor:"2,keyasint"`
	Remote   bool           `cbor:"3,keyasint"` // Remote instances are served by another host
}

// Host deploys templates and dispatches calls to instances.
type Host struct {
	db *storage.Storage

	mu        sync.RWMutex
	templates map[common.Address]*Template
	remotes   map[common.Address]rpc.Transport // remotes maps a template to the host serving it
}

// New creates a host over db.
func New(db *storage.Storage) *Host {
	return &Host{
		db:        db,
		templates: make(map[common.Address]*Template),
		remotes:   make(map[common.Address]rpc.Transport),
	}
}

// DB returns the storage instances write to.
func (h *Host) DB() *storage.Storage {
	return h.db
}

// TemplateAddress derives a template address from its name.
func TemplateAddress(name string) common.Address {
	sum := blake3.Sum256([]byte("template:" + name))
	return common.BytesToAddress(sum[:common.AddressLength])
}

// Register adds a template to the catalog and returns its address.
func (h *Host) Register(t Template) common.Address {
	addr := TemplateAddress(t.Name)

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.templates[addr]; exists {
		panic(fmt.Sprintf("host: template %q registered twice", t.Name))
	}

	h.templates[addr] = &t

	return addr
}

// RegisterRemote routes deployments of template to the host behind t.
func (h *Host) RegisterRemote(name string, t rpc.Transport) common.Address {
	addr := TemplateAddress(name)

	h.mu.Lock()
	h.remotes[addr] = t
	h.mu.Unlock()

	return addr
}

// Templates returns the names of the local templates, sorted.
func (h *Host) Templates() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.templates))
	for _, t := range h.templates {
		names = append(names, t.Name)
	}

	sort.Strings(names)

	return names
}

func (h *Host) template(addr common.Address) (*Template, rpc.Transport) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.templates[addr], h.remotes[addr]
}

// Deploy creates an instance of template owned by creator.
func (h *Host) Deploy(ctx context.Context, template, creator common.Address) (common.Address, error) {
	local, remote := h.template(template)
	if local == nil && remote == nil {
		return common.Address{}, fault.Invariantf("unknown template %s", template)
	}

	var addr common.Address

	err := h.db.Update(ctx, func(ctx context.Context) error {
		meta := Instance{Template: template, Creator: creator}

		if remote != nil {
			var err error
			if addr, err = DeployMethod.Call(rpc.WithCaller(ctx, creator), remote, Address, DeployArgs{Template: template, Creator: creator}); err != nil {
				return fmt.Errorf("remote deploy:\n%w", err)
			}

			meta.Remote = true
		} else {
			nonce, err := h.nextNonce(ctx, creator)
			if err != nil {
				return err
			}

			addr = instanceAddress(template, creator, nonce)
		}

		return h.db.PutRecord(ctx, storage.Key(hostScope, storage.SpaceInstance, addr.Bytes()), &meta)
	})
	if err != nil {
		return common.Address{}, err
	}

	logger.Debug("instance deployed", "template", template, "creator", creator, "address", addr)

	return addr, nil
}

// instanceAddress derives blake3("instance" || template || creator || nonce)[:20].
func instanceAddress(template, creator common.Address, nonce uint64) common.Address {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)

	hasher := blake3.New()
	hasher.Write([]byte("instance"))
	hasher.Write(template.Bytes())
	hasher.Write(creator.Bytes())
	hasher.Write(n[:])

	var sum [32]byte
	hasher.Sum(sum[:0])

	return common.BytesToAddress(sum[:common.AddressLength])
}

// nextNonce returns and advances the deploy counter of creator.
func (h *Host) nextNonce(ctx context.Context, creator common.Address) (uint64, error) {
	key := storage.Key(hostScope, storage.SpaceNonce, creator.Bytes())

	var nonce uint64
	if _, err := h.db.GetRecord(ctx, key, &nonce); err != nil {
		return 0, fmt.Errorf("load nonce:\n%w", err)
	}

	if err := h.db.PutRecord(ctx, key, nonce+1); err != nil {
		return 0, fmt.Errorf("store nonce:\n%w", err)
	}

	return nonce, nil
}

// Instance returns the metadata of addr.
func (h *Host) Instance(ctx context.Context, addr common.Address) (Instance, bool, error) {
	var meta Instance

	found, err := h.db.GetRecord(ctx, storage.Key(hostScope, storage.SpaceInstance, addr.Bytes()), &meta)
	if err != nil {
		return Instance{}, false, fmt.Errorf("load instance:\n%w", err)
	}

	return meta, found, nil
}

// Call implements rpc.Transport. The caller identity is taken from ctx.
func (h *Host) Call(ctx context.Context, to common.Address, method string, payload []byte) ([]byte, error) {
	var out []byte

	err := h.db.Update(ctx, func(ctx context.Context) error {
		var err error
		out, err = h.dispatch(ctx, to, method, payload)
		return err
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (h *Host) dispatch(ctx context.Context, to common.Address, method string, payload []byte) ([]byte, error) {
	if to == Address {
		return h.system().Serve(ctx, method, payload)
	}

	meta, found, err := h.Instance(ctx, to)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fault.Invariantf("no instance at %s", to)
	}

	local, remote := h.template(meta.Template)

	if meta.Remote {
		if remote == nil {
			return nil, fault.Externalf("no route to remote instance %s", to)
		}

		return remote.Call(ctx, to, method, payload)
	}

	if local == nil {
		return nil, fault.Invariantf("template %s of %s is not loaded", meta.Template, to)
	}

	env := Env{Self: to, Creator: meta.Creator, Template: meta.Template, host: h}

	mux := local.Build(env)
	if !local.Pinned && !mux.Has(MigrateMethod.Name) {
		rpc.Handle(mux, MigrateMethod, env.handleMigrate)
	}

	logger.Debug("dispatch", "to", to, "method", method, "caller", rpc.Caller(ctx))

	return mux.Serve(ctx, method, payload)
}

// system returns the methods served at the host address.
func (h *Host) system() *rpc.Mux {
	mux := rpc.NewMux()

	rpc.Handle(mux, DeployMethod, func(ctx context.Context, args DeployArgs) (common.Address, error) {
		if local, _ := h.template(args.Template); local == nil {
			return common.Address{}, fault.Invariantf("template %s is not served here", args.Template)
		}

		return h.Deploy(ctx, args.Template, args.Creator)
	})

	return mux
}

// Clone deploys template for the creator of from and copies from's state into it.
// The template's Upgrade hook transforms the state on the way. The captured
// state is archived under the host scope.
func (h *Host) Clone(ctx context.Context, from, template common.Address) (common.Address, error) {
	var next common.Address

	err := h.db.Update(ctx, func(ctx context.Context) error {
		meta, found, err := h.Instance(ctx, from)
		if err != nil {
			return err
		}

		if !found {
			return fault.Invariantf("no instance at %s", from)
		}

		if meta.Remote {
			return fault.Invariantf("remote instance %s cannot be migrated", from)
		}

		target, _ := h.template(template)
		if target == nil {
			return fault.Invariantf("unknown template %s", template)
		}

		state, err := snapshot.Capture(ctx, h.db, storage.Scope(from), storage.Scope(meta.Template))
		if err != nil {
			return fmt.Errorf("capture state:\n%w", err)
		}

		if err := h.archive(ctx, from, state); err != nil {
			return err
		}

		if next, err = h.Deploy(ctx, template, meta.Creator); err != nil {
			return fmt.Errorf("deploy target:\n%w", err)
		}

		if target.Upgrade != nil {
			env := Env{Self: next, Creator: meta.Creator, Template: template, host: h}
			if state, err = target.Upgrade(ctx, env, state); err != nil {
				return fmt.Errorf("upgrade state:\n%w", err)
			}
		}

		return snapshot.Restore(ctx, h.db, storage.Scope(next), state)
	})
	if err != nil {
		return common.Address{}, err
	}

	logger.Info("instance migrated", "from", from, "to", next, "template", template)

	return next, nil
}

// archive stores the encoded pre-migration state of addr.
func (h *Host) archive(ctx context.Context, addr common.Address, state *snapshot.State) error {
	data, err := snapshot.Encode(state)
	if err != nil {
		return fmt.Errorf("encode snapshot:\n%w", err)
	}

	return h.db.Set(ctx, storage.Key(hostScope, storage.SpaceMeta, []byte("archive:"), addr.Bytes()), data)
}

// Archive returns the encoded state addr had when it was migrated away.
func (h *Host) Archive(ctx context.Context, addr common.Address) ([]byte, error) {
	data, err := h.db.Get(ctx, storage.Key(hostScope, storage.SpaceMeta, []byte("archive:"), addr.Bytes()))
	if err != nil {
		return nil, err
	}

	if data == nil {
		return nil, fault.Invariantf("no archived state for %s", addr)
	}

	return data, nil
}

// Snapshot returns the current encoded state of a local instance.
func (h *Host) Snapshot(ctx context.Context, addr common.Address) ([]byte, error) {
	meta, found, err := h.Instance(ctx, addr)
	if err != nil {
		return nil, err
	}

	if !found || meta.Remote {
		return nil, fault.Invariantf("no local instance at %s", addr)
	}

	state, err := snapshot.Capture(ctx, h.db, storage.Scope(addr), storage.Scope(meta.Template))
	if err != nil {
		return nil, fmt.Errorf("capture state:\n%w", err)
	}

	return snapshot.Encode(state)
}
