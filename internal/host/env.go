package host

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/fault"
	"NoteVault/internal/rpc"
	"NoteVault/internal/storage"
)

// Env is what an instance sees of the host during one call.
type Env struct {
	Self     common.Address // Self is the instance address
	Creator  common.Address // Creator deployed the instance
	Template common.Address // Template is the instance's template
	host     *Host
}

// DB returns the storage.
func (e Env) DB() *storage.Storage {
	return e.host.db
}

// Key returns a key in the instance's scope.
func (e Env) Key(space storage.Space, parts ...[]byte) []byte {
	return storage.Key(storage.Scope(e.Self), space, parts...)
}

// Transport returns a transport whose calls carry Self as the caller.
func (e Env) Transport() rpc.Transport {
	return selfTransport{host: e.host, self: e.Self}
}

// Deploy creates an instance of template owned by Self.
func (e Env) Deploy(ctx context.Context, template common.Address) (common.Address, error) {
	return e.host.Deploy(ctx, template, e.Self)
}

// RequireCreator fails unless the caller is the instance creator.
func (e Env) RequireCreator(ctx context.Context) error {
	if caller := rpc.Caller(ctx); caller != e.Creator {
		return fault.Authorizationf("caller %s is not the creator of %s", caller, e.Self)
	}

	return nil
}

// handleMigrate clones the instance into template. Only the creator may migrate.
func (e Env) handleMigrate(ctx context.Context, template common.Address) (common.Address, error) {
	if err := e.RequireCreator(ctx); err != nil {
		return common.Address{}, err
	}

	return e.host.Clone(ctx, e.Self, template)
}

// selfTransport calls instances on behalf of one instance.
type selfTransport struct {
	host *Host
	self common.Address
}

func (t selfTransport) Call(ctx context.Context, to common.Address, method string, payload []byte) ([]byte, error) {
	return t.host.Call(rpc.WithCaller(ctx, t.self), to, method, payload)
}
