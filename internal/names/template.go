package names

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/host"
	"NoteVault/internal/rpc"
	"NoteVault/internal/storage"
)

// TemplateName is the catalog name of the names template.
const TemplateName = "names"

// RPC methods served by name registry instances.
var (
	SetContractAddressMethod = rpc.NewMethod[Binding, rpc.Empty]("set_contract_address")
	GetContractAddressMethod = rpc.NewMethod[string, common.Address]("get_contract_address")
	SetManagerMethod         = rpc.NewMethod[Binding, rpc.Empty]("set_manager")
	GetManagerMethod         = rpc.NewMethod[string, common.Address]("get_manager")
)

// Binding pairs an identifier with an address.
type Binding struct {
	ID      string
	Address common.Address
}

// Template returns the names template.
func Template() host.Template {
	return host.Template{
		Name: TemplateName,
		Build: func(env host.Env) *rpc.Mux {
			r := New(env.DB(), storage.Scope(env.Self))
			mux := rpc.NewMux()

			rpc.Handle(mux, SetContractAddressMethod, func(ctx context.Context, b Binding) (rpc.Empty, error) {
				return rpc.Empty{}, r.SetContractAddress(ctx, rpc.Caller(ctx), b.ID, b.Address)
			})

			rpc.Handle(mux, GetContractAddressMethod, func(ctx context.Context, id string) (common.Address, error) {
				return r.GetContractAddress(ctx, id)
			})

			rpc.Handle(mux, SetManagerMethod, func(ctx context.Context, b Binding) (rpc.Empty, error) {
				return rpc.Empty{}, r.SetManager(ctx, rpc.Caller(ctx), b.ID, b.Address)
			})

			rpc.Handle(mux, GetManagerMethod, func(ctx context.Context, id string) (common.Address, error) {
				return r.GetManager(ctx, id)
			})

			return mux
		},
	}
}

// Client calls a name registry instance.
type Client struct {
	transport rpc.Transport
	addr      common.Address
}

// NewClient returns a client for the registry at addr.
func NewClient(t rpc.Transport, addr common.Address) *Client {
	return &Client{transport: t, addr: addr}
}

// SetContractAddress binds id to addr.
func (c *Client) SetContractAddress(ctx context.Context, id string, addr common.Address) error {
	_, err := SetContractAddressMethod.Call(ctx, c.transport, c.addr, Binding{ID: id, Address: addr})
	return err
}

// GetContractAddress returns the address bound to id.
func (c *Client) GetContractAddress(ctx context.Context, id string) (common.Address, error) {
	return GetContractAddressMethod.Call(ctx, c.transport, c.addr, id)
}

// SetManager hands the management of id over.
func (c *Client) SetManager(ctx context.Context, id string, manager common.Address) error {
	_, err := SetManagerMethod.Call(ctx, c.transport, c.addr, Binding{ID: id, Address: manager})
	return err
}

// GetManager returns the manager of id.
func (c *Client) GetManager(ctx context.Context, id string) (common.Address, error) {
	return GetManagerMethod.Call(ctx, c.transport, c.addr, id)
}
