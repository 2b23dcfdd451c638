package funds

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/fault"
	"NoteVault/internal/host"
	"NoteVault/internal/rpc"
)

// TemplateName is the catalog name of the funds template.
const TemplateName = "funds"

// RPC methods served by funds instances.
var (
	DepositMethod  = rpc.NewMethod[MoveArgs, rpc.Empty]("deposit")
	WithdrawMethod = rpc.NewMethod[MoveArgs, rpc.Empty]("withdraw")
	IssueMethod    = rpc.NewMethod[IssueArgs, rpc.Empty]("issue")
	BalanceMethod  = rpc.NewMethod[BalanceArgs, uint64]("balance")
	SetOwnerMethod = rpc.NewMethod[common.Address, rpc.Empty]("set_owner")
	GetOwnerMethod = rpc.NewMethod[rpc.Empty, common.Address]("get_owner")
)

// MoveArgs are the arguments of DepositMethod and WithdrawMethod.
type MoveArgs struct {
	Token   common.Address
	Account common.Address
	Amount  uint64
}

// IssueArgs are the arguments of IssueMethod. The caller is the token.
type IssueArgs struct {
	To     common.Address
	Amount uint64
}

// BalanceArgs are the arguments of BalanceMethod.
type BalanceArgs struct {
	Token   common.Address
	Account common.Address
}

// Template returns the funds template. The deployer owns the instance
// until SetOwner hands it over.
func Template() host.Template {
	return host.Template{
		Name: TemplateName,
		Build: func(env host.Env) *rpc.Mux {
			l := New(env.DB(), env.Self)

			requireOwner := func(ctx context.Context) error {
				owner, err := l.Owner(ctx, env.Creator)
				if err != nil {
					return err
				}

				if caller := rpc.Caller(ctx); caller != owner {
					return fault.Authorizationf("%s is not the owner of %s", caller, env.Self)
				}

				return nil
			}

			mux := rpc.NewMux()

			rpc.Handle(mux, DepositMethod, func(ctx context.Context, args MoveArgs) (rpc.Empty, error) {
				if err := requireOwner(ctx); err != nil {
					return rpc.Empty{}, err
				}

				return rpc.Empty{}, l.Deposit(ctx, args.Token, args.Account, args.Amount)
			})

			rpc.Handle(mux, WithdrawMethod, func(ctx context.Context, args MoveArgs) (rpc.Empty, error) {
				if err := requireOwner(ctx); err != nil {
					return rpc.Empty{}, err
				}

				return rpc.Empty{}, l.Withdraw(ctx, args.Token, args.Account, args.Amount)
			})

			rpc.Handle(mux, IssueMethod, func(ctx context.Context, args IssueArgs) (rpc.Empty, error) {
				return rpc.Empty{}, l.Issue(ctx, rpc.Caller(ctx), args.To, args.Amount)
			})

			rpc.Handle(mux, BalanceMethod, func(ctx context.Context, args BalanceArgs) (uint64, error) {
				return l.Balance(ctx, args.Token, args.Account)
			})

			rpc.Handle(mux, SetOwnerMethod, func(ctx context.Context, owner common.Address) (rpc.Empty, error) {
				if err := requireOwner(ctx); err != nil {
					return rpc.Empty{}, err
				}

				return rpc.Empty{}, l.SetOwner(ctx, owner)
			})

			rpc.Handle(mux, GetOwnerMethod, func(ctx context.Context, _ rpc.Empty) (common.Address, error) {
				return l.Owner(ctx, env.Creator)
			})

			return mux
		},
	}
}

// Client calls a funds instance.
type Client struct {
	transport rpc.Transport
	addr      common.Address
}

// NewClient returns a client for the funds instance at addr.
func NewClient(t rpc.Transport, addr common.Address) *Client {
	return &Client{transport: t, addr: addr}
}

// Address returns the instance address.
func (c *Client) Address() common.Address {
	return c.addr
}

// Deposit moves amount of token from an account into custody.
func (c *Client) Deposit(ctx context.Context, token, from common.Address, amount uint64) error {
	_, err := DepositMethod.Call(ctx, c.transport, c.addr, MoveArgs{Token: token, Account: from, Amount: amount})
	return err
}

// Withdraw pays amount of token out of custody.
func (c *Client) Withdraw(ctx context.Context, token, to common.Address, amount uint64) error {
	_, err := WithdrawMethod.Call(ctx, c.transport, c.addr, MoveArgs{Token: token, Account: to, Amount: amount})
	return err
}

// Issue credits units of the calling token.
func (c *Client) Issue(ctx context.Context, to common.Address, amount uint64) error {
	_, err := IssueMethod.Call(ctx, c.transport, c.addr, IssueArgs{To: to, Amount: amount})
	return err
}

// Balance returns the units of token held by account.
func (c *Client) Balance(ctx context.Context, token, account common.Address) (uint64, error) {
	return BalanceMethod.Call(ctx, c.transport, c.addr, BalanceArgs{Token: token, Account: account})
}

// SetOwner hands the ledger over.
func (c *Client) SetOwner(ctx context.Context, owner common.Address) error {
	_, err := SetOwnerMethod.Call(ctx, c.transport, c.addr, owner)
	return err
}

// Owner returns the current owner.
func (c *Client) Owner(ctx context.Context) (common.Address, error) {
	return GetOwnerMethod.Call(ctx, c.transport, c.addr, rpc.Empty{})
}
