// Package integration drives a complete in-process daemon through its HTTP API.
package integration

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/client"
	"NoteVault/internal/acl"
	"NoteVault/internal/api"
	"NoteVault/internal/funds"
	"NoteVault/internal/genesis"
	"NoteVault/internal/host"
	"NoteVault/internal/metrics"
	"NoteVault/internal/pedersen"
	"NoteVault/internal/rpc"
	"NoteVault/internal/storage"
)

// Stack is a bootstrapped daemon behind an httptest server.
type Stack struct {
	Host       *host.Host
	Deployment *genesis.Deployment
	Templates  genesis.Templates
	Client     *client.Client
	URL        string
}

// NewStack bootstraps a daemon on in-memory storage as authority.
func NewStack(t *testing.T, authority common.Address) *Stack {
	t.Helper()

	db, err := storage.NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	verifier, err := pedersen.NewVerifier(pedersen.DefaultCacheSize)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	m := metrics.New()
	m.RegisterVerifier(verifier.Stats)

	h := host.New(db)
	cfg := genesis.Config{Authority: authority, Verifier: verifier, Metrics: m}

	tpl, err := genesis.Register(h, cfg)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	dep, err := genesis.Bootstrap(context.Background(), h, cfg, tpl)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	srv := httptest.NewServer(api.New("", acl.NewClient(h, dep.ACL), h, m).Handler())
	t.Cleanup(srv.Close)

	return &Stack{
		Host:       h,
		Deployment: dep,
		Templates:  tpl,
		Client:     client.NewClient(srv.URL),
		URL:        srv.URL,
	}
}

// Issue credits amount of token to account on the funds manager.
func (s *Stack) Issue(t *testing.T, token, account common.Address, amount uint64) {
	t.Helper()

	ctx := rpc.WithCaller(context.Background(), token)
	if err := funds.NewClient(s.Host, s.Deployment.Funds).Issue(ctx, account, amount); err != nil {
		t.Fatalf("Issue: %v", err)
	}
}

// Balance returns the public balance of account in token.
func (s *Stack) Balance(t *testing.T, token, account common.Address) uint64 {
	t.Helper()

	bal, err := funds.NewClient(s.Host, s.Deployment.Funds).Balance(context.Background(), token, account)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}

	return bal
}

// NewWallet creates a wallet with a fresh key.
func NewWallet(t *testing.T) *client.Wallet {
	t.Helper()

	w, err := client.NewWallet()
	if err != nil {
		t.Fatalf("NewWallet: %v", err)
	}

	return w
}

// Submit posts a transfer proof and applies it to the given wallets.
func Submit(t *testing.T, c *client.Client, asset common.Address, p *client.Pending, wallets ...*client.Wallet) *api.TransferResponse {
	t.Helper()

	resp, err := c.Transfer(asset, p.Proof)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	for _, w := range wallets {
		if err := w.Apply(p); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}

	return resp
}
