package names

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/fault"
	"NoteVault/internal/host"
	"NoteVault/internal/rpc"
	"NoteVault/internal/storage"
)

var (
	component = common.HexToAddress("0xc0")
	manager   = common.HexToAddress("0xaa")
	stranger  = common.HexToAddress("0xbad")
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()

	db, err := storage.NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return New(db, storage.Scope{5})
}

// TestSelfRegistration tests that the first registration must come from the address itself.
func TestSelfRegistration(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	if err := r.SetContractAddress(ctx, stranger, "acl", component); !fault.Is(err, fault.ErrAuthorization) {
		t.Fatalf("foreign registration: err = %v", err)
	}

	if err := r.SetContractAddress(ctx, component, "acl", component); err != nil {
		t.Fatalf("SetContractAddress: %v", err)
	}

	addr, _ := r.GetContractAddress(ctx, "acl")
	mgr, _ := r.GetManager(ctx, "acl")
	if addr != component || mgr != component {
		t.Errorf("address %s manager %s", addr, mgr)
	}
}

// TestManagerChanges tests manager-gated updates and hand-over.
func TestManagerChanges(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	_ = r.SetContractAddress(ctx, component, "acl", component)

	if err := r.SetManager(ctx, stranger, "acl", stranger); !fault.Is(err, fault.ErrAuthorization) {
		t.Fatalf("SetManager by stranger: err = %v", err)
	}

	if err := r.SetManager(ctx, component, "acl", manager); err != nil {
		t.Fatalf("SetManager: %v", err)
	}

	moved := common.HexToAddress("0xc1")
	if err := r.SetContractAddress(ctx, component, "acl", moved); !fault.Is(err, fault.ErrAuthorization) {
		t.Fatalf("update by former manager: err = %v", err)
	}

	if err := r.SetContractAddress(ctx, manager, "acl", moved); err != nil {
		t.Fatalf("update by manager: %v", err)
	}

	if addr, _ := r.GetContractAddress(ctx, "acl"); addr != moved {
		t.Errorf("address = %s", addr)
	}
}

func TestIdentifierLength(t *testing.T) {
	r := newRegistry(t)

	if err := r.SetContractAddress(context.Background(), component, "an-identifier-too-long", component); !fault.Is(err, fault.ErrInvariant) {
		t.Fatalf("err = %v", err)
	}

	if addr, err := r.GetContractAddress(context.Background(), "unknown"); err != nil || addr != (common.Address{}) {
		t.Errorf("unknown id = %s, %v", addr, err)
	}
}

func TestTemplateUsesCaller(t *testing.T) {
	db, err := storage.NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	defer db.Close()

	h := host.New(db)

	addr, err := h.Deploy(context.Background(), h.Register(Template()), manager)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	c := NewClient(h, addr)

	if err := c.SetContractAddress(rpc.WithCaller(context.Background(), component), "acl", component); err != nil {
		t.Fatalf("SetContractAddress: %v", err)
	}

	got, err := c.GetContractAddress(context.Background(), "acl")
	if err != nil || got != component {
		t.Errorf("GetContractAddress = %s, %v", got, err)
	}
}
