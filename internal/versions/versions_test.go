package versions

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/fault"
	"NoteVault/internal/note"
	"NoteVault/internal/storage"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()

	db, err := storage.NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return New(db, storage.Scope{7}, RoleValidator)
}

func tmpl(b byte) common.Address {
	return common.Address{b}
}

// TestVersionMonotonicity tests minor and major ordering within a name.
func TestVersionMonotonicity(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	if err := r.Create(ctx, note.MakeVersion(1, 1, 0), tmpl(1), "initial"); err != nil {
		t.Fatalf("Create 1.1.0: %v", err)
	}

	if err := r.Update(ctx, note.MakeVersion(1, 1, 1), tmpl(2), "minor"); err != nil {
		t.Fatalf("Update 1.1.1: %v", err)
	}

	if err := r.Update(ctx, note.MakeVersion(1, 1, 0), tmpl(3), "again"); !fault.Is(err, fault.ErrInvariant) {
		t.Fatalf("Update 1.1.0 again: err = %v", err)
	}

	if err := r.Update(ctx, note.MakeVersion(1, 2, 0), tmpl(4), "major"); err != nil {
		t.Fatalf("Update 1.2.0: %v", err)
	}

	// A lower major than the newest one is refused
	if err := r.Update(ctx, note.MakeVersion(1, 0, 5), tmpl(5), "old"); !fault.Is(err, fault.ErrInvariant) {
		t.Fatalf("Update 1.0.5: err = %v", err)
	}

	// Minors keep growing inside an older major
	if err := r.Update(ctx, note.MakeVersion(1, 1, 2), tmpl(6), "patch"); err != nil {
		t.Fatalf("Update 1.1.2: %v", err)
	}
}

func TestCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	v := note.MakeVersion(2, 1, 1)
	if err := r.Create(ctx, v, tmpl(1), ""); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := r.Create(ctx, v, tmpl(2), ""); !fault.Is(err, fault.ErrInvariant) {
		t.Fatalf("duplicate: err = %v", err)
	}

	if err := r.Create(ctx, v.WithType(note.ProofTransfer), tmpl(2), ""); !fault.Is(err, fault.ErrInvariant) {
		t.Fatalf("typed version: err = %v", err)
	}
}

func TestUpdateUnknownName(t *testing.T) {
	r := newRegistry(t)

	if err := r.Update(context.Background(), note.MakeVersion(9, 1, 1), tmpl(1), ""); !fault.Is(err, fault.ErrInvariant) {
		t.Fatalf("err = %v", err)
	}
}

// TestLatest tests Latest and LatestMinor lookups.
func TestLatest(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	_ = r.Create(ctx, note.MakeVersion(1, 1, 1), tmpl(1), "")
	_ = r.Update(ctx, note.MakeVersion(1, 1, 3), tmpl(2), "")
	_ = r.Update(ctx, note.MakeVersion(1, 2, 1), tmpl(3), "")
	_ = r.Create(ctx, note.MakeVersion(2, 5, 1), tmpl(4), "")

	latest, err := r.Latest(ctx, 1)
	if err != nil || latest.Version != note.MakeVersion(1, 2, 1) {
		t.Errorf("Latest(1) = %+v, %v", latest, err)
	}

	minor, err := r.LatestMinor(ctx, 1, 1)
	if err != nil || minor.Template != tmpl(2) {
		t.Errorf("LatestMinor(1, 1) = %+v, %v", minor, err)
	}

	if _, err := r.LatestMinor(ctx, 1, 7); !fault.Is(err, fault.ErrInvariant) {
		t.Errorf("LatestMinor(1, 7): err = %v", err)
	}

	if _, err := r.Latest(ctx, 3); !fault.Is(err, fault.ErrInvariant) {
		t.Errorf("Latest(3): err = %v", err)
	}

	all, _ := r.List(ctx)
	if len(all) != 4 {
		t.Errorf("List = %d entries, want 4", len(all))
	}
}

type recordingDeployer struct {
	templates []common.Address
}

func (d *recordingDeployer) Deploy(_ context.Context, template common.Address) (common.Address, error) {
	d.templates = append(d.templates, template)
	return common.Address{0xde, byte(len(d.templates))}, nil
}

func TestDeploy(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)
	d := &recordingDeployer{}

	v := note.MakeVersion(1, 1, 1)
	_ = r.Create(ctx, v, tmpl(9), "")

	addr, err := r.Deploy(ctx, v, d)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	if addr == (common.Address{}) || len(d.templates) != 1 || d.templates[0] != tmpl(9) {
		t.Errorf("deployed %s from %v", addr, d.templates)
	}

	if _, err := r.Deploy(ctx, note.MakeVersion(1, 1, 2), d); !fault.Is(err, fault.ErrInvariant) {
		t.Errorf("unknown version: err = %v", err)
	}
}

// TestRolesAreIndependent tests that each role keeps its own table.
func TestRolesAreIndependent(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)
	storageRoles := New(r.db, r.scope, RoleStorage)

	v := note.MakeVersion(1, 1, 1)
	_ = r.Create(ctx, v, tmpl(1), "")

	if err := storageRoles.Create(ctx, v, tmpl(2), ""); err != nil {
		t.Fatalf("Create in storage role: %v", err)
	}

	addr, _ := storageRoles.VersionAddress(ctx, v)
	if addr != tmpl(2) {
		t.Errorf("storage template = %s", addr)
	}
}
