// Package genesis registers the built-in templates and bootstraps a fresh
// daemon: the name registry, the orchestrator with its funds manager, and the
// first validator and storage versions of both algorithms.
package genesis

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/acl"
	"NoteVault/internal/funds"
	"NoteVault/internal/host"
	"NoteVault/internal/logger"
	"NoteVault/internal/metrics"
	"NoteVault/internal/names"
	"NoteVault/internal/note"
	"NoteVault/internal/notestore"
	"NoteVault/internal/rpc"
	"NoteVault/internal/storage"
	"NoteVault/internal/validator"
	"NoteVault/internal/versions"
)

// Template names of the built-in catalog.
const (
	PlaintextValidator    = "plaintext-validator"
	ConfidentialValidator = "confidential-validator"
	PlaintextStore        = "plaintext-store"
	ConfidentialStore     = "confidential-store"
)

// Versions recorded at bootstrap.
var (
	PlaintextVersion    = note.MakeVersion(validator.AlgorithmPlaintext, 1, 1)    // 0x01010100
	ConfidentialVersion = note.MakeVersion(validator.AlgorithmConfidential, 1, 1) // 0x02010100
)

// deploymentKey holds the bootstrap record in the host scope.
var deploymentKey = storage.Key(storage.Scope(host.Address), storage.SpaceMeta, []byte("genesis"))

// Config holds the genesis configuration.
type Config struct {
	// Authority administers versions. It deploys the name registry and orchestrator.
	Authority common.Address

	// Verifier checks confidential transactions.
	Verifier validator.Verifier

	// Metrics is handed to the orchestrator, nil to disable.
	Metrics *metrics.Metrics

	// FundsRemote routes funds manager deployments to another host when set.
	FundsRemote rpc.Transport
}

// Templates are the catalog addresses of the built-in templates.
type Templates struct {
	PlaintextValidator    common.Address
	ConfidentialValidator common.Address
	PlaintextStore        common.Address
	ConfidentialStore     common.Address
	Funds                 common.Address
	Names                 common.Address
	ACL                   common.Address
}

// Deployment is the record of a bootstrapped daemon.
type Deployment struct {
	Authority common.Address `cbor:"1,keyasint" json:"authority"`
	Names     common.Address `cbor:"2,keyasint" json:"names"`
	ACL       common.Address `cbor:"3,keyasint" json:"acl"`
	Funds     common.Address `cbor:"4,keyasint" json:"funds"`
}

// Register adds the built-in templates to h.
func Register(h *host.Host, cfg Config) (Templates, error) {
	if cfg.Verifier == nil {
		return Templates{}, fmt.Errorf("verifier is required")
	}

	t := Templates{
		PlaintextValidator:    h.Register(validator.Template(PlaintextValidator, validator.NewPlaintext(validator.DefaultPolicy))),
		ConfidentialValidator: h.Register(validator.Template(ConfidentialValidator, validator.NewConfidential(validator.DefaultPolicy, cfg.Verifier))),
		PlaintextStore:        h.Register(notestore.Template(PlaintextStore, true)),
		ConfidentialStore:     h.Register(notestore.Template(ConfidentialStore, false)),
		Names:                 h.Register(names.Template()),
		ACL:                   h.Register(acl.Template(cfg.Metrics)),
	}

	if cfg.FundsRemote != nil {
		t.Funds = h.RegisterRemote(funds.TemplateName, cfg.FundsRemote)
	} else {
		t.Funds = h.Register(funds.Template())
	}

	return t, nil
}

// Load returns the stored deployment, or nil before bootstrap.
func Load(ctx context.Context, db *storage.Storage) (*Deployment, error) {
	var d Deployment

	found, err := db.GetRecord(ctx, deploymentKey, &d)
	if err != nil {
		return nil, fmt.Errorf("load deployment:\n%w", err)
	}

	if !found {
		return nil, nil
	}

	return &d, nil
}

// Bootstrap deploys and initializes the daemon's components once. Later calls
// return the stored deployment.
func Bootstrap(ctx context.Context, h *host.Host, cfg Config, t Templates) (*Deployment, error) {
	db := h.DB()

	existing, err := Load(ctx, db)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if existing.Authority != cfg.Authority {
			return nil, fmt.Errorf("data was bootstrapped by authority %s, not %s", existing.Authority, cfg.Authority)
		}

		return existing, nil
	}

	var d *Deployment

	err = db.Update(ctx, func(ctx context.Context) error {
		var err error
		d, err = deploy(ctx, h, cfg.Authority, t)
		if err != nil {
			return err
		}

		return db.PutRecord(ctx, deploymentKey, d)
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap:\n%w", err)
	}

	logger.Info("genesis complete",
		"authority", d.Authority,
		"acl", d.ACL,
		"names", d.Names,
		"funds", d.Funds,
	)

	return d, nil
}

func deploy(ctx context.Context, h *host.Host, authority common.Address, t Templates) (*Deployment, error) {
	namesAddr, err := h.Deploy(ctx, t.Names, authority)
	if err != nil {
		return nil, fmt.Errorf("deploy names:\n%w", err)
	}

	aclAddr, err := h.Deploy(ctx, t.ACL, authority)
	if err != nil {
		return nil, fmt.Errorf("deploy acl:\n%w", err)
	}

	c := acl.NewClient(h, aclAddr)
	admin := rpc.WithCaller(ctx, authority)

	if err := c.Init(admin, namesAddr, t.Funds); err != nil {
		return nil, fmt.Errorf("init acl:\n%w", err)
	}

	records := []struct {
		role versions.Role
		info versions.Info
	}{
		{versions.RoleValidator, versions.Info{Version: PlaintextVersion, Template: t.PlaintextValidator, Description: "plaintext notes"}},
		{versions.RoleValidator, versions.Info{Version: ConfidentialVersion, Template: t.ConfidentialValidator, Description: "pedersen commitments"}},
		{versions.RoleStorage, versions.Info{Version: PlaintextVersion, Template: t.PlaintextStore, Description: "notes with approvals"}},
		{versions.RoleStorage, versions.Info{Version: ConfidentialVersion, Template: t.ConfidentialStore, Description: "notes without approvals"}},
	}

	for _, r := range records {
		if err := c.CreateVersion(admin, r.role, r.info); err != nil {
			return nil, fmt.Errorf("create %s version %s:\n%w", r.role, r.info.Version, err)
		}
	}

	fundsAddr, err := c.GetFundsManager(admin)
	if err != nil {
		return nil, err
	}

	return &Deployment{Authority: authority, Names: namesAddr, ACL: aclAddr, Funds: fundsAddr}, nil
}
