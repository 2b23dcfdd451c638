package acl

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/host"
	"NoteVault/internal/metrics"
	"NoteVault/internal/note"
	"NoteVault/internal/rpc"
	"NoteVault/internal/validator"
	"NoteVault/internal/versions"
)

// TemplateName is the catalog name of the orchestrator template.
const TemplateName = "acl"

// RPC methods served by the orchestrator.
var (
	InitMethod              = rpc.NewMethod[InitArgs, rpc.Empty]("init")
	CreateRegistryMethod    = rpc.NewMethod[CreateRegistryArgs, rpc.Empty]("create_registry")
	TransferMethod          = rpc.NewMethod[[]byte, []byte]("transfer")
	MintMethod              = rpc.NewMethod[[]byte, rpc.Empty]("mint")
	BurnMethod              = rpc.NewMethod[[]byte, rpc.Empty]("burn")
	ApproveMethod           = rpc.NewMethod[[]byte, rpc.Empty]("approve")
	ValidateProofMethod     = rpc.NewMethod[[]byte, []byte]("validate_proof")
	ValidateSignatureMethod = rpc.NewMethod[validator.SignatureArgs, bool]("validate_signature")
	GetApprovalMethod       = rpc.NewMethod[common.Hash, []byte]("get_approval")
	GetNoteMethod           = rpc.NewMethod[common.Hash, note.NoteStatus]("get_note")
	SupportProofMethod      = rpc.NewMethod[uint32, bool]("support_proof")
	GetRegistryMethod       = rpc.NewMethod[common.Address, Registry]("get_registry")
	GetFundsManagerMethod   = rpc.NewMethod[rpc.Empty, common.Address]("get_funds_manager")
	CreateVersionMethod     = rpc.NewMethod[VersionArgs, rpc.Empty]("create_version")
	UpdateVersionMethod     = rpc.NewMethod[VersionArgs, rpc.Empty]("update_version")
	LatestMethod            = rpc.NewMethod[LatestArgs, versions.Info]("latest")
	LatestMinorMethod       = rpc.NewMethod[LatestArgs, versions.Info]("latest_minor")
	ListVersionsMethod      = rpc.NewMethod[versions.Role, []versions.Info]("list_versions")
	UpgradeMethod           = rpc.NewMethod[UpgradeArgs, common.Address]("upgrade")
)

// InitArgs are the arguments of InitMethod.
type InitArgs struct {
	Names         common.Address // Names is the name registry, zero to skip
	FundsTemplate common.Address // FundsTemplate is deployed as funds manager, zero to skip
}

// VersionArgs record a version for a role.
type VersionArgs struct {
	Role versions.Role
	Info versions.Info
}

// LatestArgs select versions of one algorithm. Major is ignored by LatestMethod.
type LatestArgs struct {
	Role  versions.Role
	Name  uint8
	Major uint8
}

// UpgradeArgs move the role instance of an asset to a version.
type UpgradeArgs struct {
	Asset   common.Address
	Role    versions.Role
	Version note.Version
}

// Template returns the orchestrator template. It cannot be migrated.
func Template(m *metrics.Metrics) host.Template {
	return host.Template{
		Name:   TemplateName,
		Pinned: true,
		Build: func(env host.Env) *rpc.Mux {
			return serve(New(env, m))
		},
	}
}

func serve(a *ACL) *rpc.Mux {
	mux := rpc.NewMux()

	rpc.Handle(mux, InitMethod, func(ctx context.Context, args InitArgs) (rpc.Empty, error) {
		return rpc.Empty{}, a.Init(ctx, args.Names, args.FundsTemplate)
	})

	rpc.Handle(mux, CreateRegistryMethod, func(ctx context.Context, args CreateRegistryArgs) (rpc.Empty, error) {
		return rpc.Empty{}, a.CreateRegistry(ctx, args)
	})

	rpc.Handle(mux, TransferMethod, func(ctx context.Context, proof []byte) ([]byte, error) {
		result, err := a.Transfer(ctx, proof)
		if err != nil {
			return nil, err
		}

		return result.Encode()
	})

	rpc.Handle(mux, MintMethod, func(ctx context.Context, proof []byte) (rpc.Empty, error) {
		return rpc.Empty{}, a.Mint(ctx, proof)
	})

	rpc.Handle(mux, BurnMethod, func(ctx context.Context, proof []byte) (rpc.Empty, error) {
		return rpc.Empty{}, a.Burn(ctx, proof)
	})

	rpc.Handle(mux, ApproveMethod, func(ctx context.Context, proof []byte) (rpc.Empty, error) {
		return rpc.Empty{}, a.Approve(ctx, proof)
	})

	rpc.Handle(mux, ValidateProofMethod, func(ctx context.Context, proof []byte) ([]byte, error) {
		result, err := a.ValidateProof(ctx, proof)
		if err != nil {
			return nil, err
		}

		return result.Encode()
	})

	rpc.Handle(mux, ValidateSignatureMethod, func(ctx context.Context, args validator.SignatureArgs) (bool, error) {
		return a.ValidateSignature(ctx, args.Owner, args.Hash, args.Signature)
	})

	rpc.Handle(mux, GetApprovalMethod, a.GetApproval)

	rpc.Handle(mux, GetNoteMethod, func(ctx context.Context, hash common.Hash) (note.NoteStatus, error) {
		status, err := a.GetNote(ctx, hash)
		if err != nil {
			return note.NoteStatus{}, err
		}

		return *status, nil
	})

	rpc.Handle(mux, SupportProofMethod, func(ctx context.Context, version uint32) (bool, error) {
		return a.SupportProof(ctx, note.Version(version))
	})

	rpc.Handle(mux, GetRegistryMethod, func(ctx context.Context, asset common.Address) (Registry, error) {
		reg, err := a.GetRegistry(ctx, asset)
		if err != nil {
			return Registry{}, err
		}

		return *reg, nil
	})

	rpc.Handle(mux, GetFundsManagerMethod, func(ctx context.Context, _ rpc.Empty) (common.Address, error) {
		return a.GetFundsManager(ctx)
	})

	rpc.Handle(mux, CreateVersionMethod, func(ctx context.Context, args VersionArgs) (rpc.Empty, error) {
		return rpc.Empty{}, a.CreateVersion(ctx, args.Role, args.Info)
	})

	rpc.Handle(mux, UpdateVersionMethod, func(ctx context.Context, args VersionArgs) (rpc.Empty, error) {
		return rpc.Empty{}, a.UpdateVersion(ctx, args.Role, args.Info)
	})

	rpc.Handle(mux, LatestMethod, func(ctx context.Context, args LatestArgs) (versions.Info, error) {
		info, err := a.Latest(ctx, args.Role, args.Name)
		if err != nil {
			return versions.Info{}, err
		}

		return *info, nil
	})

	rpc.Handle(mux, LatestMinorMethod, func(ctx context.Context, args LatestArgs) (versions.Info, error) {
		info, err := a.LatestMinor(ctx, args.Role, args.Name, args.Major)
		if err != nil {
			return versions.Info{}, err
		}

		return *info, nil
	})

	rpc.Handle(mux, ListVersionsMethod, a.ListVersions)

	rpc.Handle(mux, UpgradeMethod, func(ctx context.Context, args UpgradeArgs) (common.Address, error) {
		return a.Upgrade(ctx, args.Asset, args.Role, args.Version)
	})

	return mux
}

// Client calls an orchestrator instance. The caller identity travels in the
// context given to each call.
type Client struct {
	transport rpc.Transport
	addr      common.Address
}

// NewClient returns a client for the orchestrator at addr.
func NewClient(t rpc.Transport, addr common.Address) *Client {
	return &Client{transport: t, addr: addr}
}

// Address returns the instance address.
func (c *Client) Address() common.Address {
	return c.addr
}

func (c *Client) Init(ctx context.Context, names, fundsTemplate common.Address) error {
	_, err := InitMethod.Call(ctx, c.transport, c.addr, InitArgs{Names: names, FundsTemplate: fundsTemplate})
	return err
}

func (c *Client) CreateRegistry(ctx context.Context, args CreateRegistryArgs) error {
	_, err := CreateRegistryMethod.Call(ctx, c.transport, c.addr, args)
	return err
}

// Transfer applies a transfer proof and returns the validated result.
func (c *Client) Transfer(ctx context.Context, proof []byte) (*note.Result, error) {
	out, err := TransferMethod.Call(ctx, c.transport, c.addr, proof)
	if err != nil {
		return nil, err
	}

	return note.DecodeResult(out)
}

func (c *Client) Mint(ctx context.Context, proof []byte) error {
	_, err := MintMethod.Call(ctx, c.transport, c.addr, proof)
	return err
}

func (c *Client) Burn(ctx context.Context, proof []byte) error {
	_, err := BurnMethod.Call(ctx, c.transport, c.addr, proof)
	return err
}

func (c *Client) Approve(ctx context.Context, proof []byte) error {
	_, err := ApproveMethod.Call(ctx, c.transport, c.addr, proof)
	return err
}

// ValidateProof validates a proof without applying it.
func (c *Client) ValidateProof(ctx context.Context, proof []byte) (*note.Result, error) {
	out, err := ValidateProofMethod.Call(ctx, c.transport, c.addr, proof)
	if err != nil {
		return nil, err
	}

	return note.DecodeResult(out)
}

func (c *Client) ValidateSignature(ctx context.Context, owner []byte, hash common.Hash, sig []byte) (bool, error) {
	return ValidateSignatureMethod.Call(ctx, c.transport, c.addr, validator.SignatureArgs{Owner: owner, Hash: hash, Signature: sig})
}

func (c *Client) GetApproval(ctx context.Context, hash common.Hash) ([]byte, error) {
	return GetApprovalMethod.Call(ctx, c.transport, c.addr, hash)
}

func (c *Client) GetNote(ctx context.Context, hash common.Hash) (*note.NoteStatus, error) {
	status, err := GetNoteMethod.Call(ctx, c.transport, c.addr, hash)
	if err != nil {
		return nil, err
	}

	return &status, nil
}

func (c *Client) SupportProof(ctx context.Context, version note.Version) (bool, error) {
	return SupportProofMethod.Call(ctx, c.transport, c.addr, uint32(version))
}

func (c *Client) GetRegistry(ctx context.Context, asset common.Address) (*Registry, error) {
	reg, err := GetRegistryMethod.Call(ctx, c.transport, c.addr, asset)
	if err != nil {
		return nil, err
	}

	return &reg, nil
}

func (c *Client) GetFundsManager(ctx context.Context) (common.Address, error) {
	return GetFundsManagerMethod.Call(ctx, c.transport, c.addr, rpc.Empty{})
}

func (c *Client) CreateVersion(ctx context.Context, role versions.Role, info versions.Info) error {
	_, err := CreateVersionMethod.Call(ctx, c.transport, c.addr, VersionArgs{Role: role, Info: info})
	return err
}

func (c *Client) UpdateVersion(ctx context.Context, role versions.Role, info versions.Info) error {
	_, err := UpdateVersionMethod.Call(ctx, c.transport, c.addr, VersionArgs{Role: role, Info: info})
	return err
}

func (c *Client) Latest(ctx context.Context, role versions.Role, name uint8) (*versions.Info, error) {
	info, err := LatestMethod.Call(ctx, c.transport, c.addr, LatestArgs{Role: role, Name: name})
	if err != nil {
		return nil, err
	}

	return &info, nil
}

func (c *Client) LatestMinor(ctx context.Context, role versions.Role, name, major uint8) (*versions.Info, error) {
	info, err := LatestMinorMethod.Call(ctx, c.transport, c.addr, LatestArgs{Role: role, Name: name, Major: major})
	if err != nil {
		return nil, err
	}

	return &info, nil
}

func (c *Client) ListVersions(ctx context.Context, role versions.Role) ([]versions.Info, error) {
	return ListVersionsMethod.Call(ctx, c.transport, c.addr, role)
}

// Upgrade moves the role instance of asset to version and returns the new instance.
func (c *Client) Upgrade(ctx context.Context, asset common.Address, role versions.Role, version note.Version) (common.Address, error) {
	return UpgradeMethod.Call(ctx, c.transport, c.addr, UpgradeArgs{Asset: asset, Role: role, Version: version})
}
