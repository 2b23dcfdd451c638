package validator

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"NoteVault/internal/host"
	"NoteVault/internal/note"
	"NoteVault/internal/rpc"
)

// RPC methods served by validator instances.
var (
	ValidateProofMethod     = rpc.NewMethod[[]byte, []byte]("validate_proof")
	ValidateSignatureMethod = rpc.NewMethod[SignatureArgs, bool]("validate_signature")
	SupportProofMethod      = rpc.NewMethod[uint32, bool]("support_proof")
)

// SignatureArgs are the arguments of ValidateSignatureMethod.
type SignatureArgs struct {
	Owner     []byte
	Hash      common.Hash
	Signature []byte
}

// Template wraps a validator as a deployable template.
// Validators keep no state, so migration copies nothing.
func Template(name string, v Validator) host.Template {
	return host.Template{
		Name: name,
		Build: func(host.Env) *rpc.Mux {
			return Serve(v)
		},
	}
}

// Serve exposes v over an rpc.Mux.
func Serve(v Validator) *rpc.Mux {
	mux := rpc.NewMux()

	rpc.Handle(mux, ValidateProofMethod, func(ctx context.Context, raw []byte) ([]byte, error) {
		result, err := v.ValidateProof(ctx, raw)
		if err != nil {
			return nil, err
		}

		return result.Encode()
	})

	rpc.Handle(mux, ValidateSignatureMethod, func(_ context.Context, args SignatureArgs) (bool, error) {
		return v.ValidateSignature(args.Owner, args.Hash, args.Signature), nil
	})

	rpc.Handle(mux, SupportProofMethod, func(_ context.Context, version uint32) (bool, error) {
		return v.SupportProof(note.Version(version)), nil
	})

	return mux
}

// Client calls a validator instance.
type Client struct {
	transport rpc.Transport
	addr      common.Address
}

// NewClient returns a client for the validator at addr.
func NewClient(t rpc.Transport, addr common.Address) *Client {
	return &Client{transport: t, addr: addr}
}

// Address returns the instance address.
func (c *Client) Address() common.Address {
	return c.addr
}

// ValidateProof validates raw and decodes the result envelope.
func (c *Client) ValidateProof(ctx context.Context, raw []byte) (*note.Result, error) {
	out, err := ValidateProofMethod.Call(ctx, c.transport, c.addr, raw)
	if err != nil {
		return nil, err
	}

	result, err := note.DecodeResult(out)
	if err != nil {
		return nil, fmt.Errorf("validator %s:\n%w", c.addr, err)
	}

	return result, nil
}

// ValidateSignature asks the validator whether sig over hash belongs to owner.
func (c *Client) ValidateSignature(ctx context.Context, owner []byte, hash common.Hash, sig []byte) (bool, error) {
	return ValidateSignatureMethod.Call(ctx, c.transport, c.addr, SignatureArgs{Owner: owner, Hash: hash, Signature: sig})
}

// SupportProof asks the validator whether proofs of version are accepted.
func (c *Client) SupportProof(ctx context.Context, version note.Version) (bool, error) {
	return SupportProofMethod.Call(ctx, c.transport, c.addr, uint32(version))
}
