// Package rpc carries typed calls between components.
//
// A component is addressed by a 20-byte address and exposes named methods.
// Arguments and results are RLP encoded. The caller identity travels with
// the context, so a handler can authorize without trusting its arguments.
package rpc

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"NoteVault/internal/fault"
)

// Transport delivers a raw call to the component at to.
type Transport interface {
	Call(ctx context.Context, to common.Address, method string, payload []byte) ([]byte, error)
}

// Empty is the argument or result of methods that take or return nothing.
type Empty struct{}

// Method names a call with argument type A and result type R.
type Method[A, R any] struct {
	Name string
}

// NewMethod declares a method.
func NewMethod[A, R any](name string) Method[A, R] {
	return Method[A, R]{Name: name}
}

// Call invokes m on the component at to.
func (m Method[A, R]) Call(ctx context.Context, t Transport, to common.Address, args A) (R, error) {
	var out R

	payload, err := rlp.EncodeToBytes(&args)
	if err != nil {
		return out, fmt.Errorf("encode %s args:\n%w", m.Name, err)
	}

	resp, err := t.Call(ctx, to, m.Name, payload)
	if err != nil {
		return out, err
	}

	if err := rlp.DecodeBytes(resp, &out); err != nil {
		return out, fault.Invariantf("decode %s result: %v", m.Name, err)
	}

	return out, nil
}

type callerKey struct{}

// WithCaller returns ctx carrying the identity of the calling component or account.
func WithCaller(ctx context.Context, caller common.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// Caller returns the identity carried by ctx, or the zero address.
func Caller(ctx context.Context) common.Address {
	caller, _ := ctx.Value(callerKey{}).(common.Address)
	return caller
}
