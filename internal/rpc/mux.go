package rpc

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"NoteVault/internal/fault"
)

// HandlerFunc serves one raw method call.
type HandlerFunc func(ctx context.Context, payload []byte) ([]byte, error)

// Mux routes method names to handlers.
type Mux struct {
	handlers map[string]HandlerFunc
}

// NewMux creates an empty mux.
func NewMux() *Mux {
	return &Mux{handlers: make(map[string]HandlerFunc)}
}

// HandleRaw registers fn for method name.
func (m *Mux) HandleRaw(name string, fn HandlerFunc) {
	if _, exists := m.handlers[name]; exists {
		panic(fmt.Sprintf("rpc: method %q registered twice", name))
	}

	m.handlers[name] = fn
}

// Has reports whether name is served.
func (m *Mux) Has(name string) bool {
	_, ok := m.handlers[name]
	return ok
}

// Methods returns the served method names in order.
func (m *Mux) Methods() []string {
	names := make([]string, 0, len(m.handlers))
	for name := range m.handlers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Serve dispatches a raw call.
func (m *Mux) Serve(ctx context.Context, name string, payload []byte) ([]byte, error) {
	fn, ok := m.handlers[name]
	if !ok {
		return nil, fault.Invariantf("unknown method %q", name)
	}

	return fn(ctx, payload)
}

// Handle registers a typed handler for method.
func Handle[A, R any](m *Mux, method Method[A, R], fn func(ctx context.Context, args A) (R, error)) {
	m.HandleRaw(method.Name, func(ctx context.Context, payload []byte) ([]byte, error) {
		var args A
		if err := rlp.DecodeBytes(payload, &args); err != nil {
			return nil, fault.Invariantf("decode %s args: %v", method.Name, err)
		}

		res, err := fn(ctx, args)
		if err != nil {
			return nil, err
		}

		out, err := rlp.EncodeToBytes(&res)
		if err != nil {
			return nil, fmt.Errorf("encode %s result:\n%w", method.Name, err)
		}

		return out, nil
	})
}
