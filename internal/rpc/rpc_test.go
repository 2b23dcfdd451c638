package rpc

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sony/gobreaker"

	"NoteVault/internal/fault"
)

type addArgs struct {
	A, B uint64
}

var (
	addMethod    = NewMethod[addArgs, uint64]("add")
	whoMethod    = NewMethod[Empty, common.Address]("who")
	refuseMethod = NewMethod[Empty, Empty]("refuse")
)

// muxTransport serves every address with one mux.
type muxTransport struct {
	mux *Mux
}

func (t muxTransport) Call(ctx context.Context, _ common.Address, method string, payload []byte) ([]byte, error) {
	return t.mux.Serve(ctx, method, payload)
}

func newTestMux() *Mux {
	mux := NewMux()

	Handle(mux, addMethod, func(_ context.Context, args addArgs) (uint64, error) {
		return args.A + args.B, nil
	})

	Handle(mux, whoMethod, func(ctx context.Context, _ Empty) (common.Address, error) {
		return Caller(ctx), nil
	})

	Handle(mux, refuseMethod, func(context.Context, Empty) (Empty, error) {
		return Empty{}, fault.Authorizationf("caller not allowed")
	})

	return mux
}

// generateTestKey generates a random ed25519 key for testing.
func generateTestKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	return priv
}

func TestMethodCall(t *testing.T) {
	tr := muxTransport{mux: newTestMux()}

	sum, err := addMethod.Call(context.Background(), tr, common.Address{}, addArgs{A: 2, B: 40})
	if err != nil {
		t.Fatalf("call: %v", err)
	}

	if sum != 42 {
		t.Errorf("sum = %d, want 42", sum)
	}

	caller := common.HexToAddress("0xabc")

	who, err := whoMethod.Call(WithCaller(context.Background(), caller), tr, common.Address{}, Empty{})
	if err != nil {
		t.Fatalf("call: %v", err)
	}

	if who != caller {
		t.Errorf("caller = %s, want %s", who, caller)
	}
}

func TestMuxUnknownMethod(t *testing.T) {
	mux := newTestMux()

	if _, err := mux.Serve(context.Background(), "missing", nil); !fault.Is(err, fault.ErrInvariant) {
		t.Fatalf("err = %v, want invariant", err)
	}

	if got := mux.Methods(); len(got) != 3 || got[0] != "add" {
		t.Errorf("methods = %v", got)
	}
}

func TestMuxRejectsGarbage(t *testing.T) {
	mux := newTestMux()

	if _, err := mux.Serve(context.Background(), "add", []byte{0xff}); !fault.Is(err, fault.ErrInvariant) {
		t.Fatalf("err = %v, want invariant", err)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	in := request{To: common.HexToAddress("0x01"), Method: "add", Payload: []byte{1, 2, 3}}
	if err := writeFrame(&buf, &in); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out request
	if err := readFrame(&buf, &out); err != nil {
		t.Fatalf("read: %v", err)
	}

	if out.To != in.To || out.Method != in.Method || !bytes.Equal(out.Payload, in.Payload) {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestResponseKeepsClass(t *testing.T) {
	resp := newResponse(nil, fault.Overflowf("supply overflow"))

	_, err := resp.result()
	if fault.ClassOf(err) != fault.ClassOverflow {
		t.Fatalf("class = %v, want overflow", fault.ClassOf(err))
	}
}

// TestQUICRoundTrip tests a call across a real QUIC connection.
func TestQUICRoundTrip(t *testing.T) {
	server, err := NewServer(ServerConfig{
		PrivateKey: generateTestKey(t),
		ListenAddr: "127.0.0.1:0",
		Handler:    muxTransport{mux: newTestMux()},
	})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}

	if err := server.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	defer server.Close()

	caller := common.HexToAddress("0xfeed")

	client, err := NewClient(ClientConfig{
		PrivateKey: generateTestKey(t),
		Addr:       server.Addr(),
		Caller:     caller,
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sum, err := addMethod.Call(ctx, client, common.Address{}, addArgs{A: 1, B: 2})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if sum != 3 {
		t.Errorf("sum = %d, want 3", sum)
	}

	who, err := whoMethod.Call(ctx, client, common.Address{}, Empty{})
	if err != nil {
		t.Fatalf("who: %v", err)
	}

	if who != caller {
		t.Errorf("caller = %s, want %s", who, caller)
	}

	_, err = refuseMethod.Call(ctx, client, common.Address{}, Empty{})
	if got := fault.ClassOf(err); got != fault.ClassAuthorization {
		t.Errorf("class = %v, want authorization", got)
	}
}

// TestQUICAllowlist tests that unknown keys are refused.
func TestQUICAllowlist(t *testing.T) {
	allowed := generateTestKey(t)

	server, err := NewServer(ServerConfig{
		PrivateKey: generateTestKey(t),
		ListenAddr: "127.0.0.1:0",
		Handler:    muxTransport{mux: newTestMux()},
		Allowed:    []ed25519.PublicKey{allowed.Public().(ed25519.PublicKey)},
	})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}

	if err := server.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	defer server.Close()

	stranger, _ := NewClient(ClientConfig{PrivateKey: generateTestKey(t), Addr: server.Addr()})
	defer stranger.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = addMethod.Call(ctx, stranger, common.Address{}, addArgs{A: 1, B: 1})
	if got := fault.ClassOf(err); got != fault.ClassExternal {
		t.Fatalf("class = %v, want external", got)
	}
}

// TestBreakerOpens tests that repeated transport failures open the breaker.
func TestBreakerOpens(t *testing.T) {
	client, err := NewClient(ClientConfig{
		PrivateKey:      generateTestKey(t),
		Addr:            "127.0.0.1:1",
		BreakerFailures: 2,
		BreakerCooldown: time.Minute,
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer client.Close()

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		_, err := addMethod.Call(ctx, client, common.Address{}, addArgs{})
		cancel()

		if fault.ClassOf(err) != fault.ClassExternal {
			t.Fatalf("attempt %d: err = %v, want external", i, err)
		}
	}

	_, err = addMethod.Call(context.Background(), client, common.Address{}, addArgs{})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want open breaker", err)
	}
}
