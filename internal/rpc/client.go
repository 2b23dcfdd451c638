package rpc

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/quic-go/quic-go"
	"github.com/sony/gobreaker"

	"NoteVault/internal/fault"
	"NoteVault/internal/logger"
)

const (
	// defaultBreakerFailures is the number of consecutive transport failures that open the breaker.
	defaultBreakerFailures = 5

	// defaultBreakerCooldown is how long an open breaker rejects calls.
	defaultBreakerCooldown = 10 * time.Second
)

// ClientConfig holds the configuration for a Client.
type ClientConfig struct {
	PrivateKey      ed25519.PrivateKey // PrivateKey identifies the client to the server
	Addr            string             // Addr is the server address
	Caller          common.Address     // Caller is used when the context carries none
	BreakerFailures uint32             // BreakerFailures opens the breaker after this many consecutive failures
	BreakerCooldown time.Duration      // BreakerCooldown is how long the breaker stays open
}

// Client is a Transport that forwards calls to a remote Server.
type Client struct {
	cfg        ClientConfig
	tlsConfig  *tls.Config
	quicConfig *quic.Config
	breaker    *gobreaker.CircuitBreaker

	mu   sync.Mutex
	conn *quic.Conn
}

// NewClient creates a client. The connection is dialed on first use.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.PrivateKey == nil {
		return nil, fmt.Errorf("private key is required")
	}

	if cfg.Addr == "" {
		return nil, fmt.Errorf("server address is required")
	}

	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = defaultBreakerFailures
	}

	if cfg.BreakerCooldown == 0 {
		cfg.BreakerCooldown = defaultBreakerCooldown
	}

	cert, err := generateCertificate(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("generate certificate:\n%w", err)
	}

	failures := cfg.BreakerFailures

	return &Client{
		cfg: cfg,
		tlsConfig: &tls.Config{
			Certificates:       []tls.Certificate{cert},
			InsecureSkipVerify: true,
			NextProtos:         []string{alpnProtocol},
		},
		quicConfig: &quic.Config{
			MaxIdleTimeout:  30 * time.Second,
			KeepAlivePeriod: 10 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "rpc " + cfg.Addr,
			Timeout: cfg.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		}),
	}, nil
}

// Call forwards a call. Transport failures are external failures; errors
// returned by the remote handler keep their class.
func (c *Client) Call(ctx context.Context, to common.Address, method string, payload []byte) ([]byte, error) {
	caller := Caller(ctx)
	if caller == (common.Address{}) {
		caller = c.cfg.Caller
	}

	req := request{To: to, Caller: caller, Method: method, Payload: payload}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, req)
	})
	if err != nil {
		return nil, fault.External(err, fmt.Sprintf("call %s on %s", method, c.cfg.Addr))
	}

	return out.(response).result()
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	err := c.conn.CloseWithError(0, "closed")
	c.conn = nil

	return err
}

// roundTrip sends one request on a fresh stream and reads the response.
func (c *Client) roundTrip(ctx context.Context, req request) (response, error) {
	conn, err := c.connection(ctx)
	if err != nil {
		return response{}, err
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		c.drop(conn)
		return response{}, fmt.Errorf("open stream:\n%w", err)
	}
	defer stream.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultRequestTimeout)
	}
	stream.SetDeadline(deadline)

	if err := writeFrame(stream, &req); err != nil {
		return response{}, fmt.Errorf("write request:\n%w", err)
	}

	var resp response
	if err := readFrame(stream, &resp); err != nil {
		return response{}, fmt.Errorf("read response:\n%w", err)
	}

	return resp, nil
}

// connection returns the live connection, dialing if needed.
func (c *Client) connection(ctx context.Context) (*quic.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && c.conn.Context().Err() == nil {
		return c.conn, nil
	}

	conn, err := quic.DialAddr(ctx, c.cfg.Addr, c.tlsConfig, c.quicConfig)
	if err != nil {
		return nil, fmt.Errorf("dial:\n%w", err)
	}

	c.conn = conn

	return conn, nil
}

// drop forgets a broken connection so the next call redials.
func (c *Client) drop(conn *quic.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == conn {
		c.conn.CloseWithError(1, "stream failure")
		c.conn = nil
	}
}
