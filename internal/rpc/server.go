package rpc

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"NoteVault/internal/logger"
)

const (
	// alpnProtocol is the ALPN protocol identifier.
	alpnProtocol = "notevault-rpc/1"

	// defaultRequestTimeout bounds a call that carries no deadline.
	defaultRequestTimeout = 30 * time.Second
)

// ServerConfig holds the configuration for a Server.
type ServerConfig struct {
	PrivateKey ed25519.PrivateKey  // PrivateKey is the server's ed25519 key
	ListenAddr string              // ListenAddr is the address to listen on (e.g., ":7400")
	Handler    Transport           // Handler serves accepted calls
	Allowed    []ed25519.PublicKey // Allowed restricts callers to these keys, any when empty
}

// Server exposes a Transport over QUIC.
type Server struct {
	cfg        ServerConfig
	tlsConfig  *tls.Config
	quicConfig *quic.Config

	listener *quic.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a server. Call Start to accept connections.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.PrivateKey == nil {
		return nil, fmt.Errorf("private key is required")
	}

	if cfg.Handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	cert, err := generateCertificate(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("generate certificate:\n%w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg: cfg,
		tlsConfig: &tls.Config{
			Certificates:       []tls.Certificate{cert},
			ClientAuth:         tls.RequireAnyClientCert,
			InsecureSkipVerify: true, // keys are checked against Allowed
			NextProtos:         []string{alpnProtocol},
		},
		quicConfig: &quic.Config{
			MaxIdleTimeout:  30 * time.Second,
			KeepAlivePeriod: 10 * time.Second,
		},
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start begins accepting connections.
func (s *Server) Start() error {
	listener, err := quic.ListenAddr(s.cfg.ListenAddr, s.tlsConfig, s.quicConfig)
	if err != nil {
		return fmt.Errorf("listen:\n%w", err)
	}

	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	logger.Info("rpc server listening", "addr", listener.Addr().String())

	return nil
}

// Addr returns the listener's address, or an empty string before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Close stops the server and waits for in-flight calls.
func (s *Server) Close() error {
	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	s.wg.Wait()

	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept(s.ctx)
		if err != nil {
			return // Listener closed
		}

		if !s.allowed(conn) {
			conn.CloseWithError(1, "caller not allowed")
			continue
		}

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

// allowed checks the remote key against the allowlist.
func (s *Server) allowed(conn *quic.Conn) bool {
	key, err := peerKey(conn.ConnectionState().TLS)
	if err != nil {
		logger.Warn("rejecting rpc peer", "addr", conn.RemoteAddr().String(), "error", err)
		return false
	}

	if len(s.cfg.Allowed) == 0 {
		return true
	}

	for _, k := range s.cfg.Allowed {
		if bytes.Equal(k, key) {
			return true
		}
	}

	logger.Warn("rejecting rpc peer", "addr", conn.RemoteAddr().String(), "key", fmt.Sprintf("%x", key[:8]))

	return false
}

func (s *Server) serveConn(conn *quic.Conn) {
	defer s.wg.Done()

	for {
		stream, err := conn.AcceptStream(s.ctx)
		if err != nil {
			return
		}

		s.wg.Add(1)
		go s.serveStream(stream)
	}
}

// serveStream handles one request/response exchange.
func (s *Server) serveStream(stream *quic.Stream) {
	defer s.wg.Done()
	defer stream.Close()

	stream.SetDeadline(time.Now().Add(defaultRequestTimeout))

	var req request
	if err := readFrame(stream, &req); err != nil {
		logger.Debug("rpc read error", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, defaultRequestTimeout)
	defer cancel()

	payload, err := s.cfg.Handler.Call(WithCaller(ctx, req.Caller), req.To, req.Method, req.Payload)
	if err != nil {
		logger.Debug("rpc call failed", "method", req.Method, "to", req.To, "error", err)
	}

	if err := writeFrame(stream, newResponse(payload, err)); err != nil {
		logger.Debug("rpc write error", "method", req.Method, "error", err)
	}
}
