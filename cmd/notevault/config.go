package main

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/ethereum/go-ethereum/crypto"

	"NoteVault/internal/pedersen"
)

// Config holds the daemon configuration.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string

	// HTTPAddress is the HTTP API listen address. The API takes caller
	// identities from the request path and the X-Caller header without
	// authenticating them, so anything beyond loopback must sit behind an
	// authenticating gateway.
	HTTPAddress string

	// QUICAddress is the QUIC RPC listen address, empty to disable.
	QUICAddress string

	// KeyPath is the path to the hex secp256k1 authority key.
	KeyPath string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// FundsRemote is the QUIC address of a host serving the funds template.
	FundsRemote string

	// CacheSize is the number of verified confidential transactions kept.
	CacheSize int

	// BreakerFailures opens the remote funds breaker after this many failures.
	BreakerFailures uint

	// Key is the authority key.
	Key *ecdsa.PrivateKey
}

// parseFlags parses command-line flags into Config.
func parseFlags(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("notevault", flag.ContinueOnError)
	fs.StringVar(&cfg.DataPath, "data", "./data", "Data directory path")
	fs.StringVar(&cfg.HTTPAddress, "http", "127.0.0.1:8080", "HTTP API address; callers are not authenticated, expose only behind an authenticating gateway")
	fs.StringVar(&cfg.QUICAddress, "quic", ":9000", "QUIC RPC address (empty disables)")
	fs.StringVar(&cfg.KeyPath, "key", "", "Hex secp256k1 authority key path (generates new if missing)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.FundsRemote, "funds-remote", "", "QUIC address of a remote funds host")
	fs.IntVar(&cfg.CacheSize, "cache-size", pedersen.DefaultCacheSize, "Verified confidential transaction cache size")
	fs.UintVar(&cfg.BreakerFailures, "breaker-failures", 5, "Consecutive failures before the funds breaker opens")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks the flag values.
func (c *Config) validate() error {
	if c.DataPath == "" {
		return errors.New("data path is required")
	}

	if c.HTTPAddress == "" {
		return errors.New("http address is required")
	}

	if c.CacheSize <= 0 {
		return fmt.Errorf("cache size must be positive, got %d", c.CacheSize)
	}

	if c.BreakerFailures == 0 || c.BreakerFailures > 1<<31 {
		return fmt.Errorf("breaker failures out of range: %d", c.BreakerFailures)
	}

	return nil
}

// httpExposed reports whether the HTTP API listens beyond loopback.
func (c *Config) httpExposed() bool {
	host, _, err := net.SplitHostPort(c.HTTPAddress)
	if err != nil {
		return true
	}

	if host == "localhost" {
		return false
	}

	ip := net.ParseIP(host)

	return ip == nil || !ip.IsLoopback()
}

// transportKey derives the QUIC identity from the authority key.
func (c *Config) transportKey() ed25519.PrivateKey {
	seed := crypto.Keccak256(crypto.FromECDSA(c.Key))
	return ed25519.NewKeyFromSeed(seed)
}

// loadOrGenerateKey loads the authority key from file or generates a new one.
func loadOrGenerateKey(keyPath string) (*ecdsa.PrivateKey, error) {
	if keyPath == "" {
		return generateNewKey()
	}

	key, err := crypto.LoadECDSA(keyPath)
	if errors.Is(err, os.ErrNotExist) {
		return generateAndSaveKey(keyPath)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	return key, nil
}

// generateNewKey creates a new secp256k1 key.
func generateNewKey() (*ecdsa.PrivateKey, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	return key, nil
}

// generateAndSaveKey creates a new key and saves it to the given path.
func generateAndSaveKey(path string) (*ecdsa.PrivateKey, error) {
	key, err := generateNewKey()
	if err != nil {
		return nil, err
	}

	if err := crypto.SaveECDSA(path, key); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return key, nil
}
