package main

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"NoteVault/internal/pedersen"
)

func TestParseFlagsDefaults(t *testing.T) {
	cfg, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}

	if cfg.HTTPAddress != "127.0.0.1:8080" || cfg.CacheSize != pedersen.DefaultCacheSize || cfg.BreakerFailures != 5 {
		t.Errorf("defaults = %+v", cfg)
	}
}

// TestParseFlagsValidate tests that out-of-range values are rejected.
func TestParseFlagsValidate(t *testing.T) {
	cases := [][]string{
		{"-cache-size", "0"},
		{"-breaker-failures", "0"},
		{"-http", ""},
		{"-data", ""},
	}

	for _, args := range cases {
		if _, err := parseFlags(args); err == nil {
			t.Errorf("parseFlags(%v) succeeded", args)
		}
	}
}

func TestHTTPExposed(t *testing.T) {
	tests := []struct {
		addr    string
		exposed bool
	}{
		{"127.0.0.1:8080", false},
		{"[::1]:8080", false},
		{"localhost:8080", false},
		{":8080", true},
		{"0.0.0.0:8080", true},
		{"10.0.0.5:8080", true},
		{"api.example.com:443", true},
		{"no-port", true},
	}

	for _, tt := range tests {
		cfg := &Config{HTTPAddress: tt.addr}
		if got := cfg.httpExposed(); got != tt.exposed {
			t.Errorf("httpExposed(%q) = %v, want %v", tt.addr, got, tt.exposed)
		}
	}
}

// TestKeyRoundTrip tests that a generated key is saved and reloaded.
func TestKeyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authority.key")

	first, err := loadOrGenerateKey(path)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	second, err := loadOrGenerateKey(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	if crypto.PubkeyToAddress(first.PublicKey) != crypto.PubkeyToAddress(second.PublicKey) {
		t.Error("reloaded key differs")
	}

	a := (&Config{Key: first}).transportKey()
	b := (&Config{Key: second}).transportKey()

	if !a.Equal(b) {
		t.Error("transport key is not deterministic")
	}
}
