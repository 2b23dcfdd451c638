package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"

	"NoteVault/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run(args []string) error {
	cfg, err := parseFlags(args)
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	logger.Init(level)

	cfg.Key, err = loadOrGenerateKey(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("load key:\n%w", err)
	}

	d, err := NewDaemon(cfg)
	if err != nil {
		return fmt.Errorf("create daemon:\n%w", err)
	}

	printStartupInfo(cfg)

	return d.Run()
}

// printStartupInfo displays the daemon configuration at startup.
func printStartupInfo(cfg *Config) {
	pub := cfg.transportKey().Public().(ed25519.PublicKey)

	logger.Info("starting NoteVault daemon",
		"authority", crypto.PubkeyToAddress(cfg.Key.PublicKey),
		"peer", hex.EncodeToString(pub),
		"http", cfg.HTTPAddress,
		"quic", cfg.QUICAddress,
		"data", cfg.DataPath,
		"funds_remote", cfg.FundsRemote,
	)

	if cfg.httpExposed() {
		logger.Warn("http api reachable beyond loopback, callers are taken from the path and X-Caller unauthenticated",
			"http", cfg.HTTPAddress,
		)
	}
}
