package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/crypto"

	"NoteVault/internal/acl"
	"NoteVault/internal/api"
	"NoteVault/internal/genesis"
	"NoteVault/internal/host"
	"NoteVault/internal/logger"
	"NoteVault/internal/metrics"
	"NoteVault/internal/pedersen"
	"NoteVault/internal/rpc"
	"NoteVault/internal/storage"
)

// Daemon wires storage, the template host and the servers together.
type Daemon struct {
	cfg *Config

	storage  *storage.Storage
	host     *host.Host
	metrics  *metrics.Metrics
	funds    *rpc.Client // funds is the remote funds route, nil when local
	rpc      *rpc.Server
	api      *api.Server
	deployed *genesis.Deployment
}

// NewDaemon opens storage and bootstraps the built-in components.
func NewDaemon(cfg *Config) (*Daemon, error) {
	d := &Daemon{cfg: cfg, metrics: metrics.New()}

	if err := d.initStorage(); err != nil {
		return nil, err
	}

	if err := d.initHost(); err != nil {
		d.Close()
		return nil, err
	}

	return d, nil
}

// initStorage opens the Pebble database under the data directory.
func (d *Daemon) initStorage() error {
	if err := os.MkdirAll(d.cfg.DataPath, 0755); err != nil {
		return fmt.Errorf("create data directory:\n%w", err)
	}

	db, err := storage.New(d.cfg.DataPath + "/db")
	if err != nil {
		return fmt.Errorf("open storage:\n%w", err)
	}

	d.storage = db

	return nil
}

// initHost registers the templates and runs genesis.
func (d *Daemon) initHost() error {
	verifier, err := pedersen.NewVerifier(d.cfg.CacheSize)
	if err != nil {
		return fmt.Errorf("create verifier:\n%w", err)
	}

	d.metrics.RegisterVerifier(verifier.Stats)
	d.host = host.New(d.storage)

	gcfg := genesis.Config{
		Authority: crypto.PubkeyToAddress(d.cfg.Key.PublicKey),
		Verifier:  verifier,
		Metrics:   d.metrics,
	}

	if d.cfg.FundsRemote != "" {
		d.funds, err = rpc.NewClient(rpc.ClientConfig{
			PrivateKey:      d.cfg.transportKey(),
			Addr:            d.cfg.FundsRemote,
			Caller:          gcfg.Authority,
			BreakerFailures: uint32(d.cfg.BreakerFailures),
		})
		if err != nil {
			return fmt.Errorf("create funds route:\n%w", err)
		}

		gcfg.FundsRemote = d.funds
	}

	templates, err := genesis.Register(d.host, gcfg)
	if err != nil {
		return fmt.Errorf("register templates:\n%w", err)
	}

	d.deployed, err = genesis.Bootstrap(context.Background(), d.host, gcfg, templates)
	if err != nil {
		return err
	}

	return nil
}

// Run starts the servers and blocks until a shutdown signal.
func (d *Daemon) Run() error {
	if d.cfg.QUICAddress != "" {
		srv, err := rpc.NewServer(rpc.ServerConfig{
			PrivateKey: d.cfg.transportKey(),
			ListenAddr: d.cfg.QUICAddress,
			Handler:    d.host,
		})
		if err != nil {
			return fmt.Errorf("create rpc server:\n%w", err)
		}

		if err := srv.Start(); err != nil {
			return fmt.Errorf("start rpc server:\n%w", err)
		}

		d.rpc = srv
	}

	d.api = api.New(d.cfg.HTTPAddress, acl.NewClient(d.host, d.deployed.ACL), d.host, d.metrics)
	if err := d.api.Start(); err != nil {
		return fmt.Errorf("start api:\n%w", err)
	}

	logger.Info("daemon ready", "acl", d.deployed.ACL, "templates", d.host.Templates())

	return d.waitForShutdown()
}

// waitForShutdown blocks until SIGINT or SIGTERM, then closes the daemon.
func (d *Daemon) waitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	return d.Close()
}

// Close shuts down all components.
func (d *Daemon) Close() error {
	if d.api != nil {
		d.api.Stop()
	}

	if d.rpc != nil {
		d.rpc.Close()
	}

	if d.funds != nil {
		d.funds.Close()
	}

	if d.storage != nil {
		return d.storage.Close()
	}

	return nil
}
