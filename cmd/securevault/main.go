package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mtzanidakis/securevault/internal/auth"
	"github.com/mtzanidakis/securevault/internal/config"
	"github.com/mtzanidakis/securevault/internal/natsbus"
	"github.com/mtzanidakis/securevault/internal/secrets"
	"github.com/mtzanidakis/securevault/internal/store"
	"github.com/mtzanidakis/securevault/internal/token"
	"github.com/mtzanidakis/securevault/internal/vault"
	"github.com/mtzanidakis/securevault/internal/web"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("securevault %s\n", version)
	case "serve":
		err = runServe()
	case "hash-password":
		err = runHashPassword(os.Args[2:])
	case "secret":
		err = runSecret(os.Args[2:])
	case "backup":
		err = runBackup(os.Args[2:])
	case "restore":
		err = runRestore(os.Args[2:])
	case "audit":
		err = runAudit(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		slog.Error(os.Args[1]+" failed", "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: securevault <command>

Commands:
  serve                     Start the HTTP API
  hash-password <password>  Print a bcrypt hash for auth.demo_password_hash
  secret <subcommand>       Manage secrets directly in the store
  backup -f <file>          Write a compressed snapshot of the store
  restore -f <file>         Restore the store from a snapshot (server stopped)
  audit [-url <nats-url>]   Tail audit events from a running server
  version                   Print version
`)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.Info("starting securevault", "version", version)

	v, err := vault.New([]byte(cfg.Encryption.Key))
	if err != nil {
		return fmt.Errorf("init vault: %w", err)
	}

	tokens, err := token.New([]byte(cfg.JWT.Key), cfg.JWT.Issuer, cfg.JWT.Audience)
	if err != nil {
		return fmt.Errorf("init token issuer: %w", err)
	}

	creds, err := auth.NewCredentials(cfg.Auth.DemoUsername, cfg.Auth.DemoPasswordHash)
	if err != nil {
		return fmt.Errorf("init credentials: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SQLite store
	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()
	slog.Info("store initialized", "path", cfg.Store.Path)

	svc := secrets.NewService(v, db)

	// Embedded NATS for audit events
	var bus *natsbus.Bus
	if cfg.NATS.Enabled {
		bus, err = natsbus.New(cfg.NATS)
		if err != nil {
			return fmt.Errorf("init nats: %w", err)
		}
		defer bus.Close()

		pub, err := natsbus.NewClient(bus)
		if err != nil {
			return fmt.Errorf("init nats client: %w", err)
		}
		defer pub.Close()
		svc.SetPublisher(pub)
		slog.Info("nats started", "url", bus.ClientURL())
	}

	srv := web.NewServer(svc, tokens, creds, bus, cfg.Web, version)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
		cancel()
		return <-errCh
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("web server: %w", err)
		}
		return nil
	}
}

func runHashPassword(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: securevault hash-password <password>")
	}
	hash, err := auth.HashPassword(args[0])
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
