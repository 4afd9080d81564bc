package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mtzanidakis/securevault/internal/config"
	"github.com/mtzanidakis/securevault/internal/secrets"
	"github.com/mtzanidakis/securevault/internal/store"
	"github.com/mtzanidakis/securevault/internal/vault"
)

func runSecret(args []string) error {
	if len(args) == 0 {
		printSecretUsage()
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateStore(); err != nil {
		return err
	}

	v, err := vault.New([]byte(cfg.Encryption.Key))
	if err != nil {
		return fmt.Errorf("init vault: %w", err)
	}

	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	svc := secrets.NewService(v, db)

	switch args[0] {
	case "list":
		return secretList(os.Stdout, db)
	case "set":
		return secretSet(os.Stdout, svc, args[1:])
	case "get":
		return secretGet(os.Stdout, svc, args[1:])
	case "delete":
		return secretDelete(os.Stdout, db, args[1:])
	default:
		printSecretUsage()
		return fmt.Errorf("unknown secret command: %s", args[0])
	}
}

func printSecretUsage() {
	fmt.Fprintf(os.Stderr, `Usage: securevault secret <command>

Commands:
  list                        List all secrets (metadata only)
  set <name> --value <str>    Encrypt and store a new secret, print its id
  set <name> --file <path>    Encrypt and store a file's contents
  get <id>                    Retrieve and decrypt a secret
  delete <id>                 Delete a secret

Configuration is read the same way as for serve; only store.path and
encryption.key are required.
`)
}

func secretList(w io.Writer, db *store.Store) error {
	all, err := db.ListSecrets()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Fprintln(w, "No secrets stored.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCREATED")
	for _, s := range all {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Name, s.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func secretSet(w io.Writer, svc *secrets.Service, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: securevault secret set <name> --value <string> | --file <path>")
	}

	name := args[0]
	var value string
	switch args[1] {
	case "--value":
		value = args[2]
	case "--file":
		data, err := os.ReadFile(args[2])
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}
		value = string(data)
	default:
		return fmt.Errorf("expected --value or --file, got %s", args[1])
	}

	id, err := svc.Create(name, value)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Secret %q saved with id %s\n", name, id)
	return nil
}

func secretGet(w io.Writer, svc *secrets.Service, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: securevault secret get <id>")
	}

	sec, err := svc.Get(args[0])
	if errors.Is(err, secrets.ErrNotFound) {
		return fmt.Errorf("secret %q not found", args[0])
	}
	if err != nil {
		return err
	}

	fmt.Fprint(w, sec.Value)
	if len(sec.Value) > 0 && sec.Value[len(sec.Value)-1] != '\n' {
		fmt.Fprintln(w)
	}
	return nil
}

func secretDelete(w io.Writer, db *store.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: securevault secret delete <id>")
	}
	deleted, err := db.DeleteSecret(args[0])
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("secret %q not found", args[0])
	}
	fmt.Fprintf(w, "Secret %q deleted\n", args[0])
	return nil
}
