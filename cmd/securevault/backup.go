package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/mtzanidakis/securevault/internal/config"
	"github.com/mtzanidakis/securevault/internal/store"
)

// Snapshots contain only ciphertexts; the encryption key is never written.

func runBackup(args []string) error {
	outputPath, _, err := parseArchiveFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Usage: securevault backup -f <output.db.zst>\n")
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	tmpDir, err := os.MkdirTemp(filepath.Dir(outputPath), ".securevault-backup-")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	snapshot := filepath.Join(tmpDir, "snapshot.db")
	if err := db.Backup(snapshot); err != nil {
		return err
	}

	if err := compressFile(snapshot, outputPath); err != nil {
		return err
	}

	info, _ := os.Stat(outputPath)
	size := int64(0)
	if info != nil {
		size = info.Size()
	}

	slog.Info("backup written", "path", outputPath)
	fmt.Printf("Backup complete: %s\n", formatSize(size))
	return nil
}

func runRestore(args []string) error {
	inputPath, overwrite, err := parseArchiveFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Usage: securevault restore -f <backup.db.zst> [-overwrite]\n")
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := restoreSnapshot(inputPath, cfg.Store.Path, overwrite); err != nil {
		return err
	}

	slog.Info("store restored", "path", cfg.Store.Path)
	fmt.Printf("Restored %s into %s\n", inputPath, cfg.Store.Path)
	return nil
}

func parseArchiveFlags(args []string) (path string, overwrite bool, err error) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-f":
			if i+1 >= len(args) {
				return "", false, fmt.Errorf("missing value for -f")
			}
			i++
			path = args[i]
		case "-overwrite":
			overwrite = true
		default:
			return "", false, fmt.Errorf("unknown flag %s", args[i])
		}
	}
	if path == "" {
		return "", false, fmt.Errorf("missing -f flag")
	}
	return path, overwrite, nil
}

// restoreSnapshot decompresses a backup next to dbPath, checks that it opens
// as a store, and then moves it into place.
func restoreSnapshot(inputPath, dbPath string, overwrite bool) error {
	if _, err := os.Stat(dbPath); err == nil && !overwrite {
		return fmt.Errorf("store %s already exists, add -overwrite to replace it", dbPath)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp := dbPath + ".restore"
	defer os.Remove(tmp)
	if err := decompressFile(inputPath, tmp); err != nil {
		return err
	}

	check, err := store.New(config.StoreConfig{Path: tmp})
	if err != nil {
		return fmt.Errorf("snapshot is not a valid store: %w", err)
	}
	if _, err := check.ListSecrets(); err != nil {
		check.Close()
		return fmt.Errorf("snapshot is not a valid store: %w", err)
	}
	check.Close()

	// Stale WAL files from the previous database must not be replayed.
	for _, suffix := range []string{"-wal", "-shm"} {
		os.Remove(dbPath + suffix)
		os.Remove(tmp + suffix)
	}
	if err := os.Rename(tmp, dbPath); err != nil {
		return fmt.Errorf("move snapshot into place: %w", err)
	}
	return nil
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer out.Close()

	zw, err := zstd.NewWriter(out)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	defer zw.Close()

	if _, err := io.Copy(zw, in); err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}

	// Close explicitly to catch write errors
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zstd: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

func decompressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer in.Close()

	zr, err := zstd.NewReader(in)
	if err != nil {
		return fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, zr); err != nil {
		return fmt.Errorf("decompress archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

func formatSize(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
