package store

import (
	"bytes"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mtzanidakis/securevault/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(config.StoreConfig{Path: filepath.Join(dir, "test.db")})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSecretCRUD(t *testing.T) {
	s := newTestStore(t)

	created := time.Date(2026, 3, 1, 12, 30, 0, 123456000, time.UTC)
	sec := &Secret{
		ID:        "6f1c8a3e-1111-4a2b-9c3d-000000000001",
		Name:      "db-password",
		Value:     bytes.Repeat([]byte{0xab}, 32),
		IV:        bytes.Repeat([]byte{0x01}, 16),
		CreatedAt: created,
	}
	if err := s.SaveSecret(sec); err != nil {
		t.Fatalf("save secret: %v", err)
	}

	got, err := s.GetSecret(sec.ID)
	if err != nil {
		t.Fatalf("get secret: %v", err)
	}
	if got == nil {
		t.Fatal("expected secret, got nil")
	}
	if got.Name != "db-password" {
		t.Errorf("expected name db-password, got %s", got.Name)
	}
	if !bytes.Equal(got.Value, sec.Value) {
		t.Errorf("value mismatch: %x", got.Value)
	}
	if !bytes.Equal(got.IV, sec.IV) {
		t.Errorf("iv mismatch: %x", got.IV)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("expected created_at %v, got %v", created, got.CreatedAt)
	}
	if got.CreatedAt.Location() != time.UTC {
		t.Errorf("expected UTC created_at, got %v", got.CreatedAt.Location())
	}

	// Records are insert-only
	if err := s.SaveSecret(sec); err == nil {
		t.Error("expected error saving a duplicate id")
	}

	// Not found
	got, err = s.GetSecret("nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent secret")
	}

	// List
	_ = s.SaveSecret(&Secret{ID: "second", Name: "api-key", Value: []byte{1}, IV: []byte{2}, CreatedAt: created.Add(time.Minute)})
	secrets, err := s.ListSecrets()
	if err != nil {
		t.Fatalf("list secrets: %v", err)
	}
	if len(secrets) != 2 {
		t.Fatalf("expected 2 secrets, got %d", len(secrets))
	}
	if secrets[0].ID != sec.ID || secrets[1].ID != "second" {
		t.Errorf("unexpected order: %s, %s", secrets[0].ID, secrets[1].ID)
	}
	if secrets[0].Value != nil || secrets[0].IV != nil {
		t.Error("expected list to omit encrypted material")
	}

	// Delete
	deleted, err := s.DeleteSecret(sec.ID)
	if err != nil {
		t.Fatalf("delete secret: %v", err)
	}
	if !deleted {
		t.Error("expected delete to report an existing record")
	}
	got, _ = s.GetSecret(sec.ID)
	if got != nil {
		t.Error("expected secret to be deleted")
	}
	deleted, err = s.DeleteSecret(sec.ID)
	if err != nil {
		t.Fatalf("delete secret again: %v", err)
	}
	if deleted {
		t.Error("expected second delete to report no record")
	}
}

func TestConcurrentSaveAndGet(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	errs := make(chan error, len(ids)*2)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := s.SaveSecret(&Secret{ID: id, Name: id, Value: []byte(id), IV: make([]byte, 16), CreatedAt: time.Now()}); err != nil {
				errs <- err
				return
			}
			if _, err := s.GetSecret(id); err != nil {
				errs <- err
			}
		}(id)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent access: %v", err)
	}

	secrets, err := s.ListSecrets()
	if err != nil {
		t.Fatalf("list secrets: %v", err)
	}
	if len(secrets) != len(ids) {
		t.Errorf("expected %d secrets, got %d", len(ids), len(secrets))
	}
}

func TestBackup(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveSecret(&Secret{ID: "x", Name: "token", Value: []byte{9, 9}, IV: make([]byte, 16), CreatedAt: time.Now()}); err != nil {
		t.Fatalf("save secret: %v", err)
	}

	path := filepath.Join(t.TempDir(), "snapshot.db")
	if err := s.Backup(path); err != nil {
		t.Fatalf("backup: %v", err)
	}

	restored, err := New(config.StoreConfig{Path: path})
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer restored.Close()

	got, err := restored.GetSecret("x")
	if err != nil {
		t.Fatalf("get from snapshot: %v", err)
	}
	if got == nil || got.Name != "token" {
		t.Fatalf("expected secret in snapshot, got %+v", got)
	}
}
