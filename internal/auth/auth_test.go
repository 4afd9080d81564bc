package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestCredentials(t *testing.T) *Credentials {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	c, err := NewCredentials("admin", string(hash))
	if err != nil {
		t.Fatalf("new credentials: %v", err)
	}
	return c
}

func TestAuthenticate(t *testing.T) {
	c := newTestCredentials(t)

	tests := []struct {
		name     string
		username string
		password string
		want     bool
	}{
		{"valid", "admin", "correct horse", true},
		{"wrong password", "admin", "wrong", false},
		{"wrong username", "root", "correct horse", false},
		{"username case differs", "Admin", "correct horse", false},
		{"username prefix", "adm", "correct horse", false},
		{"password prefix", "admin", "correct", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Authenticate(tt.username, tt.password); got != tt.want {
				t.Errorf("Authenticate(%q, %q) = %v, want %v", tt.username, tt.password, got, tt.want)
			}
		})
	}
}

func TestNewCredentialsValidation(t *testing.T) {
	if _, err := NewCredentials("", "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl9p92ldGxad68LJZdL17lhWy"); err == nil {
		t.Error("expected error for empty username")
	}
	if _, err := NewCredentials("admin", ""); err == nil {
		t.Error("expected error for empty hash")
	}
	if _, err := NewCredentials("admin", "plaintext-password"); err == nil {
		t.Error("expected error for a value that is not a bcrypt hash")
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cr3t")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "s3cr3t" {
		t.Fatal("hash equals the password")
	}

	c, err := NewCredentials("admin", hash)
	if err != nil {
		t.Fatalf("new credentials: %v", err)
	}
	if !c.Authenticate("admin", "s3cr3t") {
		t.Error("expected generated hash to verify")
	}
}
