package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	cfg := defaults()
	cfg.Auth = AuthConfig{DemoUsername: "admin", DemoPasswordHash: "$2a$10$abcdefghijklmnopqrstuu"}
	cfg.JWT = JWTConfig{Key: "signing-key", Issuer: "securevault", Audience: "securevault-clients"}
	cfg.Encryption = EncryptionConfig{Key: "0123456789abcdef0123456789abcdef"}
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := defaults()

	if cfg.Web.Port != 8080 {
		t.Errorf("expected web port 8080, got %d", cfg.Web.Port)
	}
	if cfg.Store.Path != "data/securevault.db" {
		t.Errorf("expected store path data/securevault.db, got %s", cfg.Store.Path)
	}
	if cfg.NATS.Enabled {
		t.Error("expected nats disabled by default")
	}
	if cfg.NATS.Port != 4222 {
		t.Errorf("expected nats port 4222, got %d", cfg.NATS.Port)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("VAULT_CONFIG", "/nonexistent/config.yaml")
	t.Setenv("VAULT_DEMO_USERNAME", "admin")
	t.Setenv("VAULT_DEMO_PASSWORD_HASH", "$2a$10$hash")
	t.Setenv("VAULT_JWT_KEY", "jwt-key")
	t.Setenv("VAULT_JWT_ISSUER", "iss")
	t.Setenv("VAULT_JWT_AUDIENCE", "aud")
	t.Setenv("VAULT_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("VAULT_WEB_PORT", "9090")
	t.Setenv("VAULT_NATS_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Auth.DemoUsername != "admin" {
		t.Errorf("expected username admin, got %s", cfg.Auth.DemoUsername)
	}
	if cfg.Auth.DemoPasswordHash != "$2a$10$hash" {
		t.Errorf("expected password hash to be kept verbatim, got %s", cfg.Auth.DemoPasswordHash)
	}
	if cfg.JWT.Issuer != "iss" || cfg.JWT.Audience != "aud" || cfg.JWT.Key != "jwt-key" {
		t.Errorf("unexpected jwt config: %+v", cfg.JWT)
	}
	if cfg.Web.Port != 9090 {
		t.Errorf("expected web port 9090, got %d", cfg.Web.Port)
	}
	if !cfg.NATS.Enabled {
		t.Error("expected nats enabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "securevault.yaml")

	yaml := `web:
  port: 3000
store:
  path: /tmp/vault.db
auth:
  demo_username: admin
  demo_password_hash: "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl9p92ldGxad68LJZdL17lhWy"
jwt:
  key: ${TEST_JWT_KEY}
  issuer: securevault
  audience: securevault-clients
encryption:
  key: "0123456789abcdef0123456789abcdef"
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("VAULT_CONFIG", path)
	t.Setenv("TEST_JWT_KEY", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Web.Port != 3000 {
		t.Errorf("expected port 3000, got %d", cfg.Web.Port)
	}
	if cfg.Store.Path != "/tmp/vault.db" {
		t.Errorf("expected store path /tmp/vault.db, got %s", cfg.Store.Path)
	}
	if cfg.JWT.Key != "from-env" {
		t.Errorf("expected jwt key expanded from env, got %s", cfg.JWT.Key)
	}
	want := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl9p92ldGxad68LJZdL17lhWy"
	if cfg.Auth.DemoPasswordHash != want {
		t.Errorf("expected bcrypt hash untouched, got %s", cfg.Auth.DemoPasswordHash)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("web: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VAULT_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateMissingOption(t *testing.T) {
	tests := []struct {
		option string
		clear  func(*Config)
	}{
		{"auth.demo_username", func(c *Config) { c.Auth.DemoUsername = "" }},
		{"auth.demo_password_hash", func(c *Config) { c.Auth.DemoPasswordHash = "" }},
		{"jwt.key", func(c *Config) { c.JWT.Key = "" }},
		{"jwt.issuer", func(c *Config) { c.JWT.Issuer = "" }},
		{"jwt.audience", func(c *Config) { c.JWT.Audience = "" }},
		{"encryption.key", func(c *Config) { c.Encryption.Key = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.option, func(t *testing.T) {
			cfg := validConfig()
			tt.clear(&cfg)

			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Option != tt.option {
				t.Errorf("expected option %s, got %s", tt.option, verr.Option)
			}
		})
	}
}

func TestValidateEncryptionKeyLength(t *testing.T) {
	for _, key := range []string{"short", "0123456789abcdef0123456789abcdef0"} {
		cfg := validConfig()
		cfg.Encryption.Key = key

		err := cfg.Validate()
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Option != "encryption.key" {
			t.Errorf("key of %d bytes: expected encryption.key error, got %v", len(key), err)
		}
	}
}

func TestValidateStore(t *testing.T) {
	cfg := defaults()
	cfg.Encryption.Key = "0123456789abcdef0123456789abcdef"
	if err := cfg.ValidateStore(); err != nil {
		t.Errorf("expected store config to be valid, got %v", err)
	}

	cfg.Encryption.Key = ""
	if err := cfg.ValidateStore(); err == nil {
		t.Error("expected error without encryption key")
	}
}
