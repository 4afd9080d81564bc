package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EncryptionKeySize is the required length, in bytes, of encryption.key.
const EncryptionKeySize = 32

type Config struct {
	Web        WebConfig        `yaml:"web"`
	Store      StoreConfig      `yaml:"store"`
	NATS       NATSConfig       `yaml:"nats"`
	Auth       AuthConfig       `yaml:"auth"`
	JWT        JWTConfig        `yaml:"jwt"`
	Encryption EncryptionConfig `yaml:"encryption"`
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type NATSConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type AuthConfig struct {
	DemoUsername     string `yaml:"demo_username"`
	DemoPasswordHash string `yaml:"demo_password_hash"`
}

type JWTConfig struct {
	Key      string `yaml:"key"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

type EncryptionConfig struct {
	Key string `yaml:"key"`
}

// ValidationError reports a missing or malformed configuration option.
type ValidationError struct {
	Option string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config option %q %s", e.Option, e.Reason)
}

func defaults() Config {
	return Config{
		Web: WebConfig{
			Port: 8080,
		},
		Store: StoreConfig{
			Path: "data/securevault.db",
		},
		NATS: NATSConfig{
			Port: 4222,
		},
	}
}

func Load() (*Config, error) {
	cfg := defaults()

	path := os.Getenv("VAULT_CONFIG")
	if path == "" {
		path = "config/securevault.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults + env
	} else {
		if err := yaml.Unmarshal([]byte(expandEnv(string(data))), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	return &cfg, nil
}

// expandEnv substitutes $VAR and ${VAR} only for variables that are set.
// Anything else is left untouched so bcrypt hashes like $2a$10$... survive.
func expandEnv(s string) string {
	return os.Expand(s, func(name string) string {
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return "$" + name
	})
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("VAULT_DEMO_USERNAME"); v != "" {
		cfg.Auth.DemoUsername = v
	}
	if v := os.Getenv("VAULT_DEMO_PASSWORD_HASH"); v != "" {
		cfg.Auth.DemoPasswordHash = v
	}
	if v := os.Getenv("VAULT_JWT_KEY"); v != "" {
		cfg.JWT.Key = v
	}
	if v := os.Getenv("VAULT_JWT_ISSUER"); v != "" {
		cfg.JWT.Issuer = v
	}
	if v := os.Getenv("VAULT_JWT_AUDIENCE"); v != "" {
		cfg.JWT.Audience = v
	}
	if v := os.Getenv("VAULT_ENCRYPTION_KEY"); v != "" {
		cfg.Encryption.Key = v
	}
	if v := os.Getenv("VAULT_WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Web.Port = port
		}
	}
	if v := os.Getenv("VAULT_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("VAULT_NATS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.NATS.Enabled = enabled
		}
	}
	if v := os.Getenv("VAULT_NATS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.NATS.Port = port
		}
	}
}

// Validate checks the options the server cannot start without. The first
// problem found is returned as a *ValidationError.
func (c *Config) Validate() error {
	required := []struct {
		option string
		value  string
	}{
		{"auth.demo_username", c.Auth.DemoUsername},
		{"auth.demo_password_hash", c.Auth.DemoPasswordHash},
		{"jwt.key", c.JWT.Key},
		{"jwt.issuer", c.JWT.Issuer},
		{"jwt.audience", c.JWT.Audience},
		{"encryption.key", c.Encryption.Key},
	}
	for _, r := range required {
		if r.value == "" {
			return &ValidationError{Option: r.option, Reason: "is not set"}
		}
	}

	if n := len([]byte(c.Encryption.Key)); n != EncryptionKeySize {
		return &ValidationError{
			Option: "encryption.key",
			Reason: fmt.Sprintf("must be exactly %d bytes, got %d", EncryptionKeySize, n),
		}
	}
	return nil
}

// ValidateStore checks only what the administrative commands need: a store
// path and a usable encryption key.
func (c *Config) ValidateStore() error {
	if c.Store.Path == "" {
		return &ValidationError{Option: "store.path", Reason: "is not set"}
	}
	if c.Encryption.Key == "" {
		return &ValidationError{Option: "encryption.key", Reason: "is not set"}
	}
	if n := len([]byte(c.Encryption.Key)); n != EncryptionKeySize {
		return &ValidationError{
			Option: "encryption.key",
			Reason: fmt.Sprintf("must be exactly %d bytes, got %d", EncryptionKeySize, n),
		}
	}
	return nil
}
