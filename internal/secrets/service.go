// Package secrets stores and retrieves encrypted secret values.
package secrets

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mtzanidakis/securevault/internal/natsbus"
	"github.com/mtzanidakis/securevault/internal/store"
)

var (
	ErrNotFound         = errors.New("secret not found")
	ErrDecryptionFailed = errors.New("secret could not be decrypted")
)

// Cipher encrypts values for storage. Implemented by *vault.Vault.
type Cipher interface {
	Encrypt(plaintext string) (ciphertext, iv []byte, err error)
	Decrypt(ciphertext, iv []byte) (string, error)
}

// Repository persists records by id. Implemented by *store.Store.
// GetSecret returns nil, nil when no record exists.
type Repository interface {
	SaveSecret(sec *store.Secret) error
	GetSecret(id string) (*store.Secret, error)
}

// Publisher receives audit events. Implemented by *natsbus.Client.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// Secret is a decrypted secret as returned to callers.
type Secret struct {
	ID        string
	Name      string
	Value     string
	CreatedAt time.Time
}

type Service struct {
	cipher Cipher
	repo   Repository
	events Publisher
	now    func() time.Time
}

func NewService(c Cipher, r Repository) *Service {
	return &Service{
		cipher: c,
		repo:   r,
		now:    time.Now,
	}
}

// SetPublisher enables audit events.
func (s *Service) SetPublisher(p Publisher) {
	s.events = p
}

// Create encrypts value and stores it under a new id.
func (s *Service) Create(name, value string) (string, error) {
	ciphertext, iv, err := s.cipher.Encrypt(value)
	if err != nil {
		return "", fmt.Errorf("encrypt secret: %w", err)
	}

	sec := &store.Secret{
		ID:        uuid.NewString(),
		Name:      name,
		Value:     ciphertext,
		IV:        iv,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.SaveSecret(sec); err != nil {
		return "", err
	}

	slog.Info("secret created", "id", sec.ID)
	s.publish(natsbus.TopicEventsSecretCreated, map[string]any{"id": sec.ID, "name": sec.Name})
	return sec.ID, nil
}

// Get loads and decrypts the secret with the given id.
func (s *Service) Get(id string) (*Secret, error) {
	sec, err := s.repo.GetSecret(id)
	if err != nil {
		return nil, err
	}
	if sec == nil {
		return nil, ErrNotFound
	}

	value, err := s.cipher.Decrypt(sec.Value, sec.IV)
	if err != nil {
		slog.Error("secret decryption failed", "id", id, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}

	s.publish(natsbus.TopicEventsSecretRead, map[string]any{"id": sec.ID})
	return &Secret{
		ID:        sec.ID,
		Name:      sec.Name,
		Value:     value,
		CreatedAt: sec.CreatedAt,
	}, nil
}

func (s *Service) publish(topic string, data map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(topic, natsbus.NewEvent(topic, data)); err != nil {
		slog.Warn("publish audit event failed", "topic", topic, "error", err)
	}
}
