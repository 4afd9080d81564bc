package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Secret is the persisted form of a secret. Value and IV are only
// meaningful together with the key that produced them.
type Secret struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Value     []byte    `json:"-"`
	IV        []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveSecret inserts a new record. Secrets are never updated in place, so an
// existing id is an error.
func (s *Store) SaveSecret(sec *Secret) error {
	_, err := s.db.Exec(`
		INSERT INTO secrets (id, name, encrypted_value, initialization_vector, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		sec.ID, sec.Name, sec.Value, sec.IV, sec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save secret: %w", err)
	}
	return nil
}

// GetSecret returns the record for id, or nil if there is none.
func (s *Store) GetSecret(id string) (*Secret, error) {
	row := s.db.QueryRow(`
		SELECT id, name, encrypted_value, initialization_vector, created_at
		FROM secrets WHERE id = ?`, id)

	sec := &Secret{}
	err := row.Scan(&sec.ID, &sec.Name, &sec.Value, &sec.IV, &sec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get secret: %w", err)
	}
	sec.CreatedAt = sec.CreatedAt.UTC()
	return sec, nil
}

// ListSecrets returns metadata only; Value and IV are left empty.
func (s *Store) ListSecrets() ([]Secret, error) {
	rows, err := s.db.Query(`
		SELECT id, name, created_at
		FROM secrets ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list secrets: %w", err)
	}
	defer rows.Close()

	var secrets []Secret
	for rows.Next() {
		var sec Secret
		if err := rows.Scan(&sec.ID, &sec.Name, &sec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan secret: %w", err)
		}
		sec.CreatedAt = sec.CreatedAt.UTC()
		secrets = append(secrets, sec)
	}
	return secrets, rows.Err()
}

// DeleteSecret removes a record. It reports whether a record existed.
func (s *Store) DeleteSecret(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM secrets WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete secret: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete secret: %w", err)
	}
	return n > 0, nil
}
