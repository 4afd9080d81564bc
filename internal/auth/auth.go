// Package auth checks login credentials against the configured demo account.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

type Credentials struct {
	username string
	hash     []byte
}

// NewCredentials validates the configured username and bcrypt password hash.
func NewCredentials(username, passwordHash string) (*Credentials, error) {
	if username == "" {
		return nil, errors.New("username is empty")
	}
	if passwordHash == "" {
		return nil, errors.New("password hash is empty")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("parse password hash: %w", err)
	}
	return &Credentials{username: username, hash: []byte(passwordHash)}, nil
}

// Authenticate reports whether username and password match the configured
// account. The bcrypt comparison runs even when the username is wrong.
func (c *Credentials) Authenticate(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(c.hash, []byte(password)) == nil
	return userOK && passOK
}

// HashPassword returns a bcrypt hash suitable for auth.demo_password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
