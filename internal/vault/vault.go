// Package vault encrypts secret values with AES-256-CBC and PKCS7 padding.
package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// IVSize is the length of the initialization vector, one AES block.
	IVSize = aes.BlockSize
)

var (
	ErrInvalidKeySize = errors.New("encryption key must be 32 bytes")

	// ErrDecrypt is matched by every decryption failure. The more specific
	// errors below are joined to it so callers can tell them apart internally.
	ErrDecrypt        = errors.New("decryption failed")
	ErrInvalidIV      = errors.New("invalid initialization vector length")
	ErrInvalidLength  = errors.New("ciphertext is not a whole number of blocks")
	ErrInvalidPadding = errors.New("invalid padding")
	ErrInvalidUTF8    = errors.New("plaintext is not valid utf-8")
)

// Vault holds the process-wide encryption key. It is safe for concurrent use.
type Vault struct {
	block cipher.Block
}

// New creates a Vault for a 32-byte key.
func New(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return &Vault{block: block}, nil
}

// Encrypt pads and encrypts plaintext under a freshly generated IV.
func (v *Vault) Encrypt(plaintext string) (ciphertext, iv []byte, err error) {
	iv = make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, fmt.Errorf("generate iv: %w", err)
	}

	padded := pad([]byte(plaintext), aes.BlockSize)
	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(v.block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, iv, nil
}

// Decrypt reverses Encrypt. Every failure matches ErrDecrypt.
func (v *Vault) Decrypt(ciphertext, iv []byte) (string, error) {
	if len(iv) != IVSize {
		return "", decryptError(ErrInvalidIV)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", decryptError(ErrInvalidLength)
	}

	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(v.block, iv).CryptBlocks(plain, ciphertext)

	plain, err := unpad(plain, aes.BlockSize)
	if err != nil {
		return "", decryptError(err)
	}
	if !utf8.Valid(plain) {
		return "", decryptError(ErrInvalidUTF8)
	}
	return string(plain), nil
}

func decryptError(cause error) error {
	return fmt.Errorf("%w: %w", ErrDecrypt, cause)
}

// pad appends PKCS7 padding. A full block is added when data is already aligned.
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}
