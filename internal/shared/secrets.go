package shared

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
)

// SecretStore protects task secrets at rest. This is real encryption with a
// locally held key, unlike the rclone password obscuring which is a fixed-key
// format requirement of the tool's config file.
type SecretStore interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// AESSecretStore implements SecretStore with AES-256-GCM and a random
// per-value nonce. Ciphertexts are base64 encoded for storage in text columns.
type AESSecretStore struct {
	aead cipher.AEAD
}

// NewAESSecretStore creates a store from a 32-byte key.
func NewAESSecretStore(key []byte) (*AESSecretStore, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: secret key must be 32 bytes, got %d", ErrInvalidConfig, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}
	return &AESSecretStore{aead: aead}, nil
}

// Encrypt seals the plaintext. Empty input round-trips as empty so unset
// secrets stay unset in the database.
func (s *AESSecretStore) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func (s *AESSecretStore) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSecretDecrypt, err)
	}
	if len(raw) < s.aead.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrSecretDecrypt)
	}
	nonce, sealed := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSecretDecrypt, err)
	}
	return string(plain), nil
}

// LoadOrCreateKey reads the secret key file at path, generating a new random
// key with owner-only permissions when the file does not exist yet.
func LoadOrCreateKey(path string) ([]byte, error) {
	if key, err := os.ReadFile(path); err == nil {
		if len(key) != 32 {
			return nil, fmt.Errorf("%w: key file %s has %d bytes, want 32", ErrInvalidConfig, path, len(key))
		}
		return key, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	if err := os.WriteFile(path, key, 0600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	return key, nil
}
