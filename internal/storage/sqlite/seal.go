package sqlite

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealInfo = "splitwiser secrets v1"

// sealer encrypts secrets with XChaCha20-Poly1305. The secret's key is bound
// as additional data so a ciphertext cannot be moved to another key.
type sealer struct {
	aead cipher.AEAD
}

func newSealer(material []byte) (*sealer, error) {
	if len(material) == 0 {
		return nil, errors.New("secret key material is empty")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, material, nil, []byte(sealInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive secret key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return &sealer{aead: aead}, nil
}

func (s *sealer) seal(key string, plaintext []byte) (nonce, ciphertext []byte, err error) {
	nonce = make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, s.aead.Seal(nil, nonce, plaintext, []byte(key)), nil
}

func (s *sealer) open(key string, nonce, ciphertext []byte) ([]byte, error) {
	if len(nonce) != s.aead.NonceSize() {
		return nil, fmt.Errorf("secret %s has a malformed nonce", key)
	}
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("failed to open secret %s: %w", key, err)
	}
	return plaintext, nil
}

// loadOrCreateKeyFile returns the key material at path, creating 32 random
// bytes with owner-only permissions on first use.
func loadOrCreateKeyFile(path string) ([]byte, error) {
	material, err := os.ReadFile(path)
	if err == nil {
		if len(material) == 0 {
			return nil, fmt.Errorf("key file %s is empty", path)
		}
		return material, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	material = make([]byte, 32)
	if _, err := rand.Read(material); err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}
	if err := os.WriteFile(path, material, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	return material, nil
}
