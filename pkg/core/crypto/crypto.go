// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     crypto
// Description: AES-256-GCM encryption for secrets at rest
// ============================================================================

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2 iteration count. High on purpose: the master secret may be a
	// passphrase rather than random bytes.
	keyIterations = 480000
	keyLength     = 32
	nonceLength   = 12
)

// Box encrypts and decrypts small payloads with a key derived from a
// master secret. The wire form is base64url(nonce || ciphertext).
type Box struct {
	aead cipher.AEAD
}

// New derives an AES-256 key from the master secret and salt via
// PBKDF2-SHA256 and returns a ready-to-use Box
func New(masterSecret, salt string) (*Box, error) {
	if masterSecret == "" {
		return nil, fmt.Errorf("master secret must not be empty")
	}

	key := pbkdf2.Key([]byte(masterSecret), []byte(salt), keyIterations, keyLength, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Box{aead: aead}, nil
}

// Encrypt seals plaintext and returns the encoded token
func (b *Box) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := b.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens an encoded token and returns the plaintext
func (b *Box) Decrypt(token string) ([]byte, error) {
	sealed, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token encoding: %w", err)
	}
	if len(sealed) < nonceLength {
		return nil, fmt.Errorf("token too short")
	}

	nonce, ciphertext := sealed[:nonceLength], sealed[nonceLength:]
	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

// EncryptString seals a string value
func (b *Box) EncryptString(s string) (string, error) {
	return b.Encrypt([]byte(s))
}

// DecryptString opens a token into a string
func (b *Box) DecryptString(token string) (string, error) {
	data, err := b.Decrypt(token)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// EncryptJSON marshals a value and seals the result
func (b *Box) EncryptJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	return b.Encrypt(data)
}

// DecryptJSON opens a token and unmarshals the plaintext into v
func (b *Box) DecryptJSON(token string, v interface{}) error {
	data, err := b.Decrypt(token)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}

// GenerateSecret returns a random base64url-encoded secret of n bytes
func GenerateSecret(n int) (string, error) {
	if n <= 0 {
		n = 32
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}
