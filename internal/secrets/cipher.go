// Package secrets encrypts stored SMTP and integration credentials.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	prefix     = "enc:"
	ivLength   = 12
	keyLength  = 32
	iterations = 100000
)

var (
	// ErrKeyRequired is returned when no encryption secret is configured.
	ErrKeyRequired = errors.New("secrets: encryption key required")
	// ErrInvalidFormat is returned for enc: values that are not enc:<iv>:<ciphertext>.
	ErrInvalidFormat = errors.New("invalid encrypted format")
)

// Cipher derives one AES-256-GCM key at construction and reuses it.
type Cipher struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewCipher derives the key with PBKDF2-HMAC-SHA256 from secret and salt.
func NewCipher(secret, salt string) (*Cipher, error) {
	if secret == "" {
		return nil, ErrKeyRequired
	}
	key := pbkdf2.Key([]byte(secret), []byte(salt), iterations, keyLength, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secrets: aes: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets: gcm: %w", err)
	}
	return &Cipher{aead: aead, rand: rand.Reader}, nil
}

// Encrypt returns enc:<iv hex>:<ciphertext+tag hex>.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, ivLength)
	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return "", fmt.Errorf("secrets: iv: %w", err)
	}
	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	return prefix + hex.EncodeToString(iv) + ":" + hex.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Values without the enc: prefix are returned as is.
func (c *Cipher) Decrypt(value string) (string, error) {
	if !strings.HasPrefix(value, prefix) {
		return value, nil
	}
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return "", ErrInvalidFormat
	}
	iv, err := hex.DecodeString(parts[1])
	if err != nil || len(iv) != ivLength {
		return "", ErrInvalidFormat
	}
	sealed, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrInvalidFormat
	}
	plain, err := c.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("secrets: decrypt: %w", err)
	}
	return string(plain), nil
}
