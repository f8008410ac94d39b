// Package vault encrypts provider credentials at rest with AES-256-GCM.
//
// Tokens are base64(nonce || ciphertext || tag). Every call to Encrypt draws a
// fresh nonce, so encrypting the same document twice yields different tokens.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	KeySize   = 32
	nonceSize = 12
	tagSize   = 16
)

var (
	ErrInvalidKey   = errors.New("vault: key must be 32 bytes (64 hex characters)")
	ErrInvalidToken = errors.New("vault: invalid cipher text")
	ErrDecrypt      = errors.New("vault: decryption failed")
)

type Vault struct {
	aead cipher.AEAD
}

// New builds a vault from a raw 32 byte key.
func New(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// NewFromHex builds a vault from the ENCRYPTION_KEY representation.
func NewFromHex(hexKey string) (*Vault, error) {
	key, err := ParseKey(hexKey)
	if err != nil {
		return nil, err
	}
	return New(key)
}

func ParseKey(hexKey string) ([]byte, error) {
	hexKey = strings.TrimSpace(hexKey)
	if len(hexKey) != KeySize*2 {
		return nil, ErrInvalidKey
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// GenerateKey returns a random key in hex form, suitable for ENCRYPTION_KEY.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

// Encrypt serializes v as JSON and seals it.
func (v *Vault) Encrypt(doc any) (string, error) {
	plaintext, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("vault: marshal: %w", err)
	}

	nonce := make([]byte, nonceSize, nonceSize+len(plaintext)+tagSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("vault: nonce: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a token produced by Encrypt and unmarshals it into out.
// Nothing is written to out unless authentication succeeds.
func (v *Vault) Decrypt(token string, out any) error {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return ErrInvalidToken
	}
	if len(raw) < nonceSize+tagSize+1 {
		return ErrInvalidToken
	}

	plaintext, err := v.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return ErrDecrypt
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("%w: malformed document", ErrDecrypt)
	}
	return nil
}

// DecryptMap is Decrypt for free-form provider configuration documents.
func (v *Vault) DecryptMap(token string) (map[string]any, error) {
	out := map[string]any{}
	if err := v.Decrypt(token, &out); err != nil {
		return nil, err
	}
	return out, nil
}
