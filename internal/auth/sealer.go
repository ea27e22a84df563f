package auth

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// sealedPrefix marks values written by Sealer. Values without it are
// plaintext records from before a key was configured.
const sealedPrefix = "sealed:v1:"

var hkdfInfo = []byte("wedding-rsvp credential record")

// Sealer encrypts the stored credential record with XChaCha20-Poly1305.
//
// The AEAD key is derived from the operator's TOKEN_ENCRYPTION_KEY with
// HKDF-SHA256. Sealed values look like
//
//	sealed:v1:<base64url(nonce || ciphertext)>
//
// and stay plain text so they fit the configuration table's TEXT column.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives an AEAD key from secret.
func NewSealer(secret string) (*Sealer, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: encryption key must be at least 16 characters")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("auth: deriving key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("auth: creating cipher: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Encode seals plaintext.
func (s *Sealer) Encode(plaintext []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("auth: generating nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, plaintext, nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode opens a value produced by Encode. Unsealed values are returned
// as-is so a record stored before sealing was enabled still loads.
func (s *Sealer) Decode(value string) ([]byte, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return []byte(value), nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return nil, fmt.Errorf("auth: decoding sealed value: %w", err)
	}
	if len(raw) < s.aead.NonceSize() {
		return nil, errors.New("auth: sealed value too short")
	}

	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: opening sealed value: %w", err)
	}
	return plaintext, nil
}
