// Package crypto wraps authenticated encryption of opaque record
// payloads. It knows nothing about the domain schema: callers hand it
// bytes and get bytes back, or an explicit authentication failure.
package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// KeySize is the required key length in bytes.
	KeySize = chacha20poly1305.KeySize
	// NonceSize is the length of the per-message nonce.
	NonceSize = chacha20poly1305.NonceSizeX
	// TagSize is the length of the authentication tag.
	TagSize = chacha20poly1305.Overhead
)

var (
	// ErrAuthenticationFailed is returned when a ciphertext fails its
	// integrity check: tag mismatch, truncation, or a tampered nonce.
	// No partial plaintext is ever returned alongside it.
	ErrAuthenticationFailed = errors.New("crypto: authentication failed")

	// ErrEmptyPlaintext is returned when encrypt is called with no data.
	ErrEmptyPlaintext = errors.New("crypto: plaintext must not be empty")
)

// Key is a fixed-length symmetric key handle. Derivation, storage, and
// rotation are the caller's concern; the gateway only consumes it.
type Key [KeySize]byte

// Gateway performs authenticated encryption with XChaCha20-Poly1305.
// The key is captured at construction and never exposed afterwards.
type Gateway struct {
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

// NewGateway builds a gateway around the given key.
func NewGateway(key Key) (*Gateway, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	return &Gateway{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce. The tag is
// returned separately so the storage envelope can persist the three
// parts as distinct fields.
func (g *Gateway) Encrypt(plaintext []byte) (ciphertext, nonce, tag []byte, err error) {
	if len(plaintext) == 0 {
		return nil, nil, nil, ErrEmptyPlaintext
	}

	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := g.aead.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - TagSize
	return sealed[:split], nonce, sealed[split:], nil
}

// Decrypt opens a sealed payload. It fails closed: any mismatch in
// ciphertext, nonce, or tag yields ErrAuthenticationFailed and no
// plaintext.
func (g *Gateway) Decrypt(ciphertext, nonce, tag []byte) ([]byte, error) {
	if len(nonce) != NonceSize || len(tag) != TagSize {
		return nil, ErrAuthenticationFailed
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := g.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}
