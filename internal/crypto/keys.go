package crypto

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
)

const saltSize = 16

// argon2id parameters for passphrase-derived keys.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// DeriveKey stretches a user passphrase into a fixed-length key with
// argon2id. The salt must be stable across runs for the same store.
func DeriveKey(passphrase string, salt []byte) Key {
	var key Key
	copy(key[:], argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, KeySize))
	return key
}

// LoadOrCreateKey resolves the store key inside dir.
//
// With a passphrase, the key is derived via argon2id from a salt file
// created on first use ("key.salt"). Without one, a random device-held
// key is read from or written to "store.key". Either way the caller
// receives only a key handle; raw material stays on disk with 0600
// permissions.
func LoadOrCreateKey(dir, passphrase string) (Key, error) {
	var key Key

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return key, fmt.Errorf("create key dir: %w", err)
	}

	if passphrase != "" {
		saltPath := filepath.Join(dir, "key.salt")
		salt, err := os.ReadFile(saltPath)
		if os.IsNotExist(err) {
			salt = make([]byte, saltSize)
			if _, err := rand.Read(salt); err != nil {
				return key, fmt.Errorf("generate salt: %w", err)
			}
			if err := os.WriteFile(saltPath, salt, 0o600); err != nil {
				return key, fmt.Errorf("write salt: %w", err)
			}
		} else if err != nil {
			return key, fmt.Errorf("read salt: %w", err)
		}
		return DeriveKey(passphrase, salt), nil
	}

	keyPath := filepath.Join(dir, "store.key")
	raw, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		raw = make([]byte, KeySize)
		if _, err := rand.Read(raw); err != nil {
			return key, fmt.Errorf("generate key: %w", err)
		}
		if err := os.WriteFile(keyPath, raw, 0o600); err != nil {
			return key, fmt.Errorf("write key: %w", err)
		}
	} else if err != nil {
		return key, fmt.Errorf("read key: %w", err)
	}

	if len(raw) != KeySize {
		return key, fmt.Errorf("key file %s: expected %d bytes, got %d", keyPath, KeySize, len(raw))
	}
	copy(key[:], raw)
	return key, nil
}
