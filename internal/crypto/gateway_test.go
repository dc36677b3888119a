package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) Key {
	t.Helper()
	var key Key
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestGateway_RoundTrip(t *testing.T) {
	gw, err := NewGateway(testKey(t))
	require.NoError(t, err)

	plaintext := []byte(`{"severity":6,"tags":[{"category":"symptom","value":"headache"}]}`)

	ciphertext, nonce, tag, err := gw.Encrypt(plaintext)
	require.NoError(t, err)
	assert.Len(t, nonce, NonceSize)
	assert.Len(t, tag, TagSize)
	assert.NotEqual(t, plaintext, ciphertext)

	got, err := gw.Decrypt(ciphertext, nonce, tag)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestGateway_EmptyPlaintext(t *testing.T) {
	gw, err := NewGateway(testKey(t))
	require.NoError(t, err)

	_, _, _, err = gw.Encrypt(nil)
	assert.ErrorIs(t, err, ErrEmptyPlaintext)
}

func TestGateway_TamperedCiphertext(t *testing.T) {
	gw, err := NewGateway(testKey(t))
	require.NoError(t, err)

	ciphertext, nonce, tag, err := gw.Encrypt([]byte("a private note"))
	require.NoError(t, err)

	ciphertext[0] ^= 0xff
	got, err := gw.Decrypt(ciphertext, nonce, tag)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	assert.Nil(t, got)
}

func TestGateway_TamperedTag(t *testing.T) {
	gw, err := NewGateway(testKey(t))
	require.NoError(t, err)

	ciphertext, nonce, tag, err := gw.Encrypt([]byte("a private note"))
	require.NoError(t, err)

	tag[len(tag)-1] ^= 0x01
	_, err = gw.Decrypt(ciphertext, nonce, tag)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestGateway_TruncatedInputsFailClosed(t *testing.T) {
	gw, err := NewGateway(testKey(t))
	require.NoError(t, err)

	ciphertext, nonce, tag, err := gw.Encrypt([]byte("a private note"))
	require.NoError(t, err)

	_, err = gw.Decrypt(ciphertext[:len(ciphertext)/2], nonce, tag)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, err = gw.Decrypt(ciphertext, nonce[:4], tag)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, err = gw.Decrypt(ciphertext, nonce, tag[:4])
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestGateway_WrongKey(t *testing.T) {
	gw, err := NewGateway(testKey(t))
	require.NoError(t, err)

	ciphertext, nonce, tag, err := gw.Encrypt([]byte("a private note"))
	require.NoError(t, err)

	var other Key
	other[0] = 0xaa
	gw2, err := NewGateway(other)
	require.NoError(t, err)

	_, err = gw2.Decrypt(ciphertext, nonce, tag)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestGateway_NonceUniquePerEncrypt(t *testing.T) {
	gw, err := NewGateway(testKey(t))
	require.NoError(t, err)

	_, nonce1, _, err := gw.Encrypt([]byte("same input"))
	require.NoError(t, err)
	_, nonce2, _, err := gw.Encrypt([]byte("same input"))
	require.NoError(t, err)

	assert.False(t, bytes.Equal(nonce1, nonce2), "nonce reused across encryptions")
}

func TestDeriveKey_Deterministic(t *testing.T) {
	salt := []byte("0123456789abcdef")

	k1 := DeriveKey("correct horse", salt)
	k2 := DeriveKey("correct horse", salt)
	k3 := DeriveKey("wrong horse", salt)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestLoadOrCreateKey_StableAcrossCalls(t *testing.T) {
	dir := t.TempDir()

	k1, err := LoadOrCreateKey(dir, "")
	require.NoError(t, err)
	k2, err := LoadOrCreateKey(dir, "")
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	p1, err := LoadOrCreateKey(dir, "passphrase")
	require.NoError(t, err)
	p2, err := LoadOrCreateKey(dir, "passphrase")
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.NotEqual(t, k1, p1)
}
