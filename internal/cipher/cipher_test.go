package cipher

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T, fill byte) []byte {
	t.Helper()
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = fill
	}
	return key
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	key := testKey(t, 0x42)
	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	blob, err := Encrypt(key, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, blob, "ciphertext must not equal plaintext")

	secret, err := Decrypt(key, blob)
	require.NoError(t, err)
	defer secret.Destroy()

	assert.True(t, bytes.Equal(secret.Bytes(), plaintext))
}

func TestEncryptProducesUniqueNonces(t *testing.T) {
	key := testKey(t, 0x01)
	plaintext := []byte("same plaintext every time")

	first, err := Encrypt(key, plaintext)
	require.NoError(t, err)
	second, err := Encrypt(key, plaintext)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "two encryptions of the same plaintext must differ")
}

func TestTamperedCiphertextFails(t *testing.T) {
	key := testKey(t, 0x07)
	blob, err := Encrypt(key, []byte("do not modify me"))
	require.NoError(t, err)

	tampered := append([]byte(nil), blob...)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = Decrypt(key, tampered)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecryptionFailed))
}

func TestWrongKeyFails(t *testing.T) {
	keyA := testKey(t, 0xAA)
	keyB := testKey(t, 0xBB)

	blob, err := Encrypt(keyA, []byte("secret payload"))
	require.NoError(t, err)

	_, err = Decrypt(keyB, blob)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecryptionFailed))
}

func TestInvalidKeySize(t *testing.T) {
	shortKey := []byte("too short")

	_, err := Encrypt(shortKey, []byte("data"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidKeySize))

	_, err = Decrypt(shortKey, []byte("data"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidKeySize))
}

func TestDecryptRejectsShortBlob(t *testing.T) {
	key := testKey(t, 0x10)

	_, err := Decrypt(key, []byte("short"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecryptionFailed))
}

func TestEncryptDecryptEmptyPlaintext(t *testing.T) {
	key := testKey(t, 0x20)

	blob, err := Encrypt(key, []byte{})
	require.NoError(t, err)

	secret, err := Decrypt(key, blob)
	require.NoError(t, err)
	defer secret.Destroy()

	assert.Empty(t, secret.Bytes())
}
