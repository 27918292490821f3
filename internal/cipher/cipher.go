// Copyright (C) 2025 Argus Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cipher provides authenticated symmetric encryption for the vault.
//
// Description:
//
//	Wraps ChaCha20-Poly1305 (RFC 8439): a 256-bit key, a 96-bit random nonce
//	per call, and an authentication tag that detects any tampering with the
//	ciphertext. The nonce is prepended to the ciphertext so callers never
//	need to persist it separately.
package cipher

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/argus-ai/argus/internal/secretbytes"
	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the required master key length in bytes (256 bits).
const KeySize = 32

// NonceSize is the random nonce length in bytes (96 bits).
const NonceSize = chacha20poly1305.NonceSize

// Error kinds for the cipher subsystem.
var (
	ErrInvalidKeySize   = errors.New("cipher: invalid key size")
	ErrEncryptionFailed = errors.New("cipher: encryption failed")
	ErrDecryptionFailed = errors.New("cipher: decryption failed")
)

// Encrypt seals plaintext under key, returning nonce||ciphertext||tag.
//
// Inputs:
//   - key: Exactly KeySize bytes. Any other length fails with ErrInvalidKeySize.
//   - plaintext: The data to seal. May be empty.
//
// Outputs:
//   - []byte: nonce (first NonceSize bytes) followed by the AEAD sealed output.
//   - error: ErrInvalidKeySize or ErrEncryptionFailed.
//
// Thread Safety: Encrypt is safe for concurrent use; each call samples a fresh nonce.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeySize, len(key), KeySize)
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", ErrEncryptionFailed, err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	blob := make([]byte, 0, NonceSize+len(sealed))
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)
	return blob, nil
}

// Decrypt opens a blob produced by Encrypt, returning the plaintext in a
// secret-bytes container whose memory is overwritten on release.
//
// Inputs:
//   - key: Exactly KeySize bytes.
//   - blob: nonce||ciphertext||tag as returned by Encrypt.
//
// Outputs:
//   - *secretbytes.Secret: The recovered plaintext. Caller must call Destroy().
//   - error: ErrInvalidKeySize or ErrDecryptionFailed (short input, wrong key, or tampered data).
//
// Thread Safety: Decrypt is safe for concurrent use.
func Decrypt(key, blob []byte) (*secretbytes.Secret, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeySize, len(key), KeySize)
	}
	if len(blob) < NonceSize {
		return nil, fmt.Errorf("%w: blob shorter than nonce", ErrDecryptionFailed)
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	nonce, sealed := blob[:NonceSize], blob[NonceSize:]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w", ErrDecryptionFailed)
	}

	return secretbytes.New(plaintext), nil
}
