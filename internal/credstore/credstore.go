// Copyright (C) 2025 Argus Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package credstore wraps the host OS's user-scoped secret service
// (macOS Keychain, Windows Credential Manager, Linux Secret Service via
// D-Bus) for the vault master key.
package credstore

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// Error kinds for the credential store.
var (
	// ErrNotFound means the account has never been stored, or was deleted.
	// On unlock, this means "vault never initialized".
	ErrNotFound = errors.New("credstore: not found")
	// ErrPlatform covers any other failure talking to the OS secret service.
	ErrPlatform = errors.New("credstore: platform error")
)

// Store persists value (raw bytes, hex-encoded for transport) under
// service/account in the OS credential store.
func Store(service, account string, value []byte) error {
	encoded := hex.EncodeToString(value)
	if err := keyring.Set(service, account, encoded); err != nil {
		return fmt.Errorf("%w: %v", ErrPlatform, err)
	}
	return nil
}

// Retrieve loads and hex-decodes the value stored under service/account.
//
// Outputs:
//   - []byte: The decoded value.
//   - error: ErrNotFound if no such account exists, ErrPlatform otherwise.
func Retrieve(service, account string) ([]byte, error) {
	encoded, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, service, account)
		}
		return nil, fmt.Errorf("%w: %v", ErrPlatform, err)
	}

	decoded, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: stored value is not valid hex: %v", ErrPlatform, err)
	}
	return decoded, nil
}

// Delete removes the stored value under service/account.
func Delete(service, account string) error {
	if err := keyring.Delete(service, account); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, service, account)
		}
		return fmt.Errorf("%w: %v", ErrPlatform, err)
	}
	return nil
}
