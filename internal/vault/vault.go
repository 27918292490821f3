// Copyright (C) 2025 Argus Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package vault implements an encrypted-at-rest named-secret store whose
// master key lives in the OS credential store.
//
// Description:
//
//	A Vault moves through Created → Locked ⇄ Unlocked → Dropped. Init
//	generates a fresh master key and persists it via internal/credstore;
//	Unlock retrieves it back into a secret-bytes container and loads the
//	on-disk record map. All data-path operations (Store, Retrieve, List,
//	Delete) require Unlocked and return ErrLocked otherwise.
//
//	Persistence format: the on-disk file is a single JSON object mapping
//	name → base64-encoded stored_blob. Only the values are ciphertext;
//	secret *names* are visible to anyone who can read the raw file. This
//	keeps the format self-describing and diffable; a deployment that
//	needs name confidentiality should encrypt the whole file at the
//	filesystem layer.
package vault

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/argus-ai/argus/internal/cipher"
	"github.com/argus-ai/argus/internal/credstore"
	"github.com/argus-ai/argus/internal/secretbytes"
)

// Service and Account are the fixed OS credential store coordinates for the
// vault master key.
const (
	Service = "argus"
	Account = "master_key"
)

// Error kinds for the vault subsystem.
var (
	ErrLocked      = errors.New("vault: locked")
	ErrNotFound    = errors.New("vault: secret not found")
	ErrKeychain    = errors.New("vault: credential store error")
	ErrIO          = errors.New("vault: io error")
	ErrDecryption  = errors.New("vault: decryption failed")
	ErrNotUTF8     = errors.New("vault: stored secret is not valid UTF-8")
	ErrInvalidFile = errors.New("vault: corrupt vault file")
)

// record is the on-disk, base64-wrapped form of a stored secret blob.
type onDiskFile struct {
	Secrets map[string]string `json:"secrets"`
}

// Vault is a named-secret store encrypted at rest with a master key held in
// memory only while unlocked.
//
// Thread Safety: Vault is safe for concurrent use; all data-path operations
// are serialized by an internal mutex, matching the single-connection
// discipline the memory store applies.
type Vault struct {
	mu       sync.Mutex
	path     string
	key      *secretbytes.Secret
	secrets  map[string][]byte // name -> stored_blob (nonce||ciphertext)
	unlocked bool
}

// Init generates a new master key, stores it in the OS credential store,
// creates the vault file's parent directory, writes an empty persisted map,
// and returns a Vault in the Unlocked state.
func Init(path string) (*Vault, error) {
	key := make([]byte, cipher.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%w: generating master key: %v", ErrIO, err)
	}

	if err := credstore.Store(Service, Account, key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeychain, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIO, err)
		}
	}

	v := &Vault{
		path:     path,
		key:      secretbytes.New(key),
		secrets:  make(map[string][]byte),
		unlocked: true,
	}

	if err := v.persist(); err != nil {
		return nil, err
	}
	return v, nil
}

// Open constructs a Vault bound to path in the Locked state, ready for
// Unlock. It does not touch the credential store or filesystem yet.
func Open(path string) *Vault {
	return &Vault{path: path}
}

// Unlock retrieves the master key from the credential store and loads the
// on-disk record map into memory.
func (v *Vault) Unlock() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	key, err := credstore.Retrieve(Service, Account)
	if err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			return fmt.Errorf("%w: vault never initialized", ErrNotFound)
		}
		return fmt.Errorf("%w: %v", ErrKeychain, err)
	}

	secrets, err := loadFile(v.path)
	if err != nil {
		return err
	}

	v.key = secretbytes.New(key)
	v.secrets = secrets
	v.unlocked = true
	return nil
}

// Lock discards the in-memory master key and record map. The vault must be
// Unlocked again before any further data-path operation.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lockLocked()
}

func (v *Vault) lockLocked() {
	if v.key != nil {
		v.key.Destroy()
		v.key = nil
	}
	v.secrets = nil
	v.unlocked = false
}

// Drop releases the vault's master key. Equivalent to Lock; provided so
// callers can defer v.Drop() to match the state machine's Dropped terminal
// state.
func (v *Vault) Drop() {
	v.Lock()
}

// Store encrypts plaintext under the master key and persists it under name,
// overwriting any existing secret of the same name.
func (v *Vault) Store(name, plaintext string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.unlocked {
		return ErrLocked
	}

	blob, err := cipher.Encrypt(v.key.Bytes(), []byte(plaintext))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	v.secrets[name] = blob
	return v.persist()
}

// Retrieve decrypts and returns the plaintext stored under name.
func (v *Vault) Retrieve(name string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.unlocked {
		return "", ErrLocked
	}

	blob, ok := v.secrets[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	secret, err := cipher.Decrypt(v.key.Bytes(), blob)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrDecryption, name, err)
	}
	defer secret.Destroy()

	if !utf8.Valid(secret.Bytes()) {
		return "", fmt.Errorf("%w: %q", ErrNotUTF8, name)
	}
	return secret.String(), nil
}

// ListKeys returns the names of all stored secrets, sorted for determinism.
func (v *Vault) ListKeys() ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.unlocked {
		return nil, ErrLocked
	}

	names := make([]string, 0, len(v.secrets))
	for name := range v.secrets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the secret stored under name.
func (v *Vault) Delete(name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.unlocked {
		return ErrLocked
	}
	if _, ok := v.secrets[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	delete(v.secrets, name)
	return v.persist()
}

// RedactKnownSecrets replaces any currently-stored secret value found
// verbatim in text with "[REDACTED:<name>]". Callers run this over tool
// result strings and log lines that might echo environment or config
// content before it reaches a model prompt or a log sink.
func (v *Vault) RedactKnownSecrets(text string) string {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.unlocked {
		return text
	}

	for name, blob := range v.secrets {
		secret, err := cipher.Decrypt(v.key.Bytes(), blob)
		if err != nil {
			continue
		}
		value := secret.String()
		secret.Destroy()

		if len(value) < 8 {
			continue
		}
		if strings.Contains(text, value) {
			text = strings.ReplaceAll(text, value, "[REDACTED:"+name+"]")
		}
	}
	return text
}

// persist atomically overwrites the vault file with the current in-memory
// record map (write-temp-then-rename, so a crash mid-write never corrupts
// the existing file).
func (v *Vault) persist() error {
	out := onDiskFile{Secrets: make(map[string]string, len(v.secrets))}
	for name, blob := range v.secrets {
		out.Secrets[name] = base64.StdEncoding.EncodeToString(blob)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	dir := filepath.Dir(v.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".vault-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := os.Rename(tmpName, v.path); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// loadFile reads and decodes the vault file at path. A missing file is
// treated as an empty record map (the state Init leaves behind before the
// first Store).
func loadFile(path string) (map[string][]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string][]byte), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	var parsed onDiskFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	secrets := make(map[string][]byte, len(parsed.Secrets))
	for name, encoded := range parsed.Secrets {
		blob, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: secret %q: %v", ErrInvalidFile, name, err)
		}
		secrets[name] = blob
	}
	return secrets, nil
}
