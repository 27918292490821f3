// Copyright (C) 2025 Argus Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package secretbytes provides a byte container whose release path
// overwrites its contents before deallocation ("secret-bytes
// discipline"). It is the Go half of the contract the original Rust
// implementation gets from `zeroize::Zeroizing`.
//
// Description:
//
//	Backed by memguard's guarded heap: the underlying bytes are allocated
//	outside the Go GC's reach, so Destroy (or process exit via memguard's
//	interrupt handler) is the only way they are ever released, and release
//	always wipes them first. Every constructor copies its input and wipes
//	the caller-supplied slice, so a single secret is never live in two
//	unguarded locations at once.
package secretbytes

import (
	"github.com/awnumar/memguard"
)

// Secret is a zeroizing byte container for master keys and decrypted
// vault plaintext.
//
// Thread Safety: Secret is not safe for concurrent mutation; concurrent
// reads via Bytes/String are safe as long as no goroutine calls Destroy
// concurrently with them.
type Secret struct {
	buf *memguard.LockedBuffer
}

// New copies data into a guarded, zeroizing buffer and wipes the input slice.
//
// Inputs:
//   - data: The bytes to protect. Zeroed in place before New returns.
//
// Outputs:
//   - *Secret: The guarded copy. Caller must call Destroy when done.
func New(data []byte) *Secret {
	buf := memguard.NewBufferFromBytes(data) // copies, then wipes data
	return &Secret{buf: buf}
}

// Bytes returns a read-only view of the secret. The returned slice becomes
// invalid after Destroy.
func (s *Secret) Bytes() []byte {
	if s == nil || s.buf == nil {
		return nil
	}
	return s.buf.Bytes()
}

// String copies the secret out as a string. Go strings are immutable and
// cannot be zeroized, so this should only be used at the boundary where a
// string is unavoidable (e.g. returning a vault value to a caller), never
// for values that are re-stored or logged.
func (s *Secret) String() string {
	if s == nil || s.buf == nil {
		return ""
	}
	return string(s.buf.Bytes())
}

// Destroy overwrites the secret's memory and releases it. Safe to call
// more than once; safe to call on a nil *Secret.
func (s *Secret) Destroy() {
	if s == nil || s.buf == nil {
		return
	}
	s.buf.Destroy()
}
