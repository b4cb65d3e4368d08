// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-certwatch.
//
// go-certwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package types defines the shared value types used across the certwatch
// engine: store entries, entry kinds, and password handling.
package types

import (
	"crypto"
	"crypto/x509"
	"errors"
	"time"
)

var (
	// ErrInvalidEntry is returned when a store entry is structurally invalid.
	ErrInvalidEntry = errors.New("types: invalid store entry")

	// ErrEmptyChain is returned when a private key entry carries no certificates.
	ErrEmptyChain = errors.New("types: private key entry requires a non-empty chain")
)

// EntryKind identifies the kind of a store entry.
type EntryKind int

const (
	// TrustedCertificate is a certificate-only entry (chain length 1).
	TrustedCertificate EntryKind = iota

	// PrivateKeyEntry is a private key with its certificate chain, leaf first.
	PrivateKeyEntry
)

// String returns the human-readable name of the entry kind.
func (k EntryKind) String() string {
	switch k {
	case TrustedCertificate:
		return "trusted-certificate"
	case PrivateKeyEntry:
		return "private-key"
	default:
		return "unknown"
	}
}

// StoreEntry is one named item in a certificate store.
//
// For TrustedCertificate entries Chain has length 1 and Key is nil.
// For PrivateKeyEntry entries Chain is ordered leaf to root and Chain[0]'s
// public key corresponds to Key; this is verified when the entry is added
// to a store, not re-verified on every read.
type StoreEntry struct {
	// Alias is the entry's unique name within its store.
	Alias string

	// Kind distinguishes trusted certificates from private key entries.
	Kind EntryKind

	// Chain is the entry's certificate chain, leaf first.
	Chain []*x509.Certificate

	// Key is the private key for PrivateKeyEntry entries, nil otherwise.
	// It is owned exclusively by this entry and is never logged or written
	// to an unencrypted sink by the engine.
	Key crypto.PrivateKey

	// CreationTime records when the entry was added to its store.
	CreationTime time.Time
}

// Leaf returns the entry's end-entity certificate, or nil for an empty chain.
func (e *StoreEntry) Leaf() *x509.Certificate {
	if len(e.Chain) == 0 {
		return nil
	}
	return e.Chain[0]
}

// Validate checks the entry's structural invariants.
func (e *StoreEntry) Validate() error {
	if e == nil || len(e.Chain) == 0 {
		return ErrInvalidEntry
	}
	switch e.Kind {
	case TrustedCertificate:
		if len(e.Chain) != 1 || e.Key != nil {
			return ErrInvalidEntry
		}
	case PrivateKeyEntry:
		if e.Key == nil {
			return ErrInvalidEntry
		}
		if len(e.Chain) == 0 {
			return ErrEmptyChain
		}
	default:
		return ErrInvalidEntry
	}
	return nil
}

// Password is an interface for accessing store credentials. The engine's
// implementation lives in internal/password.
//
// Credentials are passed explicitly per store operation rather than held as
// process-wide state, so concurrent operations on different stores never
// interfere.
type Password interface {
	// Bytes returns the password as a byte slice
	Bytes() []byte

	// String returns the password as a string
	String() (string, error)

	// Clear zeros out the password from memory
	Clear()
}
