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

// Package store defines the certificate store contract shared by the three
// persisted formats: the binary trust-store (pkg/store/jks), the encrypted
// container (pkg/store/pkcs12), and the directory of PEM files
// (pkg/store/pemdir).
//
// A Store is an in-memory snapshot decoded from a byte source: it is
// mutated by Put/Remove and persisted atomically by Save. A store that
// fails to decode never becomes readable. Reads against a snapshot are
// pure; the engine assumes a single writer per underlying store file for
// the duration of an open-mutate-save sequence and implements no file
// locking.
package store

import (
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-certwatch/pkg/types"
)

// Format identifies a persisted store format.
type Format int

const (
	// FormatJKS is the binary trust-store format with a keyed integrity digest.
	FormatJKS Format = iota

	// FormatPKCS12 is the password-encrypted container format.
	FormatPKCS12

	// FormatPEMDir is a directory of individually PEM-encoded certificates.
	FormatPEMDir
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatJKS:
		return "jks"
	case FormatPKCS12:
		return "pkcs12"
	case FormatPEMDir:
		return "pem"
	default:
		return "unknown"
	}
}

// ParseFormat parses a store format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jks":
		return FormatJKS, nil
	case "pkcs12", "p12", "pfx":
		return FormatPKCS12, nil
	case "pem", "dir", "pemdir":
		return FormatPEMDir, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Store is an in-memory certificate store snapshot backed by one format.
//
// Aliases are unique within a store. PutEntry is last-write-wins; whether
// alias lookup is case-sensitive is format-dependent (the binary
// trust-store folds aliases to lower case internally, the other formats are
// case-sensitive).
//
// A Store is not safe for concurrent mutation; see the package comment.
type Store interface {
	// Format returns the store's persisted format.
	Format() Format

	// ListAliases returns every alias in the store, sorted.
	ListAliases() []string

	// GetEntry returns the entry for the alias, or false when absent.
	GetEntry(alias string) (*types.StoreEntry, bool)

	// PutEntry adds or replaces the entry under the alias. The entry's
	// structural invariants are verified, including that a private key
	// entry's leaf public key corresponds to its key. Formats that cannot
	// represent the entry's kind fail with ErrUnsupportedEntryKind.
	PutEntry(alias string, entry *types.StoreEntry) error

	// RemoveEntry deletes the alias and reports whether it existed.
	RemoveEntry(alias string) bool

	// Save persists the store to path. The bytes are staged in a temporary
	// file in the same directory and atomically renamed over the target on
	// success only; any encoding error leaves the original untouched.
	Save(path string, password types.Password) error
}

// ValidateEntry checks the invariants common to every format before an
// entry is admitted to a store: structural validity and, for private key
// entries, that the leaf certificate's public key corresponds to the
// private key. The key match is verified here on add and not re-verified
// on reads.
func ValidateEntry(entry *types.StoreEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.Kind == types.PrivateKeyEntry {
		if err := VerifyKeyMatch(entry.Key, entry.Leaf()); err != nil {
			return err
		}
	}
	return nil
}
