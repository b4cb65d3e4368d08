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

package store

import "errors"

// Store operation errors
var (
	// ErrBadPassword is returned when a password-protected store is opened
	// with a missing or incorrect password.
	ErrBadPassword = errors.New("store: bad password")

	// ErrIntegrity is returned when a store's integrity digest does not
	// match the decoded byte stream. No partial entry data is exposed.
	ErrIntegrity = errors.New("store: integrity digest mismatch")

	// ErrUnsupportedEntryKind is returned when a format cannot represent
	// the kind of entry being stored.
	ErrUnsupportedEntryKind = errors.New("store: unsupported entry kind for this format")

	// ErrUnsupportedFormat is returned for unknown store formats.
	ErrUnsupportedFormat = errors.New("store: unsupported format")

	// ErrAliasNotFound is returned when an operation names an absent alias.
	ErrAliasNotFound = errors.New("store: alias not found")

	// ErrKeyMismatch is returned when a private key entry's key does not
	// correspond to its leaf certificate's public key.
	ErrKeyMismatch = errors.New("store: private key does not match leaf certificate")

	// ErrMalformedStore is returned when a store's byte stream cannot be
	// decoded. The store is never partially readable after this error.
	ErrMalformedStore = errors.New("store: malformed store data")
)
