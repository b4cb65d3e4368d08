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

import (
	"crypto"
	"crypto/x509"
)

// VerifyKeyMatch reports whether the private key corresponds to the
// certificate's public key. Returns ErrKeyMismatch when they disagree.
func VerifyKeyMatch(privateKey crypto.PrivateKey, leaf *x509.Certificate) error {
	if privateKey == nil || leaf == nil {
		return ErrKeyMismatch
	}

	signer, ok := privateKey.(interface{ Public() crypto.PublicKey })
	if !ok {
		return ErrKeyMismatch
	}

	pub, ok := signer.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok {
		return ErrKeyMismatch
	}

	if !pub.Equal(leaf.PublicKey) {
		return ErrKeyMismatch
	}
	return nil
}
