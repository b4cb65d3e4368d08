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

package encoding

import (
	"bytes"
	"crypto"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/youmark/pkcs8"
)

// EncodePKCS8 encodes a private key to ASN.1 DER PKCS#8 format.
// If a password is provided, the key will be encrypted.
// If password is nil or empty, the key will be encoded without encryption.
//
// Supported key types: *rsa.PrivateKey, *ecdsa.PrivateKey, ed25519.PrivateKey
func EncodePKCS8(privateKey crypto.PrivateKey, password []byte) ([]byte, error) {
	if privateKey == nil {
		return nil, ErrInvalidPrivateKey
	}

	der, err := pkcs8.MarshalPrivateKey(privateKey, password, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal PKCS#8: %w", err)
	}

	return der, nil
}

// DecodePKCS8 decodes ASN.1 DER PKCS#8 encoded data to a private key.
// If the data is encrypted, a password must be provided. An incorrect
// password surfaces as ErrInvalidPassword rather than a generic parse error.
func DecodePKCS8(data []byte, password []byte) (crypto.PrivateKey, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	key, err := pkcs8.ParsePKCS8PrivateKey(data, password)
	if err != nil {
		if isPasswordError(err) {
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("failed to parse PKCS#8: %w", err)
	}

	privKey, ok := key.(crypto.PrivateKey)
	if !ok {
		return nil, ErrInvalidPrivateKey
	}

	return privKey, nil
}

// EncodePrivateKeyPEM encodes a private key to PEM-wrapped PKCS#8.
// With a password the key is encrypted and the block type is
// "ENCRYPTED PRIVATE KEY", otherwise "PRIVATE KEY".
func EncodePrivateKeyPEM(privateKey crypto.PrivateKey, password []byte) ([]byte, error) {
	der, err := EncodePKCS8(privateKey, password)
	if err != nil {
		return nil, err
	}

	blockType := PEMTypePrivateKey
	if len(password) > 0 {
		blockType = PEMTypeEncryptedPrivateKey
	}

	var buf bytes.Buffer
	if err := pem.Encode(&buf, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		return nil, fmt.Errorf("failed to encode PEM: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodePrivateKeyPEM decodes a PEM-wrapped PKCS#8 private key.
// If the PEM data is encrypted, a password must be provided.
func DecodePrivateKeyPEM(data []byte, password []byte) (crypto.PrivateKey, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEMEncoding
	}

	return DecodePKCS8(block.Bytes, password)
}

// isPasswordError checks if an error is related to an incorrect password.
// The pkcs8 package returns various error messages for password issues.
func isPasswordError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := err.Error()

	passwordErrors := []string{
		"pkcs8: incorrect password",
		"incorrect password",
		"asn1: structure error",
		"tags don't match",
	}

	for _, msg := range passwordErrors {
		if strings.Contains(errMsg, msg) {
			return true
		}
	}

	return false
}
