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

package jks

import (
	"bytes"
	"crypto/rand"
	"crypto/sha1"
	"encoding/asn1"
	"fmt"

	"github.com/jeremyhahn/go-certwatch/pkg/store"
)

// keyProtectorOID identifies the format's proprietary password-based key
// protection scheme inside the EncryptedPrivateKeyInfo wrapper. The scheme
// is scoped to this format only; the encrypted container format uses its
// own, incompatible derivation.
var keyProtectorOID = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 42, 2, 17, 1, 1}

const (
	saltSize  = sha1.Size
	checkSize = sha1.Size
)

type algorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.RawValue `asn1:"optional"`
}

type encryptedPrivateKeyInfo struct {
	Algorithm     algorithmIdentifier
	EncryptedData []byte
}

// encryptKey protects a plaintext PKCS#8 key under the store password:
// a random salt seeds a SHA-1 keystream which is XORed over the plaintext,
// and a password-keyed digest of the plaintext is appended as a check.
func encryptKey(plain, passwd []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	encrypted := make([]byte, 0, saltSize+len(plain)+checkSize)
	encrypted = append(encrypted, salt...)
	encrypted = append(encrypted, xorKeystream(plain, passwd, salt)...)

	check := sha1.New()
	check.Write(passwd)
	check.Write(plain)
	encrypted = check.Sum(encrypted)

	der, err := asn1.Marshal(encryptedPrivateKeyInfo{
		Algorithm: algorithmIdentifier{
			Algorithm:  keyProtectorOID,
			Parameters: asn1.NullRawValue,
		},
		EncryptedData: encrypted,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal encrypted key info: %w", err)
	}
	return der, nil
}

// decryptKey reverses encryptKey. A check digest mismatch means the key
// password is wrong and surfaces as ErrBadPassword.
func decryptKey(der, passwd []byte) ([]byte, error) {
	var info encryptedPrivateKeyInfo
	rest, err := asn1.Unmarshal(der, &info)
	if err != nil || len(rest) != 0 {
		return nil, fmt.Errorf("%w: bad encrypted key info", store.ErrMalformedStore)
	}
	if !info.Algorithm.Algorithm.Equal(keyProtectorOID) {
		return nil, fmt.Errorf("%w: unsupported key protection algorithm %v",
			store.ErrMalformedStore, info.Algorithm.Algorithm)
	}
	if len(info.EncryptedData) < saltSize+checkSize {
		return nil, fmt.Errorf("%w: encrypted key too short", store.ErrMalformedStore)
	}

	salt := info.EncryptedData[:saltSize]
	ciphertext := info.EncryptedData[saltSize : len(info.EncryptedData)-checkSize]
	check := info.EncryptedData[len(info.EncryptedData)-checkSize:]

	plain := xorKeystream(ciphertext, passwd, salt)

	h := sha1.New()
	h.Write(passwd)
	h.Write(plain)
	if !bytes.Equal(h.Sum(nil), check) {
		return nil, store.ErrBadPassword
	}
	return plain, nil
}

// xorKeystream XORs data with the password-derived keystream: each 20-byte
// block is the SHA-1 of the password and the previous block, seeded by the
// salt.
func xorKeystream(data, passwd, salt []byte) []byte {
	out := make([]byte, len(data))
	block := make([]byte, saltSize)
	copy(block, salt)

	for off := 0; off < len(data); off += saltSize {
		h := sha1.New()
		h.Write(passwd)
		h.Write(block)
		block = h.Sum(nil)

		n := len(data) - off
		if n > saltSize {
			n = saltSize
		}
		for i := 0; i < n; i++ {
			out[off+i] = data[off+i] ^ block[i]
		}
	}
	return out
}
