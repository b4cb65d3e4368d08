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

import "errors"

var (
	// ErrDecode is the class error wrapped by every decode failure.
	ErrDecode = errors.New("encoding: decode error")

	// ErrDecodeTruncated is returned when the input ends before the
	// declared structure does.
	ErrDecodeTruncated = errors.New("encoding: truncated input")

	// ErrDecodeInvalidStructure is returned when the input bytes do not
	// form a valid certificate or key structure.
	ErrDecodeInvalidStructure = errors.New("encoding: invalid structure")

	// ErrUnsupportedAlgorithm is returned when a certificate or key uses
	// an algorithm this engine does not support.
	ErrUnsupportedAlgorithm = errors.New("encoding: unsupported algorithm")

	// ErrInvalidPrivateKey is returned when a private key is nil or invalid
	ErrInvalidPrivateKey = errors.New("encoding: invalid private key")

	// ErrInvalidCertificate is returned when a certificate is nil or invalid
	ErrInvalidCertificate = errors.New("encoding: invalid certificate")

	// ErrInvalidData is returned when data is nil, empty, or malformed
	ErrInvalidData = errors.New("encoding: invalid data")

	// ErrInvalidPassword is returned when a key password is incorrect
	ErrInvalidPassword = errors.New("encoding: invalid password")

	// ErrInvalidPEMEncoding is returned when PEM decoding fails
	ErrInvalidPEMEncoding = errors.New("encoding: invalid PEM encoding")

	// ErrUnsupportedFormat is returned when an unknown encoding format is
	// requested.
	ErrUnsupportedFormat = errors.New("encoding: unsupported format")
)
