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

// Package encoding provides the certificate and private key codecs for the
// certwatch engine. Certificates are encoded as ASN.1 DER or PEM; private
// keys as PKCS#8, optionally password-encrypted. Decoding detects the
// encoding from content when no explicit format is given: the PEM header is
// checked first, then the input is treated as DER.
package encoding

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
)

// Format identifies a certificate wire encoding.
type Format int

const (
	// FormatAuto detects the encoding from content.
	FormatAuto Format = iota

	// FormatDER is binary ASN.1 DER.
	FormatDER

	// FormatPEM is base64 DER wrapped in CERTIFICATE header/footer lines.
	FormatPEM
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatDER:
		return "der"
	case FormatPEM:
		return "pem"
	default:
		return "auto"
	}
}

// ParseFormat parses a format name. Empty input means FormatAuto.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "der":
		return FormatDER, nil
	case "pem", "crt", "cert":
		return FormatPEM, nil
	default:
		return FormatAuto, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// PEM block types
const (
	PEMTypeCertificate         = "CERTIFICATE"
	PEMTypePrivateKey          = "PRIVATE KEY"
	PEMTypeEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
)

var pemHeader = []byte("-----BEGIN ")

// DecodeCertificate decodes a single certificate from DER or PEM data.
// With FormatAuto the PEM header is checked first, then DER is assumed.
//
// Failures wrap ErrDecode together with one of ErrDecodeTruncated,
// ErrDecodeInvalidStructure or ErrUnsupportedAlgorithm so callers can test
// either the class or the specific cause with errors.Is.
func DecodeCertificate(data []byte, format Format) (*x509.Certificate, error) {
	if len(data) == 0 {
		return nil, decodeErr(ErrDecodeTruncated, "empty input")
	}

	switch format {
	case FormatPEM:
		return decodeCertificatePEM(data)
	case FormatDER:
		return decodeCertificateDER(data)
	default:
		if looksLikePEM(data) {
			return decodeCertificatePEM(data)
		}
		return decodeCertificateDER(data)
	}
}

// EncodeCertificate encodes a certificate to the target format.
// DER output is the certificate's raw encoding, byte for byte, so export
// and convert are lossless for the same-encoding case.
func EncodeCertificate(cert *x509.Certificate, format Format) ([]byte, error) {
	if cert == nil || len(cert.Raw) == 0 {
		return nil, ErrInvalidCertificate
	}

	switch format {
	case FormatDER:
		raw := make([]byte, len(cert.Raw))
		copy(raw, cert.Raw)
		return raw, nil
	case FormatPEM, FormatAuto:
		block := &pem.Block{
			Type:  PEMTypeCertificate,
			Bytes: cert.Raw,
		}
		var buf bytes.Buffer
		if err := pem.Encode(&buf, block); err != nil {
			return nil, fmt.Errorf("failed to encode certificate PEM: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
}

// DecodeCertificates decodes one or more certificates from PEM data or a
// single DER certificate. Certificates are returned in input order.
func DecodeCertificates(data []byte, format Format) ([]*x509.Certificate, error) {
	if len(data) == 0 {
		return nil, decodeErr(ErrDecodeTruncated, "empty input")
	}

	if format == FormatDER || (format == FormatAuto && !looksLikePEM(data)) {
		cert, err := decodeCertificateDER(data)
		if err != nil {
			return nil, err
		}
		return []*x509.Certificate{cert}, nil
	}

	var certs []*x509.Certificate
	remaining := data
	for len(remaining) > 0 {
		var block *pem.Block
		block, remaining = pem.Decode(remaining)
		if block == nil {
			break
		}
		if block.Type != PEMTypeCertificate {
			continue
		}
		cert, err := decodeCertificateDER(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}

	if len(certs) == 0 {
		return nil, decodeErr(ErrDecodeInvalidStructure, "no certificates in PEM input")
	}
	return certs, nil
}

// EncodeCertificates encodes a chain to concatenated PEM blocks in order,
// typically leaf to root.
func EncodeCertificates(certs []*x509.Certificate) ([]byte, error) {
	if len(certs) == 0 {
		return nil, ErrInvalidCertificate
	}

	var buf bytes.Buffer
	for _, cert := range certs {
		if cert == nil {
			return nil, ErrInvalidCertificate
		}
		block := &pem.Block{
			Type:  PEMTypeCertificate,
			Bytes: cert.Raw,
		}
		if err := pem.Encode(&buf, block); err != nil {
			return nil, fmt.Errorf("failed to encode certificate chain PEM: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func looksLikePEM(data []byte) bool {
	return bytes.Contains(data, pemHeader)
}

func decodeCertificatePEM(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, decodeErr(ErrInvalidPEMEncoding, "no PEM block found")
	}
	if block.Type != PEMTypeCertificate {
		return nil, decodeErr(ErrDecodeInvalidStructure,
			fmt.Sprintf("unexpected PEM block type %q", block.Type))
	}
	return decodeCertificateDER(block.Bytes)
}

func decodeCertificateDER(der []byte) (*x509.Certificate, error) {
	if truncated, ok := derTruncated(der); ok && truncated {
		return nil, decodeErr(ErrDecodeTruncated, "DER input shorter than declared length")
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, decodeErr(ErrDecodeInvalidStructure, err.Error())
	}
	if cert.PublicKeyAlgorithm == x509.UnknownPublicKeyAlgorithm ||
		cert.SignatureAlgorithm == x509.UnknownSignatureAlgorithm {
		return nil, decodeErr(ErrUnsupportedAlgorithm, "unknown public key or signature algorithm")
	}
	return cert, nil
}

// derTruncated reports whether the outer DER TLV declares more bytes than
// the input holds. The second return is false when the header itself cannot
// be read, in which case the structural parse reports the error.
func derTruncated(der []byte) (truncated, ok bool) {
	if len(der) < 2 || der[0] != 0x30 {
		return false, false
	}
	b := der[1]
	if b < 0x80 {
		return 2+int(b) > len(der), true
	}
	numBytes := int(b & 0x7f)
	if numBytes == 0 || numBytes > 4 || 2+numBytes > len(der) {
		return false, false
	}
	length := 0
	for _, c := range der[2 : 2+numBytes] {
		length = length<<8 | int(c)
	}
	return 2+numBytes+length > len(der), true
}

func decodeErr(cause error, detail string) error {
	if detail == "" {
		return fmt.Errorf("%w: %w", ErrDecode, cause)
	}
	return fmt.Errorf("%w: %w: %s", ErrDecode, cause, detail)
}
