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

// Package cert provides the in-memory certificate model used across the
// engine: fingerprints, identity fields, expiry math, and the summary shape
// handed to presentation collaborators. It performs no I/O.
package cert

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// Status classifies a certificate's validity window at a point in time.
type Status int

const (
	// StatusUnknown is the zero value: the window was never classified,
	// for instance because the certificate could not be obtained.
	StatusUnknown Status = iota

	// StatusValid means the certificate is inside its validity window.
	StatusValid

	// StatusWarning means the certificate expires within the warning window.
	StatusWarning

	// StatusExpired means the validity window has passed.
	StatusExpired

	// StatusNotYetValid means the validity window has not started.
	StatusNotYetValid
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusWarning:
		return "warning"
	case StatusExpired:
		return "expired"
	case StatusNotYetValid:
		return "not-yet-valid"
	default:
		return "unknown"
	}
}

// Summary is the presentation view of a certificate. It carries no key
// material and is safe to render or serialize.
type Summary struct {
	Subject            string
	Issuer             string
	SerialNumber       *big.Int
	NotBefore          time.Time
	NotAfter           time.Time
	DNSNames           []string
	IsCA               bool
	SelfSigned         bool
	PublicKeyAlgorithm string
	PublicKeyBits      int
	SignatureAlgorithm string
	Fingerprint        string
}

// Fingerprint returns the SHA-256 digest of the certificate's raw DER
// encoding. It is a stable identity for deduplication and display, never a
// substitute for signature verification.
func Fingerprint(cert *x509.Certificate) [sha256.Size]byte {
	return sha256.Sum256(cert.Raw)
}

// FingerprintHex returns the hex rendering of Fingerprint.
func FingerprintHex(cert *x509.Certificate) string {
	sum := Fingerprint(cert)
	return hex.EncodeToString(sum[:])
}

// IsSelfSigned reports whether the certificate's issuer equals its subject.
// The comparison is over the raw encoded names, not a parsed rendering, so
// attribute ordering is significant.
func IsSelfSigned(cert *x509.Certificate) bool {
	return bytes.Equal(cert.RawIssuer, cert.RawSubject)
}

// Equal reports whether two certificates are the same certificate by raw
// DER equality.
func Equal(a, b *x509.Certificate) bool {
	if a == nil || b == nil {
		return a == b
	}
	return bytes.Equal(a.Raw, b.Raw)
}

// DaysRemaining returns the number of whole days between now and the
// certificate's notAfter. Negative when expired.
func DaysRemaining(cert *x509.Certificate, now time.Time) int {
	return int(cert.NotAfter.Sub(now).Hours() / 24)
}

// ExpiryStatus classifies the certificate's validity window at now.
// A certificate expiring within warningDays is StatusWarning; notAfter equal
// to now is still inside the window.
func ExpiryStatus(cert *x509.Certificate, now time.Time, warningDays int) Status {
	if now.Before(cert.NotBefore) {
		return StatusNotYetValid
	}
	if now.After(cert.NotAfter) {
		return StatusExpired
	}
	if warningDays > 0 && now.Add(time.Duration(warningDays)*24*time.Hour).After(cert.NotAfter) {
		return StatusWarning
	}
	return StatusValid
}

// Summarize builds the presentation view of a certificate.
func Summarize(cert *x509.Certificate) Summary {
	return Summary{
		Subject:            cert.Subject.String(),
		Issuer:             cert.Issuer.String(),
		SerialNumber:       cert.SerialNumber,
		NotBefore:          cert.NotBefore,
		NotAfter:           cert.NotAfter,
		DNSNames:           append([]string(nil), cert.DNSNames...),
		IsCA:               cert.IsCA,
		SelfSigned:         IsSelfSigned(cert),
		PublicKeyAlgorithm: cert.PublicKeyAlgorithm.String(),
		PublicKeyBits:      publicKeyBits(cert),
		SignatureAlgorithm: cert.SignatureAlgorithm.String(),
		Fingerprint:        FingerprintHex(cert),
	}
}

// CommonName returns the subject common name, or an empty string.
func CommonName(cert *x509.Certificate) string {
	return cert.Subject.CommonName
}

func publicKeyBits(cert *x509.Certificate) int {
	switch pub := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		return pub.N.BitLen()
	case *ecdsa.PublicKey:
		return pub.Curve.Params().BitSize
	case ed25519.PublicKey:
		return len(pub) * 8
	default:
		return 0
	}
}

// String implements fmt.Stringer for log-friendly one-line output.
func (s Summary) String() string {
	return fmt.Sprintf("%s (serial %s, expires %s)",
		s.Subject, s.SerialNumber, s.NotAfter.Format(time.RFC3339))
}
