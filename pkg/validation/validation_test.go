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

package validation

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper functions for test certificate generation

func generateTestCert(t *testing.T, cn string, isCA bool, parent *x509.Certificate, parentKey *ecdsa.PrivateKey, notBefore, notAfter time.Time) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName: cn,
		},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  isCA,
	}
	if isCA {
		template.KeyUsage |= x509.KeyUsageCertSign
	}

	certParent := template
	signingKey := key
	if parent != nil && parentKey != nil {
		certParent = parent
		signingKey = parentKey
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, certParent, &key.PublicKey, signingKey)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(certDER)
	require.NoError(t, err)

	return cert, key
}

// generateChain builds a root CA, an intermediate CA, and a leaf, each
// valid for a day around now.
func generateChain(t *testing.T) (leaf, intermediate, root *x509.Certificate) {
	t.Helper()

	notBefore := time.Now().Add(-1 * time.Hour)
	notAfter := time.Now().Add(24 * time.Hour)

	root, rootKey := generateTestCert(t, "Test Root CA", true, nil, nil, notBefore, notAfter)
	intermediate, intKey := generateTestCert(t, "Test Intermediate CA", true, root, rootKey, notBefore, notAfter)
	leaf, _ = generateTestCert(t, "leaf.example.com", false, intermediate, intKey, notBefore, notAfter)
	return leaf, intermediate, root
}

func TestValidateThreeCertChain(t *testing.T) {
	leaf, intermediate, root := generateChain(t)

	result := Validate(leaf, []*x509.Certificate{leaf, intermediate, root}, []*x509.Certificate{root}, time.Now())

	assert.Equal(t, Valid, result.Verdict)
	assert.True(t, result.Valid())
	assert.Nil(t, result.FailedCert)
	assert.Len(t, result.Chain, 3)
}

func TestValidateLeafNotFirstInPresented(t *testing.T) {
	leaf, intermediate, root := generateChain(t)

	// The leaf is prepended when the presented chain omits it.
	result := Validate(leaf, []*x509.Certificate{intermediate, root}, []*x509.Certificate{root}, time.Now())

	assert.Equal(t, Valid, result.Verdict)
	assert.Len(t, result.Chain, 3)
}

func TestValidateTamperedIntermediateSignature(t *testing.T) {
	leaf, intermediate, root := generateChain(t)

	// Flip one byte of the intermediate's signature.
	tampered := *intermediate
	tampered.Signature = append([]byte(nil), intermediate.Signature...)
	tampered.Signature[len(tampered.Signature)/2] ^= 0x01

	result := Validate(leaf, []*x509.Certificate{leaf, &tampered, root}, []*x509.Certificate{root}, time.Now())

	assert.Equal(t, MalformedChain, result.Verdict)
	require.NotNil(t, result.FailedCert)
	assert.Equal(t, "Test Intermediate CA", result.FailedCert.Subject.CommonName)
	assert.Contains(t, result.Reason, "Test Intermediate CA")
	assert.Contains(t, result.Reason, "Test Root CA")
}

func TestValidateUntrustedChain(t *testing.T) {
	leaf, intermediate, root := generateChain(t)

	result := Validate(leaf, []*x509.Certificate{leaf, intermediate, root}, nil, time.Now())

	assert.Equal(t, UntrustedChain, result.Verdict)
	require.NotNil(t, result.FailedCert)
	assert.Equal(t, "Test Root CA", result.FailedCert.Subject.CommonName)
}

func TestValidateSelfSignedNotInAnchors(t *testing.T) {
	notBefore := time.Now().Add(-1 * time.Hour)
	notAfter := time.Now().Add(24 * time.Hour)
	selfSigned, _ := generateTestCert(t, "standalone.example.com", false, nil, nil, notBefore, notAfter)

	result := Validate(selfSigned, nil, nil, time.Now())

	assert.Equal(t, UntrustedChain, result.Verdict)
	assert.True(t, result.SelfSigned)
	assert.Contains(t, result.Reason, "self-signed")
}

func TestValidateSelfSignedInAnchors(t *testing.T) {
	notBefore := time.Now().Add(-1 * time.Hour)
	notAfter := time.Now().Add(24 * time.Hour)
	selfSigned, _ := generateTestCert(t, "standalone.example.com", false, nil, nil, notBefore, notAfter)

	result := Validate(selfSigned, nil, []*x509.Certificate{selfSigned}, time.Now())

	assert.Equal(t, Valid, result.Verdict)
}

func TestValidateExpiryBoundary(t *testing.T) {
	// Certificate times carry second precision, so pin now to a whole second.
	now := time.Now().UTC().Truncate(time.Second)
	notBefore := now.Add(-24 * time.Hour)

	leaf, _ := generateTestCert(t, "boundary.example.com", false, nil, nil, notBefore, now)

	// notAfter == now is still inside the window.
	result := Validate(leaf, nil, []*x509.Certificate{leaf}, now)
	assert.Equal(t, Valid, result.Verdict)

	// One second past notAfter is expired.
	result = Validate(leaf, nil, []*x509.Certificate{leaf}, now.Add(time.Second))
	assert.Equal(t, Expired, result.Verdict)
	require.NotNil(t, result.FailedCert)
	assert.Equal(t, "boundary.example.com", result.FailedCert.Subject.CommonName)
}

func TestValidateNotYetValid(t *testing.T) {
	now := time.Now()
	leaf, _ := generateTestCert(t, "future.example.com", false, nil, nil,
		now.Add(24*time.Hour), now.Add(48*time.Hour))

	result := Validate(leaf, nil, []*x509.Certificate{leaf}, now)

	assert.Equal(t, NotYetValid, result.Verdict)
}

func TestValidateExpiredLeafReportedBeforeExpiredIssuer(t *testing.T) {
	// Both the leaf and the root are expired; the leaf is named first.
	notBefore := time.Now().Add(-48 * time.Hour)
	notAfter := time.Now().Add(-24 * time.Hour)

	root, rootKey := generateTestCert(t, "Expired Root CA", true, nil, nil, notBefore, notAfter)
	leaf, _ := generateTestCert(t, "expired.example.com", false, root, rootKey, notBefore, notAfter)

	result := Validate(leaf, []*x509.Certificate{leaf, root}, []*x509.Certificate{root}, time.Now())

	assert.Equal(t, Expired, result.Verdict)
	require.NotNil(t, result.FailedCert)
	assert.Equal(t, "expired.example.com", result.FailedCert.Subject.CommonName)
}

func TestValidateCycle(t *testing.T) {
	leaf, intermediate, root := generateChain(t)

	result := Validate(leaf, []*x509.Certificate{leaf, intermediate, leaf, root}, []*x509.Certificate{root}, time.Now())

	assert.Equal(t, MalformedChain, result.Verdict)
	assert.Contains(t, result.Reason, "more than once")
}

func TestValidateNonCAIssuer(t *testing.T) {
	notBefore := time.Now().Add(-1 * time.Hour)
	notAfter := time.Now().Add(24 * time.Hour)

	// A non-CA certificate signing another certificate.
	issuer, issuerKey := generateTestCert(t, "Not A CA", false, nil, nil, notBefore, notAfter)
	leaf, _ := generateTestCert(t, "victim.example.com", false, issuer, issuerKey, notBefore, notAfter)

	result := Validate(leaf, []*x509.Certificate{leaf, issuer}, []*x509.Certificate{issuer}, time.Now())

	assert.Equal(t, MalformedChain, result.Verdict)
	assert.Contains(t, result.Reason, "not a CA")
}

func TestValidateNameChainingMismatch(t *testing.T) {
	leaf, _, root := generateChain(t)
	notBefore := time.Now().Add(-1 * time.Hour)
	notAfter := time.Now().Add(24 * time.Hour)
	stranger, _ := generateTestCert(t, "Unrelated CA", true, nil, nil, notBefore, notAfter)

	result := Validate(leaf, []*x509.Certificate{leaf, stranger}, []*x509.Certificate{root}, time.Now())

	assert.Equal(t, MalformedChain, result.Verdict)
	assert.Contains(t, result.Reason, "does not match")
}

func TestValidateNilLeaf(t *testing.T) {
	result := Validate(nil, nil, nil, time.Now())

	assert.Equal(t, MalformedChain, result.Verdict)
}

func TestVerifySignatureSelf(t *testing.T) {
	notBefore := time.Now().Add(-1 * time.Hour)
	notAfter := time.Now().Add(24 * time.Hour)
	cert, _ := generateTestCert(t, "self.example.com", false, nil, nil, notBefore, notAfter)

	assert.NoError(t, VerifySignature(cert, cert))
}

func TestVerifySignatureWrongIssuer(t *testing.T) {
	notBefore := time.Now().Add(-1 * time.Hour)
	notAfter := time.Now().Add(24 * time.Hour)
	a, _ := generateTestCert(t, "a.example.com", false, nil, nil, notBefore, notAfter)
	b, _ := generateTestCert(t, "b.example.com", false, nil, nil, notBefore, notAfter)

	assert.ErrorIs(t, VerifySignature(a, b), ErrSignatureVerification)
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "valid", Valid.String())
	assert.Equal(t, "expired", Expired.String())
	assert.Equal(t, "not-yet-valid", NotYetValid.String())
	assert.Equal(t, "untrusted-chain", UntrustedChain.String())
	assert.Equal(t, "hostname-mismatch", HostnameMismatch.String())
	assert.Equal(t, "malformed-chain", MalformedChain.String())
}
