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
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"errors"
)

var (
	// ErrSignatureVerification is returned when a signature does not verify.
	ErrSignatureVerification = errors.New("validation: signature verification failed")

	// ErrUnsupportedSignatureAlgorithm is returned for signature algorithms
	// this engine does not support.
	ErrUnsupportedSignatureAlgorithm = errors.New("validation: unsupported signature algorithm")

	// ErrPublicKeyMismatch is returned when the issuer's public key type does
	// not match the subject's declared signature algorithm.
	ErrPublicKeyMismatch = errors.New("validation: public key does not match signature algorithm")
)

// VerifySignature verifies that the subject certificate's signature was
// produced by the issuer's public key using the subject's declared
// signature algorithm. Pass the same certificate twice to check a
// self-signature.
func VerifySignature(subject, issuer *x509.Certificate) error {
	hash, pss, err := signatureHash(subject.SignatureAlgorithm)
	if err != nil {
		return err
	}

	signed := subject.RawTBSCertificate
	signature := subject.Signature

	switch pub := issuer.PublicKey.(type) {
	case *rsa.PublicKey:
		if hash == 0 {
			return ErrPublicKeyMismatch
		}
		digest := hashBytes(hash, signed)
		if pss {
			return wrapVerify(rsa.VerifyPSS(pub, hash, digest, signature, nil))
		}
		return wrapVerify(rsa.VerifyPKCS1v15(pub, hash, digest, signature))

	case *ecdsa.PublicKey:
		if hash == 0 {
			return ErrPublicKeyMismatch
		}
		digest := hashBytes(hash, signed)
		if !ecdsa.VerifyASN1(pub, digest, signature) {
			return ErrSignatureVerification
		}
		return nil

	case ed25519.PublicKey:
		if !ed25519.Verify(pub, signed, signature) {
			return ErrSignatureVerification
		}
		return nil

	default:
		return ErrUnsupportedSignatureAlgorithm
	}
}

// signatureHash maps an X.509 signature algorithm to its hash function.
// Ed25519 signs the message directly and maps to hash 0.
func signatureHash(alg x509.SignatureAlgorithm) (hash crypto.Hash, pss bool, err error) {
	switch alg {
	case x509.SHA256WithRSA:
		return crypto.SHA256, false, nil
	case x509.SHA384WithRSA:
		return crypto.SHA384, false, nil
	case x509.SHA512WithRSA:
		return crypto.SHA512, false, nil
	case x509.SHA256WithRSAPSS:
		return crypto.SHA256, true, nil
	case x509.SHA384WithRSAPSS:
		return crypto.SHA384, true, nil
	case x509.SHA512WithRSAPSS:
		return crypto.SHA512, true, nil
	case x509.ECDSAWithSHA256:
		return crypto.SHA256, false, nil
	case x509.ECDSAWithSHA384:
		return crypto.SHA384, false, nil
	case x509.ECDSAWithSHA512:
		return crypto.SHA512, false, nil
	case x509.PureEd25519:
		return 0, false, nil
	default:
		return 0, false, ErrUnsupportedSignatureAlgorithm
	}
}

func hashBytes(hash crypto.Hash, data []byte) []byte {
	h := hash.New()
	h.Write(data)
	return h.Sum(nil)
}

func wrapVerify(err error) error {
	if err != nil {
		return ErrSignatureVerification
	}
	return nil
}
