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
	"crypto/x509"
	"fmt"

	"github.com/jeremyhahn/go-certwatch/pkg/cert"
)

// SingleResult is the outcome of inspecting one certificate in isolation.
type SingleResult struct {
	IsValid  bool
	Messages []string
}

// ValidateSingle inspects a single certificate without chain context:
// basic constraints, key usage consistency, and the self-signature when the
// certificate is self-signed.
//
// A CA certificate that carries a key usage extension without keyCertSign
// is invalid. Absence of the basic constraints extension is reported but
// treated as "not a CA".
func ValidateSingle(c *x509.Certificate) SingleResult {
	result := SingleResult{IsValid: true}

	if c.BasicConstraintsValid {
		if c.IsCA {
			result.Messages = append(result.Messages, "certificate is a CA certificate")
			if c.MaxPathLen > 0 || c.MaxPathLenZero {
				result.Messages = append(result.Messages,
					fmt.Sprintf("path length constraint: %d", c.MaxPathLen))
			}
			if c.KeyUsage != 0 && c.KeyUsage&x509.KeyUsageCertSign == 0 {
				result.IsValid = false
				result.Messages = append(result.Messages,
					"CA certificate missing certificate signing key usage")
				return result
			}
		} else {
			result.Messages = append(result.Messages, "certificate is not a CA certificate")
		}
	} else {
		result.Messages = append(result.Messages, "basic constraints extension not present")
	}

	if c.KeyUsage == 0 {
		result.Messages = append(result.Messages, "key usage extension not present")
	}

	if cert.IsSelfSigned(c) {
		if err := VerifySignature(c, c); err != nil {
			result.IsValid = false
			result.Messages = append(result.Messages,
				fmt.Sprintf("self-signed certificate with invalid signature: %v", err))
			return result
		}
		result.Messages = append(result.Messages, "self-signed certificate with valid signature")
	}

	return result
}
