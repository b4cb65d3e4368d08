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

// Package validation implements certificate chain validation and hostname
// matching. Validation verdicts are results, not errors: an expired
// certificate is expected output of Validate, not a fault.
package validation

import (
	"bytes"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-certwatch/pkg/cert"
)

// Verdict is the outcome of validating a certificate chain.
type Verdict int

const (
	// Valid means every check passed and the chain terminates at a trust anchor.
	Valid Verdict = iota

	// Expired means a certificate in the chain is past its validity window.
	Expired

	// NotYetValid means a certificate's validity window has not started.
	NotYetValid

	// UntrustedChain means no certificate in the chain matches a trust anchor.
	UntrustedChain

	// HostnameMismatch means the certificate does not identify the requested host.
	HostnameMismatch

	// MalformedChain means the chain is structurally broken: a bad signature,
	// a non-CA issuer, a name mismatch between adjacent certificates, or a cycle.
	MalformedChain
)

// String returns the verdict name.
func (v Verdict) String() string {
	switch v {
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	case NotYetValid:
		return "not-yet-valid"
	case UntrustedChain:
		return "untrusted-chain"
	case HostnameMismatch:
		return "hostname-mismatch"
	case MalformedChain:
		return "malformed-chain"
	default:
		return "unknown"
	}
}

// Result is the outcome of a chain validation. For failure verdicts,
// FailedCert is the first certificate that failed and Reason names the rule.
type Result struct {
	Verdict    Verdict
	Chain      []*x509.Certificate
	FailedCert *x509.Certificate
	Reason     string

	// SelfSigned notes that the chain is a lone self-signed certificate.
	// Informational: self-signed is not inherently trusted, so a self-signed
	// leaf absent from the anchors still yields UntrustedChain.
	SelfSigned bool
}

// Valid reports whether the verdict is Valid.
func (r Result) Valid() bool {
	return r.Verdict == Valid
}

// Validate verifies a certificate chain from leaf to trust anchor at the
// given time.
//
// The presented chain is ordered leaf first; when it is empty the leaf is
// treated as a self-contained chain of length 1. When the presented chain
// does not start with the leaf, the leaf is prepended. Anchors are matched
// by exact raw DER equality.
func Validate(leaf *x509.Certificate, presented []*x509.Certificate, anchors []*x509.Certificate, now time.Time) Result {
	if leaf == nil {
		return Result{Verdict: MalformedChain, Reason: "no leaf certificate"}
	}

	chain := buildChain(leaf, presented)
	result := Result{Chain: chain}

	// A repeated certificate means a cycle. Rejected before signature
	// verification so issuer lookups can never loop.
	if dup := findDuplicate(chain); dup != nil {
		result.Verdict = MalformedChain
		result.FailedCert = dup
		result.Reason = "certificate appears more than once in chain"
		return result
	}

	// Adjacent pair checks, leaf first: name chaining and signatures.
	for i := 0; i < len(chain)-1; i++ {
		subject, issuer := chain[i], chain[i+1]
		if !bytes.Equal(subject.RawIssuer, issuer.RawSubject) {
			result.Verdict = MalformedChain
			result.FailedCert = subject
			result.Reason = fmt.Sprintf("issuer of %q does not match subject of %q",
				subject.Subject.CommonName, issuer.Subject.CommonName)
			return result
		}
		if err := VerifySignature(subject, issuer); err != nil {
			result.Verdict = MalformedChain
			result.FailedCert = subject
			result.Reason = fmt.Sprintf("signature of %q by %q: %v",
				subject.Subject.CommonName, issuer.Subject.CommonName, err)
			return result
		}
	}

	// Validity windows, leaf checked before issuers. notAfter == now is
	// still inside the window.
	for _, c := range chain {
		if now.Before(c.NotBefore) {
			result.Verdict = NotYetValid
			result.FailedCert = c
			result.Reason = fmt.Sprintf("%q not valid before %s",
				c.Subject.CommonName, c.NotBefore.Format(time.RFC3339))
			return result
		}
		if now.After(c.NotAfter) {
			result.Verdict = Expired
			result.FailedCert = c
			result.Reason = fmt.Sprintf("%q expired %s",
				c.Subject.CommonName, c.NotAfter.Format(time.RFC3339))
			return result
		}
	}

	// Trust: the terminal certificate must match an anchor. A self-signed
	// terminal must additionally self-verify.
	terminal := chain[len(chain)-1]
	selfSigned := cert.IsSelfSigned(terminal)
	if len(chain) == 1 && selfSigned {
		result.SelfSigned = true
	}
	if selfSigned {
		if err := VerifySignature(terminal, terminal); err != nil {
			result.Verdict = MalformedChain
			result.FailedCert = terminal
			result.Reason = fmt.Sprintf("self-signature of %q: %v",
				terminal.Subject.CommonName, err)
			return result
		}
	}
	if !inAnchors(terminal, anchors) {
		result.Verdict = UntrustedChain
		result.FailedCert = terminal
		if result.SelfSigned {
			result.Reason = "self-signed certificate not present in trust anchors"
		} else {
			result.Reason = "chain does not terminate at a trust anchor"
		}
		return result
	}

	// Every certificate acting as an issuer must be a CA.
	for i := 1; i < len(chain); i++ {
		if !chain[i].IsCA {
			result.Verdict = MalformedChain
			result.FailedCert = chain[i]
			result.Reason = fmt.Sprintf("%q used as issuer but is not a CA",
				chain[i].Subject.CommonName)
			return result
		}
	}

	result.Verdict = Valid
	return result
}

func buildChain(leaf *x509.Certificate, presented []*x509.Certificate) []*x509.Certificate {
	if len(presented) == 0 {
		return []*x509.Certificate{leaf}
	}
	if cert.Equal(presented[0], leaf) {
		return append([]*x509.Certificate(nil), presented...)
	}
	chain := make([]*x509.Certificate, 0, len(presented)+1)
	chain = append(chain, leaf)
	return append(chain, presented...)
}

func findDuplicate(chain []*x509.Certificate) *x509.Certificate {
	seen := make(map[[32]byte]bool, len(chain))
	for _, c := range chain {
		fp := cert.Fingerprint(c)
		if seen[fp] {
			return c
		}
		seen[fp] = true
	}
	return nil
}

func inAnchors(c *x509.Certificate, anchors []*x509.Certificate) bool {
	for _, a := range anchors {
		if cert.Equal(c, a) {
			return true
		}
	}
	return false
}
