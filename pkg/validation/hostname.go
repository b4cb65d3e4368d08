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
	"strings"
)

// MatchHostname reports whether the certificate identifies the requested
// hostname.
//
// When the certificate carries any DNS-type subject alternative names, only
// those are considered and the subject common name is ignored. The common
// name is consulted only when no DNS SANs exist at all; this fallback is
// legacy behavior retained for compatibility with older certificates and is
// covered explicitly by tests.
//
// A name may contain at most one wildcard, as the entire leftmost label.
// The wildcard matches exactly one hostname label and never crosses a label
// boundary: *.example.com matches a.example.com but neither
// a.b.example.com nor example.com. Matching is case-insensitive per label.
func MatchHostname(cert *x509.Certificate, hostname string) bool {
	if cert == nil || hostname == "" {
		return false
	}

	host := strings.TrimSuffix(strings.ToLower(hostname), ".")

	if len(cert.DNSNames) > 0 {
		for _, san := range cert.DNSNames {
			if matchPattern(san, host) {
				return true
			}
		}
		return false
	}

	return matchPattern(cert.Subject.CommonName, host)
}

// matchPattern matches one certificate name pattern against a hostname that
// has already been lowercased.
func matchPattern(pattern, host string) bool {
	pattern = strings.TrimSuffix(strings.ToLower(pattern), ".")
	if pattern == "" || host == "" {
		return false
	}

	patternLabels := strings.Split(pattern, ".")
	hostLabels := strings.Split(host, ".")

	if len(patternLabels) != len(hostLabels) {
		return false
	}

	for i, p := range patternLabels {
		if p == "*" && i == 0 {
			// Wildcard consumes exactly the one label it occupies.
			if hostLabels[i] == "" {
				return false
			}
			continue
		}
		if strings.Contains(p, "*") {
			// Partial-label and non-leading wildcards are not honored.
			return false
		}
		if p != hostLabels[i] {
			return false
		}
	}

	return true
}
