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
	"crypto/x509/pkix"
	"testing"

	"github.com/stretchr/testify/assert"
)

// certWith builds an unrealistically minimal certificate carrying just the
// identity fields the matcher reads.
func certWith(cn string, dnsNames ...string) *x509.Certificate {
	return &x509.Certificate{
		Subject:  pkix.Name{CommonName: cn},
		DNSNames: dnsNames,
	}
}

func TestMatchHostnameWildcard(t *testing.T) {
	tests := []struct {
		name     string
		cert     *x509.Certificate
		hostname string
		want     bool
	}{
		{
			name:     "wildcard matches one label",
			cert:     certWith("", "*.example.com"),
			hostname: "sub.example.com",
			want:     true,
		},
		{
			name:     "wildcard does not cross label boundary",
			cert:     certWith("", "*.example.com"),
			hostname: "sub.sub.example.com",
			want:     false,
		},
		{
			name:     "wildcard never matches empty label",
			cert:     certWith("", "*.example.com"),
			hostname: "example.com",
			want:     false,
		},
		{
			name:     "exact SAN match",
			cert:     certWith("", "www.example.com"),
			hostname: "www.example.com",
			want:     true,
		},
		{
			name:     "case-insensitive",
			cert:     certWith("", "*.Example.COM"),
			hostname: "SUB.example.com",
			want:     true,
		},
		{
			name:     "trailing dot trimmed",
			cert:     certWith("", "www.example.com"),
			hostname: "www.example.com.",
			want:     true,
		},
		{
			name:     "partial-label wildcard rejected",
			cert:     certWith("", "w*.example.com"),
			hostname: "www.example.com",
			want:     false,
		},
		{
			name:     "non-leading wildcard rejected",
			cert:     certWith("", "sub.*.example.com"),
			hostname: "sub.x.example.com",
			want:     false,
		},
		{
			name:     "second SAN matches",
			cert:     certWith("", "other.example.org", "www.example.com"),
			hostname: "www.example.com",
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchHostname(tt.cert, tt.hostname))
		})
	}
}

func TestMatchHostnameCommonNameFallback(t *testing.T) {
	// No DNS SANs at all: the common name is consulted.
	cert := certWith("legacy.example.com")
	assert.True(t, MatchHostname(cert, "legacy.example.com"))
	assert.False(t, MatchHostname(cert, "other.example.com"))

	// Any DNS SAN present makes the SAN list exclusive, even when the
	// common name would have matched.
	cert = certWith("cn.example.com", "san.example.com")
	assert.False(t, MatchHostname(cert, "cn.example.com"))
	assert.True(t, MatchHostname(cert, "san.example.com"))
}

func TestMatchHostnameEdgeCases(t *testing.T) {
	assert.False(t, MatchHostname(nil, "example.com"))
	assert.False(t, MatchHostname(certWith("example.com"), ""))
	assert.False(t, MatchHostname(certWith(""), "example.com"))
}
