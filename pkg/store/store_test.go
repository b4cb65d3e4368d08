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

package store

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-certwatch/pkg/types"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"jks", FormatJKS, false},
		{"JKS", FormatJKS, false},
		{"pkcs12", FormatPKCS12, false},
		{"p12", FormatPKCS12, false},
		{"pfx", FormatPKCS12, false},
		{"pem", FormatPEMDir, false},
		{"dir", FormatPEMDir, false},
		{" pemdir ", FormatPEMDir, false},
		{"der", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		format, err := ParseFormat(tt.input)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnsupportedFormat, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, format, "input %q", tt.input)
	}
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "jks", FormatJKS.String())
	assert.Equal(t, "pkcs12", FormatPKCS12.String())
	assert.Equal(t, "pem", FormatPEMDir.String())
	assert.Equal(t, "unknown", Format(99).String())
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.bin")

	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0600))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)

	// Overwrite replaces the content and leaves no staging file behind.
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0600))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "store.bin", entries[0].Name())
}

func TestVerifyKeyMatch(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	otherKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject:      pkix.Name{CommonName: "keymatch.example.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(certDER)
	require.NoError(t, err)

	assert.NoError(t, VerifyKeyMatch(key, cert))
	assert.ErrorIs(t, VerifyKeyMatch(otherKey, cert), ErrKeyMismatch)
}

func TestValidateEntryKeyMismatch(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	otherKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject:      pkix.Name{CommonName: "entry.example.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(certDER)
	require.NoError(t, err)

	err = ValidateEntry(&types.StoreEntry{
		Kind:  types.PrivateKeyEntry,
		Chain: []*x509.Certificate{cert},
		Key:   otherKey,
	})
	assert.ErrorIs(t, err, ErrKeyMismatch)

	assert.NoError(t, ValidateEntry(&types.StoreEntry{
		Kind:  types.TrustedCertificate,
		Chain: []*x509.Certificate{cert},
	}))
}
