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

package remote

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateServerCert(t *testing.T, cn string) tls.Certificate {
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
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{cn},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	return tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  key,
	}
}

// startTLSServer serves TLS handshakes on a loopback port until the test
// ends and returns the port.
func startTLSServer(t *testing.T, cert tls.Certificate) int {
	t.Helper()

	listener, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{cert},
	})
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func() {
				if tlsConn, ok := conn.(*tls.Conn); ok {
					_ = tlsConn.Handshake()
				}
				conn.Close()
			}()
		}
	}()

	return listener.Addr().(*net.TCPAddr).Port
}

func TestFetchReturnsPresentedChain(t *testing.T) {
	cert := generateServerCert(t, "localhost")
	port := startTLSServer(t, cert)

	fetcher := NewFetcher(5*time.Second, nil)
	result, err := fetcher.Fetch(context.Background(), "127.0.0.1", port)
	require.NoError(t, err)

	require.Len(t, result.Chain, 1)
	assert.Equal(t, result.Chain[0], result.Leaf)
	assert.Equal(t, "localhost", result.Leaf.Subject.CommonName)
}

func TestFetchConnectionRefused(t *testing.T) {
	// Grab a free port and close it so nothing is listening.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	fetcher := NewFetcher(5*time.Second, nil)
	_, err = fetcher.Fetch(context.Background(), "127.0.0.1", port)

	assert.ErrorIs(t, err, ErrConnectionRefused)
}

func TestFetchDNSResolutionFailure(t *testing.T) {
	fetcher := NewFetcher(5*time.Second, nil)
	_, err := fetcher.Fetch(context.Background(), "does-not-exist.invalid", 443)

	assert.ErrorIs(t, err, ErrDNSResolution)
}

func TestFetchTimeoutOnSilentPeer(t *testing.T) {
	// A peer that accepts the connection and then sends nothing.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	go func() {
		var conns []net.Conn
		defer func() {
			for _, c := range conns {
				c.Close()
			}
		}()
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			// Hold the connection open without handshaking.
			conns = append(conns, conn)
		}
	}()

	port := listener.Addr().(*net.TCPAddr).Port
	timeout := 500 * time.Millisecond

	fetcher := NewFetcher(timeout, nil)
	start := time.Now()
	_, err = fetcher.Fetch(context.Background(), "127.0.0.1", port)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrConnectionTimedOut)
	assert.Less(t, elapsed, 5*time.Second, "fetch must not block past its budget")
}

func TestFetchHandshakeFailure(t *testing.T) {
	// A peer that accepts and immediately closes.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	port := listener.Addr().(*net.TCPAddr).Port

	fetcher := NewFetcher(5*time.Second, nil)
	_, err = fetcher.Fetch(context.Background(), "127.0.0.1", port)

	require.Error(t, err)
	var handshakeErr *HandshakeError
	assert.ErrorAs(t, err, &handshakeErr)
}

func TestFetchHonorsCallerContext(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	port := listener.Addr().(*net.TCPAddr).Port

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := NewFetcher(5*time.Second, nil)
	_, err = fetcher.Fetch(ctx, "127.0.0.1", port)

	assert.Error(t, err)
}

func TestNewFetcherDefaults(t *testing.T) {
	fetcher := NewFetcher(0, nil)
	assert.Equal(t, DefaultTimeout, fetcher.timeout)
	assert.NotNil(t, fetcher.logger)
}
