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

// Package remote retrieves the certificate chain presented by a live TLS
// endpoint. The handshake is driven only far enough to obtain the peer's
// certificates; no application data is exchanged and the presented chain is
// not verified here. A single timeout bounds DNS resolution, connection
// establishment and the handshake combined.
package remote

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/jeremyhahn/go-certwatch/pkg/logging"
)

var (
	// ErrDNSResolution is returned when the host name cannot be resolved.
	ErrDNSResolution = errors.New("remote: dns resolution failed")

	// ErrConnectionTimedOut is returned when the combined time budget for
	// resolution, connection and handshake is exceeded at any stage.
	ErrConnectionTimedOut = errors.New("remote: connection timed out")

	// ErrConnectionRefused is returned when the peer actively refuses the
	// connection. Retrying a definitively refused connection has no value,
	// so no retry is performed here.
	ErrConnectionRefused = errors.New("remote: connection refused")

	// ErrNoCertificates is returned when the handshake completes but the
	// peer presented no certificates.
	ErrNoCertificates = errors.New("remote: peer presented no certificates")
)

// HandshakeError is returned when the TLS handshake fails for a reason
// other than the time budget.
type HandshakeError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *HandshakeError) Error() string {
	return fmt.Sprintf("remote: handshake failed: %s", e.Reason)
}

// Unwrap returns the underlying handshake error.
func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// Result is the certificate chain presented by the peer, leaf first.
type Result struct {
	// Leaf is the end-entity certificate identifying the peer.
	Leaf *x509.Certificate

	// Chain is the full presented chain including the leaf, in the order
	// the peer sent it. It may omit the root; roots are usually not sent.
	Chain []*x509.Certificate
}

// Fetcher retrieves peer certificates from TLS endpoints.
type Fetcher struct {
	timeout time.Duration
	logger  *logging.Logger
}

// DefaultTimeout bounds a fetch when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// NewFetcher creates a Fetcher with the given per-fetch time budget.
// A zero or negative timeout falls back to DefaultTimeout.
func NewFetcher(timeout time.Duration, logger *logging.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Fetcher{timeout: timeout, logger: logger}
}

// Fetch connects to host:port, completes a TLS handshake without verifying
// the peer, and returns the presented certificate chain. The connection is
// closed on every exit path before returning, and no call blocks beyond the
// configured timeout regardless of peer behavior.
func (f *Fetcher) Fetch(ctx context.Context, host string, port int) (*Result, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	deadline := time.Now().Add(f.timeout)

	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	f.logger.Debug("fetching peer certificates", "addr", addr, "timeout", f.timeout)

	dialer := &net.Dialer{Deadline: deadline}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, classifyDialError(addr, err)
	}

	// The deadline also covers a peer that accepts and then sends nothing
	// during the handshake.
	if err := rawConn.SetDeadline(deadline); err != nil {
		rawConn.Close()
		return nil, fmt.Errorf("remote: %s: %w", addr, err)
	}

	// Certificate retrieval must succeed even when the presented chain
	// would not verify; validation is the caller's concern.
	conn := tls.Client(rawConn, &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: true,
	})
	defer conn.Close()

	if err := conn.HandshakeContext(ctx); err != nil {
		if isTimeout(err) || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s after %s", ErrConnectionTimedOut, addr, f.timeout)
		}
		return nil, &HandshakeError{Reason: err.Error(), Err: err}
	}

	peerCerts := conn.ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCertificates, addr)
	}

	chain := make([]*x509.Certificate, len(peerCerts))
	copy(chain, peerCerts)

	f.logger.Debug("fetched peer certificates", "addr", addr, "chain_length", len(chain))

	return &Result{Leaf: chain[0], Chain: chain}, nil
}

// classifyDialError maps a dial failure onto the fetch failure taxonomy.
// Exceeding the time budget during resolution or connection is reported as
// a timeout, not a stage-specific error, so callers get a uniform
// "too slow" signal.
func classifyDialError(addr string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %s", ErrConnectionTimedOut, addr)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return fmt.Errorf("%w: %s", ErrConnectionTimedOut, addr)
		}
		return fmt.Errorf("%w: %s: %s", ErrDNSResolution, addr, dnsErr.Name)
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w: %s", ErrConnectionRefused, addr)
	}

	return fmt.Errorf("remote: %s: %w", addr, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
