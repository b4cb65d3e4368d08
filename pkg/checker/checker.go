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

// Package checker composes the fetch, validation, and store layers into the
// operations exposed to CLI, TUI, and configuration collaborators: live host
// checks, bounded-parallel batch checks, and store manipulation.
package checker

import (
	"context"
	"crypto/x509"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jeremyhahn/go-certwatch/pkg/cert"
	"github.com/jeremyhahn/go-certwatch/pkg/logging"
	"github.com/jeremyhahn/go-certwatch/pkg/metrics"
	"github.com/jeremyhahn/go-certwatch/pkg/remote"
	"github.com/jeremyhahn/go-certwatch/pkg/validation"
)

const (
	// DefaultWarningDays is the expiry warning window applied when the
	// checker is constructed with a non-positive value.
	DefaultWarningDays = 30

	// DefaultParallelism bounds batch checks when the caller passes a
	// non-positive limit.
	DefaultParallelism = 8
)

// Target identifies one host to check.
type Target struct {
	Host string
	Port int
}

// HostResult is the outcome of checking one host. When Err is set the check
// never reached validation: Status is cert.StatusUnknown and the remaining
// fields are zero.
type HostResult struct {
	Host          string
	Port          int
	Status        cert.Status
	Verdict       validation.Verdict
	Summary       cert.Summary
	DaysRemaining int
	HostnameValid bool
	Reason        string
	Err           error
}

// Checker is the engine facade. Anchors are the trust anchors used for
// chain validation; warningDays is the expiry warning window for host
// checks.
//
// A Checker is safe for concurrent use: it holds no mutable state.
type Checker struct {
	anchors     []*x509.Certificate
	warningDays int
	logger      *logging.Logger
}

// New creates a checker validating against the given trust anchors.
func New(anchors []*x509.Certificate, warningDays int, logger *logging.Logger) *Checker {
	if warningDays <= 0 {
		warningDays = DefaultWarningDays
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Checker{
		anchors:     anchors,
		warningDays: warningDays,
		logger:      logger,
	}
}

// CheckHost fetches the certificate chain from host:port and validates it:
// chain verification against the checker's anchors, hostname match, and
// expiry classification with the warning window. The timeout bounds the
// whole fetch; validation itself is local and immediate.
//
// Validation verdicts are results carried in HostResult, not errors. Err is
// set only when the chain could not be obtained at all.
func (c *Checker) CheckHost(ctx context.Context, host string, port int, timeout time.Duration) HostResult {
	start := time.Now()
	result := HostResult{Host: host, Port: port}

	fetcher := remote.NewFetcher(timeout, c.logger)
	fetched, err := fetcher.Fetch(ctx, host, port)
	if err != nil {
		result.Status = cert.StatusUnknown
		result.Err = err
		metrics.RecordError(metrics.OpCheckHost, errorType(err))
		return result
	}

	now := time.Now()
	verdict := validation.Validate(fetched.Leaf, fetched.Chain, c.anchors, now)
	hostnameValid := validation.MatchHostname(fetched.Leaf, host)
	if verdict.Valid() && !hostnameValid {
		verdict.Verdict = validation.HostnameMismatch
		verdict.Reason = "certificate does not identify " + host
	}

	result.Verdict = verdict.Verdict
	result.Reason = verdict.Reason
	result.HostnameValid = hostnameValid
	result.Summary = cert.Summarize(fetched.Leaf)
	result.DaysRemaining = cert.DaysRemaining(fetched.Leaf, now)
	result.Status = cert.ExpiryStatus(fetched.Leaf, now, c.warningDays)

	metrics.RecordCheck(verdict.Verdict.String(), time.Since(start).Seconds())
	c.logger.Debugf("checked %s:%d: %s (%d days remaining)",
		host, port, verdict.Verdict, result.DaysRemaining)
	return result
}

// CheckHosts checks every target with at most parallelism fetches in
// flight. Results are returned in target order regardless of completion
// order, and one host's failure never aborts the rest of the batch.
func (c *Checker) CheckHosts(ctx context.Context, targets []Target, timeout time.Duration, parallelism int) []HostResult {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	results := make([]HostResult, len(targets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			results[i] = c.CheckHost(ctx, target.Host, target.Port, timeout)
			return nil
		})
	}
	// Workers never return errors; per-host failures live in the results.
	_ = g.Wait()
	return results
}

// errorType maps a fetch failure to a metrics label.
func errorType(err error) string {
	var handshakeErr *remote.HandshakeError
	switch {
	case errors.Is(err, remote.ErrDNSResolution):
		return "dns_resolution"
	case errors.Is(err, remote.ErrConnectionTimedOut):
		return "timeout"
	case errors.Is(err, remote.ErrConnectionRefused):
		return "connection_refused"
	case errors.Is(err, remote.ErrNoCertificates):
		return "no_certificates"
	case errors.As(err, &handshakeErr):
		return "handshake"
	default:
		return "other"
	}
}
