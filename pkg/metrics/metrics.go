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

// Package metrics provides Prometheus instrumentation for certificate
// checks and store operations. It exposes operation counters, check
// duration histograms, and error counters for monitoring check throughput
// and failure modes.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all certwatch metrics
	Namespace = "certwatch"

	// Label names
	LabelOperation = "operation"
	LabelFormat    = "format"
	LabelStatus    = "status"
	LabelVerdict   = "verdict"
	LabelErrorType = "error_type"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Operation names
	OpCheckHost = "check_host"
	OpFetch     = "fetch"
	OpValidate  = "validate"
	OpOpen      = "open"
	OpSave      = "save"
	OpAdd       = "add"
	OpRemove    = "remove"
	OpExport    = "export"
	OpConvert   = "convert"
)

var (
	// ChecksTotal tracks completed host checks by verdict.
	// Use RecordCheck to increment this counter with the check duration.
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "checks_total",
			Help:      "Total number of host certificate checks by verdict",
		},
		[]string{LabelVerdict},
	)

	// CheckDuration tracks the end-to-end duration of host checks in seconds.
	// Buckets are sized for network round trips plus a TLS handshake.
	CheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "check_duration_seconds",
			Help:      "Duration of host certificate checks in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{LabelVerdict},
	)

	// StoreOperationsTotal tracks store operations by type, format, and status.
	// Use RecordStoreOperation to increment this counter with the appropriate labels.
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "store_operations_total",
			Help:      "Total number of store operations by type, format, and status",
		},
		[]string{LabelOperation, LabelFormat, LabelStatus},
	)

	// ErrorsTotal tracks errors by operation and error type.
	// Error types should be specific (e.g., "bad_password", "dns_resolution", "timeout").
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation and error type",
		},
		[]string{LabelOperation, LabelErrorType},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordCheck records a completed host check with its verdict and duration.
//
// Parameters:
//   - verdict: The validation verdict string (e.g., "Valid", "Expired")
//   - duration: The check duration in seconds
func RecordCheck(verdict string, duration float64) {
	if !enabled.Load() {
		return
	}
	ChecksTotal.WithLabelValues(verdict).Inc()
	CheckDuration.WithLabelValues(verdict).Observe(duration)
}

// RecordStoreOperation records a store operation outcome.
//
// Parameters:
//   - operation: The operation name (use Op* constants)
//   - format: The store format identifier (e.g., "jks", "pkcs12", "pemdir")
//   - status: The operation status (use Status* constants)
func RecordStoreOperation(operation, format, status string) {
	if !enabled.Load() {
		return
	}
	StoreOperationsTotal.WithLabelValues(operation, format, status).Inc()
}

// RecordError records an error event with context about where it occurred.
//
// Parameters:
//   - operation: The operation during which the error occurred (use Op* constants)
//   - errorType: A specific error type identifier (e.g., "bad_password", "timeout")
func RecordError(operation, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
