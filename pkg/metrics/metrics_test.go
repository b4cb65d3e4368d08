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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCheck(t *testing.T) {
	Enable()

	before := testutil.ToFloat64(ChecksTotal.WithLabelValues("valid"))
	RecordCheck("valid", 0.25)
	after := testutil.ToFloat64(ChecksTotal.WithLabelValues("valid"))

	assert.Equal(t, before+1, after)
}

func TestRecordStoreOperation(t *testing.T) {
	Enable()

	before := testutil.ToFloat64(StoreOperationsTotal.WithLabelValues(OpOpen, "jks", StatusSuccess))
	RecordStoreOperation(OpOpen, "jks", StatusSuccess)
	after := testutil.ToFloat64(StoreOperationsTotal.WithLabelValues(OpOpen, "jks", StatusSuccess))

	assert.Equal(t, before+1, after)
}

func TestRecordError(t *testing.T) {
	Enable()

	before := testutil.ToFloat64(ErrorsTotal.WithLabelValues(OpCheckHost, "timeout"))
	RecordError(OpCheckHost, "timeout")
	after := testutil.ToFloat64(ErrorsTotal.WithLabelValues(OpCheckHost, "timeout"))

	assert.Equal(t, before+1, after)
}

func TestDisableSuppressesRecording(t *testing.T) {
	Disable()
	defer Enable()

	assert.False(t, IsEnabled())

	before := testutil.ToFloat64(ErrorsTotal.WithLabelValues(OpFetch, "dns_resolution"))
	RecordError(OpFetch, "dns_resolution")
	after := testutil.ToFloat64(ErrorsTotal.WithLabelValues(OpFetch, "dns_resolution"))

	assert.Equal(t, before, after)
}
