// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keyring.
//
// go-keyring is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// operationCount reads the current counter value for an operation/status pair.
func operationCount(operation, status string) float64 {
	return testutil.ToFloat64(OperationsTotal.WithLabelValues(operation, status))
}

// durationSamples reads the histogram sample count for an operation.
func durationSamples(t *testing.T, operation string) uint64 {
	t.Helper()
	obs, err := OperationDuration.GetMetricWithLabelValues(operation)
	require.NoError(t, err)

	var pb dto.Metric
	require.NoError(t, obs.(prometheus.Metric).Write(&pb))
	return pb.GetHistogram().GetSampleCount()
}

func TestRecordOperation(t *testing.T) {
	successBefore := operationCount(OpSign, StatusSuccess)
	errorBefore := operationCount(OpSign, StatusError)

	RecordOperation(OpSign, StatusSuccess)
	RecordOperation(OpSign, StatusSuccess)
	RecordOperation(OpSign, StatusError)

	assert.Equal(t, successBefore+2, operationCount(OpSign, StatusSuccess))
	assert.Equal(t, errorBefore+1, operationCount(OpSign, StatusError))
}

func TestRecordOperation_IndependentOperations(t *testing.T) {
	decryptBefore := operationCount(OpDecrypt, StatusSuccess)
	verifyBefore := operationCount(OpVerify, StatusSuccess)

	RecordOperation(OpDecrypt, StatusSuccess)

	assert.Equal(t, decryptBefore+1, operationCount(OpDecrypt, StatusSuccess))
	assert.Equal(t, verifyBefore, operationCount(OpVerify, StatusSuccess))
}

func TestObserveOperationDuration(t *testing.T) {
	before := durationSamples(t, OpDecrypt)

	ObserveOperationDuration(OpDecrypt, 0.012)
	ObserveOperationDuration(OpDecrypt, 0.003)

	assert.Equal(t, before+2, durationSamples(t, OpDecrypt))
}

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(
		HTTPRequestsTotal.WithLabelValues(ListenerHTTPS, "POST", "200"))

	RecordHTTPRequest(ListenerHTTPS, "POST", "200", 0.05)

	assert.Equal(t, before+1, testutil.ToFloat64(
		HTTPRequestsTotal.WithLabelValues(ListenerHTTPS, "POST", "200")))
}

func TestSetKeysTotal(t *testing.T) {
	SetKeysTotal(42)
	assert.Equal(t, float64(42), testutil.ToFloat64(KeysTotal))

	SetKeysTotal(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(KeysTotal))
}

func TestDisable_SuppressesRecording(t *testing.T) {
	SetKeysTotal(7)

	Disable()
	defer Enable()
	require.False(t, IsEnabled())

	countBefore := operationCount(OpGet, StatusSuccess)
	samplesBefore := durationSamples(t, OpGet)

	RecordOperation(OpGet, StatusSuccess)
	ObserveOperationDuration(OpGet, 0.001)
	RecordHTTPRequest(ListenerHTTP, "GET", "200", 0.01)
	SetKeysTotal(999)

	assert.Equal(t, countBefore, operationCount(OpGet, StatusSuccess))
	assert.Equal(t, samplesBefore, durationSamples(t, OpGet))
	assert.Equal(t, float64(7), testutil.ToFloat64(KeysTotal))
}

func TestEnableDisable(t *testing.T) {
	Disable()
	assert.False(t, IsEnabled())

	Enable()
	assert.True(t, IsEnabled())
}
