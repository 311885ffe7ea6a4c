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

// Package metrics provides Prometheus instrumentation for go-keyring
// operations: per-operation counters, cryptographic latency histograms
// and HTTP request metrics for both listeners.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric exported by the keyring server.
const Namespace = "keyring"

// Label names.
const (
	LabelOperation  = "operation"
	LabelStatus     = "status"
	LabelListener   = "listener"
	LabelMethod     = "method"
	LabelStatusCode = "status_code"
)

// Values for the status label.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Values for the operation label, one per keyring service operation.
const (
	OpAdd     = "add"
	OpPut     = "put"
	OpGet     = "get"
	OpDelete  = "delete"
	OpList    = "list"
	OpSign    = "sign"
	OpVerify  = "verify"
	OpDecrypt = "decrypt"
)

func gauge(name, help string) prometheus.Gauge {
	return promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      name,
		Help:      help,
	})
}

var (
	// OperationsTotal counts keyring operations by type and outcome.
	// Incremented through RecordOperation.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "operations_total",
		Help:      "Total number of keyring operations by type and status",
	}, []string{LabelOperation, LabelStatus})

	// OperationDuration tracks keyring operation latency in seconds.
	// The buckets cover the RSA latency range, from sub-millisecond
	// verifies up to multi-second 4096-bit signs on slow hardware.
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of keyring operations in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{LabelOperation})

	// HTTPRequestsTotal counts HTTP requests by listener, method and
	// status code.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests by listener, method and status code",
	}, []string{LabelListener, LabelMethod, LabelStatusCode})

	// HTTPRequestDuration tracks HTTP request latency per listener.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{LabelListener, LabelMethod})

	// Process gauges updated by the resource collector.
	Goroutines       = gauge("goroutines", "Current number of goroutines")
	MemoryAllocBytes = gauge("memory_alloc_bytes", "Current bytes of allocated heap objects")
	MemorySysBytes   = gauge("memory_sys_bytes", "Total bytes of memory obtained from the OS")
	ServerUptime     = gauge("server_uptime_seconds", "Server uptime in seconds since startup")

	// KeysTotal is the number of keys currently stored.
	KeysTotal = gauge("keys_total", "Number of keys currently stored")
)

// enabled gates all recording functions. On by default; Disable turns
// collection off without unregistering the collectors.
var enabled atomic.Bool

func init() {
	enabled.Store(true)
}

// RecordOperation increments the operation counter. Use the Op* and
// Status* constants for the labels.
func RecordOperation(operation, status string) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, status).Inc()
}

// ObserveOperationDuration records how long a keyring operation took.
func ObserveOperationDuration(operation string, seconds float64) {
	if !enabled.Load() {
		return
	}
	OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordHTTPRequest records one served request. The listener label is
// ListenerHTTP or ListenerHTTPS; duration is in seconds.
func RecordHTTPRequest(listener, method, statusCode string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(listener, method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(listener, method).Observe(duration)
}

// SetKeysTotal sets the stored key gauge.
func SetKeysTotal(count float64) {
	if !enabled.Load() {
		return
	}
	KeysTotal.Set(count)
}

// Enable turns metrics collection on.
func Enable() {
	enabled.Store(true)
}

// Disable turns metrics collection off. Recording functions become
// no-ops until Enable is called.
func Disable() {
	enabled.Store(false)
}

// IsEnabled reports whether metrics collection is active.
func IsEnabled() bool {
	return enabled.Load()
}
