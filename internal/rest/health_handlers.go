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

package rest

import (
	"net/http"

	"github.com/jeremyhahn/go-keyring/pkg/health"
)

// HealthCheckResponse is the body of the probe endpoints. Checks is
// populated for readiness only.
type HealthCheckResponse struct {
	Status  health.Status        `json:"status"`
	Message string               `json:"message,omitempty"`
	Checks  []health.CheckResult `json:"checks,omitempty"`
}

// writeProbe renders a probe result, mapping unhealthy to 503 so
// orchestrators act on the status code alone. Degraded stays 200: the
// keyring is still serving, just with a slow or partial dependency.
func writeProbe(w http.ResponseWriter, resp HealthCheckResponse) {
	statusCode := http.StatusOK
	if resp.Status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, resp, statusCode)
}

// LivenessHandler handles GET /health/live. A live process always
// answers 200; a checker is not required.
func (h *HandlerContext) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	if h.HealthChecker == nil {
		writeProbe(w, HealthCheckResponse{Status: health.StatusHealthy, Message: "keyring server is alive"})
		return
	}

	result := h.HealthChecker.Live(r.Context())
	writeProbe(w, HealthCheckResponse{Status: result.Status, Message: result.Message})
}

// ReadinessHandler handles GET /health/ready by running the registered
// dependency checks (the key store probe, for a default deployment) and
// aggregating their status.
func (h *HandlerContext) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if h.HealthChecker == nil {
		writeProbe(w, HealthCheckResponse{Status: health.StatusHealthy, Message: "Service is ready"})
		return
	}

	results := h.HealthChecker.Ready(r.Context())
	overall := health.AggregateStatus(results)

	resp := HealthCheckResponse{Status: overall, Checks: results}
	switch overall {
	case health.StatusHealthy:
		resp.Message = "All checks passed"
	case health.StatusDegraded:
		resp.Message = "Service is degraded"
	case health.StatusUnhealthy:
		resp.Message = "One or more checks failed"
	}
	writeProbe(w, resp)
}

// StartupHandler handles GET /health/startup. It reports 503 until the
// server marks initialization complete, which gates the other probes.
func (h *HandlerContext) StartupHandler(w http.ResponseWriter, r *http.Request) {
	if h.HealthChecker == nil {
		writeProbe(w, HealthCheckResponse{Status: health.StatusHealthy, Message: "Service has started"})
		return
	}

	result := h.HealthChecker.Startup(r.Context())
	writeProbe(w, HealthCheckResponse{Status: result.Status, Message: result.Message})
}
