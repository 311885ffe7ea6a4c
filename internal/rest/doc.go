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

// Package rest implements the HTTP API for the keyring service.
//
// Requests under /api/v1 map to keyring operations; /health exposes
// Kubernetes-style probes and /metrics the Prometheus registry. Every
// other path is served from the configured static-asset directory with
// index.html as the default document.
package rest
