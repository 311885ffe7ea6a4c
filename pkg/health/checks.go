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

package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-keyring/pkg/storage"
)

// storageCheckTimeout bounds how long a readiness probe may spend
// talking to the key store.
const storageCheckTimeout = 2 * time.Second

// StorageCheck returns a readiness check that verifies the key store is
// reachable by listing stored identifiers.
func StorageCheck(backend storage.Backend) CheckFunc {
	return func(ctx context.Context) CheckResult {
		ctx, cancel := context.WithTimeout(ctx, storageCheckTimeout)
		defer cancel()

		ids, err := backend.List(ctx)
		if err != nil {
			return CheckResult{
				Name:    "storage",
				Status:  StatusUnhealthy,
				Message: "key store unreachable",
				Error:   err.Error(),
			}
		}
		return CheckResult{
			Name:    "storage",
			Status:  StatusHealthy,
			Message: fmt.Sprintf("key store reachable (%d keys)", len(ids)),
		}
	}
}
