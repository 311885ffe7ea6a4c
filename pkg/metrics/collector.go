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
	"context"
	"runtime"
	"time"
)

// KeyCounter reports the number of keys currently stored. Implementations
// should be cheap; the collector invokes it on every tick.
type KeyCounter func(ctx context.Context) (int, error)

// ResourceCollector refreshes the process gauges (goroutines, memory,
// uptime) and the stored key count on a fixed interval.
type ResourceCollector struct {
	ctx      context.Context
	cancel   context.CancelFunc
	interval time.Duration
	started  time.Time
	keyCount KeyCounter
}

// NewResourceCollector builds a collector that refreshes gauges every
// interval once Start is called. keyCount may be nil when the key gauge
// is not wanted. The collector stops when Stop is called or ctx is
// cancelled.
func NewResourceCollector(ctx context.Context, interval time.Duration, keyCount KeyCounter) *ResourceCollector {
	collectorCtx, cancel := context.WithCancel(ctx)
	return &ResourceCollector{
		ctx:      collectorCtx,
		cancel:   cancel,
		interval: interval,
		started:  time.Now(),
		keyCount: keyCount,
	}
}

// Start collects immediately and then on every tick until the collector
// is stopped. It blocks; run it in a goroutine.
func (rc *ResourceCollector) Start() {
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	for {
		rc.collect()
		select {
		case <-rc.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop halts the collector.
func (rc *ResourceCollector) Stop() {
	rc.cancel()
}

func (rc *ResourceCollector) collect() {
	if !IsEnabled() {
		return
	}

	setProcessGauges()
	ServerUptime.Set(time.Since(rc.started).Seconds())

	if rc.keyCount != nil {
		if n, err := rc.keyCount(rc.ctx); err == nil {
			SetKeysTotal(float64(n))
		}
	}
}

// setProcessGauges samples the runtime and updates the process gauges.
func setProcessGauges() {
	Goroutines.Set(float64(runtime.NumGoroutine()))

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	MemoryAllocBytes.Set(float64(memStats.Alloc))
	MemorySysBytes.Set(float64(memStats.Sys))
}

// CollectOnce refreshes the process gauges immediately, outside of any
// collector's schedule.
func CollectOnce() {
	if !IsEnabled() {
		return
	}
	setProcessGauges()
}

// StartResourceCollector creates a collector and starts it in a new
// goroutine, returning it for lifecycle management.
func StartResourceCollector(ctx context.Context, interval time.Duration, keyCount KeyCounter) *ResourceCollector {
	collector := NewResourceCollector(ctx, interval, keyCount)
	go collector.Start()
	return collector
}
