// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheAccessTotal counts Ensure/Open outcomes by result: hit, miss,
	// or miss_failed (fetch failed).
	//
	// Alert threshold example:
	//   Alert when miss_failed rate exceeds 10%:
	//   rate(cache_access_total{result="miss_failed"}[5m]) / rate(cache_access_total[5m]) > 0.1
	CacheAccessTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_access_total",
			Help: "Total number of Ensure/Open calls by result (hit, miss, miss_failed)",
		},
		[]string{"result"},
	)

	// CacheAccessDurationSeconds measures how long Ensure/Open took,
	// including any network fetch on a miss.
	CacheAccessDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_access_duration_seconds",
			Help:    "Duration of Ensure/Open calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	// PurgeEvictedEntriesTotal counts entries removed by Purge.
	PurgeEvictedEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "purge_evicted_entries_total",
			Help: "Total number of cache entries evicted by purge",
		},
	)

	// PurgeEvictedBytesTotal counts bytes freed by Purge.
	PurgeEvictedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "purge_evicted_bytes_total",
			Help: "Total number of bytes freed by purge",
		},
	)

	// PurgeSkippedEntriesTotal counts eviction candidates skipped because
	// their per-entry lock was busy.
	PurgeSkippedEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "purge_skipped_entries_total",
			Help: "Total number of purge candidates skipped due to a busy lock",
		},
	)

	// CacheEntriesGauge and CacheBytesGauge report the cache's last-known
	// entry count and total payload size, refreshed at the end of each
	// Purge; Ensure does not update them.
	CacheEntriesGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of entries in the cache",
		},
	)
	CacheBytesGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_bytes",
			Help: "Current total payload size of the cache in bytes",
		},
	)
)

// RecordCacheAccess records the outcome of an Ensure/Open call.
func RecordCacheAccess(result string, duration time.Duration) {
	CacheAccessTotal.WithLabelValues(result).Inc()
	CacheAccessDurationSeconds.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordPurgeResult records the outcome of a Purge call.
func RecordPurgeResult(evicted int, bytesFreed int64, skipped int) {
	PurgeEvictedEntriesTotal.Add(float64(evicted))
	PurgeEvictedBytesTotal.Add(float64(bytesFreed))
	PurgeSkippedEntriesTotal.Add(float64(skipped))
}

// SetCacheStats refreshes the current entry-count and total-size gauges.
func SetCacheStats(entries int, bytes int64) {
	CacheEntriesGauge.Set(float64(entries))
	CacheBytesGauge.Set(float64(bytes))
}
