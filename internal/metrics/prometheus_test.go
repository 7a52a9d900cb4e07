// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCacheAccess_Hit(t *testing.T) {
	CacheAccessTotal.Reset()

	RecordCacheAccess("hit", 5*time.Millisecond)

	counter := CacheAccessTotal.WithLabelValues("hit")
	assert.Equal(t, float64(1), testutil.ToFloat64(counter))

	histogram := CacheAccessDurationSeconds.WithLabelValues("hit")
	assert.Equal(t, uint64(1), testutil.CollectAndCount(histogram))
}

func TestRecordCacheAccess_MissAndFailure(t *testing.T) {
	CacheAccessTotal.Reset()

	RecordCacheAccess("miss", 200*time.Millisecond)
	RecordCacheAccess("miss_failed", 50*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(CacheAccessTotal.WithLabelValues("miss")))
	assert.Equal(t, float64(1), testutil.ToFloat64(CacheAccessTotal.WithLabelValues("miss_failed")))
}

func TestRecordPurgeResult(t *testing.T) {
	beforeEvicted := testutil.ToFloat64(PurgeEvictedEntriesTotal)
	beforeSkipped := testutil.ToFloat64(PurgeSkippedEntriesTotal)
	beforeFreed := testutil.ToFloat64(PurgeEvictedBytesTotal)

	RecordPurgeResult(3, 1024, 1)

	assert.Equal(t, beforeEvicted+3, testutil.ToFloat64(PurgeEvictedEntriesTotal))
	assert.Equal(t, beforeSkipped+1, testutil.ToFloat64(PurgeSkippedEntriesTotal))
	assert.Equal(t, beforeFreed+1024, testutil.ToFloat64(PurgeEvictedBytesTotal))
}

func TestSetCacheStats(t *testing.T) {
	SetCacheStats(7, 2048)

	assert.Equal(t, float64(7), testutil.ToFloat64(CacheEntriesGauge))
	assert.Equal(t, float64(2048), testutil.ToFloat64(CacheBytesGauge))
}
