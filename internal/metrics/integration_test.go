// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

//go:build integration
// +build integration

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMetricsEndpoint verifies that cache metrics are properly exposed via
// HTTP in the format the daemon's /metrics handler serves.
func TestMetricsEndpoint(t *testing.T) {
	CacheAccessTotal.Reset()

	RecordCacheAccess("hit", 5*time.Millisecond)
	RecordCacheAccess("miss", 150*time.Millisecond)
	RecordCacheAccess("miss_failed", 10*time.Millisecond)
	SetCacheStats(12, 4096)

	server := httptest.NewServer(promhttp.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	metricsOutput := string(body)

	assert.Contains(t, metricsOutput, "cache_access_total")
	assert.Contains(t, metricsOutput, "cache_access_duration_seconds")
	assert.Contains(t, metricsOutput, "cache_entries")
	assert.Contains(t, metricsOutput, "cache_bytes")

	assert.Contains(t, metricsOutput, `cache_access_total{result="hit"} 1`)
	assert.Contains(t, metricsOutput, `cache_access_total{result="miss"} 1`)
	assert.Contains(t, metricsOutput, `cache_access_total{result="miss_failed"} 1`)
	assert.Contains(t, metricsOutput, "cache_entries 12")
	assert.Contains(t, metricsOutput, "cache_bytes 4096")
}
