// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, int64(4<<30), cfg.MaxSizeBytes)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, defaultRequestTimeout, cfg.RequestTimeout)
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/tmp/mycache", 1024)
	assert.Equal(t, "/tmp/mycache", cfg.CacheRoot)
	assert.Equal(t, int64(1024), cfg.MaxSizeBytes)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestEnvParser(t *testing.T) {
	t.Setenv("DLCACHE_ROOT", "/var/dlcache")
	t.Setenv("DLCACHE_MAX_SIZE_BYTES", "2048")
	t.Setenv("DLCACHE_LOG_LEVEL", "debug")

	cfg := &Config{}
	require.NoError(t, EnvParser{}.Parse(cfg))

	assert.Equal(t, "/var/dlcache", cfg.CacheRoot)
	assert.Equal(t, int64(2048), cfg.MaxSizeBytes)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestEnvParser_BadInteger(t *testing.T) {
	t.Setenv("DLCACHE_MAX_SIZE_BYTES", "not-a-number")
	cfg := &Config{}
	err := EnvParser{}.Parse(cfg)
	require.Error(t, err)
}

func TestParseTOML(t *testing.T) {
	cfg := &Config{}
	err := cfg.parseTOML(`
# comment
cache_root = "/data/dlcache"
max_size_bytes = 10485760
max_age_seconds = 3600
log_level = "warn"
`)
	require.NoError(t, err)
	assert.Equal(t, "/data/dlcache", cfg.CacheRoot)
	assert.Equal(t, int64(10485760), cfg.MaxSizeBytes)
	assert.Equal(t, 3600, cfg.MaxAgeSeconds)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".dlcache.toml")
	content := `cache_root = "` + filepath.Join(dir, "cache") + `"` + "\nlog_level = \"debug\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := &Config{}
	require.NoError(t, cfg.loadTOML(path))
	assert.Equal(t, filepath.Join(dir, "cache"), cfg.CacheRoot)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestMaxAge(t *testing.T) {
	cfg := &Config{MaxAgeSeconds: 120}
	assert.Equal(t, 120, int(cfg.MaxAge().Seconds()))
}
