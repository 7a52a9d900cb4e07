// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package config loads cache configuration from environment variables, a
// TOML file, and built-in defaults, in that order of precedence, then
// validates the result.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dotandev/dlcache/internal/errors"
)

// Parser contributes settings to a Config from one source.
type Parser interface {
	Parse(*Config) error
}

// DefaultAssigner fills in any fields a Config still has unset after all
// parsers have run.
type DefaultAssigner interface {
	Apply(*Config)
}

// Config is the cache's runtime configuration.
type Config struct {
	// CacheRoot is the cache's root directory.
	CacheRoot string `json:"cache_root,omitempty"`
	// MaxSizeBytes bounds the cache's total payload size; 0 means
	// "ephemeral" (purged to empty on scope exit).
	MaxSizeBytes int64 `json:"max_size_bytes,omitempty"`
	// MaxAgeSeconds bounds an entry's age before it becomes eligible for
	// the purger's age sweep.
	MaxAgeSeconds int `json:"max_age_seconds,omitempty"`
	// RequestTimeout is a request timeout in seconds, loaded and
	// validated here. The default fetcher does not read it; its requests
	// use httpclient.Client's own timeout.
	RequestTimeout int `json:"request_timeout,omitempty"`
	// FetcherBaseURL is an object-store endpoint override, loaded here.
	// The default fetcher does not read it; gs:// and s3:// URIs always
	// map to their public endpoints.
	FetcherBaseURL string `json:"fetcher_base_url,omitempty"`
	// FetcherAuthToken is a bearer token. The CLI does not pass it to the
	// default fetcher; `dlcache serve` uses it as the daemon's RPC auth
	// token when --auth-token is not given.
	FetcherAuthToken string `json:"fetcher_auth_token,omitempty"`
	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`
	// MetricsAddr is a listen address such as ":9090", loaded here. The
	// daemon does not read it: it always serves /metrics on its RPC port.
	MetricsAddr string `json:"metrics_addr,omitempty"`
}

const (
	defaultRequestTimeout = 15
	defaultMaxAgeSeconds  = 24 * 60 * 60
)

var defaultConfig = &Config{
	CacheRoot:      filepath.Join(os.ExpandEnv("$HOME"), ".dlcache", "cache"),
	MaxSizeBytes:   4 << 30,
	MaxAgeSeconds:  defaultMaxAgeSeconds,
	RequestTimeout: defaultRequestTimeout,
	LogLevel:       "info",
}

// DefaultConfig returns a Config populated entirely with built-in defaults.
func DefaultConfig() *Config {
	cp := *defaultConfig
	return &cp
}

// NewConfig returns a Config rooted at root with the given size bound,
// defaults applied to everything else.
func NewConfig(root string, maxSizeBytes int64) *Config {
	cfg := DefaultConfig()
	cfg.CacheRoot = root
	cfg.MaxSizeBytes = maxSizeBytes
	return cfg
}

func (c *Config) WithLogLevel(level string) *Config {
	c.LogLevel = level
	return c
}

func (c *Config) WithMaxAgeSeconds(seconds int) *Config {
	c.MaxAgeSeconds = seconds
	return c
}

func (c *Config) WithRequestTimeout(seconds int) *Config {
	c.RequestTimeout = seconds
	return c
}

func (c *Config) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeSeconds) * time.Second
}

type configDefaultsAssigner struct{}

func (configDefaultsAssigner) Apply(cfg *Config) {
	if cfg.CacheRoot == "" {
		cfg.CacheRoot = defaultConfig.CacheRoot
	}
	if cfg.MaxSizeBytes == 0 {
		cfg.MaxSizeBytes = defaultConfig.MaxSizeBytes
	}
	if cfg.MaxAgeSeconds == 0 {
		cfg.MaxAgeSeconds = defaultConfig.MaxAgeSeconds
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultConfig.RequestTimeout
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultConfig.LogLevel
	}
}

// EnvParser reads DLCACHE_* environment variables.
type EnvParser struct{}

func (EnvParser) Parse(cfg *Config) error {
	if v := os.Getenv("DLCACHE_ROOT"); v != "" {
		cfg.CacheRoot = v
	}
	if v := os.Getenv("DLCACHE_MAX_SIZE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.WrapIOError("DLCACHE_MAX_SIZE_BYTES must be an integer", err)
		}
		cfg.MaxSizeBytes = n
	}
	if v := os.Getenv("DLCACHE_MAX_AGE_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.WrapIOError("DLCACHE_MAX_AGE_SECONDS must be an integer", err)
		}
		cfg.MaxAgeSeconds = n
	}
	if v := os.Getenv("DLCACHE_REQUEST_TIMEOUT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.WrapIOError("DLCACHE_REQUEST_TIMEOUT must be an integer", err)
		}
		cfg.RequestTimeout = n
	}
	if v := os.Getenv("DLCACHE_FETCHER_BASE_URL"); v != "" {
		cfg.FetcherBaseURL = v
	}
	if v := os.Getenv("DLCACHE_FETCHER_AUTH_TOKEN"); v != "" {
		cfg.FetcherAuthToken = v
	}
	if v := os.Getenv("DLCACHE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DLCACHE_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	return nil
}

type fileParser struct{}

func (fileParser) Parse(cfg *Config) error {
	return cfg.loadFromFile()
}

func (c *Config) loadFromFile() error {
	paths := []string{
		".dlcache.toml",
		filepath.Join(os.ExpandEnv("$HOME"), ".dlcache.toml"),
		"/etc/dlcache/config.toml",
	}
	for _, path := range paths {
		if err := c.loadTOML(path); err == nil {
			return nil
		}
	}
	return nil
}

func (c *Config) loadTOML(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.parseTOML(string(data))
}

// parseTOML is a minimal key = "value" line parser — enough for this
// config's flat shape, not a general TOML implementation.
func (c *Config) parseTOML(content string) error {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), "\"'")

		switch key {
		case "cache_root":
			c.CacheRoot = value
		case "max_size_bytes":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return errors.WrapIOError("max_size_bytes must be an integer", err)
			}
			c.MaxSizeBytes = n
		case "max_age_seconds":
			n, err := strconv.Atoi(value)
			if err != nil {
				return errors.WrapIOError("max_age_seconds must be an integer", err)
			}
			c.MaxAgeSeconds = n
		case "request_timeout":
			n, err := strconv.Atoi(value)
			if err != nil {
				return errors.WrapIOError("request_timeout must be an integer", err)
			}
			c.RequestTimeout = n
		case "fetcher_base_url":
			c.FetcherBaseURL = value
		case "fetcher_auth_token":
			c.FetcherAuthToken = value
		case "log_level":
			c.LogLevel = value
		case "metrics_addr":
			c.MetricsAddr = value
		}
	}
	return nil
}

// Load loads configuration following the precedence chain: env vars, then
// TOML file, then built-in defaults, then validation.
func Load() (*Config, error) {
	cfg := &Config{}
	// The file is parsed first so that env vars, parsed second, override it.
	parsers := []Parser{fileParser{}, EnvParser{}}
	for _, p := range parsers {
		if err := p.Parse(cfg); err != nil {
			return nil, err
		}
	}

	configDefaultsAssigner{}.Apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) String() string {
	return "Config{Root: " + c.CacheRoot + ", MaxSizeBytes: " + strconv.FormatInt(c.MaxSizeBytes, 10) +
		", LogLevel: " + c.LogLevel + "}"
}
