// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package daemon exposes the cache engine over a JSON-RPC-over-HTTP API, for
// callers that want a long-lived cache process shared across many short-lived
// client invocations instead of linking the cache library directly.
package daemon

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/rpc"
	"github.com/gorilla/rpc/json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dotandev/dlcache/internal/cache"
	"github.com/dotandev/dlcache/internal/errors"
	"github.com/dotandev/dlcache/internal/logger"
)

// Config controls how a Server's Cache is constructed and secured.
type Config struct {
	// CacheRoot is the cache's root directory.
	CacheRoot string
	// MaxSizeBytes bounds the cache's total payload size; 0 is ephemeral.
	MaxSizeBytes int64
	// MaxAge bounds an entry's age before the purger's age sweep evicts it.
	MaxAge time.Duration
	// AuthToken, if set, is required on every RPC call via the
	// Authorization header, either as "Bearer <token>" or as the bare
	// token value.
	AuthToken string
}

// Server exposes a *cache.Cache over JSON-RPC.
type Server struct {
	cfg   Config
	cache *cache.Cache
	http  *http.Server
}

// NewServer constructs a Server backed by a cache rooted at cfg.CacheRoot.
func NewServer(cfg Config) (*Server, error) {
	c, err := cache.New(cfg.CacheRoot, cfg.MaxSizeBytes, cache.WithMaxAge(cfg.MaxAge))
	if err != nil {
		return nil, errors.WrapIOError("construct cache for daemon", err)
	}
	return &Server{cfg: cfg, cache: c}, nil
}

func (s *Server) authenticate(req *http.Request) bool {
	if s.cfg.AuthToken == "" {
		return true
	}
	header := req.Header.Get("Authorization")
	if header == "" {
		return false
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ") == s.cfg.AuthToken
	}
	return header == s.cfg.AuthToken
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// EnsureRequest names an artifact to bring into the cache.
type EnsureRequest struct {
	URI string `json:"uri"`
}

// EnsureResponse carries the local path of a cached artifact.
type EnsureResponse struct {
	Path string `json:"path"`
}

// Ensure brings the artifact named by req.URI into the cache and returns its
// local path.
func (s *Server) Ensure(r *http.Request, req *EnsureRequest, resp *EnsureResponse) error {
	path, err := s.cache.Ensure(r.Context(), req.URI)
	if err != nil {
		return err
	}
	resp.Path = path
	return nil
}

// PurgeRequest bounds a purge run.
// PurgeRequest bounds a purge run. Both fields are optional overrides of
// the running cache's constructed defaults: omit a field (leave it null in
// the JSON request) to keep that bound as configured. An explicit 0 is
// honored, not treated as "absent" — e.g. MaxSizeBytes: 0 empties the
// cache.
type PurgeRequest struct {
	MaxSizeBytes  *int64 `json:"max_size_bytes,omitempty"`
	MaxAgeSeconds *int64 `json:"max_age_seconds,omitempty"`
}

// PurgeResponse reports what a purge run reclaimed.
type PurgeResponse struct {
	EntriesEvicted int   `json:"entries_evicted"`
	BytesFreed     int64 `json:"bytes_freed"`
	EntriesSkipped int   `json:"entries_skipped"`
}

// Purge runs an eviction sweep bounded by req.
func (s *Server) Purge(r *http.Request, req *PurgeRequest, resp *PurgeResponse) error {
	var maxAge *time.Duration
	if req.MaxAgeSeconds != nil {
		d := time.Duration(*req.MaxAgeSeconds) * time.Second
		maxAge = &d
	}

	stats, err := s.cache.Purge(r.Context(), req.MaxSizeBytes, maxAge)
	if err != nil {
		return err
	}
	resp.EntriesEvicted = stats.EntriesEvicted
	resp.BytesFreed = stats.BytesFreed
	resp.EntriesSkipped = stats.EntriesSkipped
	return nil
}

// StatusRequest is empty; Status takes no arguments.
type StatusRequest struct{}

// StatusResponse reports the cache's root directory.
type StatusResponse struct {
	Root string `json:"root"`
}

// Status reports basic information about the running cache.
func (s *Server) Status(r *http.Request, req *StatusRequest, resp *StatusResponse) error {
	resp.Root = s.cache.Root()
	return nil
}

// Start registers the RPC and metrics handlers and serves on port until ctx
// is done.
func (s *Server) Start(ctx context.Context, port string) error {
	rpcServer := rpc.NewServer()
	rpcServer.RegisterCodec(json.NewCodec(), "application/json")
	if err := rpcServer.RegisterService(s, "Cache"); err != nil {
		return errors.WrapIOError("register RPC service", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/rpc", s.authMiddleware(rpcServer))
	mux.Handle("/metrics", promhttp.Handler())

	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Warn("daemon shutdown error", "error", err)
		}
	}()

	select {
	case err := <-errCh:
		return errors.WrapIOError("daemon listen", err)
	default:
		return nil
	}
}

// Close releases the underlying cache's resources.
func (s *Server) Close() error {
	return s.cache.Close()
}
