// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestServer_Ensure(t *testing.T) {
	server, err := NewServer(Config{CacheRoot: t.TempDir(), MaxSizeBytes: 1 << 20})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	req := httptest.NewRequest("POST", "/rpc", nil)
	var resp EnsureResponse
	err = server.Ensure(req, &EnsureRequest{URI: "http://127.0.0.1:0/does-not-exist"}, &resp)
	if err == nil {
		t.Error("expected error fetching from an unreachable host")
	}
}

func TestServer_Status(t *testing.T) {
	root := t.TempDir()
	server, err := NewServer(Config{CacheRoot: root, MaxSizeBytes: 1 << 20})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	req := httptest.NewRequest("POST", "/rpc", nil)
	var resp StatusResponse
	if err := server.Status(req, &StatusRequest{}, &resp); err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if resp.Root != root {
		t.Errorf("expected root %q, got %q", root, resp.Root)
	}
}

func TestServer_Purge(t *testing.T) {
	server, err := NewServer(Config{CacheRoot: t.TempDir(), MaxSizeBytes: 1 << 20})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	req := httptest.NewRequest("POST", "/rpc", nil)
	var resp PurgeResponse
	if err := server.Purge(req, &PurgeRequest{}, &resp); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
}

func TestServer_PurgeExplicitZeroEmptiesCache(t *testing.T) {
	root := t.TempDir()
	server, err := NewServer(Config{CacheRoot: root, MaxSizeBytes: 1 << 20})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	req := httptest.NewRequest("POST", "/rpc", nil)
	var ensureResp EnsureResponse
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()
	if err := server.Ensure(req, &EnsureRequest{URI: srv.URL}, &ensureResp); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	var zero int64
	var resp PurgeResponse
	if err := server.Purge(req, &PurgeRequest{MaxSizeBytes: &zero}, &resp); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if resp.EntriesEvicted != 1 {
		t.Errorf("expected an explicit max_size_bytes=0 to empty the cache, evicted %d entries", resp.EntriesEvicted)
	}
}

func TestServer_Authentication(t *testing.T) {
	server, err := NewServer(Config{CacheRoot: t.TempDir(), AuthToken: "secret123"})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	req := httptest.NewRequest("POST", "/rpc", nil)
	if server.authenticate(req) {
		t.Error("expected authentication to fail without token")
	}

	req.Header.Set("Authorization", "Bearer secret123")
	if !server.authenticate(req) {
		t.Error("expected authentication to succeed with correct Bearer token")
	}

	req.Header.Set("Authorization", "secret123")
	if !server.authenticate(req) {
		t.Error("expected authentication to succeed with correct direct token")
	}

	req.Header.Set("Authorization", "wrong-token")
	if server.authenticate(req) {
		t.Error("expected authentication to fail with wrong token")
	}
}

func TestServer_NoAuthConfigured(t *testing.T) {
	server, err := NewServer(Config{CacheRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	req := httptest.NewRequest("POST", "/rpc", nil)
	if !server.authenticate(req) {
		t.Error("expected authentication to pass through when no token is configured")
	}
}

func TestServer_StartStop(t *testing.T) {
	server, err := NewServer(Config{CacheRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := server.Start(ctx, "0"); err != nil {
		t.Fatalf("server start failed: %v", err)
	}
}
