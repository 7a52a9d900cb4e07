// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package cache implements a content-addressed, cross-process local mirror
// for remote object-store artifacts: a fingerprint-keyed download cache
// with atomic fetch-into-cache, two-tier advisory file locking, and
// size/age-bounded eviction.
package cache

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dotandev/dlcache/internal/errors"
	"github.com/dotandev/dlcache/internal/logger"
	"github.com/dotandev/dlcache/internal/metrics"
	"github.com/dotandev/dlcache/internal/telemetry"
)

// AuditSink observes fetch and purge activity. It never gates or
// participates in the locking protocol; a nil sink (the default) simply
// records nothing.
type AuditSink interface {
	RecordFetch(key, uri string, bytes int64, dur time.Duration, err error)
	RecordPurge(stats PurgeStats)
}

// DefaultMaxSizeBytes is the conventional size bound, a few GiB. New does
// not apply it: callers always pass maxSize to New explicitly.
const DefaultMaxSizeBytes int64 = 4 << 30

// DefaultMaxAge is the age bound applied when New is called without
// WithMaxAge: one day.
const DefaultMaxAge = 24 * time.Hour

// Cache is a handle over a cache root directory. It is a plain value over
// (root, maxSize): any process can reconstruct an equivalent handle from
// those two fields alone, since all real state lives on disk.
type Cache struct {
	root    string
	maxSize int64
	maxAge  time.Duration
	fetcher Fetcher
	audit   AuditSink

	stagingCounter uint64
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithFetcher overrides the default HTTPFetcher.
func WithFetcher(f Fetcher) Option {
	return func(c *Cache) { c.fetcher = f }
}

// WithMaxAge overrides DefaultMaxAge.
func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) { c.maxAge = d }
}

// WithAuditSink attaches an observer for fetch/purge activity.
func WithAuditSink(s AuditSink) Option {
	return func(c *Cache) { c.audit = s }
}

// New constructs (or reopens) a cache rooted at root. maxSize bounds the
// cache's on-disk payload size; a maxSize of 0 marks the instance
// "ephemeral" — see Close. Construction creates or repairs the canonical
// on-disk layout and tolerates concurrent construction by other processes.
func New(root string, maxSize int64, opts ...Option) (*Cache, error) {
	if err := initLayout(root); err != nil {
		return nil, err
	}

	c := &Cache{
		root:    root,
		maxSize: maxSize,
		maxAge:  DefaultMaxAge,
		fetcher: NewHTTPFetcher(""),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Root returns the cache's root directory.
func (c *Cache) Root() string { return c.root }

// Ensure implements the single-fetch guarantee: it downloads uri into the
// cache on a miss, and on a hit refreshes the entry's last-use timestamp.
// Exactly one of N concurrent Ensure(uri) callers on a cold cache performs
// the network fetch; the rest observe the payload already installed once
// they acquire the per-entry exclusive lock.
func (c *Cache) Ensure(ctx context.Context, uri string) (string, error) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.Start(ctx, "cache.Ensure")
	defer span.End()

	key := KeyOf(uri)
	payload := c.payloadPath(key)
	span.SetAttributes(attribute.String("cache.key", key))

	start := time.Now()

	whole, err := c.purgeLock().Acquire(LockShared, true)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	defer whole.Release()

	entry := c.entryLock(key)
	held, err := entry.Acquire(LockExclusive, true)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	defer held.Release()

	if info, statErr := os.Stat(payload); statErr == nil {
		now := time.Now()
		_ = os.Chtimes(payload, now, now)
		metrics.RecordCacheAccess("hit", time.Since(start))
		c.recordFetch(key, uri, info.Size(), time.Since(start), nil)
		return payload, nil
	}

	staging := c.stagingPath(key)
	if err := c.fetcher.Fetch(ctx, uri, staging); err != nil {
		_ = os.Remove(staging)
		span.RecordError(err)
		metrics.RecordCacheAccess("miss_failed", time.Since(start))
		c.recordFetch(key, uri, 0, time.Since(start), err)
		return "", err
	}

	if err := os.Rename(staging, payload); err != nil {
		_ = os.Remove(staging)
		wrapped := errors.WrapIOError("install payload for "+key, err)
		span.RecordError(wrapped)
		return "", wrapped
	}

	size := int64(0)
	if info, statErr := os.Stat(payload); statErr == nil {
		size = info.Size()
	}
	metrics.RecordCacheAccess("miss", time.Since(start))
	c.recordFetch(key, uri, size, time.Since(start), nil)
	logger.Logger.Info("fetched into cache", "key", key, "uri", uri, "bytes", size)

	return payload, nil
}

func (c *Cache) recordFetch(key, uri string, size int64, dur time.Duration, err error) {
	if c.audit != nil {
		c.audit.RecordFetch(key, uri, size, dur, err)
	}
}

// stagingPath returns a unique sibling path under cache/ for staging a
// download before its atomic rename onto the canonical payload path.
func (c *Cache) stagingPath(key string) string {
	n := atomic.AddUint64(&c.stagingCounter, 1)
	name := key + "." + strconv.Itoa(os.Getpid()) + "." + strconv.FormatUint(n, 10)
	return filepath.Join(c.payloadDir(), name)
}

// ReadHandle is a scoped read handle returned by Open. Its Close releases
// the shared per-entry lock that, while held, prevents the purger from
// evicting this entry.
type ReadHandle struct {
	Path string
	lock *heldLock
}

// Close releases the handle's shared per-entry lock.
func (h *ReadHandle) Close() error {
	h.lock.Release()
	return nil
}

// Open ensures uri is present, then reacquires the per-entry lock in
// shared mode for the lifetime of the returned handle. If the payload
// vanishes between Ensure's return and the reacquisition — the brief
// unlocked window described in the design notes — Open treats it as a miss
// and retries Ensure once before giving up.
func (c *Cache) Open(ctx context.Context, uri string) (*ReadHandle, error) {
	key := KeyOf(uri)

	for attempt := 0; attempt < 2; attempt++ {
		payload, err := c.Ensure(ctx, uri)
		if err != nil {
			return nil, err
		}

		held, err := c.entryLock(key).Acquire(LockShared, true)
		if err != nil {
			return nil, err
		}

		if _, statErr := os.Stat(payload); statErr != nil {
			held.Release()
			if attempt == 0 {
				continue
			}
			return nil, errors.WrapIOError("payload vanished after ensure for "+key, statErr)
		}

		return &ReadHandle{Path: payload, lock: held}, nil
	}
	return nil, errors.WrapIOError("could not stabilize entry for "+key, nil)
}

// CopyTo ensures uri is present, then copies its bytes to dst. The source
// payload is read under a shared per-entry lock held only for the copy's
// duration, not beyond it.
func (c *Cache) CopyTo(ctx context.Context, uri, dst string) error {
	h, err := c.Open(ctx, uri)
	if err != nil {
		return err
	}
	defer h.Close()

	src, err := os.Open(h.Path)
	if err != nil {
		return errors.WrapIOError("open payload", err)
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.WrapIOError("create destination", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return errors.WrapIOError("copy payload", err)
	}
	return nil
}

// TempHandle is a temporary copy of a cache entry's payload, owned by the
// caller and removed on Close.
type TempHandle struct {
	Path string
}

// Close deletes the temporary file.
func (h *TempHandle) Close() error {
	return os.Remove(h.Path)
}

// ExtractTemp behaves like CopyTo but writes to a freshly created temporary
// file, useful when a caller needs a path it can freely mutate or hand to a
// subprocess.
func (c *Cache) ExtractTemp(ctx context.Context, uri string) (*TempHandle, error) {
	tmp, err := os.CreateTemp("", fmt.Sprintf("dlcache-%s-*", KeyOf(uri)))
	if err != nil {
		return nil, errors.WrapIOError("create temp file", err)
	}
	path := tmp.Name()
	_ = tmp.Close()

	if err := c.CopyTo(ctx, uri, path); err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	return &TempHandle{Path: path}, nil
}

// Close implements the scoped-instance contract: leaving scope invokes
// Purge(max_size=0) iff the cache was constructed with maxSize == 0
// ("ephemeral cache"); otherwise Close is a no-op. maxAge is left
// unspecified (nil) so the age bound isn't disturbed by scope exit.
func (c *Cache) Close() error {
	if c.maxSize != 0 {
		return nil
	}
	zero := int64(0)
	_, err := c.Purge(context.Background(), &zero, nil)
	return err
}
