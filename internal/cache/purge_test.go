// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func int64Ptr(v int64) *int64                    { return &v }
func durationPtr(d time.Duration) *time.Duration { return &d }

func TestPurge_EvictsEntriesOlderThanMaxAge(t *testing.T) {
	fetcher := newCountingFetcher("stale")
	c := newTestCache(t, 0, fetcher)
	ctx := context.Background()

	uri := "gs://bucket/stale-entry"
	path, err := c.Ensure(ctx, uri)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	stats, err := c.Purge(ctx, nil, durationPtr(24*time.Hour))
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if stats.EntriesEvicted != 1 {
		t.Errorf("expected 1 entry evicted, got %d", stats.EntriesEvicted)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected stale entry to be removed from disk")
	}
}

func TestPurge_KeepsFreshEntries(t *testing.T) {
	fetcher := newCountingFetcher("fresh")
	c := newTestCache(t, 1<<30, fetcher)
	ctx := context.Background()

	path, err := c.Ensure(ctx, "gs://bucket/fresh-entry")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	stats, err := c.Purge(ctx, nil, durationPtr(24*time.Hour))
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if stats.EntriesEvicted != 0 {
		t.Errorf("expected no evictions, got %d", stats.EntriesEvicted)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("expected fresh entry to survive purge")
	}
}

func TestPurge_SizeSweepEvictsOldestFirst(t *testing.T) {
	fetcher := newCountingFetcher("0123456789")
	c := newTestCache(t, 0, fetcher)
	ctx := context.Background()

	oldPath, err := c.Ensure(ctx, "gs://bucket/old")
	if err != nil {
		t.Fatalf("Ensure old: %v", err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldPath, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	newPath, err := c.Ensure(ctx, "gs://bucket/new")
	if err != nil {
		t.Fatalf("Ensure new: %v", err)
	}

	stats, err := c.Purge(ctx, int64Ptr(10), durationPtr(365*24*time.Hour))
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if stats.EntriesEvicted != 1 {
		t.Fatalf("expected exactly 1 entry evicted to satisfy the 10-byte bound, got %d", stats.EntriesEvicted)
	}

	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Error("expected the older entry to be evicted first")
	}
	if _, err := os.Stat(newPath); err != nil {
		t.Error("expected the newer entry to survive the size sweep")
	}
}

func TestPurge_ExplicitZeroMaxSizeEmptiesNonZeroBoundedCache(t *testing.T) {
	fetcher := newCountingFetcher("0123456789")
	c := newTestCache(t, 1<<30, fetcher)
	ctx := context.Background()

	firstPath, err := c.Ensure(ctx, "gs://bucket/one")
	if err != nil {
		t.Fatalf("Ensure one: %v", err)
	}
	secondPath, err := c.Ensure(ctx, "gs://bucket/two")
	if err != nil {
		t.Fatalf("Ensure two: %v", err)
	}

	stats, err := c.Purge(ctx, int64Ptr(0), nil)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if stats.EntriesEvicted != 2 {
		t.Errorf("expected an explicit max_size=0 to empty a non-zero-bounded cache, evicted %d of 2", stats.EntriesEvicted)
	}
	if _, err := os.Stat(firstPath); !os.IsNotExist(err) {
		t.Error("expected entry to be removed by an explicit max_size=0 purge")
	}
	if _, err := os.Stat(secondPath); !os.IsNotExist(err) {
		t.Error("expected entry to be removed by an explicit max_size=0 purge")
	}
}

func TestPurge_BusyWholeCacheLockReturnsSilently(t *testing.T) {
	c := newTestCache(t, 0, newCountingFetcher("x"))

	held, err := c.purgeLock().Acquire(LockExclusive, true)
	if err != nil {
		t.Fatalf("Acquire whole-cache lock: %v", err)
	}
	defer held.Release()

	stats, err := c.Purge(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Purge should return silently on a busy whole-cache lock, got error: %v", err)
	}
	if stats != (PurgeStats{}) {
		t.Errorf("expected a zero-valued PurgeStats, got %+v", stats)
	}
}

func TestPurge_SkipsEntryHeldByReader(t *testing.T) {
	fetcher := newCountingFetcher("held")
	c := newTestCache(t, 1<<30, fetcher)
	ctx := context.Background()

	uri := "gs://bucket/held-entry"
	h, err := c.Open(ctx, uri)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(h.Path, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	stats, err := c.Purge(ctx, nil, durationPtr(time.Hour))
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if stats.EntriesEvicted != 0 {
		t.Errorf("expected the held entry to be skipped, not evicted")
	}
	if stats.EntriesSkipped != 1 {
		t.Errorf("expected 1 skipped entry, got %d", stats.EntriesSkipped)
	}

	if _, err := os.Stat(h.Path); err != nil {
		t.Error("expected held entry's payload to survive the purge")
	}
}

func TestPurge_RemovesOrphanLocks(t *testing.T) {
	c := newTestCache(t, 0, newCountingFetcher("x"))

	orphanKey := KeyOf("gs://bucket/never-fetched")
	lockPath := c.entryLockPath(orphanKey)
	if err := os.WriteFile(lockPath, nil, 0o644); err != nil {
		t.Fatalf("write orphan lock: %v", err)
	}

	if _, err := c.Purge(context.Background(), nil, nil); err != nil {
		t.Fatalf("Purge: %v", err)
	}

	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("expected orphaned lock file to be swept")
	}
}
