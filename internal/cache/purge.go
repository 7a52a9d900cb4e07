// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dotandev/dlcache/internal/errors"
	"github.com/dotandev/dlcache/internal/logger"
	"github.com/dotandev/dlcache/internal/metrics"
	"github.com/dotandev/dlcache/internal/telemetry"
)

// PurgeStats reports what a Purge call actually did, so callers (CLI,
// daemon, metrics) can surface skipped candidates instead of silently
// dropping them.
type PurgeStats struct {
	EntriesEvicted int
	BytesFreed     int64
	EntriesSkipped int
}

type candidate struct {
	key   string
	path  string
	size  int64
	mtime time.Time
}

// Purge removes entries until total payload size is at most maxSize bytes
// and no remaining entry is older than maxAge. maxSize and maxAge are
// optional overrides of the cache's constructed defaults for this call
// only: a nil pointer means "use the constructed default", so that an
// explicit zero (e.g. maxSize pointing at 0, to empty the cache) is never
// confused with "not specified". Purge is purely opportunistic: it never
// blocks a concurrent Ensure, and a busy whole-cache lock makes it return
// immediately with a zero-valued PurgeStats and no error.
func (c *Cache) Purge(ctx context.Context, maxSize *int64, maxAge *time.Duration) (PurgeStats, error) {
	tracer := telemetry.GetTracer()
	_, span := tracer.Start(ctx, "cache.Purge")
	defer span.End()

	effectiveMaxSize := c.maxSize
	if maxSize != nil {
		effectiveMaxSize = *maxSize
	}
	effectiveMaxAge := c.maxAge
	if maxAge != nil {
		effectiveMaxAge = *maxAge
	}

	whole, err := c.purgeLock().Acquire(LockExclusive, false)
	if err != nil {
		if errors.Is(err, errors.ErrLockBusy) {
			return PurgeStats{}, nil
		}
		span.RecordError(err)
		return PurgeStats{}, err
	}
	defer whole.Release()

	candidates, err := c.listCandidates()
	if err != nil {
		span.RecordError(err)
		return PurgeStats{}, err
	}

	var stats PurgeStats
	now := time.Now()

	remaining := candidates[:0]
	for _, cand := range candidates {
		if now.Sub(cand.mtime) <= effectiveMaxAge {
			remaining = append(remaining, cand)
			continue
		}
		evicted, freed := c.tryEvict(cand)
		if evicted {
			stats.EntriesEvicted++
			stats.BytesFreed += freed
		} else {
			stats.EntriesSkipped++
			remaining = append(remaining, cand)
		}
	}

	var total int64
	for _, cand := range remaining {
		total += cand.size
	}
	if total > effectiveMaxSize {
		sort.Slice(remaining, func(i, j int) bool { return remaining[i].mtime.Before(remaining[j].mtime) })
		survivors := remaining[:0]
		for _, cand := range remaining {
			if total <= effectiveMaxSize {
				survivors = append(survivors, cand)
				continue
			}
			evicted, freed := c.tryEvict(cand)
			if evicted {
				stats.EntriesEvicted++
				stats.BytesFreed += freed
				total -= freed
			} else {
				stats.EntriesSkipped++
				survivors = append(survivors, cand)
			}
		}
		remaining = survivors
	}

	c.sweepOrphanLocks()

	metrics.SetCacheStats(len(remaining), total)

	span.SetAttributes(
		attribute.Int("purge.evicted", stats.EntriesEvicted),
		attribute.Int("purge.skipped", stats.EntriesSkipped),
		attribute.Int64("purge.bytes_freed", stats.BytesFreed),
	)
	metrics.RecordPurgeResult(stats.EntriesEvicted, stats.BytesFreed, stats.EntriesSkipped)
	if c.audit != nil {
		c.audit.RecordPurge(stats)
	}
	logger.Logger.Info("purge complete",
		"evicted", stats.EntriesEvicted, "skipped", stats.EntriesSkipped, "bytes_freed", stats.BytesFreed)

	return stats, nil
}

func (c *Cache) listCandidates() ([]candidate, error) {
	entries, err := os.ReadDir(c.payloadDir())
	if err != nil {
		return nil, errors.WrapIOError("enumerate cache/", err)
	}

	out := make([]candidate, 0, len(entries))
	for _, ent := range entries {
		name := ent.Name()
		if !IsValidKey(name) {
			// A staging file (key.pid.counter) left behind by a process
			// that crashed mid-fetch; not a real entry, harmless to leave
			// for now.
			continue
		}
		info, err := ent.Info()
		if err != nil {
			continue
		}
		out = append(out, candidate{
			key:   name,
			path:  filepath.Join(c.payloadDir(), name),
			size:  info.Size(),
			mtime: info.ModTime(),
		})
	}
	return out, nil
}

// tryEvict attempts to delete a candidate's payload and lock file under a
// non-blocking exclusive per-entry lock. It never forces an eviction: a
// busy lock means the candidate is skipped for this purge.
func (c *Cache) tryEvict(cand candidate) (evicted bool, freed int64) {
	held, err := c.entryLock(cand.key).Acquire(LockExclusive, false)
	if err != nil {
		return false, 0
	}
	defer held.Release()

	if err := os.Remove(cand.path); err != nil && !os.IsNotExist(err) {
		return false, 0
	}
	_ = os.Remove(c.entryLockPath(cand.key))

	return true, cand.size
}

// sweepOrphanLocks deletes lock files in lock/ whose corresponding payload
// no longer exists. Best-effort: a lock it can't remove is left for the
// next purge.
func (c *Cache) sweepOrphanLocks() {
	entries, err := os.ReadDir(c.lockDir())
	if err != nil {
		return
	}
	for _, ent := range entries {
		name := ent.Name()
		if !IsValidKey(name) {
			continue
		}
		if _, err := os.Stat(c.payloadPath(name)); os.IsNotExist(err) {
			_ = os.Remove(c.entryLockPath(name))
		}
	}
}
