// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package audit persists a history of cache fetches and purge runs to a
// SQLite database, for post-hoc inspection of what the cache fetched, when,
// and what the purger reclaimed.
package audit

import (
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dotandev/dlcache/internal/cache"
	"github.com/dotandev/dlcache/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS fetch_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cache_key TEXT NOT NULL,
	uri TEXT NOT NULL,
	bytes INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	error TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fetch_events_created_at ON fetch_events(created_at);
CREATE INDEX IF NOT EXISTS idx_fetch_events_cache_key ON fetch_events(cache_key);

CREATE TABLE IF NOT EXISTS purge_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	entries_evicted INTEGER NOT NULL,
	bytes_freed INTEGER NOT NULL,
	entries_skipped INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_purge_events_created_at ON purge_events(created_at);
`

// Sink is a SQLite-backed cache.AuditSink.
type Sink struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path and ensures
// its schema exists. Use ":memory:" for an ephemeral, process-local sink.
func Open(path string) (*Sink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapIOError("open audit database", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.WrapIOError("create audit schema", err)
	}
	return &Sink{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// RecordFetch implements cache.AuditSink.
func (s *Sink) RecordFetch(key, uri string, bytes int64, dur time.Duration, fetchErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errText sql.NullString
	if fetchErr != nil {
		errText = sql.NullString{String: fetchErr.Error(), Valid: true}
	}

	_, _ = s.db.Exec(
		`INSERT INTO fetch_events (cache_key, uri, bytes, duration_ms, error, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		key, uri, bytes, dur.Milliseconds(), errText, time.Now().UnixNano(),
	)
}

// RecordPurge implements cache.AuditSink.
func (s *Sink) RecordPurge(stats cache.PurgeStats) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.db.Exec(
		`INSERT INTO purge_events (entries_evicted, bytes_freed, entries_skipped, created_at) VALUES (?, ?, ?, ?)`,
		stats.EntriesEvicted, stats.BytesFreed, stats.EntriesSkipped, time.Now().UnixNano(),
	)
}

// FetchEvent is one row of fetch history, as returned by RecentFetches.
type FetchEvent struct {
	CacheKey  string
	URI       string
	Bytes     int64
	Duration  time.Duration
	Error     string
	CreatedAt time.Time
}

// RecentFetches returns the most recent limit fetch events, newest first.
func (s *Sink) RecentFetches(limit int) ([]FetchEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT cache_key, uri, bytes, duration_ms, COALESCE(error, ''), created_at
		 FROM fetch_events ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, errors.WrapIOError("query fetch_events", err)
	}
	defer rows.Close()

	var events []FetchEvent
	for rows.Next() {
		var e FetchEvent
		var durMS int64
		var createdAtNanos int64
		if err := rows.Scan(&e.CacheKey, &e.URI, &e.Bytes, &durMS, &e.Error, &createdAtNanos); err != nil {
			return nil, errors.WrapIOError("scan fetch_events row", err)
		}
		e.Duration = time.Duration(durMS) * time.Millisecond
		e.CreatedAt = time.Unix(0, createdAtNanos)
		events = append(events, e)
	}
	return events, rows.Err()
}

// PruneOlderThan deletes fetch and purge events older than cutoff, returning
// the total number of rows removed.
func (s *Sink) PruneOlderThan(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoffNanos := cutoff.UnixNano()
	var removed int64

	res, err := s.db.Exec(`DELETE FROM fetch_events WHERE created_at < ?`, cutoffNanos)
	if err != nil {
		return 0, errors.WrapIOError("prune fetch_events", err)
	}
	n, _ := res.RowsAffected()
	removed += n

	res, err = s.db.Exec(`DELETE FROM purge_events WHERE created_at < ?`, cutoffNanos)
	if err != nil {
		return 0, errors.WrapIOError("prune purge_events", err)
	}
	n, _ = res.RowsAffected()
	removed += n

	return int(removed), nil
}

var _ cache.AuditSink = (*Sink)(nil)
