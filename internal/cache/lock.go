// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"os"

	"github.com/dotandev/dlcache/internal/errors"
)

// LockMode selects the mode in which an advisory lock is held.
type LockMode int

const (
	// LockShared permits any number of concurrent holders. Used by readers
	// and, while a fetch is in progress, to block a concurrent purge.
	LockShared LockMode = iota
	// LockExclusive permits a single holder. Used to install a new
	// payload, to evict an entry, and to serialize whole-cache purges.
	LockExclusive
)

// fileLock is one advisory lock scope: either a single entry's lock/<key>
// file or the whole-cache cache.lock file. It carries no in-memory state
// between acquisitions; every Acquire opens the underlying file fresh, so a
// fileLock value is safe to keep around and reuse.
type fileLock struct {
	path string
}

// heldLock is the token returned by a successful Acquire. Its only
// operation is Release, which drops the OS-level lock and closes the file
// descriptor. Every exit path — normal return, error, or process crash —
// releases the lock: the OS reclaims flock/LockFileEx state when the file
// descriptor's owning process exits, so a crash needs no special handling.
type heldLock struct {
	f *os.File
}

// Acquire obtains the lock in the given mode. If blocking is false and the
// lock is currently held by another process in a conflicting mode, Acquire
// returns an error wrapping errors.ErrLockBusy instead of waiting.
func (l *fileLock) Acquire(mode LockMode, blocking bool) (*heldLock, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.WrapIOError("open lock file "+l.path, err)
	}

	if err := osLock(f, mode, blocking); err != nil {
		_ = f.Close()
		if err == errBusy {
			return nil, errors.WrapLockBusy(l.path)
		}
		return nil, errors.WrapIOError("lock "+l.path, err)
	}

	return &heldLock{f: f}, nil
}

// Release drops the lock and closes the underlying file. Release is
// idempotent-safe to call at most once per heldLock; callers typically
// invoke it via defer immediately after a successful Acquire.
func (h *heldLock) Release() {
	if h == nil || h.f == nil {
		return
	}
	_ = osUnlock(h.f)
	_ = h.f.Close()
}

// entryLock returns the lock scope for a single cache key.
func (c *Cache) entryLock(key string) *fileLock {
	return &fileLock{path: c.entryLockPath(key)}
}

// purgeLock returns the whole-cache lock scope.
func (c *Cache) purgeLock() *fileLock {
	return &fileLock{path: c.purgeLockPath()}
}
