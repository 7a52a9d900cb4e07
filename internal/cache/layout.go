// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dotandev/dlcache/internal/errors"
	"github.com/dotandev/dlcache/internal/logger"
)

const (
	payloadDirName = "cache"
	lockDirName    = "lock"
	purgeLockName  = "cache.lock"
)

// canonicalChildren are the only entries tolerated directly under a cache
// root once initialized.
var canonicalChildren = map[string]bool{
	payloadDirName: true,
	lockDirName:    true,
	purgeLockName:  true,
}

func (c *Cache) payloadDir() string { return filepath.Join(c.root, payloadDirName) }
func (c *Cache) lockDir() string    { return filepath.Join(c.root, lockDirName) }
func (c *Cache) purgeLockPath() string {
	return filepath.Join(c.root, purgeLockName)
}
func (c *Cache) payloadPath(key string) string { return filepath.Join(c.payloadDir(), key) }
func (c *Cache) entryLockPath(key string) string {
	return filepath.Join(c.lockDir(), key)
}

// initLayout creates (or repairs) the canonical cache-root layout: exactly
// cache/, lock/, and cache.lock at root, nothing else. It tolerates
// concurrent invocation by multiple processes: every step is idempotent,
// and "already exists" is success, never an error. Constructing over a
// directory that is already in the canonical layout is a no-op.
func initLayout(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return errors.WrapIOError("create cache root", err)
	}
	for _, dir := range []string{payloadDirName, lockDirName} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return errors.WrapIOError(fmt.Sprintf("create %s", dir), err)
		}
	}

	lockPath := filepath.Join(root, purgeLockName)
	if f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644); err == nil {
		_ = f.Close()
	} else if !os.IsExist(err) {
		return errors.WrapIOError("create cache.lock", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return errors.WrapIOError("enumerate cache root", err)
	}
	for _, ent := range entries {
		if canonicalChildren[ent.Name()] {
			continue
		}
		stray := filepath.Join(root, ent.Name())
		logger.Logger.Warn("removing stray entry from cache root", "path", stray)
		if err := os.RemoveAll(stray); err != nil {
			return errors.WrapIOError(fmt.Sprintf("remove stray entry %q", ent.Name()), err)
		}
	}

	return nil
}
