// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"errors"
	"path/filepath"
	"testing"

	cacheerrors "github.com/dotandev/dlcache/internal/errors"
)

func TestFileLock_ExclusiveExcludesExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entry.lock")
	l := &fileLock{path: path}

	first, err := l.Acquire(LockExclusive, true)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer first.Release()

	second := &fileLock{path: path}
	_, err = second.Acquire(LockExclusive, false)
	if err == nil {
		t.Fatal("expected a non-blocking exclusive Acquire to fail while held")
	}
	if !errors.Is(err, cacheerrors.ErrLockBusy) {
		t.Errorf("expected ErrLockBusy, got %v", err)
	}
}

func TestFileLock_SharedAllowsShared(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entry.lock")

	a := &fileLock{path: path}
	held1, err := a.Acquire(LockShared, true)
	if err != nil {
		t.Fatalf("first shared Acquire: %v", err)
	}
	defer held1.Release()

	b := &fileLock{path: path}
	held2, err := b.Acquire(LockShared, false)
	if err != nil {
		t.Fatalf("second shared Acquire should not block on a shared holder: %v", err)
	}
	defer held2.Release()
}

func TestFileLock_ReleaseThenReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entry.lock")
	l := &fileLock{path: path}

	held, err := l.Acquire(LockExclusive, true)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	held.Release()

	held2, err := l.Acquire(LockExclusive, false)
	if err != nil {
		t.Fatalf("expected to reacquire after Release: %v", err)
	}
	held2.Release()
}
