// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

//go:build windows

package cache

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

// errBusy is the sentinel osLock returns when a non-blocking acquisition
// could not be satisfied immediately.
var errBusy = errors.New("lock busy")

// lockAllBytes covers the whole file; these lock files are zero-byte
// sentinels, so the region size is nominal.
const lockAllBytes = ^uint32(0)

func osLock(f *os.File, mode LockMode, blocking bool) error {
	var flags uint32
	if mode == LockExclusive {
		flags |= windows.LOCKFILE_EXCLUSIVE_LOCK
	}
	if !blocking {
		flags |= windows.LOCKFILE_FAIL_IMMEDIATELY
	}

	ol := new(windows.Overlapped)
	err := windows.LockFileEx(windows.Handle(f.Fd()), flags, 0, lockAllBytes, lockAllBytes, ol)
	if err == nil {
		return nil
	}
	if !blocking && err == windows.ERROR_LOCK_VIOLATION {
		return errBusy
	}
	return err
}

func osUnlock(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, lockAllBytes, lockAllBytes, ol)
}
