// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package errors provides the cache's error taxonomy: a small set of
// sentinel errors plus a coded wrapper type, in the style of the standard
// library's errors.Is/errors.As.
package errors

import (
	"errors"
	"fmt"
)

// New is a proxy to the standard errors.New
func New(text string) error {
	return errors.New(text)
}

// Is is a proxy to the standard errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a proxy to the standard errors.As
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Sentinel errors for comparison with errors.Is.
var (
	ErrIOError     = errors.New("filesystem operation failed")
	ErrFetchFailed = errors.New("fetch failed")
	ErrLockBusy    = errors.New("lock busy")
)

// WrapIOError wraps a filesystem failure as a CacheError with code IO_ERROR.
func WrapIOError(msg string, err error) error {
	return &CacheError{Code: CodeIOError, Message: msg, OrigErr: err}
}

// WrapFetchFailed wraps a fetcher failure as a CacheError with code
// FETCH_FAILED.
func WrapFetchFailed(uri string, err error) error {
	return &CacheError{
		Code:    CodeFetchFailed,
		Message: fmt.Sprintf("fetch failed for %s", uri),
		OrigErr: err,
	}
}

// WrapLockBusy wraps a non-blocking lock-acquisition failure as a
// CacheError with code LOCK_BUSY. Only ever produced by non-blocking
// acquisitions, and only ever handled locally by the purger.
func WrapLockBusy(path string) error {
	return &CacheError{
		Code:    CodeLockBusy,
		Message: fmt.Sprintf("lock busy: %s", path),
		OrigErr: ErrLockBusy,
	}
}
