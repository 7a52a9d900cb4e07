// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package errors

import stdErrors "errors"

// CacheErrorCode is the unified error code surfaced across the cache's
// embedding contract and its RPC/CLI frontends.
type CacheErrorCode string

const (
	CodeIOError     CacheErrorCode = "IO_ERROR"
	CodeFetchFailed CacheErrorCode = "FETCH_FAILED"
	CodeLockBusy    CacheErrorCode = "LOCK_BUSY"
)

// CacheError wraps an error with a standardized code and preserves the
// original error for unwrapping.
type CacheError struct {
	Code    CacheErrorCode
	Message string
	OrigErr error
}

func (e *CacheError) Error() string {
	if e.OrigErr != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.OrigErr.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *CacheError) Unwrap() error {
	return e.OrigErr
}

// codeToSentinel maps each code to the sentinel error errors.Is callers are
// expected to compare against, so that `errors.Is(err, ErrLockBusy)` works
// regardless of whether err is the sentinel itself or a *CacheError wrapping
// it.
var codeToSentinel = map[CacheErrorCode]error{
	CodeIOError:     ErrIOError,
	CodeFetchFailed: ErrFetchFailed,
	CodeLockBusy:    ErrLockBusy,
}

// errorCodeRegistry is the reverse mapping, used by ClassifyError to assign
// a code to an arbitrary error that wraps one of the sentinels.
var errorCodeRegistry = map[error]CacheErrorCode{
	ErrIOError:     CodeIOError,
	ErrFetchFailed: CodeFetchFailed,
	ErrLockBusy:    CodeLockBusy,
}

// Is allows errors.Is to match a *CacheError against its corresponding
// sentinel error.
func (e *CacheError) Is(target error) bool {
	if sentinel, ok := codeToSentinel[e.Code]; ok && target == sentinel {
		return true
	}
	if code, ok := errorCodeRegistry[target]; ok {
		return code == e.Code
	}
	return false
}

// ClassifyError maps an arbitrary error to a *CacheError, assigning
// CodeIOError ("UNKNOWN" would be more honest, but the taxonomy here is
// closed over three codes and an unrecognized error is always a filesystem
// surprise) when no sentinel in the registry matches.
func ClassifyError(err error) *CacheError {
	if err == nil {
		return nil
	}
	var ce *CacheError
	if stdErrors.As(err, &ce) {
		return ce
	}
	for sentinel, code := range errorCodeRegistry {
		if stdErrors.Is(err, sentinel) {
			return &CacheError{Code: code, Message: err.Error(), OrigErr: err}
		}
	}
	return &CacheError{Code: CodeIOError, Message: err.Error(), OrigErr: err}
}
