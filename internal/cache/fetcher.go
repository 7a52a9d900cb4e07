// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cache

import "context"

// Fetcher streams the complete bytes of a remote URI to dest, a path the
// engine has already staged for it. Implementations must write the whole
// object or fail; the engine handles atomic rename and staging cleanup, so
// a Fetcher never needs to worry about partial writes becoming visible.
//
// Any type satisfying this interface may be supplied to New via
// WithFetcher; the default is an HTTPFetcher.
type Fetcher interface {
	Fetch(ctx context.Context, uri, dest string) error
}
