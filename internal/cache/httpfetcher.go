// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/dotandev/dlcache/internal/errors"
	"github.com/dotandev/dlcache/internal/httpclient"
	"github.com/dotandev/dlcache/internal/logger"
	"github.com/dotandev/dlcache/internal/secutil"
)

// HTTPFetcher is the default Fetcher: it translates gs:// and s3:// object
// URIs to their public HTTPS endpoints and streams the response body to
// disk over internal/httpclient's tuned transport. Plain http(s):// URIs
// are fetched as-is.
type HTTPFetcher struct {
	// Client is the HTTP client used for requests. Defaults to
	// httpclient.Client when nil.
	Client *http.Client
	// AuthToken, if set, is sent as a bearer token on every request.
	AuthToken string
}

// NewHTTPFetcher returns an HTTPFetcher using the shared tuned client.
func NewHTTPFetcher(authToken string) *HTTPFetcher {
	return &HTTPFetcher{Client: httpclient.Client, AuthToken: authToken}
}

func (f *HTTPFetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return httpclient.Client
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, uri, dest string) error {
	endpoint, err := translateURI(uri)
	if err != nil {
		return errors.WrapFetchFailed(uri, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.WrapFetchFailed(uri, err)
	}
	f.setAuth(req)

	resp, err := f.client().Do(req)
	if err != nil {
		return errors.WrapFetchFailed(uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.WrapFetchFailed(uri, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint))
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.WrapFetchFailed(uri, err)
	}
	defer out.Close()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return errors.WrapFetchFailed(uri, err)
	}

	logger.Logger.Debug("fetched object", "uri", uri, "bytes", n)
	return nil
}

// setAuth attaches the bearer token, if any, then zeroes the byte copy it
// made to build the header.
func (f *HTTPFetcher) setAuth(req *http.Request) {
	if f.AuthToken == "" {
		return
	}
	tok := []byte(f.AuthToken)
	req.Header.Set("Authorization", "Bearer "+string(tok))
	secutil.Memzero(tok)
}

// translateURI rewrites gs:// and s3:// object-store URIs into their
// public HTTP(S) read endpoints. Plain http(s):// URIs pass through
// unchanged.
func translateURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid URI: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return uri, nil
	case "gs":
		bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
		return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key), nil
	case "s3":
		bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key), nil
	default:
		return "", fmt.Errorf("unsupported URI scheme %q", u.Scheme)
	}
}
