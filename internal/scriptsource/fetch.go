// SPDX-License-Identifier: MPL-2.0

package scriptsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

type (
	// Fetcher opens the stream behind a script reference. The caller closes it.
	Fetcher interface {
		Open(ctx context.Context, ref *url.URL) (io.ReadCloser, error)
	}

	// FetcherFunc adapts a function to the Fetcher interface.
	FetcherFunc func(ctx context.Context, ref *url.URL) (io.ReadCloser, error)

	// HTTPFetcher fetches http and https references.
	HTTPFetcher struct {
		Client *http.Client
	}

	// FileFetcher reads file references from the local filesystem.
	FileFetcher struct{}
)

// Open calls f.
func (f FetcherFunc) Open(ctx context.Context, ref *url.URL) (io.ReadCloser, error) {
	return f(ctx, ref)
}

// Open issues a GET request for ref. Any non-2xx response is an error.
func (f HTTPFetcher) Open(ctx context.Context, ref *url.URL) (io.ReadCloser, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close() // Best-effort close; the status is the failure.
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// Open opens the local file named by ref. Only empty and "localhost" hosts
// are accepted.
func (FileFetcher) Open(_ context.Context, ref *url.URL) (io.ReadCloser, error) {
	if host := strings.ToLower(ref.Host); host != "" && host != "localhost" {
		return nil, fmt.Errorf("file reference on remote host %q is not supported", ref.Host)
	}
	path := ref.Path
	if path == "" {
		path = ref.Opaque
	}
	if path == "" {
		return nil, fmt.Errorf("file reference %q has no path", ref.String())
	}
	return os.Open(filepath.FromSlash(path))
}
