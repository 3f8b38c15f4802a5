// SPDX-License-Identifier: MPL-2.0

package scriptsource

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrFetch is the sentinel error wrapped by FetchError.
	ErrFetch = errors.New("script fetch failed")
	// ErrUnsupportedEncoding is the sentinel error wrapped by UnsupportedEncodingError.
	ErrUnsupportedEncoding = errors.New("unsupported source encoding")
	// ErrUnexpectedStatus is the sentinel error wrapped by HTTPStatusError.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	// ErrInvalidObjectStoreConfig is the sentinel error wrapped by InvalidObjectStoreConfigError.
	ErrInvalidObjectStoreConfig = errors.New("invalid object store config")
)

type (
	// FetchError is returned when a script reference could not be opened,
	// decoded or read. It is a per-script failure.
	FetchError struct {
		Ref   string
		Cause error
	}

	// UnsupportedEncodingError is returned when the declared source encoding
	// is not known.
	UnsupportedEncodingError struct {
		Name string
	}

	// HTTPStatusError is returned when a remote script responds with a
	// non-2xx status.
	HTTPStatusError struct {
		StatusCode int
	}

	// InvalidObjectStoreConfigError is returned when the object store
	// configuration cannot produce a client.
	InvalidObjectStoreConfigError struct {
		Field  string
		Reason string
	}
)

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch script from %s: %v", e.Ref, e.Cause)
}

// Unwrap returns ErrFetch and the underlying cause.
func (e *FetchError) Unwrap() []error {
	return []error{ErrFetch, e.Cause}
}

// Error implements the error interface.
func (e *UnsupportedEncodingError) Error() string {
	return fmt.Sprintf("unsupported source encoding %q", e.Name)
}

// Unwrap returns ErrUnsupportedEncoding so callers can use errors.Is for programmatic detection.
func (e *UnsupportedEncodingError) Unwrap() error { return ErrUnsupportedEncoding }

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("server responded %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap returns ErrUnexpectedStatus so callers can use errors.Is for programmatic detection.
func (e *HTTPStatusError) Unwrap() error { return ErrUnexpectedStatus }

// Error implements the error interface.
func (e *InvalidObjectStoreConfigError) Error() string {
	return fmt.Sprintf("invalid object store config: %s %s", e.Field, e.Reason)
}

// Unwrap returns ErrInvalidObjectStoreConfig so callers can use errors.Is for programmatic detection.
func (e *InvalidObjectStoreConfigError) Unwrap() error { return ErrInvalidObjectStoreConfig }
