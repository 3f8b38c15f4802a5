// SPDX-License-Identifier: MPL-2.0

package scriptsource

import (
	"context"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type (
	// Source is the materialized form of one script entry.
	Source struct {
		// Text is the script body to evaluate.
		Text string
		// Ref is the fetched reference, empty for literal entries.
		Ref string
		// Empty is set when a fetched reference produced no content; the
		// entry is skipped rather than evaluated.
		Empty bool
	}

	// Option configures a Resolver.
	Option func(*Resolver)

	// Resolver materializes script entries. It is safe for concurrent use
	// once constructed.
	Resolver struct {
		fetchers map[string]Fetcher
		encoding string
		timeout  time.Duration
		logger   *log.Logger
	}
)

// IsReference reports whether the source was fetched.
func (s Source) IsReference() bool { return s.Ref != "" }

// WithEncoding declares the text encoding of fetched sources, by WHATWG,
// IANA or JVM charset name. An empty name means UTF-8.
func WithEncoding(name string) Option {
	return func(r *Resolver) { r.encoding = strings.TrimSpace(name) }
}

// WithTimeout bounds each fetch, including reading the body. Zero means no
// timeout, in which case an unresponsive server blocks the caller.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// WithLogger sets the logger used for fetch notices.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithHTTPClient replaces the client used for http and https references.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		f := HTTPFetcher{Client: c}
		r.fetchers["http"] = f
		r.fetchers["https"] = f
	}
}

// WithFetcher registers f for scheme, replacing any existing fetcher.
func WithFetcher(scheme string, f Fetcher) Option {
	return func(r *Resolver) { r.fetchers[strings.ToLower(scheme)] = f }
}

// NewResolver returns a Resolver with fetchers for http, https and file.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		fetchers: map[string]Fetcher{
			"http":  HTTPFetcher{},
			"https": HTTPFetcher{},
			"file":  FileFetcher{},
		},
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Schemes returns the sorted schemes that have a fetcher.
func (r *Resolver) Schemes() []string {
	return slices.Sorted(maps.Keys(r.fetchers))
}

// ParseReference reports whether entry is a fetchable reference: it must
// parse as a URL and its scheme must have a fetcher.
func (r *Resolver) ParseReference(entry string) (*url.URL, bool) {
	u, err := url.Parse(entry)
	if err != nil || u.Scheme == "" {
		return nil, false
	}
	if _, ok := r.fetchers[u.Scheme]; !ok {
		return nil, false
	}
	return u, true
}

// Resolve materializes entry. Literal entries are returned verbatim. For
// references, failures to open, decode or read are returned as *FetchError.
func (r *Resolver) Resolve(ctx context.Context, entry string) (Source, error) {
	ref, ok := r.ParseReference(entry)
	if !ok {
		return Source{Text: entry}, nil
	}

	display := ref.Redacted()
	r.logger.Infof("Fetching script from %s.", display)

	text, err := r.fetch(ctx, ref)
	if err != nil {
		return Source{Ref: display}, &FetchError{Ref: display, Cause: err}
	}
	return Source{Text: text, Ref: display, Empty: text == ""}, nil
}

func (r *Resolver) fetch(ctx context.Context, ref *url.URL) (string, error) {
	enc, err := r.decoding()
	if err != nil {
		return "", err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	rc, err := r.fetchers[ref.Scheme].Open(ctx, ref)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil {
			r.logger.Debug("failed to close script stream", "ref", ref.Redacted(), "error", closeErr)
		}
	}()

	return readLines(transform.NewReader(rc, enc.NewDecoder()))
}

func (r *Resolver) decoding() (encoding.Encoding, error) {
	if r.encoding == "" {
		return unicode.UTF8, nil
	}
	for _, name := range encodingNames(r.encoding) {
		if enc, err := htmlindex.Get(name); err == nil {
			return enc, nil
		}
		// A registered but unimplemented charset yields a nil encoding.
		if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
			return enc, nil
		}
	}
	return nil, &UnsupportedEncodingError{Name: r.encoding}
}

// encodingNames returns name followed by the registered spellings of JVM
// charset aliases such as Cp1252, Cp437 and ISO8859_1.
func encodingNames(name string) []string {
	names := []string{name}
	lower := strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.HasPrefix(lower, "cp125"):
		names = append(names, "windows-"+lower[len("cp"):])
	case strings.HasPrefix(lower, "cp"):
		names = append(names, "ibm"+lower[len("cp"):])
	case strings.HasPrefix(lower, "iso8859_"):
		names = append(names, "iso-8859-"+lower[len("iso8859_"):])
	}
	if strings.Contains(lower, "_") {
		names = append(names, strings.ReplaceAll(lower, "_", "-"))
	}
	return names
}
