// SPDX-License-Identifier: MPL-2.0

package scriptsource

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/invowk/scriptexec/internal/config"
)

// ObjectStoreFetcher reads s3://bucket/key references from an S3-compatible store.
type ObjectStoreFetcher struct {
	client *minio.Client
}

// NewObjectStoreFetcher returns a fetcher backed by a MinIO client built from cfg.
func NewObjectStoreFetcher(cfg config.ObjectStoreConfig) (*ObjectStoreFetcher, error) {
	client, err := NewMinIOClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ObjectStoreFetcher{client: client}, nil
}

// NewMinIOClient builds a client for the configured endpoint. The endpoint is
// host[:port] without a scheme; UseSSL selects https.
func NewMinIOClient(cfg config.ObjectStoreConfig) (*minio.Client, error) {
	if err := validateObjectStore(cfg); err != nil {
		return nil, err
	}

	opts := &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	}
	return minio.New(cfg.Endpoint, opts)
}

// Open returns the object named by ref. The object is stat'ed first so a
// missing key fails here rather than on the first read.
func (f *ObjectStoreFetcher) Open(ctx context.Context, ref *url.URL) (io.ReadCloser, error) {
	bucket := ref.Host
	key := strings.TrimPrefix(ref.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("object reference %q must have the form s3://bucket/key", ref.String())
	}

	obj, err := f.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close() // Best-effort close; the stat failure is reported.
		return nil, fmt.Errorf("stat object %s/%s: %w", bucket, key, err)
	}
	return obj, nil
}

func validateObjectStore(cfg config.ObjectStoreConfig) error {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return &InvalidObjectStoreConfigError{Field: "endpoint", Reason: "is required"}
	}
	if strings.Contains(cfg.Endpoint, "://") {
		return &InvalidObjectStoreConfigError{Field: "endpoint", Reason: "must be host[:port] without a scheme"}
	}
	if (cfg.AccessKey == "") != (cfg.SecretKey == "") {
		return &InvalidObjectStoreConfigError{Field: "access_key/secret_key", Reason: "must be set together"}
	}
	return nil
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
