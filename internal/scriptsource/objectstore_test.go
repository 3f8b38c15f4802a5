// SPDX-License-Identifier: MPL-2.0

package scriptsource

import (
	"errors"
	"net/url"
	"testing"

	"github.com/invowk/scriptexec/internal/config"
)

func TestNewMinIOClient_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.ObjectStoreConfig
		wantErr bool
	}{
		{"valid", config.ObjectStoreConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}, false},
		{"anonymous", config.ObjectStoreConfig{Endpoint: "play.min.io", UseSSL: true}, false},
		{"missing endpoint", config.ObjectStoreConfig{}, true},
		{"endpoint with scheme", config.ObjectStoreConfig{Endpoint: "http://localhost:9000"}, true},
		{"half credentials", config.ObjectStoreConfig{Endpoint: "localhost:9000", AccessKey: "a"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewMinIOClient(tt.cfg)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidObjectStoreConfig) {
					t.Errorf("NewMinIOClient() error = %v, want ErrInvalidObjectStoreConfig", err)
				}
				return
			}
			if err != nil {
				t.Errorf("NewMinIOClient() error: %v", err)
			}
		})
	}
}

func TestObjectStoreFetcher_RejectsMalformedReference(t *testing.T) {
	t.Parallel()

	f, err := NewObjectStoreFetcher(config.ObjectStoreConfig{Endpoint: "localhost:9000"})
	if err != nil {
		t.Fatalf("NewObjectStoreFetcher() error: %v", err)
	}
	for _, ref := range []string{"s3://bucket-only", "s3:///key-only"} {
		u, _ := url.Parse(ref)
		if _, err := f.Open(t.Context(), u); err == nil {
			t.Errorf("Open(%q) should fail", ref)
		}
	}
}
