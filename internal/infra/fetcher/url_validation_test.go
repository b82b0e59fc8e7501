package fetcher

import (
	"errors"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"valid https", "https://example.com/article", nil},
		{"valid http", "http://example.com/article", nil},
		{"file scheme", "file:///etc/passwd", ErrBlockedURL},
		{"ftp scheme", "ftp://example.com/file", ErrBlockedURL},
		{"gopher scheme", "gopher://example.com", ErrBlockedURL},
		{"data scheme", "data:text/html,hi", ErrBlockedURL},
		{"javascript scheme", "javascript:alert(1)", ErrBlockedURL},
		{"unknown scheme", "tel:+15551234567", ErrInvalidURL},
		{"no hostname", "https://", ErrInvalidURL},
		{"localhost", "http://localhost/admin", ErrBlockedURL},
		{"loopback literal", "http://127.0.0.1:8080/", ErrBlockedURL},
		{"unspecified", "http://0.0.0.0/", ErrBlockedURL},
		{"ipv6 loopback", "http://[::1]/", ErrBlockedURL},
		{"cloud metadata ip", "http://169.254.169.254/latest/meta-data/", ErrBlockedURL},
		{"gcp metadata host", "http://metadata.google.internal/computeMetadata/v1/", ErrBlockedURL},
		{"private 10/8", "http://10.0.0.5/internal", ErrBlockedURL},
		{"private 172.16/12", "http://172.16.1.1/", ErrBlockedURL},
		{"private 192.168/16", "http://192.168.1.1/router", ErrBlockedURL},
		{"link local", "http://169.254.1.1/", ErrBlockedURL},
		{"multicast", "http://224.0.0.1/", ErrBlockedURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url, true)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateURL(%q) = %v, want nil", tt.url, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateURL(%q) = %v, want %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURLPrivateCheckDisabled(t *testing.T) {
	// With DenyPrivateIPs off, private and loopback addresses pass but
	// metadata endpoints stay blocked.
	if err := ValidateURL("http://10.0.0.5/", false); err != nil {
		t.Errorf("private IP with checks disabled: %v", err)
	}
	if err := ValidateURL("http://127.0.0.1:8080/", false); err != nil {
		t.Errorf("loopback with checks disabled: %v", err)
	}
	if err := ValidateURL("http://metadata.google.internal/", false); !errors.Is(err, ErrBlockedURL) {
		t.Errorf("metadata endpoint should stay blocked, got %v", err)
	}
}
