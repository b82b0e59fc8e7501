package fetcher

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ContentFetchConfig controls the full-text extraction fetcher.
type ContentFetchConfig struct {
	// Enabled toggles full-text fetching. When false the pipeline uses
	// feed-provided summaries only.
	Enabled bool

	// Timeout is the per-request deadline.
	Timeout time.Duration

	// MaxBodySize caps the HTTP response body in bytes. Enforced while
	// reading, not from the Content-Length header.
	MaxBodySize int64

	// MaxChars caps the extracted text length in runes. Longer bodies
	// are reduced with SmartTruncate before caching.
	MaxChars int

	// MaxRedirects bounds the redirect chain. Every hop is re-validated.
	MaxRedirects int

	// DenyPrivateIPs blocks URLs resolving to private or reserved
	// addresses. Always true in production.
	DenyPrivateIPs bool

	// FreshTTL is how long a cached extraction stays usable before the
	// generation pipeline re-extracts.
	FreshTTL time.Duration
}

// DefaultConfig returns production defaults: 2MB body cap, 15s
// deadline, SSRF checks on, week-long content cache.
func DefaultConfig() ContentFetchConfig {
	return ContentFetchConfig{
		Enabled:        true,
		Timeout:        15 * time.Second,
		MaxBodySize:    2 * 1024 * 1024,
		MaxChars:       20000,
		MaxRedirects:   5,
		DenyPrivateIPs: true,
		FreshTTL:       168 * time.Hour,
	}
}

// Validate rejects configurations that would be unsafe or useless.
func (c *ContentFetchConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxBodySize < 1024 || c.MaxBodySize > 100*1024*1024 {
		return fmt.Errorf("max body size must be between 1KB and 100MB, got %d", c.MaxBodySize)
	}
	if c.MaxChars < 100 {
		return fmt.Errorf("max chars must be at least 100, got %d", c.MaxChars)
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}
	if c.FreshTTL <= 0 {
		return fmt.Errorf("fresh TTL must be positive, got %v", c.FreshTTL)
	}
	return nil
}

// LoadConfigFromEnv loads configuration from environment variables,
// falling back to defaults for anything unset.
//
// Variables:
//   - CONTENT_FETCH_ENABLED: "true" or "false" (default: true)
//   - CONTENT_FETCH_TIMEOUT: duration string, e.g. "15s"
//   - CONTENT_FETCH_MAX_BODY_SIZE: bytes (default: 2097152)
//   - CONTENT_FETCH_MAX_CHARS: runes (default: 20000)
//   - CONTENT_FETCH_MAX_REDIRECTS: integer (default: 5)
//   - CONTENT_FETCH_DENY_PRIVATE_IPS: "true" or "false" (default: true)
//   - CONTENT_FRESH_TTL: duration string (default: 168h)
func LoadConfigFromEnv() (ContentFetchConfig, error) {
	cfg := DefaultConfig()

	if val := os.Getenv("CONTENT_FETCH_ENABLED"); val != "" {
		cfg.Enabled = val == "true"
	}
	if val := os.Getenv("CONTENT_FETCH_TIMEOUT"); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid CONTENT_FETCH_TIMEOUT: %v", err)
		}
		cfg.Timeout = parsed
	}
	if val := os.Getenv("CONTENT_FETCH_MAX_BODY_SIZE"); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid CONTENT_FETCH_MAX_BODY_SIZE: %v", err)
		}
		cfg.MaxBodySize = parsed
	}
	if val := os.Getenv("CONTENT_FETCH_MAX_CHARS"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid CONTENT_FETCH_MAX_CHARS: %v", err)
		}
		cfg.MaxChars = parsed
	}
	if val := os.Getenv("CONTENT_FETCH_MAX_REDIRECTS"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid CONTENT_FETCH_MAX_REDIRECTS: %v", err)
		}
		cfg.MaxRedirects = parsed
	}
	if val := os.Getenv("CONTENT_FETCH_DENY_PRIVATE_IPS"); val != "" {
		cfg.DenyPrivateIPs = val == "true"
	}
	if val := os.Getenv("CONTENT_FRESH_TTL"); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid CONTENT_FRESH_TTL: %v", err)
		}
		cfg.FreshTTL = parsed
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
