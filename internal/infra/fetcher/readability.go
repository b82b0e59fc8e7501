package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"postpilot/internal/resilience/circuitbreaker"
)

// browserUserAgent is sent on article fetches. Several publishers in
// the catalog return stripped or empty pages to obvious bot agents.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Result is one successful extraction. FinalURL is the URL the content
// was actually read from, after redirects.
type Result struct {
	Text        string
	Title       string
	WordCount   int
	FinalURL    string
	Extractor   string
	ExtractedAt time.Time
}

// ReadabilityFetcher extracts clean article text from a URL using the
// Mozilla Readability algorithm. Every request is validated against
// the SSRF rules, size-capped while reading, and routed through a
// circuit breaker shared across the process.
//
// Safe for concurrent use.
type ReadabilityFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	config         ContentFetchConfig
	now            func() time.Time
}

// NewReadabilityFetcher builds a fetcher around the given config.
func NewReadabilityFetcher(config ContentFetchConfig) *ReadabilityFetcher {
	f := &ReadabilityFetcher{
		circuitBreaker: circuitbreaker.New(circuitbreaker.ContentFetchConfig()),
		config:         config,
		now:            time.Now,
	}

	f.client = &http.Client{
		Timeout: config.Timeout + 5*time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= f.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			// Re-run the SSRF check on every hop.
			if err := ValidateURL(req.URL.String(), f.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target rejected: %w", err)
			}
			return nil
		},
	}
	return f
}

// FetchContent fetches the URL and returns the extracted article text,
// already cleaned and capped at the configured rune limit.
func (f *ReadabilityFetcher) FetchContent(ctx context.Context, urlStr string) (Result, error) {
	if err := ValidateURL(urlStr, f.config.DenyPrivateIPs); err != nil {
		return Result{}, err
	}

	result, err := f.circuitBreaker.Execute(func() (interface{}, error) {
		return f.doFetch(ctx, urlStr)
	})
	if err != nil {
		return Result{}, err
	}
	return result.(Result), nil
}

// IsFresh reports whether a cached extraction from extractedAt is
// still within the configured TTL.
func (f *ReadabilityFetcher) IsFresh(extractedAt time.Time) bool {
	return f.now().Sub(extractedAt) < f.config.FreshTTL
}

func (f *ReadabilityFetcher) doFetch(ctx context.Context, urlStr string) (interface{}, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return Result{}, fmt.Errorf("%w: failed to create request: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return Result{}, fmt.Errorf("%w: request exceeded %v", ErrTimeout, f.config.Timeout)
		}
		// Surface redirect-validation errors without the url.Error wrapper.
		if urlErr, ok := err.(*url.Error); ok && urlErr.Err != nil {
			return Result{}, urlErr.Err
		}
		return Result{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	limitedReader := io.LimitReader(resp.Body, f.config.MaxBodySize+1)
	htmlBytes, err := io.ReadAll(limitedReader)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(htmlBytes)) > f.config.MaxBodySize {
		return Result{}, fmt.Errorf("%w: response exceeds %d bytes", ErrBodyTooLarge, f.config.MaxBodySize)
	}

	// Readability resolves relative links against the final URL after
	// redirects when available.
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		parsedURL = nil
	}
	if resp.Request != nil && resp.Request.URL != nil {
		parsedURL = resp.Request.URL
	}

	article, err := readability.FromReader(bytes.NewReader(htmlBytes), parsedURL)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrNoReadableContent, err)
	}

	text := article.TextContent
	if text == "" {
		if article.Content == "" {
			return Result{}, fmt.Errorf("%w: empty extraction", ErrNoReadableContent)
		}
		slog.Debug("falling back to raw Content field",
			slog.String("url", urlStr),
			slog.Int("content_length", len(article.Content)))
		text = article.Content
	}

	text = SmartTruncate(CleanText(text), f.config.MaxChars)
	if text == "" {
		return Result{}, fmt.Errorf("%w: nothing left after cleaning", ErrNoReadableContent)
	}

	finalURL := urlStr
	if parsedURL != nil {
		finalURL = parsedURL.String()
	}

	return Result{
		Text:        text,
		Title:       strings.TrimSpace(article.Title),
		WordCount:   len(strings.Fields(text)),
		FinalURL:    finalURL,
		Extractor:   "readability",
		ExtractedAt: f.now(),
	}, nil
}
