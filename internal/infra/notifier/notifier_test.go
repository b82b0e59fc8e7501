package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSlackNotifierDeliversBlockKit(t *testing.T) {
	var got SlackWebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	n := NewSlackNotifier(SlackConfig{
		Enabled:    true,
		WebhookURL: srv.URL,
		Timeout:    5 * time.Second,
	})

	err := n.Notify(context.Background(), Event{
		Title: "Feed refresh completed",
		Body:  "All categories refreshed.",
		Fields: []Field{
			{Label: "Added", Value: "42"},
			{Label: "Duplicates", Value: "310"},
		},
	})
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if got.Text != "Feed refresh completed" {
		t.Errorf("fallback text = %q", got.Text)
	}
	if len(got.Blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(got.Blocks))
	}
	if !strings.Contains(got.Blocks[1].Text.Text, "*Added:* 42") {
		t.Errorf("field block = %q", got.Blocks[1].Text.Text)
	}
}

func TestDiscordNotifierDeliversEmbed(t *testing.T) {
	var got DiscordWebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewDiscordNotifier(DiscordConfig{
		Enabled:    true,
		WebhookURL: srv.URL,
		Timeout:    5 * time.Second,
	})

	err := n.Notify(context.Background(), Event{
		Title:  "Purge completed",
		Body:   "Removed articles without images.",
		Fields: []Field{{Label: "Removed", Value: "17"}},
	})
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if len(got.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(got.Embeds))
	}
	if got.Embeds[0].Title != "Purge completed" {
		t.Errorf("embed title = %q", got.Embeds[0].Title)
	}
	if len(got.Embeds[0].Fields) != 1 || got.Embeds[0].Fields[0].Value != "17" {
		t.Errorf("embed fields = %+v", got.Embeds[0].Fields)
	}
}

func TestNotifierDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "no such webhook", http.StatusNotFound)
	}))
	defer srv.Close()

	n := NewSlackNotifier(SlackConfig{WebhookURL: srv.URL, Timeout: 5 * time.Second})
	err := n.Notify(context.Background(), Event{Title: "x"})

	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("error = %v, want ClientError", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (4xx must not retry)", attempts)
	}
}

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"success", 200, func(t *testing.T, err error) {
			if err != nil {
				t.Errorf("err = %v, want nil", err)
			}
		}},
		{"rate limited", 429, func(t *testing.T, err error) {
			var rl *RateLimitError
			if !errors.As(err, &rl) {
				t.Errorf("err = %v, want RateLimitError", err)
			}
		}},
		{"client error", 400, func(t *testing.T, err error) {
			var ce *ClientError
			if !errors.As(err, &ce) {
				t.Errorf("err = %v, want ClientError", err)
			}
		}},
		{"server error", 503, func(t *testing.T, err error) {
			var se *ServerError
			if !errors.As(err, &se) {
				t.Errorf("err = %v, want ServerError", err)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Header: http.Header{}}
			tt.check(t, classifyResponse("Slack", resp, nil))
		})
	}
}

func TestExtractRetryAfterFromBody(t *testing.T) {
	resp := &http.Response{StatusCode: 429, Header: http.Header{}}
	got := extractRetryAfter(resp, []byte(`{"retry_after": 2.5}`))
	if got != 2500*time.Millisecond {
		t.Errorf("retry after = %v, want 2.5s", got)
	}
}

func TestExtractRetryAfterFromHeader(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "7")
	resp := &http.Response{StatusCode: 429, Header: header}
	if got := extractRetryAfter(resp, nil); got != 7*time.Second {
		t.Errorf("retry after = %v, want 7s", got)
	}
}

func TestNoopNotifier(t *testing.T) {
	n := NewNoopNotifier()
	if err := n.Notify(context.Background(), Event{Title: "ignored"}); err != nil {
		t.Errorf("Notify() error = %v", err)
	}
}

func TestRateLimiterBlocksUntilToken(t *testing.T) {
	limiter := NewRateLimiter(100.0, 1)

	ctx := context.Background()
	if err := limiter.Allow(ctx); err != nil {
		t.Fatalf("first Allow() error = %v", err)
	}

	start := time.Now()
	if err := limiter.Allow(ctx); err != nil {
		t.Fatalf("second Allow() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("second Allow() returned in %v, expected to wait for a token", elapsed)
	}
}

func TestRateLimiterRespectsContextCancellation(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1)
	ctx := context.Background()
	if err := limiter.Allow(ctx); err != nil {
		t.Fatalf("first Allow() error = %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := limiter.Allow(cancelCtx); err == nil {
		t.Error("Allow() should fail when context expires before a token is available")
	}
}
