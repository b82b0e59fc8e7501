package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

func testHealthServer() *HealthServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return NewHealthServer("localhost:19091", logger)
}

func probeStatus(t *testing.T, handler http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal %s response: %v", path, err)
	}
	return rec.Code, body.Status
}

func TestLivenessAlwaysOK(t *testing.T) {
	handler := testHealthServer().Handler()

	code, status := probeStatus(t, handler, "/health")
	if code != http.StatusOK || status != "ok" {
		t.Errorf("got %d %q", code, status)
	}
}

func TestReadinessFollowsSetReady(t *testing.T) {
	server := testHealthServer()
	handler := server.Handler()

	if code, status := probeStatus(t, handler, "/health/ready"); code != http.StatusServiceUnavailable || status != "not ready" {
		t.Errorf("before SetReady: got %d %q", code, status)
	}

	server.SetReady(true)
	if code, _ := probeStatus(t, handler, "/health/ready"); code != http.StatusOK {
		t.Errorf("after SetReady(true): got %d", code)
	}

	server.SetReady(false)
	if code, _ := probeStatus(t, handler, "/health/ready"); code != http.StatusServiceUnavailable {
		t.Errorf("after SetReady(false): got %d", code)
	}
}

func TestStartShutsDownOnContextCancel(t *testing.T) {
	server := testHealthServer()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(ctx) }()

	// Let the listener come up before canceling.
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://localhost:19091/health")
		if err == nil {
			_ = resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			t.Errorf("Start returned %v, want http.ErrServerClosed", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("shutdown timed out")
	}
}
