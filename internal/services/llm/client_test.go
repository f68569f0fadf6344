package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"MarketSleuth/internal/domain/models"
	"MarketSleuth/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestGenerateReturnsCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing auth header, got %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[1].Role != "user" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"0.85,0.90"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, APIKey: "test-key", Model: "gpt-4o-mini", Timeout: 5 * time.Second}, testLogger(t))
	out, err := c.Generate(context.Background(), "score this", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "0.85,0.90" {
		t.Fatalf("got %q", out)
	}
}

func TestGenerateServerErrorIsModelUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, APIKey: "k", Model: "m", Timeout: 5 * time.Second}, testLogger(t))
	_, err := c.Generate(context.Background(), "p", nil)
	if !errors.Is(err, models.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestGenerateEmptyChoicesIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, APIKey: "k", Model: "m", Timeout: 5 * time.Second}, testLogger(t))
	_, err := c.Generate(context.Background(), "p", nil)
	if !errors.Is(err, models.ErrMalformedModelResponse) {
		t.Fatalf("expected ErrMalformedModelResponse, got %v", err)
	}
}

func TestGenerateUnreachableHostIsModelUnavailable(t *testing.T) {
	c := NewClient(Options{BaseURL: "http://127.0.0.1:1", APIKey: "k", Model: "m", Timeout: time.Second}, testLogger(t))
	_, err := c.Generate(context.Background(), "p", nil)
	if !errors.Is(err, models.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}
