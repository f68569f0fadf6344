package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"MarketSleuth/internal/domain/models"
	"MarketSleuth/pkg/cache"
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

func candleStub(t *testing.T, calls *int32, n int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Path != "/stock/candle" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("token") != "md-key" {
			t.Errorf("missing api token")
		}
		base := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
		cols := map[string][]string{"o": nil, "h": nil, "l": nil, "c": nil, "v": nil, "t": nil}
		for i := 0; i < n; i++ {
			px := fmt.Sprintf("%.2f", 100.0+float64(i))
			cols["o"] = append(cols["o"], px)
			cols["h"] = append(cols["h"], px)
			cols["l"] = append(cols["l"], px)
			cols["c"] = append(cols["c"], px)
			cols["v"] = append(cols["v"], "1000000")
			cols["t"] = append(cols["t"], fmt.Sprintf("%d", base.AddDate(0, 0, i).Unix()))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"s":"ok","o":[%s],"h":[%s],"l":[%s],"c":[%s],"v":[%s],"t":[%s]}`,
			strings.Join(cols["o"], ","), strings.Join(cols["h"], ","), strings.Join(cols["l"], ","),
			strings.Join(cols["c"], ","), strings.Join(cols["v"], ","), strings.Join(cols["t"], ","))
	}))
}

func TestFetchBarsReturnsWindow(t *testing.T) {
	var calls int32
	srv := candleStub(t, &calls, 40)
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, APIKey: "md-key", Timeout: 5 * time.Second}, nil, testLogger(t))
	bars, err := c.FetchBars(context.Background(), "AAPL", 30)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(bars) != 30 {
		t.Fatalf("got %d bars, want 30", len(bars))
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Timestamp.After(bars[i-1].Timestamp) {
			t.Fatal("bars should be ordered oldest first")
		}
	}
	// trimmed to the most recent bars
	if bars[len(bars)-1].Close != 139.0 {
		t.Fatalf("last close = %v, want 139.0", bars[len(bars)-1].Close)
	}
}

func TestFetchBarsCaches(t *testing.T) {
	var calls int32
	srv := candleStub(t, &calls, 20)
	defer srv.Close()

	mem := cache.NewMemoryCache()
	c := NewClient(Options{BaseURL: srv.URL, APIKey: "md-key", Timeout: 5 * time.Second, CacheTTL: time.Minute}, mem, testLogger(t))

	if _, err := c.FetchBars(context.Background(), "AAPL", 20); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := c.FetchBars(context.Background(), "AAPL", 20); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("API called %d times, want 1", got)
	}
}

func TestFetchBarsNoDataIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"s":"no_data"}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, APIKey: "k", Timeout: 5 * time.Second}, nil, testLogger(t))
	_, err := c.FetchBars(context.Background(), "ZZZZ", 30)
	if !errors.Is(err, models.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestFetchBarsTransportErrorIsUnavailable(t *testing.T) {
	c := NewClient(Options{BaseURL: "http://127.0.0.1:1", APIKey: "k", Timeout: time.Second}, nil, testLogger(t))
	_, err := c.FetchBars(context.Background(), "AAPL", 30)
	if !errors.Is(err, models.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}
