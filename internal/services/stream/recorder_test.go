package stream

import (
	"context"
	"errors"
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

func TestRecordBuildsDailyBar(t *testing.T) {
	r := NewRecorder(60, testLogger(t))
	day := time.Date(2025, 11, 27, 0, 0, 0, 0, time.UTC)

	r.Record(&models.Tick{Symbol: "AAPL", Timestamp: day.Add(time.Hour).Unix(), Price: 100, Volume: 10})
	r.Record(&models.Tick{Symbol: "AAPL", Timestamp: day.Add(2 * time.Hour).Unix(), Price: 105, Volume: 20})
	r.Record(&models.Tick{Symbol: "AAPL", Timestamp: day.Add(3 * time.Hour).Unix(), Price: 98, Volume: 5})

	bars, err := r.FetchBars(context.Background(), "AAPL", 30)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("got %d bars, want 1", len(bars))
	}
	b := bars[0]
	if b.Open != 100 || b.High != 105 || b.Low != 98 || b.Close != 98 {
		t.Fatalf("OHLC = %v/%v/%v/%v, want 100/105/98/98", b.Open, b.High, b.Low, b.Close)
	}
	if b.Volume != 35 {
		t.Fatalf("volume = %v, want 35", b.Volume)
	}
}

func TestRecordRollsToNewDay(t *testing.T) {
	r := NewRecorder(60, testLogger(t))
	day1 := time.Date(2025, 11, 26, 15, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	r.Record(&models.Tick{Symbol: "AAPL", Timestamp: day1.Unix(), Price: 100, Volume: 1})
	r.Record(&models.Tick{Symbol: "AAPL", Timestamp: day2.Unix(), Price: 110, Volume: 1})

	bars, err := r.FetchBars(context.Background(), "AAPL", 30)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}
	if !bars[0].Timestamp.Before(bars[1].Timestamp) {
		t.Fatal("bars should be ordered oldest first")
	}
}

func TestSeedExtendsWithLiveBars(t *testing.T) {
	r := NewRecorder(60, testLogger(t))
	day := time.Date(2025, 11, 26, 0, 0, 0, 0, time.UTC)
	hist := []models.Bar{
		{Symbol: "AAPL", Timestamp: day.AddDate(0, 0, -2), Close: 95, Volume: 100},
		{Symbol: "AAPL", Timestamp: day.AddDate(0, 0, -1), Close: 97, Volume: 100},
	}
	r.Seed("AAPL", hist)
	r.Record(&models.Tick{Symbol: "AAPL", Timestamp: day.Add(time.Hour).Unix(), Price: 102, Volume: 50})

	bars, err := r.FetchBars(context.Background(), "AAPL", 30)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("got %d bars, want 3", len(bars))
	}
	if bars[2].Close != 102 {
		t.Fatalf("live bar close = %v, want 102", bars[2].Close)
	}
}

func TestFetchBarsUnknownSymbol(t *testing.T) {
	r := NewRecorder(60, testLogger(t))
	_, err := r.FetchBars(context.Background(), "ZZZZ", 30)
	if !errors.Is(err, models.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestRecorderBoundsHistory(t *testing.T) {
	r := NewRecorder(5, testLogger(t))
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		r.Record(&models.Tick{Symbol: "AAPL", Timestamp: base.AddDate(0, 0, i).Unix(), Price: 100, Volume: 1})
	}
	bars, err := r.FetchBars(context.Background(), "AAPL", 30)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(bars) != 5 {
		t.Fatalf("got %d bars, want 5 (bounded)", len(bars))
	}
}
