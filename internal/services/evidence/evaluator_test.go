package evidence

import (
	"context"
	"errors"
	"testing"
	"time"

	"MarketSleuth/internal/domain/models"
)

type fakeLLM struct {
	out string
	err error
}

func (f *fakeLLM) Generate(_ context.Context, _ string, _ map[string]any) (string, error) {
	return f.out, f.err
}

func testSignal() *models.AnomalySignal {
	return &models.AnomalySignal{
		Symbol:         "AAPL",
		Timestamp:      time.Date(2025, 11, 27, 0, 0, 0, 0, time.UTC),
		FactorScores:   map[string]float64{models.FactorPrice: 2, models.FactorVolume: 2, models.FactorRSI: 1},
		TotalScore:     5,
		Triggered:      true,
		PriceChangePct: -14.5,
		VolumeRatio:    5.2,
	}
}

func testDoc() models.EvidenceDocument {
	return models.EvidenceDocument{
		URL:         "https://www.bloomberg.com/news/apple-earnings",
		Title:       "Apple Q4 Earnings Miss",
		Text:        "Apple Inc reported Q4 earnings that fell short with 8% revenue decline",
		RetrievedAt: time.Now(),
	}
}

func TestEvaluateScoresDocument(t *testing.T) {
	ev := NewEvaluator(NewCredibilityTable(nil), &fakeLLM{out: "0.9,0.8"})
	score, err := ev.Evaluate(context.Background(), testDoc(), testSignal())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if score.Credibility != 0.94 {
		t.Fatalf("credibility = %v, want 0.94 (bloomberg tier)", score.Credibility)
	}
	if score.Relevance != 0.9 || score.Specificity != 0.8 {
		t.Fatalf("relevance/specificity = %v/%v, want 0.9/0.8", score.Relevance, score.Specificity)
	}
}

func TestEvaluateMalformedResponses(t *testing.T) {
	cases := []string{
		"not numbers at all",
		"0.9",
		"0.9,0.8,0.7",
		"1.5,0.8", // out of range
		"0.9,-0.1",
	}
	for _, out := range cases {
		ev := NewEvaluator(NewCredibilityTable(nil), &fakeLLM{out: out})
		_, err := ev.Evaluate(context.Background(), testDoc(), testSignal())
		if !errors.Is(err, models.ErrMalformedModelResponse) {
			t.Fatalf("output %q: expected ErrMalformedModelResponse, got %v", out, err)
		}
	}
}

func TestEvaluateToleratesTrailingExplanation(t *testing.T) {
	ev := NewEvaluator(NewCredibilityTable(nil), &fakeLLM{out: "0.7, 0.6\nThe article mentions the company directly."})
	score, err := ev.Evaluate(context.Background(), testDoc(), testSignal())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if score.Relevance != 0.7 || score.Specificity != 0.6 {
		t.Fatalf("got %v/%v, want 0.7/0.6", score.Relevance, score.Specificity)
	}
}

func TestEvaluatePropagatesModelFailure(t *testing.T) {
	wantErr := models.ErrModelUnavailable
	ev := NewEvaluator(NewCredibilityTable(nil), &fakeLLM{err: wantErr})
	_, err := ev.Evaluate(context.Background(), testDoc(), testSignal())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected model failure to propagate, got %v", err)
	}
}
