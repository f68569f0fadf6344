package evidence

import (
	"errors"
	"math"
	"testing"
	"time"

	"MarketSleuth/internal/domain/models"
)

func TestNewAggregatorRejectsBadWeights(t *testing.T) {
	_, err := NewAggregator(Weights{Credibility: 0.5, Relevance: 0.3, Specificity: 0.3}, 5)
	if !errors.Is(err, models.ErrInvalidWeightConfig) {
		t.Fatalf("expected ErrInvalidWeightConfig, got %v", err)
	}

	// within floating tolerance is accepted
	if _, err := NewAggregator(Weights{Credibility: 0.4, Relevance: 0.3, Specificity: 0.3 + 1e-9}, 5); err != nil {
		t.Fatalf("tolerance should accept near-1 sum: %v", err)
	}
}

func TestAggregateEmptyEvidence(t *testing.T) {
	agg, err := NewAggregator(Weights{Credibility: 0.4, Relevance: 0.3, Specificity: 0.3}, 5)
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}
	conf, req := agg.Aggregate(testSignal(), nil)
	if conf != 0 {
		t.Fatalf("empty evidence confidence = %v, want 0", conf)
	}
	if len(req.TopEvidence) != 0 {
		t.Fatalf("empty evidence should have no top items")
	}
}

func TestAggregateWeightedConfidence(t *testing.T) {
	// credibilities {1.00, 0.90, 0.35}, relevances {0.9, 0.8, 0.2},
	// specificities {0.9, 0.7, 0.1}, weights 0.4/0.3/0.3:
	// 0.4*0.75 + 0.3*0.6333 + 0.3*0.5667 = 0.66
	agg, err := NewAggregator(Weights{Credibility: 0.4, Relevance: 0.3, Specificity: 0.3}, 5)
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}
	scores := []models.EvidenceScore{
		{Credibility: 1.00, Relevance: 0.9, Specificity: 0.9},
		{Credibility: 0.90, Relevance: 0.8, Specificity: 0.7},
		{Credibility: 0.35, Relevance: 0.2, Specificity: 0.1},
	}
	conf, _ := agg.Aggregate(testSignal(), scores)
	if math.Abs(conf-0.66) > 1e-9 {
		t.Fatalf("confidence = %v, want 0.66", conf)
	}
	if conf < 0 || conf > 1 {
		t.Fatalf("confidence %v out of [0,1]", conf)
	}
}

func TestAggregateRanksTopEvidence(t *testing.T) {
	agg, err := NewAggregator(Weights{Credibility: 0.4, Relevance: 0.3, Specificity: 0.3}, 2)
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}
	older := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)
	scores := []models.EvidenceScore{
		{Document: models.EvidenceDocument{URL: "a", RetrievedAt: older}, Credibility: 0.5, Relevance: 0.5},
		{Document: models.EvidenceDocument{URL: "b", RetrievedAt: newer}, Credibility: 0.5, Relevance: 0.5},
		{Document: models.EvidenceDocument{URL: "c", RetrievedAt: older}, Credibility: 0.9, Relevance: 0.9},
	}
	_, req := agg.Aggregate(testSignal(), scores)
	if len(req.TopEvidence) != 2 {
		t.Fatalf("top evidence len = %d, want 2", len(req.TopEvidence))
	}
	if req.TopEvidence[0].Document.URL != "c" {
		t.Fatalf("highest combined score should rank first, got %q", req.TopEvidence[0].Document.URL)
	}
	// tie broken by more recent retrieval
	if req.TopEvidence[1].Document.URL != "b" {
		t.Fatalf("tie should prefer newer document, got %q", req.TopEvidence[1].Document.URL)
	}
}
