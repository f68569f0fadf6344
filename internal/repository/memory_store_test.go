package repository

import (
	"context"
	"testing"

	"MarketSleuth/internal/domain/models"
)

func TestMemoryStoreRecentSignals(t *testing.T) {
	s := NewMemoryStore(10)
	ctx := context.Background()

	for _, sym := range []string{"AAPL", "NVDA", "AAPL"} {
		if err := s.StoreSignal(ctx, &models.AnomalySignal{Symbol: sym}); err != nil {
			t.Fatalf("store: %v", err)
		}
	}

	all, err := s.RecentSignals(ctx, "", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d signals, want 3", len(all))
	}
	// newest first
	if all[0].Symbol != "AAPL" || all[1].Symbol != "NVDA" {
		t.Fatalf("unexpected order: %s, %s", all[0].Symbol, all[1].Symbol)
	}

	aapl, err := s.RecentSignals(ctx, "AAPL", 10)
	if err != nil {
		t.Fatalf("recent filtered: %v", err)
	}
	if len(aapl) != 2 {
		t.Fatalf("got %d AAPL signals, want 2", len(aapl))
	}
}

func TestMemoryStoreInvestigationFilters(t *testing.T) {
	s := NewMemoryStore(10)
	ctx := context.Background()

	states := []*models.InvestigationState{
		{Symbol: "AAPL", Status: models.StatusSolved},
		{Symbol: "AAPL", Status: models.StatusUnsolved},
		{Symbol: "NVDA", Status: models.StatusSolved},
	}
	for _, st := range states {
		if err := s.StoreInvestigation(ctx, st); err != nil {
			t.Fatalf("store: %v", err)
		}
	}

	solved, err := s.RecentInvestigations(ctx, "", "SOLVED", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(solved) != 2 {
		t.Fatalf("got %d solved, want 2", len(solved))
	}

	aaplSolved, err := s.RecentInvestigations(ctx, "AAPL", "SOLVED", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(aaplSolved) != 1 {
		t.Fatalf("got %d AAPL solved, want 1", len(aaplSolved))
	}
}

func TestMemoryStoreBounded(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	for _, sym := range []string{"A", "B", "C"} {
		if err := s.StoreSignal(ctx, &models.AnomalySignal{Symbol: sym}); err != nil {
			t.Fatalf("store: %v", err)
		}
	}
	all, _ := s.RecentSignals(ctx, "", 10)
	if len(all) != 2 || all[0].Symbol != "C" || all[1].Symbol != "B" {
		t.Fatalf("bound not enforced: %+v", all)
	}
}

func TestMemoryStoreLimit(t *testing.T) {
	s := NewMemoryStore(10)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = s.StoreSignal(ctx, &models.AnomalySignal{Symbol: "AAPL"})
	}
	out, _ := s.RecentSignals(ctx, "", 3)
	if len(out) != 3 {
		t.Fatalf("got %d, want limit 3", len(out))
	}
}
