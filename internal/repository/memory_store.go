package repository

import (
	"context"
	"sync"

	"MarketSleuth/internal/domain/models"
)

// MemoryStore is a bounded in-process SignalStore used when ClickHouse
// is disabled. Newest entries are returned first, like the ClickHouse
// queries.
type MemoryStore struct {
	mu             sync.RWMutex
	maxEntries     int
	signals        []*models.AnomalySignal
	investigations []*models.InvestigationState
}

func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MemoryStore{maxEntries: maxEntries}
}

func (s *MemoryStore) Init(context.Context) error { return nil }

func (s *MemoryStore) StoreSignal(_ context.Context, sig *models.AnomalySignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = append(s.signals, sig)
	if len(s.signals) > s.maxEntries {
		s.signals = s.signals[len(s.signals)-s.maxEntries:]
	}
	return nil
}

func (s *MemoryStore) StoreInvestigation(_ context.Context, inv *models.InvestigationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.investigations = append(s.investigations, inv)
	if len(s.investigations) > s.maxEntries {
		s.investigations = s.investigations[len(s.investigations)-s.maxEntries:]
	}
	return nil
}

func (s *MemoryStore) RecentSignals(_ context.Context, symbol string, limit int) ([]*models.AnomalySignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.AnomalySignal
	for i := len(s.signals) - 1; i >= 0; i-- {
		sig := s.signals[i]
		if symbol != "" && sig.Symbol != symbol {
			continue
		}
		out = append(out, sig)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) RecentInvestigations(_ context.Context, symbol, status string, limit int) ([]*models.InvestigationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.InvestigationState
	for i := len(s.investigations) - 1; i >= 0; i-- {
		inv := s.investigations[i]
		if symbol != "" && inv.Symbol != symbol {
			continue
		}
		if status != "" && string(inv.Status) != status {
			continue
		}
		out = append(out, inv)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Health(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
