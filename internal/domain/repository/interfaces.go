package repository

import (
	"context"

	"MarketSleuth/internal/domain/models"
)

// BarSource returns the most recent bars for an instrument, oldest first.
type BarSource interface {
	FetchBars(ctx context.Context, symbol string, window int) ([]models.Bar, error)
}

// TickStream is a live market feed delivering raw trade events.
type TickStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// SignalStore persists triggered signals and terminal investigations.
type SignalStore interface {
	Init(ctx context.Context) error
	StoreSignal(ctx context.Context, sig *models.AnomalySignal) error
	StoreInvestigation(ctx context.Context, inv *models.InvestigationState) error
	RecentSignals(ctx context.Context, symbol string, limit int) ([]*models.AnomalySignal, error)
	RecentInvestigations(ctx context.Context, symbol string, status string, limit int) ([]*models.InvestigationState, error)
	Health(ctx context.Context) error
	Close() error
}

// Publisher broadcasts signals and verdicts to downstream consumers.
type Publisher interface {
	PublishSignal(ctx context.Context, sig *models.AnomalySignal) error
	PublishVerdict(ctx context.Context, inv *models.InvestigationState) error
	Close() error
}

// ReportSink renders a terminal investigation to a persisted artifact and
// returns its location.
type ReportSink interface {
	Write(inv *models.InvestigationState) (string, error)
}

// Metrics records operational counters and gauges.
type Metrics interface {
	RecordAnomaly(symbol string, score float64)
	RecordInvestigation(status string)
	RecordConfidence(symbol string, confidence float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
