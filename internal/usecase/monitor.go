package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"MarketSleuth/internal/domain/models"
	drepo "MarketSleuth/internal/domain/repository"
	"MarketSleuth/internal/services/anomaly"
	"MarketSleuth/pkg/logger"
)

// MonitorConfig controls the watchlist sweep.
type MonitorConfig struct {
	Symbols     []string
	Window      int
	Concurrency int
}

// Monitor sweeps the watchlist, scores each instrument, and dispatches
// triggered signals to the investigator. Instruments are isolated: a
// data failure on one symbol never blocks the rest of the sweep.
type Monitor struct {
	cfg          MonitorConfig
	bars         drepo.BarSource
	scorer       *anomaly.Scorer
	investigator *Investigator
	store        drepo.SignalStore
	publisher    drepo.Publisher
	metrics      drepo.Metrics
	log          *logger.Logger
}

func NewMonitor(
	cfg MonitorConfig,
	bars drepo.BarSource,
	scorer *anomaly.Scorer,
	investigator *Investigator,
	store drepo.SignalStore,
	publisher drepo.Publisher,
	metrics drepo.Metrics,
	log *logger.Logger,
) *Monitor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Monitor{
		cfg:          cfg,
		bars:         bars,
		scorer:       scorer,
		investigator: investigator,
		store:        store,
		publisher:    publisher,
		metrics:      metrics,
		log:          log,
	}
}

// Sweep scores every watchlist symbol once and returns the signals that
// triggered an investigation.
func (m *Monitor) Sweep(ctx context.Context) []*models.AnomalySignal {
	start := time.Now()
	sem := make(chan struct{}, m.cfg.Concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var triggered []*models.AnomalySignal

	for _, symbol := range m.cfg.Symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			sig, err := m.Check(ctx, symbol, m.cfg.Window)
			if err != nil || sig == nil || !sig.Triggered {
				return
			}
			mu.Lock()
			triggered = append(triggered, sig)
			mu.Unlock()

			if m.investigator != nil {
				if _, err := m.investigator.Investigate(ctx, sig); err != nil {
					m.log.Warn("investigation interrupted",
						logger.String("symbol", symbol), logger.Error(err))
				}
			}
		}(symbol)
	}
	wg.Wait()

	m.metrics.RecordLatency("sweep", time.Since(start).Seconds())
	m.log.Info("sweep complete",
		logger.Int("symbols", len(m.cfg.Symbols)),
		logger.Int("triggered", len(triggered)))
	return triggered
}

// Check scores one symbol over the given window and records the signal
// if it triggered.
func (m *Monitor) Check(ctx context.Context, symbol string, window int) (*models.AnomalySignal, error) {
	if window <= 0 {
		window = m.cfg.Window
	}
	bars, err := m.bars.FetchBars(ctx, symbol, window)
	if err != nil {
		m.metrics.RecordError("fetch_bars")
		m.log.Warn("bar fetch failed", logger.String("symbol", symbol), logger.Error(err))
		return nil, err
	}

	sig, err := m.scorer.Score(bars)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientData) {
			m.log.Debug("window too short", logger.String("symbol", symbol), logger.Int("bars", len(bars)))
		} else {
			m.metrics.RecordError("score")
			m.log.Warn("scoring failed", logger.String("symbol", symbol), logger.Error(err))
		}
		return nil, err
	}

	if !sig.Triggered {
		return sig, nil
	}

	m.metrics.RecordAnomaly(symbol, sig.TotalScore)
	m.log.Info("anomaly triggered",
		logger.String("symbol", symbol),
		logger.Any("score", sig.TotalScore),
		logger.Strings("factors", sig.DominantFactors()))

	if m.store != nil {
		if err := m.store.StoreSignal(ctx, sig); err != nil {
			m.metrics.RecordError("store")
			m.log.Error("store signal failed", logger.String("symbol", symbol), logger.Error(err))
		}
	}
	if m.publisher != nil {
		if err := m.publisher.PublishSignal(ctx, sig); err != nil {
			m.metrics.RecordError("publish")
			m.log.Error("publish signal failed", logger.String("symbol", symbol), logger.Error(err))
		}
	}
	return sig, nil
}

// Run sweeps on the configured interval until the context ends. The
// first sweep happens immediately.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}
