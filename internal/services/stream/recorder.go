package stream

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"MarketSleuth/internal/domain/models"
	"MarketSleuth/pkg/logger"
)

// Recorder folds live ticks into daily OHLCV bars held in memory. It
// implements BarSource so the monitor can score intraday state without
// waiting for the REST provider to publish the day's candle.
type Recorder struct {
	mu      sync.RWMutex
	bars    map[string][]models.Bar // per symbol, oldest first, last entry is the open day
	maxBars int
	log     *logger.Logger
}

func NewRecorder(maxBars int, log *logger.Logger) *Recorder {
	if maxBars <= 0 {
		maxBars = 60
	}
	return &Recorder{bars: make(map[string][]models.Bar), maxBars: maxBars, log: log}
}

// Run consumes the stream until the context ends, reconnecting on read
// failures.
func (r *Recorder) Run(ctx context.Context, ts interface {
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
}) {
	for {
		ticks, errs := ts.Read(ctx)
	consume:
		for {
			select {
			case <-ctx.Done():
				return
			case tick, ok := <-ticks:
				if !ok {
					break consume
				}
				r.Record(tick)
			case err, ok := <-errs:
				if !ok {
					break consume
				}
				r.log.Warn("tick stream error", logger.Error(err))
				break consume
			}
		}
		if ctx.Err() != nil {
			return
		}
		if err := ts.Reconnect(ctx); err != nil {
			r.log.Error("tick stream reconnect failed", logger.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
		}
	}
}

// Record merges one tick into its symbol's open daily bar.
func (r *Recorder) Record(t *models.Tick) {
	day := time.Unix(t.Timestamp, 0).UTC().Truncate(24 * time.Hour)

	r.mu.Lock()
	defer r.mu.Unlock()

	bars := r.bars[t.Symbol]
	if n := len(bars); n > 0 && bars[n-1].Timestamp.Equal(day) {
		b := &bars[n-1]
		if t.Price > b.High {
			b.High = t.Price
		}
		if t.Price < b.Low {
			b.Low = t.Price
		}
		b.Close = t.Price
		b.Volume += t.Volume
		return
	}

	bars = append(bars, models.Bar{
		Symbol:    t.Symbol,
		Timestamp: day,
		Open:      t.Price,
		High:      t.Price,
		Low:       t.Price,
		Close:     t.Price,
		Volume:    t.Volume,
	})
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	if len(bars) > r.maxBars {
		bars = bars[len(bars)-r.maxBars:]
	}
	r.bars[t.Symbol] = bars
}

// Seed preloads history so live bars extend an existing window.
func (r *Recorder) Seed(symbol string, bars []models.Bar) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]models.Bar, len(bars))
	copy(cp, bars)
	if len(cp) > r.maxBars {
		cp = cp[len(cp)-r.maxBars:]
	}
	r.bars[symbol] = cp
}

// FetchBars returns up to window recorded bars, oldest first.
func (r *Recorder) FetchBars(_ context.Context, symbol string, window int) ([]models.Bar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bars := r.bars[symbol]
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no recorded bars for %s", models.ErrDataUnavailable, symbol)
	}
	out := make([]models.Bar, len(bars))
	copy(out, bars)
	if len(out) > window {
		out = out[len(out)-window:]
	}
	return out, nil
}
