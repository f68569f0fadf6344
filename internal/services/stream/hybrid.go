package stream

import (
	"context"

	"MarketSleuth/internal/domain/models"
	drepo "MarketSleuth/internal/domain/repository"
)

// HybridSource serves daily history from the REST provider and overlays
// the recorder's open intraday bar so sweeps see today's move before the
// provider publishes the closed candle.
type HybridSource struct {
	rest drepo.BarSource
	rec  *Recorder
}

func NewHybridSource(rest drepo.BarSource, rec *Recorder) *HybridSource {
	return &HybridSource{rest: rest, rec: rec}
}

func (h *HybridSource) FetchBars(ctx context.Context, symbol string, window int) ([]models.Bar, error) {
	hist, err := h.rest.FetchBars(ctx, symbol, window)
	if err != nil {
		// REST outage; recorded bars alone may still cover the window
		return h.rec.FetchBars(ctx, symbol, window)
	}

	live, lerr := h.rec.FetchBars(ctx, symbol, 1)
	if lerr != nil || len(live) == 0 {
		return hist, nil
	}

	open := live[len(live)-1]
	if n := len(hist); n > 0 && !hist[n-1].Timestamp.Before(open.Timestamp) {
		if hist[n-1].Timestamp.Equal(open.Timestamp) {
			hist[n-1] = open
		}
		return hist, nil
	}
	hist = append(hist, open)
	if len(hist) > window {
		hist = hist[len(hist)-window:]
	}
	return hist, nil
}
