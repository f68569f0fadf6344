package anomaly

import (
	"fmt"
	"math"

	"MarketSleuth/internal/domain/models"
	"MarketSleuth/pkg/config"
)

// FactorCaps bounds each factor's contribution to the total score.
type FactorCaps struct {
	Price      float64
	Volume     float64
	RSI        float64
	Volatility float64
	Gap        float64
}

// Scorer converts a bar window into a bounded anomaly score.
// Scoring is a pure computation: identical bars and settings always
// produce an identical signal.
type Scorer struct {
	TriggerThreshold float64
	PriceThreshold   float64 // fractional, e.g. 0.10 for 10%
	VolumeThreshold  float64 // ratio, e.g. 3.0 for 3x
	GapThreshold     float64 // fractional
	RSIPeriod        int
	MinWindow        int
	TrailingWindow   int
	Caps             FactorCaps
}

const maxTotalScore = 9

// NewScorer builds a Scorer from application config.
func NewScorer(cfg *config.Config) *Scorer {
	a := cfg.Anomaly
	return &Scorer{
		TriggerThreshold: a.TriggerThreshold,
		PriceThreshold:   a.PriceThreshold,
		VolumeThreshold:  a.VolumeThreshold,
		GapThreshold:     a.GapThreshold,
		RSIPeriod:        a.RSIPeriod,
		MinWindow:        a.MinWindow,
		TrailingWindow:   a.TrailingWindow,
		Caps: FactorCaps{
			Price:      a.FactorCaps.Price,
			Volume:     a.FactorCaps.Volume,
			RSI:        a.FactorCaps.RSI,
			Volatility: a.FactorCaps.Volatility,
			Gap:        a.FactorCaps.Gap,
		},
	}
}

// Score evaluates the most recent bar against its trailing window.
// Bars must be ordered oldest first.
func (s *Scorer) Score(bars []models.Bar) (*models.AnomalySignal, error) {
	if len(bars) < s.MinWindow {
		return nil, fmt.Errorf("%w: got %d bars, need %d", models.ErrInsufficientData, len(bars), s.MinWindow)
	}

	last := bars[len(bars)-1]
	prev := bars[len(bars)-2]

	priceChange := pctChange(last.Close, prev.Close)
	volumeRatio := s.volumeRatio(bars)
	rsi := s.rsi(bars)
	curVol, baseVol := s.volatility(bars)
	gap := pctChange(last.Open, prev.Close)

	factors := map[string]float64{
		models.FactorPrice:      clampFactor(bandScore(math.Abs(priceChange), s.PriceThreshold), s.Caps.Price),
		models.FactorVolume:     clampFactor(bandScore(volumeRatio, s.VolumeThreshold), s.Caps.Volume),
		models.FactorRSI:        0,
		models.FactorVolatility: 0,
		models.FactorGap:        0,
	}
	if rsi < 30 || rsi > 70 {
		factors[models.FactorRSI] = clampFactor(1, s.Caps.RSI)
	}
	if baseVol > 0 && curVol > 2*baseVol {
		factors[models.FactorVolatility] = clampFactor(1, s.Caps.Volatility)
	}
	if math.Abs(gap) > s.GapThreshold {
		factors[models.FactorGap] = clampFactor(1, s.Caps.Gap)
	}

	total := 0.0
	for _, v := range factors {
		total += v
	}
	if total > maxTotalScore {
		total = maxTotalScore
	}

	return &models.AnomalySignal{
		Symbol:         last.Symbol,
		Timestamp:      last.Timestamp,
		FactorScores:   factors,
		TotalScore:     total,
		Triggered:      total >= s.TriggerThreshold,
		Price:          last.Close,
		PriceChangePct: priceChange * 100,
		VolumeRatio:    volumeRatio,
		RSI:            rsi,
		Volatility:     curVol,
		GapPct:         gap * 100,
	}, nil
}

// bandScore maps a magnitude against a threshold into 0/1/2 points:
// below half the threshold 0, up to the threshold 1, above it 2.
func bandScore(value, threshold float64) float64 {
	switch {
	case value >= threshold:
		return 2
	case value >= threshold/2:
		return 1
	default:
		return 0
	}
}

func clampFactor(points, limit float64) float64 {
	if points > limit {
		return limit
	}
	return points
}

func pctChange(cur, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev
}

// volumeRatio compares the last bar's volume to the trailing average of
// the preceding bars, bounded by TrailingWindow.
func (s *Scorer) volumeRatio(bars []models.Bar) float64 {
	n := len(bars) - 1
	start := 0
	if n > s.TrailingWindow {
		start = n - s.TrailingWindow
	}
	sum := 0.0
	count := 0
	for _, b := range bars[start:n] {
		sum += b.Volume
		count++
	}
	if count == 0 || sum == 0 {
		return 0
	}
	return bars[n].Volume / (sum / float64(count))
}

// rsi computes the Relative Strength Index with Wilder smoothing.
func (s *Scorer) rsi(bars []models.Bar) float64 {
	period := s.RSIPeriod
	if len(bars) < period+1 {
		return 50
	}

	// seed averages with a simple mean over the first period
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := bars[i].Close - bars[i-1].Close
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing over the remainder
	for i := period + 1; i < len(bars); i++ {
		delta := bars[i].Close - bars[i-1].Close
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// volatility returns the realized volatility of the most recent returns
// and its trailing baseline. The short window is a quarter of the
// trailing window, at least 2 returns.
func (s *Scorer) volatility(bars []models.Bar) (current, baseline float64) {
	rets := closeReturns(bars)
	short := s.TrailingWindow / 4
	if short < 2 {
		short = 2
	}
	if len(rets) <= short {
		return stdev(rets), 0
	}
	return stdev(rets[len(rets)-short:]), stdev(rets[:len(rets)-short])
}

func closeReturns(bars []models.Bar) []float64 {
	rets := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		rets = append(rets, pctChange(bars[i].Close, bars[i-1].Close))
	}
	return rets
}

func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	varSum := 0.0
	for _, x := range xs {
		d := x - mean
		varSum += d * d
	}
	return math.Sqrt(varSum / float64(len(xs)-1))
}
