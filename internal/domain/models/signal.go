package models

import (
	"sort"
	"time"
)

// Factor names used in AnomalySignal.FactorScores.
const (
	FactorPrice      = "price"
	FactorVolume     = "volume"
	FactorRSI        = "rsi"
	FactorVolatility = "volatility"
	FactorGap        = "gap"
)

// AnomalySignal is the output of one scoring pass over a bar window.
// TotalScore is the clamped sum of FactorScores; Triggered is true iff
// TotalScore reached the configured trigger threshold.
type AnomalySignal struct {
	Symbol       string             `json:"symbol"`
	Timestamp    time.Time          `json:"timestamp"`
	FactorScores map[string]float64 `json:"factor_scores"`
	TotalScore   float64            `json:"total_score"`
	Triggered    bool               `json:"triggered"`

	// Raw metrics behind the factor scores, carried for query generation
	// and reporting.
	Price          float64 `json:"price"`
	PriceChangePct float64 `json:"price_change_pct"`
	VolumeRatio    float64 `json:"volume_ratio"`
	RSI            float64 `json:"rsi"`
	Volatility     float64 `json:"volatility"`
	GapPct         float64 `json:"gap_pct"`
}

// Direction returns "dropped" or "surged" based on the price change.
func (s *AnomalySignal) Direction() string {
	if s.PriceChangePct < 0 {
		return "dropped"
	}
	return "surged"
}

// Severity maps the total score to a coarse label.
func (s *AnomalySignal) Severity() string {
	switch {
	case s.TotalScore >= 7:
		return "critical"
	case s.TotalScore >= 5:
		return "high"
	default:
		return "moderate"
	}
}

// DominantFactors returns factor names ordered by contribution, highest first.
// Zero-score factors are excluded.
func (s *AnomalySignal) DominantFactors() []string {
	names := make([]string, 0, len(s.FactorScores))
	for name, v := range s.FactorScores {
		if v > 0 {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := s.FactorScores[names[i]], s.FactorScores[names[j]]
		if a == b {
			return names[i] < names[j]
		}
		return a > b
	})
	return names
}
