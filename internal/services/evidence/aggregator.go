package evidence

import (
	"fmt"
	"math"
	"sort"

	"MarketSleuth/internal/domain/models"
)

const weightTolerance = 1e-6

// Weights combines the three evidence axes into one confidence value.
// They must sum to 1.
type Weights struct {
	Credibility float64
	Relevance   float64
	Specificity float64
}

// Aggregator folds an iteration's evidence set into an overall
// confidence and a ranked summary request.
type Aggregator struct {
	weights Weights
	topK    int
}

// NewAggregator validates the weight configuration at startup; a weight
// set that does not sum to 1 is process-fatal.
func NewAggregator(w Weights, topK int) (*Aggregator, error) {
	sum := w.Credibility + w.Relevance + w.Specificity
	if math.Abs(sum-1) > weightTolerance {
		return nil, fmt.Errorf("%w: got %v", models.ErrInvalidWeightConfig, sum)
	}
	if topK <= 0 {
		topK = 5
	}
	return &Aggregator{weights: w, topK: topK}, nil
}

// Aggregate computes the weighted confidence over the complete evidence
// set and packages the top-K items for root-cause narration. An empty
// set yields confidence 0.
func (a *Aggregator) Aggregate(sig *models.AnomalySignal, scores []models.EvidenceScore) (float64, *models.SummaryRequest) {
	req := &models.SummaryRequest{
		Symbol:       sig.Symbol,
		FactorScores: sig.FactorScores,
	}
	if len(scores) == 0 {
		return 0, req
	}

	var cred, rel, spec float64
	for _, s := range scores {
		cred += s.Credibility
		rel += s.Relevance
		spec += s.Specificity
	}
	n := float64(len(scores))

	confidence := a.weights.Credibility*(cred/n) +
		a.weights.Relevance*(rel/n) +
		a.weights.Specificity*(spec/n)
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	req.TopEvidence = a.rank(scores)
	return confidence, req
}

// rank sorts by combined score descending, breaking ties with the more
// recently retrieved document, and keeps the top K.
func (a *Aggregator) rank(scores []models.EvidenceScore) []models.EvidenceScore {
	ranked := make([]models.EvidenceScore, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		ci, cj := ranked[i].Combined(), ranked[j].Combined()
		if ci == cj {
			return ranked[i].Document.RetrievedAt.After(ranked[j].Document.RetrievedAt)
		}
		return ci > cj
	})
	if len(ranked) > a.topK {
		ranked = ranked[:a.topK]
	}
	return ranked
}
