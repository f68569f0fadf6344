package evidence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"MarketSleuth/internal/domain/models"
	domsvc "MarketSleuth/internal/domain/service"
)

const scoringPrompt = `Score this evidence for investigating a market anomaly.

ANOMALY: %s %s %.1f%% with %.1fx volume

EVIDENCE: %s

Rate on scale 0.0-1.0:
1. RELEVANCE: Does it explain THIS specific anomaly?
2. SPECIFICITY: How specific is the information (exact numbers, dates, events)?

Return only two numbers: relevance,specificity
Example: 0.85,0.90`

const maxEvidenceExcerpt = 300

// Evaluator scores a single evidence document. Credibility comes from
// the static tier table; relevance and specificity come from the
// language-model collaborator.
type Evaluator struct {
	table *CredibilityTable
	llm   domsvc.LanguageModel
}

func NewEvaluator(table *CredibilityTable, llm domsvc.LanguageModel) *Evaluator {
	return &Evaluator{table: table, llm: llm}
}

// Evaluate produces an EvidenceScore for one document. A response that
// cannot be parsed into two in-range floats fails with
// ErrMalformedModelResponse and the document is dropped by the caller.
func (e *Evaluator) Evaluate(ctx context.Context, doc models.EvidenceDocument, sig *models.AnomalySignal) (models.EvidenceScore, error) {
	domain := doc.SourceDomain
	if domain == "" {
		domain = ExtractDomain(doc.URL)
	}
	credibility := e.table.Score(domain)

	excerpt := doc.Text
	if len(excerpt) > maxEvidenceExcerpt {
		cut := maxEvidenceExcerpt
		for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
			cut--
		}
		excerpt = excerpt[:cut]
	}
	prompt := fmt.Sprintf(scoringPrompt,
		sig.Symbol, sig.Direction(), absFloat(sig.PriceChangePct), sig.VolumeRatio,
		strings.TrimSpace(doc.Title+": "+excerpt))

	out, err := e.llm.Generate(ctx, prompt, map[string]any{
		"symbol":        sig.Symbol,
		"factor_scores": sig.FactorScores,
	})
	if err != nil {
		return models.EvidenceScore{}, fmt.Errorf("score evidence: %w", err)
	}

	relevance, specificity, err := parseScorePair(out)
	if err != nil {
		return models.EvidenceScore{}, err
	}

	return models.EvidenceScore{
		Document:    doc,
		Credibility: credibility,
		Relevance:   relevance,
		Specificity: specificity,
	}, nil
}

// parseScorePair extracts "relevance,specificity" from untrusted model
// output. Both values must be floats in [0,1].
func parseScorePair(out string) (float64, float64, error) {
	s := strings.TrimSpace(out)
	// tolerate a trailing explanation line; scores are on the first line
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: expected two scores, got %q", models.ErrMalformedModelResponse, out)
	}

	vals := make([]float64, 2)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %q is not a number", models.ErrMalformedModelResponse, p)
		}
		if v < 0 || v > 1 {
			return 0, 0, fmt.Errorf("%w: score %v out of [0,1]", models.ErrMalformedModelResponse, v)
		}
		vals[i] = v
	}
	return vals[0], vals[1], nil
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
