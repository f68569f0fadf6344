package strategy

import (
	"context"
	"fmt"
	"strings"

	"MarketSleuth/internal/domain/models"
	domsvc "MarketSleuth/internal/domain/service"
)

const (
	minQueryLength = 15

	cotPrompt = `You are investigating why %s %s %.1f%% today on %.1fx normal volume.
Dominant anomaly factors: %s.

Think step by step about the most likely cause categories, then produce %d
web search queries that would surface primary evidence for the top causes.

Return exactly %d queries, one per line, plain text, no numbering.`

	expertPrompt = `Act as a %s analyzing why %s %s %.1f%% today.
From your specialty, what single web search query would best surface the
evidence you would look for first?

Return only the query, plain text.`

	critiquePrompt = `You are refining an investigation into why %s %s %.1f%%.

Queries already tried:
%s

Evidence so far scored %.2f average combined credibility-relevance, which
is not conclusive. Critique the previous queries: what angle did they miss?
Then produce %d NEW queries exploring the missed angles. Do not repeat or
rephrase previous queries.

Return exactly %d queries, one per line, plain text, no numbering.`
)

// Sequencer generates search queries for an investigation iteration. The
// strategy escalates with the iteration count: direct reasoning first,
// then expert perspectives, then self-critique of the earlier attempts.
type Sequencer struct {
	llm         domsvc.LanguageModel
	perIter     int
	maxQueryLen int
	expertRoles []string
}

func NewSequencer(llm domsvc.LanguageModel, perIteration, maxQueryLen int, roles []string) *Sequencer {
	if perIteration <= 0 {
		perIteration = 3
	}
	if maxQueryLen <= 0 {
		maxQueryLen = 250
	}
	if len(roles) == 0 {
		roles = DefaultExpertRoles()
	}
	return &Sequencer{llm: llm, perIter: perIteration, maxQueryLen: maxQueryLen, expertRoles: roles}
}

// DefaultExpertRoles covers the cause categories that most often explain
// single-name anomalies.
func DefaultExpertRoles() []string {
	return []string{
		"forensic earnings analyst",
		"securities litigation researcher",
		"technical market structure analyst",
		"insider trading surveillance specialist",
	}
}

// Queries produces the sanitized, deduplicated query set for the given
// iteration. Queries already present in state.QueriesIssued are never
// returned again.
func (s *Sequencer) Queries(ctx context.Context, state *models.InvestigationState) ([]string, error) {
	var raw []string
	var err error
	switch {
	case state.Iteration == 0:
		raw, err = s.chainOfThought(ctx, state.Signal)
	case state.Iteration == 1:
		raw, err = s.expertRoleQueries(ctx, state.Signal)
	default:
		raw, err = s.metaCritique(ctx, state)
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(state.QueriesIssued))
	for _, q := range state.QueriesIssued {
		seen[dedupeKey(q)] = struct{}{}
	}

	out := make([]string, 0, s.perIter)
	for _, q := range raw {
		q = s.Sanitize(q)
		if q == "" {
			continue
		}
		key := dedupeKey(q)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
		if len(out) == s.perIter {
			break
		}
	}
	return out, nil
}

func (s *Sequencer) chainOfThought(ctx context.Context, sig *models.AnomalySignal) ([]string, error) {
	prompt := fmt.Sprintf(cotPrompt,
		sig.Symbol, sig.Direction(), absFloat(sig.PriceChangePct), sig.VolumeRatio,
		strings.Join(sig.DominantFactors(), ", "),
		s.perIter, s.perIter)
	out, err := s.llm.Generate(ctx, prompt, map[string]any{"symbol": sig.Symbol, "strategy": "chain_of_thought"})
	if err != nil {
		return nil, fmt.Errorf("chain of thought queries: %w", err)
	}
	return splitLines(out), nil
}

func (s *Sequencer) expertRoleQueries(ctx context.Context, sig *models.AnomalySignal) ([]string, error) {
	queries := make([]string, 0, len(s.expertRoles))
	for _, role := range s.expertRoles {
		prompt := fmt.Sprintf(expertPrompt, role, sig.Symbol, sig.Direction(), absFloat(sig.PriceChangePct))
		out, err := s.llm.Generate(ctx, prompt, map[string]any{"symbol": sig.Symbol, "strategy": "expert_role", "role": role})
		if err != nil {
			return nil, fmt.Errorf("expert role queries: %w", err)
		}
		if lines := splitLines(out); len(lines) > 0 {
			queries = append(queries, lines[0])
		}
	}
	return queries, nil
}

func (s *Sequencer) metaCritique(ctx context.Context, state *models.InvestigationState) ([]string, error) {
	sig := state.Signal
	var combined float64
	for _, e := range state.Evidence {
		combined += e.Combined()
	}
	if n := len(state.Evidence); n > 0 {
		combined /= float64(n)
	}

	prompt := fmt.Sprintf(critiquePrompt,
		sig.Symbol, sig.Direction(), absFloat(sig.PriceChangePct),
		"- "+strings.Join(state.QueriesIssued, "\n- "),
		combined, s.perIter, s.perIter)
	out, err := s.llm.Generate(ctx, prompt, map[string]any{"symbol": sig.Symbol, "strategy": "meta_critique", "iteration": state.Iteration})
	if err != nil {
		return nil, fmt.Errorf("meta critique queries: %w", err)
	}
	return splitLines(out), nil
}

// Sanitize normalizes one raw model-produced query line. Markdown and
// list decorations are stripped, the result is truncated at a word
// boundary, and anything too short to be a meaningful query is dropped.
func (s *Sequencer) Sanitize(q string) string {
	q = strings.TrimSpace(q)
	q = strings.Trim(q, "`*_\"'")
	for _, prefix := range []string{"- ", "* ", "+ ", "> "} {
		q = strings.TrimPrefix(q, prefix)
	}
	q = stripNumbering(q)
	q = strings.Join(strings.Fields(q), " ")

	if len(q) > s.maxQueryLen {
		cut := strings.LastIndexByte(q[:s.maxQueryLen], ' ')
		if cut <= 0 {
			cut = s.maxQueryLen
		}
		q = q[:cut]
	}
	if len(q) <= minQueryLength {
		return ""
	}
	return q
}

// stripNumbering removes a leading "1." or "2)" list marker.
func stripNumbering(q string) string {
	i := 0
	for i < len(q) && q[i] >= '0' && q[i] <= '9' {
		i++
	}
	if i > 0 && i < len(q) && (q[i] == '.' || q[i] == ')') {
		return strings.TrimSpace(q[i+1:])
	}
	return q
}

func splitLines(out string) []string {
	lines := strings.Split(out, "\n")
	result := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			result = append(result, l)
		}
	}
	return result
}

func dedupeKey(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
