package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"MarketSleuth/internal/domain/models"
	domsvc "MarketSleuth/internal/domain/service"
	"MarketSleuth/internal/services/evidence"
	"MarketSleuth/internal/services/strategy"
	"MarketSleuth/pkg/logger"
)

// promptLLM answers by prompt shape: query prompts get query lines,
// scoring prompts get a fixed score pair, summary prompts get prose.
type promptLLM struct {
	mu        sync.Mutex
	scorePair string
	queryN    int
	failAll   bool
	calls     int
}

func (p *promptLLM) Generate(_ context.Context, prompt string, _ map[string]any) (string, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	p.mu.Unlock()

	if p.failAll {
		return "", models.ErrModelUnavailable
	}
	switch {
	case strings.Contains(prompt, "Rate on scale"):
		return p.scorePair, nil
	case strings.Contains(prompt, "Summarize"):
		return "Earnings miss reported by the primary source.", nil
	default:
		var sb strings.Builder
		for i := 0; i < 3; i++ {
			fmt.Fprintf(&sb, "query batch %d line %d about the anomaly\n", n, i)
		}
		return sb.String(), nil
	}
}

type fakeSearch struct {
	mu     sync.Mutex
	domain string
	err    error
	calls  int
}

func (f *fakeSearch) Search(_ context.Context, query string) ([]models.EvidenceDocument, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []models.EvidenceDocument{{
		SourceDomain: f.domain,
		URL:          fmt.Sprintf("https://%s/article-%d", f.domain, n),
		Title:        "Result for " + query,
		Text:         "body",
		RetrievedAt:  time.Now(),
	}}, nil
}

// stickySearch returns the same single document for every query, so
// repeated iterations keep surfacing an already-scored URL.
type stickySearch struct {
	domain string
}

func (s *stickySearch) Search(_ context.Context, query string) ([]models.EvidenceDocument, error) {
	return []models.EvidenceDocument{{
		SourceDomain: s.domain,
		URL:          fmt.Sprintf("https://%s/article-1", s.domain),
		Title:        "Result for " + query,
		Text:         "body",
		RetrievedAt:  time.Now(),
	}}, nil
}

type capturingStore struct {
	mu     sync.Mutex
	stored []*models.InvestigationState
}

func (c *capturingStore) Init(context.Context) error { return nil }
func (c *capturingStore) StoreSignal(context.Context, *models.AnomalySignal) error {
	return nil
}
func (c *capturingStore) StoreInvestigation(_ context.Context, inv *models.InvestigationState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored = append(c.stored, inv)
	return nil
}
func (c *capturingStore) RecentSignals(context.Context, string, int) ([]*models.AnomalySignal, error) {
	return nil, nil
}
func (c *capturingStore) RecentInvestigations(context.Context, string, string, int) ([]*models.InvestigationState, error) {
	return nil, nil
}
func (c *capturingStore) Health(context.Context) error { return nil }
func (c *capturingStore) Close() error                 { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordAnomaly(string, float64)    {}
func (nopMetrics) RecordInvestigation(string)       {}
func (nopMetrics) RecordConfidence(string, float64) {}
func (nopMetrics) RecordError(string)               {}
func (nopMetrics) RecordLatency(string, float64)    {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func triggeredSignal() *models.AnomalySignal {
	return &models.AnomalySignal{
		Symbol:         "AAPL",
		Timestamp:      time.Date(2025, 11, 27, 0, 0, 0, 0, time.UTC),
		FactorScores:   map[string]float64{models.FactorPrice: 2, models.FactorVolume: 2, models.FactorRSI: 1},
		TotalScore:     5,
		Triggered:      true,
		PriceChangePct: -12.0,
		VolumeRatio:    4.0,
	}
}

func newInvestigator(t *testing.T, llm *promptLLM, search domsvc.SearchProvider, store *capturingStore, maxRetries int) *Investigator {
	t.Helper()
	log := testLogger(t)
	agg, err := evidence.NewAggregator(evidence.Weights{Credibility: 0.4, Relevance: 0.3, Specificity: 0.3}, 5)
	if err != nil {
		t.Fatalf("aggregator: %v", err)
	}
	return NewInvestigator(
		InvestigatorConfig{
			AcceptConfidence:    0.70,
			PartialFloor:        0.40,
			MaxRetries:          maxRetries,
			Concurrency:         2,
			CollaboratorTimeout: 5 * time.Second,
		},
		strategy.NewSequencer(llm, 3, 250, nil),
		search,
		evidence.NewEvaluator(evidence.NewCredibilityTable(nil), llm),
		agg,
		llm,
		store,
		nil,
		nil,
		nopMetrics{},
		log,
	)
}

func TestHighConfidenceSolvesFirstIteration(t *testing.T) {
	llm := &promptLLM{scorePair: "0.8,0.8"}
	search := &fakeSearch{domain: "bloomberg.com"}
	store := &capturingStore{}
	inv := newInvestigator(t, llm, search, store, 3)

	state, err := inv.Investigate(context.Background(), triggeredSignal())
	if err != nil {
		t.Fatalf("investigate: %v", err)
	}
	if state.Status != models.StatusSolved {
		t.Fatalf("status = %s, want SOLVED", state.Status)
	}
	// 0.4*0.94 + 0.3*0.8 + 0.3*0.8 = 0.856, accepted on the first pass
	if state.Confidence < 0.70 {
		t.Fatalf("confidence = %v, want >= 0.70", state.Confidence)
	}
	if len(state.QueriesIssued) != 3 {
		t.Fatalf("issued %d queries, want 3 (single iteration)", len(state.QueriesIssued))
	}
	if state.RootCause == "" {
		t.Fatal("solved investigation should carry a root cause")
	}
	if state.CompletedAt == nil {
		t.Fatal("terminal investigation should be stamped complete")
	}
	if len(store.stored) != 1 {
		t.Fatalf("stored %d investigations, want 1", len(store.stored))
	}
}

func TestMediumConfidencePartiallyExplainedAtMaxRetries(t *testing.T) {
	// reddit credibility 0.35 with 0.55 scores lands between the partial
	// floor and the accept gate on every iteration
	llm := &promptLLM{scorePair: "0.55,0.55"}
	search := &fakeSearch{domain: "reddit.com"}
	inv := newInvestigator(t, llm, search, &capturingStore{}, 2)

	state, err := inv.Investigate(context.Background(), triggeredSignal())
	if err != nil {
		t.Fatalf("investigate: %v", err)
	}
	if state.Status != models.StatusPartiallyExplained {
		t.Fatalf("status = %s, want PARTIALLY_EXPLAINED", state.Status)
	}
	if state.Confidence < 0.40 || state.Confidence >= 0.70 {
		t.Fatalf("confidence = %v, want in [0.40, 0.70)", state.Confidence)
	}
	// max_retries 2 allows iterations 0, 1, 2
	if len(state.QueriesIssued) != 9 {
		t.Fatalf("issued %d queries, want 9 across 3 iterations", len(state.QueriesIssued))
	}
}

func TestWeakEvidenceUnsolved(t *testing.T) {
	llm := &promptLLM{scorePair: "0.1,0.1"}
	search := &fakeSearch{domain: "reddit.com"}
	inv := newInvestigator(t, llm, search, &capturingStore{}, 1)

	state, err := inv.Investigate(context.Background(), triggeredSignal())
	if err != nil {
		t.Fatalf("investigate: %v", err)
	}
	if state.Status != models.StatusUnsolved {
		t.Fatalf("status = %s, want UNSOLVED", state.Status)
	}
}

func TestSearchOutageStillTerminates(t *testing.T) {
	llm := &promptLLM{scorePair: "0.8,0.8"}
	search := &fakeSearch{err: fmt.Errorf("search api down")}
	inv := newInvestigator(t, llm, search, &capturingStore{}, 2)

	state, err := inv.Investigate(context.Background(), triggeredSignal())
	if err != nil {
		t.Fatalf("investigate: %v", err)
	}
	if state.Status != models.StatusUnsolved {
		t.Fatalf("status = %s, want UNSOLVED with no evidence", state.Status)
	}
	if state.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0", state.Confidence)
	}
	if len(state.Evidence) != 0 {
		t.Fatal("no evidence should accumulate when every search fails")
	}
}

func TestModelOutageConsumesRetries(t *testing.T) {
	llm := &promptLLM{failAll: true}
	search := &fakeSearch{domain: "bloomberg.com"}
	inv := newInvestigator(t, llm, search, &capturingStore{}, 2)

	state, err := inv.Investigate(context.Background(), triggeredSignal())
	if err != nil {
		t.Fatalf("investigate: %v", err)
	}
	if state.Status != models.StatusUnsolved {
		t.Fatalf("status = %s, want UNSOLVED after failed iterations", state.Status)
	}
	if len(state.QueriesIssued) != 0 {
		t.Fatal("failed query generation should not record queries")
	}
}

func TestCancellationLeavesPending(t *testing.T) {
	llm := &promptLLM{scorePair: "0.1,0.1"}
	search := &fakeSearch{domain: "reddit.com"}
	inv := newInvestigator(t, llm, search, &capturingStore{}, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := inv.Investigate(ctx, triggeredSignal())
	if err == nil {
		t.Fatal("expected context error")
	}
	if state.Status != models.StatusPending {
		t.Fatalf("status = %s, want PENDING after cancellation", state.Status)
	}
	if state.CompletedAt != nil {
		t.Fatal("cancelled investigation should not be stamped complete")
	}
}

func TestEvidenceAccumulatesAcrossIterations(t *testing.T) {
	llm := &promptLLM{scorePair: "0.55,0.55"}
	search := &fakeSearch{domain: "reddit.com"}
	inv := newInvestigator(t, llm, search, &capturingStore{}, 1)

	state, err := inv.Investigate(context.Background(), triggeredSignal())
	if err != nil {
		t.Fatalf("investigate: %v", err)
	}
	// two iterations, three queries each, one unique doc per query
	if len(state.Evidence) != 6 {
		t.Fatalf("got %d evidence items, want 6 accumulated", len(state.Evidence))
	}
}

func TestRepeatedDocumentScoredOnce(t *testing.T) {
	llm := &promptLLM{scorePair: "0.55,0.55"}
	search := &stickySearch{domain: "reddit.com"}
	inv := newInvestigator(t, llm, search, &capturingStore{}, 2)

	state, err := inv.Investigate(context.Background(), triggeredSignal())
	if err != nil {
		t.Fatalf("investigate: %v", err)
	}
	// the same URL comes back every iteration but enters the evidence
	// set exactly once
	if len(state.Evidence) != 1 {
		t.Fatalf("got %d evidence items for one URL, want 1", len(state.Evidence))
	}
}

func TestIterationStaysWithinRetryBudget(t *testing.T) {
	llm := &promptLLM{scorePair: "0.1,0.1"}
	search := &fakeSearch{domain: "reddit.com"}
	inv := newInvestigator(t, llm, search, &capturingStore{}, 2)

	state, err := inv.Investigate(context.Background(), triggeredSignal())
	if err != nil {
		t.Fatalf("investigate: %v", err)
	}
	if state.Iteration != 2 {
		t.Fatalf("iteration = %d after exhaustion, want max_retries 2", state.Iteration)
	}
}
