package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"MarketSleuth/internal/domain/models"
	drepo "MarketSleuth/internal/domain/repository"
	domsvc "MarketSleuth/internal/domain/service"
	"MarketSleuth/internal/services/evidence"
	"MarketSleuth/internal/services/strategy"
	"MarketSleuth/pkg/logger"
)

const summaryPrompt = `Summarize the root cause of this market anomaly in 2-3 sentences.

SYMBOL: %s
FACTOR SCORES: %v

TOP EVIDENCE:
%s

State the most likely cause and cite the strongest source. Plain text only.`

// InvestigatorConfig holds the iteration and acceptance policy.
type InvestigatorConfig struct {
	AcceptConfidence    float64
	PartialFloor        float64
	MaxRetries          int
	Concurrency         int
	CollaboratorTimeout time.Duration
}

// Investigator drives a triggered signal through iterative evidence
// gathering until it reaches a terminal status or runs out of retries.
type Investigator struct {
	cfg       InvestigatorConfig
	sequencer *strategy.Sequencer
	search    domsvc.SearchProvider
	evaluator *evidence.Evaluator
	agg       *evidence.Aggregator
	llm       domsvc.LanguageModel

	store     drepo.SignalStore
	publisher drepo.Publisher
	reports   drepo.ReportSink
	metrics   drepo.Metrics
	log       *logger.Logger
}

func NewInvestigator(
	cfg InvestigatorConfig,
	sequencer *strategy.Sequencer,
	search domsvc.SearchProvider,
	evaluator *evidence.Evaluator,
	agg *evidence.Aggregator,
	llm domsvc.LanguageModel,
	store drepo.SignalStore,
	publisher drepo.Publisher,
	reports drepo.ReportSink,
	metrics drepo.Metrics,
	log *logger.Logger,
) *Investigator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Investigator{
		cfg:       cfg,
		sequencer: sequencer,
		search:    search,
		evaluator: evaluator,
		agg:       agg,
		llm:       llm,
		store:     store,
		publisher: publisher,
		reports:   reports,
		metrics:   metrics,
		log:       log,
	}
}

// Investigate runs the full loop for one triggered signal. The returned
// state is terminal unless the context was cancelled, in which case it
// stays PENDING with the evidence collected so far.
func (inv *Investigator) Investigate(ctx context.Context, sig *models.AnomalySignal) (*models.InvestigationState, error) {
	state := &models.InvestigationState{
		Symbol:    sig.Symbol,
		Signal:    sig,
		Status:    models.StatusPending,
		StartedAt: time.Now(),
	}

	start := time.Now()
	var lastSummary *models.SummaryRequest

	for state.Iteration = 0; state.Iteration <= inv.cfg.MaxRetries; state.Iteration++ {
		if ctx.Err() != nil {
			inv.log.Warn("investigation cancelled",
				logger.String("symbol", state.Symbol),
				logger.Int("iteration", state.Iteration))
			return state, ctx.Err()
		}

		confidence, summary, err := inv.runIteration(ctx, state)
		if err != nil {
			if ctx.Err() != nil {
				return state, ctx.Err()
			}
			// a failed collaborator consumes the retry with no new evidence
			inv.metrics.RecordError("collaborator")
			inv.log.Warn("iteration failed",
				logger.String("symbol", state.Symbol),
				logger.Int("iteration", state.Iteration),
				logger.Error(err))
			continue
		}

		state.Confidence = confidence
		lastSummary = summary
		inv.metrics.RecordConfidence(state.Symbol, confidence)
		inv.log.Info("iteration complete",
			logger.String("symbol", state.Symbol),
			logger.Int("iteration", state.Iteration),
			logger.Any("confidence", confidence),
			logger.Int("evidence", len(state.Evidence)))

		if confidence >= inv.cfg.AcceptConfidence {
			state.Status = models.StatusSolved
			break
		}
	}

	if state.Iteration > inv.cfg.MaxRetries {
		state.Iteration = inv.cfg.MaxRetries
	}
	if state.Status == models.StatusPending {
		if state.Confidence >= inv.cfg.PartialFloor {
			state.Status = models.StatusPartiallyExplained
		} else {
			state.Status = models.StatusUnsolved
		}
	}

	now := time.Now()
	state.CompletedAt = &now
	state.RootCause = inv.narrate(ctx, state, lastSummary)

	inv.metrics.RecordInvestigation(string(state.Status))
	inv.metrics.RecordLatency("investigation", time.Since(start).Seconds())
	inv.finish(ctx, state)

	return state, nil
}

// runIteration issues queries, gathers evidence concurrently, scores it,
// and aggregates once everything has settled.
func (inv *Investigator) runIteration(ctx context.Context, state *models.InvestigationState) (float64, *models.SummaryRequest, error) {
	queries, err := inv.sequencer.Queries(ctx, state)
	if err != nil {
		return 0, nil, fmt.Errorf("generate queries: %w", err)
	}
	if len(queries) == 0 {
		return 0, nil, fmt.Errorf("no usable queries for iteration %d", state.Iteration)
	}
	state.QueriesIssued = append(state.QueriesIssued, queries...)

	// evidence is a set across iterations: a document already scored in
	// an earlier iteration is never re-fetched or double-counted
	known := make(map[string]struct{}, len(state.Evidence))
	for _, e := range state.Evidence {
		known[e.Document.URL] = struct{}{}
	}

	docs := inv.searchAll(ctx, queries, known)
	scored := inv.scoreAll(ctx, state.Signal, docs)
	state.Evidence = append(state.Evidence, scored...)

	// aggregation is a barrier over the cumulative evidence set
	confidence, summary := inv.agg.Aggregate(state.Signal, state.Evidence)
	return confidence, summary, nil
}

// searchAll fans the iteration's queries out concurrently and collects
// deduplicated documents. Individual query failures are logged and
// skipped; the iteration proceeds with whatever came back.
func (inv *Investigator) searchAll(ctx context.Context, queries []string, seen map[string]struct{}) []models.EvidenceDocument {
	var mu sync.Mutex
	var wg sync.WaitGroup
	var docs []models.EvidenceDocument

	for _, q := range queries {
		wg.Add(1)
		go func(query string) {
			defer wg.Done()
			qctx, cancel := context.WithTimeout(ctx, inv.cfg.CollaboratorTimeout)
			defer cancel()

			results, err := inv.search.Search(qctx, query)
			if err != nil {
				inv.metrics.RecordError("search")
				inv.log.Warn("search failed", logger.String("query", query), logger.Error(err))
				return
			}
			mu.Lock()
			for _, d := range results {
				if _, dup := seen[d.URL]; dup {
					continue
				}
				seen[d.URL] = struct{}{}
				docs = append(docs, d)
			}
			mu.Unlock()
		}(q)
	}
	wg.Wait()
	return docs
}

// scoreAll evaluates documents with a bounded worker pool. Documents the
// model cannot score cleanly are dropped.
func (inv *Investigator) scoreAll(ctx context.Context, sig *models.AnomalySignal, docs []models.EvidenceDocument) []models.EvidenceScore {
	if len(docs) == 0 {
		return nil
	}

	jobs := make(chan models.EvidenceDocument)
	var mu sync.Mutex
	var wg sync.WaitGroup
	var scored []models.EvidenceScore

	workers := inv.cfg.Concurrency
	if workers > len(docs) {
		workers = len(docs)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				dctx, cancel := context.WithTimeout(ctx, inv.cfg.CollaboratorTimeout)
				score, err := inv.evaluator.Evaluate(dctx, doc, sig)
				cancel()
				if err != nil {
					inv.metrics.RecordError("evaluate")
					inv.log.Warn("evidence dropped",
						logger.String("url", doc.URL),
						logger.Error(err))
					continue
				}
				mu.Lock()
				scored = append(scored, score)
				mu.Unlock()
			}
		}()
	}

	for _, d := range docs {
		jobs <- d
	}
	close(jobs)
	wg.Wait()
	return scored
}

// narrate asks the model for a root-cause summary of the top evidence,
// falling back to a plain description when the model is unreachable.
func (inv *Investigator) narrate(ctx context.Context, state *models.InvestigationState, summary *models.SummaryRequest) string {
	if summary == nil || len(summary.TopEvidence) == 0 {
		return fmt.Sprintf("No conclusive evidence found for the %s anomaly on %s.",
			state.Signal.Direction(), state.Symbol)
	}

	var sb strings.Builder
	for i, e := range summary.TopEvidence {
		fmt.Fprintf(&sb, "%d. [%s] %s (cred %.2f, rel %.2f)\n",
			i+1, e.Document.SourceDomain, e.Document.Title, e.Credibility, e.Relevance)
	}

	nctx, cancel := context.WithTimeout(ctx, inv.cfg.CollaboratorTimeout)
	defer cancel()
	out, err := inv.llm.Generate(nctx, fmt.Sprintf(summaryPrompt, summary.Symbol, summary.FactorScores, sb.String()),
		map[string]any{"symbol": summary.Symbol, "stage": "summary"})
	if err != nil {
		inv.log.Warn("summary generation failed", logger.Error(err))
		top := summary.TopEvidence[0]
		return fmt.Sprintf("Likely related to: %s (%s).", top.Document.Title, top.Document.SourceDomain)
	}
	return strings.TrimSpace(out)
}

// finish hands a terminal investigation to persistence, messaging, and
// reporting. Downstream failures are logged, not propagated; the verdict
// itself is already decided.
func (inv *Investigator) finish(ctx context.Context, state *models.InvestigationState) {
	if inv.store != nil {
		if err := inv.store.StoreInvestigation(ctx, state); err != nil {
			inv.metrics.RecordError("store")
			inv.log.Error("store investigation failed", logger.String("symbol", state.Symbol), logger.Error(err))
		}
	}
	if inv.publisher != nil {
		if err := inv.publisher.PublishVerdict(ctx, state); err != nil {
			inv.metrics.RecordError("publish")
			inv.log.Error("publish verdict failed", logger.String("symbol", state.Symbol), logger.Error(err))
		}
	}
	if inv.reports != nil {
		path, err := inv.reports.Write(state)
		if err != nil {
			inv.metrics.RecordError("report")
			inv.log.Error("report write failed", logger.String("symbol", state.Symbol), logger.Error(err))
		} else {
			inv.log.Info("report written", logger.String("symbol", state.Symbol), logger.String("path", path))
		}
	}
}
