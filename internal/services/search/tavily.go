package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"MarketSleuth/internal/domain/models"
	"MarketSleuth/internal/services/evidence"
	"MarketSleuth/internal/services/ratelimit"
	"MarketSleuth/pkg/cache"
	"MarketSleuth/pkg/logger"
)

const limiterKey = "tavily"

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	Topic       string `json:"topic"`
	Days        int    `json:"days"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// TavilyClient implements evidence retrieval over the Tavily search API.
// Results are cached per query so retried iterations do not burn quota.
type TavilyClient struct {
	client     *resty.Client
	apiKey     string
	maxResults int
	days       int
	depth      string
	limiter    *ratelimit.Limiter
	reqPerSec  float64
	cache      cache.Service
	cacheTTL   time.Duration
	log        *logger.Logger
}

type TavilyOptions struct {
	BaseURL        string
	APIKey         string
	MaxResults     int
	Days           int
	Depth          string
	Timeout        time.Duration
	RequestsPerSec float64
	CacheTTL       time.Duration
}

func NewTavilyClient(opts TavilyOptions, limiter *ratelimit.Limiter, c cache.Service, log *logger.Logger) *TavilyClient {
	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetTimeout(opts.Timeout)
	client.SetHeader("Content-Type", "application/json")

	if opts.MaxResults <= 0 {
		opts.MaxResults = 5
	}
	if opts.Depth == "" {
		opts.Depth = "advanced"
	}

	return &TavilyClient{
		client:     client,
		apiKey:     opts.APIKey,
		maxResults: opts.MaxResults,
		days:       opts.Days,
		depth:      opts.Depth,
		limiter:    limiter,
		reqPerSec:  opts.RequestsPerSec,
		cache:      c,
		cacheTTL:   opts.CacheTTL,
		log:        log,
	}
}

// Search runs one query and returns normalized evidence documents.
func (t *TavilyClient) Search(ctx context.Context, query string) ([]models.EvidenceDocument, error) {
	key := cacheKey(query)
	if t.cache != nil {
		var cached []models.EvidenceDocument
		if err := t.cache.Get(ctx, key, &cached); err == nil {
			t.log.Debug("search cache hit", logger.String("query", query))
			return cached, nil
		}
	}

	if t.limiter != nil && t.reqPerSec > 0 {
		if err := t.limiter.Wait(ctx, limiterKey, t.reqPerSec, t.reqPerSec); err != nil {
			return nil, fmt.Errorf("search rate limit: %w", err)
		}
	}

	body := tavilyRequest{
		APIKey:      t.apiKey,
		Query:       query,
		SearchDepth: t.depth,
		Topic:       "news",
		Days:        t.days,
		MaxResults:  t.maxResults,
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/search")
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("search API error %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}

	var out tavilyResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	now := time.Now()
	docs := make([]models.EvidenceDocument, 0, len(out.Results))
	for _, r := range out.Results {
		if r.URL == "" {
			continue
		}
		docs = append(docs, models.EvidenceDocument{
			SourceDomain: evidence.ExtractDomain(r.URL),
			URL:          r.URL,
			Title:        r.Title,
			Text:         r.Content,
			RetrievedAt:  now,
		})
	}

	t.log.Debug("search complete",
		logger.String("query", query),
		logger.Int("results", len(docs)))

	if t.cache != nil && len(docs) > 0 {
		if err := t.cache.Set(ctx, key, docs, t.cacheTTL); err != nil {
			t.log.Warn("search cache write failed", logger.Error(err))
		}
	}
	return docs, nil
}

func cacheKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return cache.GenerateKey("search", hex.EncodeToString(sum[:8]))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
