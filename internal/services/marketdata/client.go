package marketdata

import (
	"context"
	"fmt"
	"sort"
	"time"

	"MarketSleuth/internal/domain/models"
	"MarketSleuth/pkg/cache"
	httpkg "MarketSleuth/pkg/http"
	"MarketSleuth/pkg/logger"
)

// Client fetches daily OHLCV candles from a Finnhub-compatible REST API.
// Fetched windows are cached briefly so a monitor cycle followed by an
// on-demand investigation does not hit the API twice.
type Client struct {
	http     *httpkg.Client
	baseURL  string
	apiKey   string
	cache    cache.Service
	cacheTTL time.Duration
	log      *logger.Logger
}

type Options struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

func NewClient(opts Options, c cache.Service, log *logger.Logger) *Client {
	return &Client{
		http:     httpkg.NewClient(httpkg.WithTimeout(opts.Timeout)),
		baseURL:  opts.BaseURL,
		apiKey:   opts.APIKey,
		cache:    c,
		cacheTTL: opts.CacheTTL,
		log:      log,
	}
}

type candleResponse struct {
	Status  string    `json:"s"`
	Open    []float64 `json:"o"`
	High    []float64 `json:"h"`
	Low     []float64 `json:"l"`
	Close   []float64 `json:"c"`
	Volume  []float64 `json:"v"`
	Unix    []int64   `json:"t"`
}

// FetchBars returns the last `window` daily bars for symbol, oldest
// first. A symbol the provider does not know, or a provider outage,
// surfaces as ErrDataUnavailable.
func (c *Client) FetchBars(ctx context.Context, symbol string, window int) ([]models.Bar, error) {
	key := cache.GenerateKeyWithParams("bars", symbol, window)
	if c.cache != nil {
		var cached []models.Bar
		if err := c.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	now := time.Now()
	// weekends and holidays make calendar days sparse; over-fetch
	from := now.AddDate(0, 0, -(window*2 + 7))

	var out candleResponse
	err := c.http.SendAndParse(ctx, &httpkg.RequestOptions{
		Method: httpkg.MethodGet,
		URL:    c.baseURL + "/stock/candle",
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"resolution": {"D"},
			"from":       {fmt.Sprintf("%d", from.Unix())},
			"to":         {fmt.Sprintf("%d", now.Unix())},
			"token":      {c.apiKey},
		},
	}, &out)
	if err != nil {
		c.log.Error("candle fetch failed", logger.String("symbol", symbol), logger.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrDataUnavailable, err)
	}
	if out.Status != "ok" || len(out.Close) == 0 {
		return nil, fmt.Errorf("%w: provider status %q for %s", models.ErrDataUnavailable, out.Status, symbol)
	}

	n := len(out.Close)
	bars := make([]models.Bar, 0, n)
	for i := 0; i < n; i++ {
		if i >= len(out.Open) || i >= len(out.High) || i >= len(out.Low) || i >= len(out.Volume) || i >= len(out.Unix) {
			break
		}
		bars = append(bars, models.Bar{
			Symbol:    symbol,
			Timestamp: time.Unix(out.Unix[i], 0).UTC(),
			Open:      out.Open[i],
			High:      out.High[i],
			Low:       out.Low[i],
			Close:     out.Close[i],
			Volume:    out.Volume[i],
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	if len(bars) > window {
		bars = bars[len(bars)-window:]
	}

	if c.cache != nil && len(bars) > 0 {
		if err := c.cache.Set(ctx, key, bars, c.cacheTTL); err != nil {
			c.log.Warn("bar cache write failed", logger.Error(err))
		}
	}
	return bars, nil
}
