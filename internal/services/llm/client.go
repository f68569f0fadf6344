package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"MarketSleuth/internal/domain/models"
	"MarketSleuth/pkg/logger"
)

const systemPrompt = "You are a financial investigation assistant. Follow the output format in each request exactly."

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	client      *resty.Client
	model       string
	temperature float64
	maxTokens   int
	log         *logger.Logger
}

type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

func NewClient(opts Options, log *logger.Logger) *Client {
	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetTimeout(opts.Timeout)
	client.SetHeader("Authorization", "Bearer "+opts.APIKey)
	client.SetHeader("Content-Type", "application/json")

	return &Client{
		client:      client,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		log:         log,
	}
}

// Generate sends one prompt and returns the raw completion text.
// Transport failures and non-2xx statuses surface as ErrModelUnavailable
// so callers can count the iteration as failed and retry.
func (c *Client) Generate(ctx context.Context, prompt string, contextData map[string]any) (string, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/v1/chat/completions")
	if err != nil {
		c.log.Error("model request failed", logger.Error(err))
		return "", fmt.Errorf("%w: %v", models.ErrModelUnavailable, err)
	}
	if resp.StatusCode() != 200 {
		c.log.Error("model returned non-200",
			logger.Int("status", resp.StatusCode()),
			logger.String("body", truncate(resp.String(), 200)))
		return "", fmt.Errorf("%w: status %d", models.ErrModelUnavailable, resp.StatusCode())
	}

	var out chatResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrMalformedModelResponse, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("%w: %s", models.ErrModelUnavailable, out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", models.ErrMalformedModelResponse)
	}

	c.log.Debug("model completion",
		logger.String("model", c.model),
		logger.Duration("latency_ms", time.Since(start)),
		logger.Any("context", contextData))

	return out.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
