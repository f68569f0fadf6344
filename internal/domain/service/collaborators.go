package service

import (
	"context"

	"MarketSleuth/internal/domain/models"
)

// LanguageModel is the text-generation collaborator. Implementations wrap a
// vendor API behind the single generate contract; output is an untrusted
// string the caller must validate.
type LanguageModel interface {
	Generate(ctx context.Context, prompt string, contextData map[string]any) (string, error)
}

// SearchProvider is the web-search collaborator. Empty results are valid.
type SearchProvider interface {
	Search(ctx context.Context, query string) ([]models.EvidenceDocument, error)
}
