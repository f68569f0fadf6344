package models

import "time"

// EvidenceDocument is a single document returned by the search collaborator.
type EvidenceDocument struct {
	SourceDomain string    `json:"source_domain"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Text         string    `json:"text"`
	RetrievedAt  time.Time `json:"retrieved_at"`
}

// EvidenceScore holds the three independent [0,1] axes for one document.
type EvidenceScore struct {
	Document    EvidenceDocument `json:"document"`
	Credibility float64          `json:"credibility"`
	Relevance   float64          `json:"relevance"`
	Specificity float64          `json:"specificity"`
}

// Combined is the ranking score used for evidence selection.
func (e EvidenceScore) Combined() float64 {
	return e.Credibility * e.Relevance
}

// CredibilityTier maps a source-domain pattern to a trust score.
// Tiers are matched in order; the first matching pattern wins.
type CredibilityTier struct {
	Pattern string  `json:"pattern" yaml:"pattern"`
	Tier    int     `json:"tier" yaml:"tier"`
	Score   float64 `json:"score" yaml:"score"`
}
