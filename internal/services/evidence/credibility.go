package evidence

import (
	"strings"

	"MarketSleuth/internal/domain/models"
	"MarketSleuth/pkg/config"
)

// CredibilityTable resolves a source domain to a trust score through an
// ordered tier list. The first matching pattern wins; unmatched domains
// fall through to the lowest tier score present in the table.
type CredibilityTable struct {
	tiers []models.CredibilityTier
	floor float64
}

// DefaultTiers returns the built-in five-tier table, most specific first.
func DefaultTiers() []models.CredibilityTier {
	return []models.CredibilityTier{
		// tier 1: primary and regulatory sources
		{Pattern: "sec.gov", Tier: 1, Score: 1.00},
		{Pattern: "investor.*.com", Tier: 1, Score: 0.98},
		{Pattern: "ir.*.com", Tier: 1, Score: 0.98},
		// tier 2: premium financial media
		{Pattern: "bloomberg.com", Tier: 2, Score: 0.94},
		{Pattern: "reuters.com", Tier: 2, Score: 0.93},
		{Pattern: "wsj.com", Tier: 2, Score: 0.92},
		{Pattern: "ft.com", Tier: 2, Score: 0.91},
		{Pattern: "barrons.com", Tier: 2, Score: 0.90},
		// tier 3: mainstream financial media
		{Pattern: "cnbc.com", Tier: 3, Score: 0.84},
		{Pattern: "marketwatch.com", Tier: 3, Score: 0.82},
		{Pattern: "finance.yahoo.com", Tier: 3, Score: 0.80},
		{Pattern: "investopedia.com", Tier: 3, Score: 0.78},
		{Pattern: "forbes.com", Tier: 3, Score: 0.75},
		// tier 4: aggregators and analysis sites
		{Pattern: "seekingalpha.com", Tier: 4, Score: 0.68},
		{Pattern: "fool.com", Tier: 4, Score: 0.65},
		{Pattern: "benzinga.com", Tier: 4, Score: 0.62},
		{Pattern: "zacks.com", Tier: 4, Score: 0.60},
		// tier 5: social and community sources
		{Pattern: "twitter.com", Tier: 5, Score: 0.40},
		{Pattern: "reddit.com", Tier: 5, Score: 0.35},
		{Pattern: "medium.com", Tier: 5, Score: 0.30},
	}
}

// NewCredibilityTable builds a table from config, falling back to the
// built-in tiers when none are configured.
func NewCredibilityTable(cfgTiers []config.Tier) *CredibilityTable {
	tiers := DefaultTiers()
	if len(cfgTiers) > 0 {
		tiers = make([]models.CredibilityTier, 0, len(cfgTiers))
		for _, t := range cfgTiers {
			tiers = append(tiers, models.CredibilityTier{Pattern: t.Pattern, Tier: t.Tier, Score: t.Score})
		}
	}

	floor := 1.0
	for _, t := range tiers {
		if t.Score < floor {
			floor = t.Score
		}
	}
	return &CredibilityTable{tiers: tiers, floor: floor}
}

// Score returns the credibility for a source domain. Lookup is a pure
// function of the domain.
func (t *CredibilityTable) Score(domain string) float64 {
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))
	for _, tier := range t.tiers {
		if matchesPattern(domain, tier.Pattern) {
			return tier.Score
		}
	}
	return t.floor
}

// Floor returns the lowest tier score, used for unmatched domains.
func (t *CredibilityTable) Floor() float64 { return t.floor }

// ExtractDomain pulls the host out of a URL without parsing the full URL.
func ExtractDomain(rawURL string) string {
	s := rawURL
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(strings.TrimPrefix(s, "www."))
}

// matchesPattern checks domain against a tier pattern. Patterns may
// contain '*' wildcards; every literal segment must appear in the domain.
func matchesPattern(domain, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return domain == pattern
	}
	for _, part := range strings.Split(pattern, "*") {
		if part != "" && !strings.Contains(domain, part) {
			return false
		}
	}
	return true
}
