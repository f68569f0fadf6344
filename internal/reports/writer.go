package reports

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"MarketSleuth/internal/domain/models"
)

// Writer renders terminal investigations to markdown files, one file
// per verdict, named by symbol and completion time.
type Writer struct {
	dir string
}

func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Write renders one investigation and returns the file path.
func (w *Writer) Write(inv *models.InvestigationState) (string, error) {
	ts := inv.StartedAt
	if inv.CompletedAt != nil {
		ts = *inv.CompletedAt
	}
	name := fmt.Sprintf("%s_%s_%s.md", inv.Symbol, ts.UTC().Format("20060102_150405"), strings.ToLower(string(inv.Status)))
	path := filepath.Join(w.dir, name)

	if err := os.WriteFile(path, []byte(render(inv)), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

func render(inv *models.InvestigationState) string {
	var sb strings.Builder
	sig := inv.Signal

	fmt.Fprintf(&sb, "# Anomaly Investigation: %s\n\n", inv.Symbol)
	fmt.Fprintf(&sb, "- **Status:** %s\n", inv.Status)
	fmt.Fprintf(&sb, "- **Confidence:** %.2f\n", inv.Confidence)
	fmt.Fprintf(&sb, "- **Started:** %s\n", inv.StartedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	if inv.CompletedAt != nil {
		fmt.Fprintf(&sb, "- **Completed:** %s\n", inv.CompletedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	sb.WriteString("\n")

	if sig != nil {
		fmt.Fprintf(&sb, "## Signal\n\n")
		fmt.Fprintf(&sb, "%s %s %.1f%% on %.1fx volume (severity: %s, score %.0f/9)\n\n",
			sig.Symbol, sig.Direction(), abs(sig.PriceChangePct), sig.VolumeRatio, sig.Severity(), sig.TotalScore)
		sb.WriteString("| Factor | Points |\n|---|---|\n")
		names := make([]string, 0, len(sig.FactorScores))
		for name := range sig.FactorScores {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "| %s | %.0f |\n", name, sig.FactorScores[name])
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "## Root Cause\n\n%s\n\n", inv.RootCause)

	if len(inv.QueriesIssued) > 0 {
		fmt.Fprintf(&sb, "## Queries Issued\n\n")
		for _, q := range inv.QueriesIssued {
			fmt.Fprintf(&sb, "- %s\n", q)
		}
		sb.WriteString("\n")
	}

	if len(inv.Evidence) > 0 {
		fmt.Fprintf(&sb, "## Evidence (%d documents)\n\n", len(inv.Evidence))
		sb.WriteString("| Source | Title | Cred | Rel | Spec |\n|---|---|---|---|---|\n")
		for _, e := range inv.Evidence {
			fmt.Fprintf(&sb, "| %s | [%s](%s) | %.2f | %.2f | %.2f |\n",
				e.Document.SourceDomain, escapePipes(e.Document.Title), e.Document.URL,
				e.Credibility, e.Relevance, e.Specificity)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
