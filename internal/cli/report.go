package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dyike/pricemove/internal/models"
	"github.com/dyike/pricemove/internal/workflow"
	"github.com/dyike/pricemove/pkg/utils"
)

// analysisMarkdown renders rec as a standalone markdown report.
func analysisMarkdown(rec *models.AnalysisRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s price move\n\n", rec.Ticker)
	fmt.Fprintf(&b, "_Updated %s_\n\n", rec.UpdatedAt.UTC().Format(time.RFC3339))
	b.WriteString(strings.TrimSpace(rec.AnalysisText))
	b.WriteString("\n")

	entries, err := workflow.ParseDigest(rec.NewsSummary)
	if err != nil || len(entries) == 0 {
		return b.String()
	}
	b.WriteString("\n## Sources\n\n| Source | Kind | Significance | Articles |\n|---|---|---|---|\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "| %s | %s | %.2f | %d |\n", e.Source, e.Kind, e.Significance, len(e.Articles))
	}
	for _, e := range entries {
		if len(e.Articles) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n### %s\n\n", e.Source)
		for _, a := range e.Articles {
			if a.URL != "" {
				fmt.Fprintf(&b, "- [%s](%s)\n", a.Title, a.URL)
			} else {
				fmt.Fprintf(&b, "- %s\n", a.Title)
			}
		}
	}
	return b.String()
}

// writeReports saves one markdown file per analysis found in outcomes.
func writeReports(dir string, outcomes []analysisOutcome) ([]string, error) {
	var paths []string
	for _, o := range outcomes {
		rec := o.record()
		if rec == nil {
			continue
		}
		name := fmt.Sprintf("%s_%s.md", rec.Ticker, rec.UpdatedAt.Local().Format("2006-01-02"))
		path, err := utils.WriteMarkdown(dir, name, analysisMarkdown(rec))
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
