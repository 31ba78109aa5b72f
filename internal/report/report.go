// Package report renders run outcomes for humans: a markdown summary,
// a YAML validation-history dump and an xlsx export.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/caseforge/internal/model"
)

// FormatSummary generates a human-readable run report in markdown.
func FormatSummary(summary *model.RunSummary, corpus *model.CorpusReport) string {
	var b strings.Builder

	b.WriteString("# Curation Report\n\n")

	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Generated: %d\n", summary.Generated)
	fmt.Fprintf(&b, "- Accepted: %d\n", summary.Accepted)
	fmt.Fprintf(&b, "- Rejected: %d\n", summary.Rejected)
	fmt.Fprintf(&b, "- Dropped (duplicates): %d\n", summary.Dropped)
	fmt.Fprintf(&b, "- Revision cycles used: %d\n\n", summary.RevisionLoops)

	if len(summary.RejectedWith) > 0 {
		b.WriteString("## Rejected Cases\n")
		ids := make([]string, 0, len(summary.RejectedWith))
		for id := range summary.RejectedWith {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(&b, "- **%s**\n", id)
			// Low-severity issues are advisory; the report only lists
			// what contributed to the rejection.
			for _, issue := range model.FilterSeverity(summary.RejectedWith[id], model.SeverityMedium) {
				fmt.Fprintf(&b, "  - [%s] %s: %s\n", issue.Severity, issue.RuleID, issue.Message)
			}
		}
		b.WriteString("\n")
	}

	if corpus != nil {
		writeCorpusSections(&b, corpus)
	}

	if len(summary.Shortfalls) > 0 {
		b.WriteString("## Distribution Shortfalls (informational)\n")
		for _, s := range summary.Shortfalls {
			fmt.Fprintf(&b, "- %s/%s: %.1f%% of corpus (target %.0f%%-%.0f%%, off by %.1f%%)\n",
				s.Dimension, s.Bucket, s.Share*100, s.Target.Min*100, s.Target.Max*100, s.Deviation*100)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeCorpusSections(b *strings.Builder, corpus *model.CorpusReport) {
	b.WriteString("## Corpus Check\n")
	fmt.Fprintf(b, "- Cases scanned: %d\n", corpus.Stats.Cases)
	fmt.Fprintf(b, "- Mean quality score: %.2f\n", corpus.Stats.MeanScore)
	fmt.Fprintf(b, "- Median quality score: %.2f\n", corpus.Stats.MedianScore)
	fmt.Fprintf(b, "- P90 quality score: %.2f\n", corpus.Stats.P90Score)
	fmt.Fprintf(b, "- Max pairwise similarity: %.3f\n\n", corpus.Stats.MaxSimilarity)

	if len(corpus.ExactDuplicates) > 0 {
		b.WriteString("### Exact Duplicates\n")
		for _, p := range corpus.ExactDuplicates {
			fmt.Fprintf(b, "- %s = %s\n", p.AID, p.BID)
		}
		b.WriteString("\n")
	}
	if len(corpus.NearDuplicates) > 0 {
		b.WriteString("### Near Duplicates\n")
		for _, p := range corpus.NearDuplicates {
			fmt.Fprintf(b, "- %s ~ %s (%.3f)\n", p.AID, p.BID, p.Score)
		}
		b.WriteString("\n")
	}
	if len(corpus.Placeholders) > 0 {
		b.WriteString("### Placeholder Findings\n")
		for _, issue := range corpus.Placeholders {
			fmt.Fprintf(b, "- %s: %s\n", issue.CaseID, issue.Message)
		}
		b.WriteString("\n")
	}
}
