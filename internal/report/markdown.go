package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/FranksOps/catgap/internal/evidence"
	"github.com/FranksOps/catgap/internal/urlclass"
)

// NoOpportunities is the summary line written when no keyword warrants a
// new category.
const NoOpportunities = "No immediate opportunities for new category pages were identified based on this analysis."

// NoneAssessed is written under an assessment heading with no entries.
const NoneAssessed = "None assessed or found."

// WriteMarkdown writes the full Markdown report: an opportunities summary
// followed by a detail section per keyword, in run order.
func WriteMarkdown(w io.Writer, results []*evidence.KeywordResult, generatedAt time.Time) error {
	results = InRunOrder(results)

	var b bytes.Buffer
	fmt.Fprintf(&b, "# Category Opportunity Analysis Report (%s)\n\n", generatedAt.Format("2006-01-02 15:04:05"))

	b.WriteString("## Summary: Opportunities Identified\n\n")
	found := false
	for _, r := range results {
		if !r.Decision.IsOpportunity() {
			continue
		}
		found = true
		fmt.Fprintf(&b, "*   **%s**: %s - Justification: %s\n", r.Keyword, r.Decision.Label(), r.Justification)
	}
	if !found {
		fmt.Fprintf(&b, "*   %s\n", NoOpportunities)
	}
	b.WriteString("\n---\n\n")

	b.WriteString("## Detailed Analysis by Keyword\n\n")
	for _, r := range results {
		writeKeyword(&b, r)
	}

	if _, err := w.Write(b.Bytes()); err != nil {
		return fmt.Errorf("write markdown report: %w", err)
	}
	return nil
}

func writeKeyword(b *bytes.Buffer, r *evidence.KeywordResult) {
	fmt.Fprintf(b, "### Keyword: \"%s\"\n\n", r.Keyword)
	fmt.Fprintf(b, "*   **Final Decision:** %s\n", r.Decision.Label())
	fmt.Fprintf(b, "*   **Justification:** %s\n", r.Justification)
	fmt.Fprintf(b, "*   **SERP Results:** %s\n", foundLabel(r.SERPResultsFound))
	fmt.Fprintf(b, "*   **SERP Raw HTML:** %s\n", orNA(r.RawSearchArtifact))

	counts := r.Evidence.InitialCounts()
	parts := make([]string, 0, len(urlclass.Classifications))
	for _, c := range urlclass.Classifications {
		parts = append(parts, fmt.Sprintf("%s: %d", c.Label(), counts[c]))
	}
	fmt.Fprintf(b, "*   **Initial URL Classification:** %s\n", strings.Join(parts, ", "))

	b.WriteString("*   **Known Listing Assessment:**\n")
	writeAssessments(b, r.Evidence.ByKind(evidence.KindListing), false)
	b.WriteString("*   **Known Detail Assessment:**\n")
	writeAssessments(b, r.Evidence.ByKind(evidence.KindDetail), false)
	b.WriteString("*   **Unknown URL Assessment:**\n")
	writeAssessments(b, r.Evidence.ByKind(evidence.KindUnknown), true)

	b.WriteString("\n---\n\n")
}

func writeAssessments(b *bytes.Buffer, as []evidence.PageAssessment, withType bool) {
	if len(as) == 0 {
		fmt.Fprintf(b, "    *   %s\n", NoneAssessed)
		return
	}
	for _, a := range as {
		fmt.Fprintf(b, "    *   %s\n", code(a.URL))
		if withType {
			fmt.Fprintf(b, "        *   Determined Type: %s\n", code(a.PageTypeLabel()))
		}
		fmt.Fprintf(b, "        *   Relevance: %s\n", code(a.VerdictLabel()))
		fmt.Fprintf(b, "        *   Analysis: %s\n", code(orNA(a.Justification)))
	}
}

func foundLabel(found bool) string {
	if found {
		return "Found"
	}
	return "Not Found"
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return evidence.NotAvailable
	}
	return s
}

// code wraps s in a Markdown code span, replacing backticks it contains.
func code(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "'") + "`"
}
