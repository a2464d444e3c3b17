// Package report renders keyword results as the category opportunity
// report: Markdown, plain text, JSON, HTML and a console table.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/template"
	"time"

	"github.com/FranksOps/catgap/internal/evidence"
)

// Format names a rendered report format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
)

// Ext is the file extension for the format.
func (f Format) Ext() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatText:
		return ".txt"
	case FormatJSON:
		return ".json"
	case FormatHTML:
		return ".html"
	default:
		return "." + string(f)
	}
}

// DecisionCount is the number of keywords that reached one decision.
type DecisionCount struct {
	Decision evidence.Decision `json:"decision"`
	Label    string            `json:"label"`
	Count    int               `json:"count"`
}

// Summary contains aggregated figures about one analysis run.
type Summary struct {
	TotalKeywords      int                       `json:"total_keywords"`
	Opportunities      int                       `json:"opportunities"`
	SERPResultsFound   int                       `json:"serp_results_found"`
	Assessments        int                       `json:"assessments"`
	FailedAssessments  int                       `json:"failed_assessments"`
	Decisions          []DecisionCount           `json:"decisions"`
	StartTime          time.Time                 `json:"start_time"`
	EndTime            time.Time                 `json:"end_time"`
	Duration           time.Duration             `json:"duration"`
	OpportunityResults []*evidence.KeywordResult `json:"-"`
}

// GenerateSummary processes keyword results to generate summary figures.
// Decisions are listed in evidence.Decisions order, omitting zero counts.
func GenerateSummary(results []*evidence.KeywordResult) Summary {
	var s Summary
	if len(results) == 0 {
		return s
	}

	s.StartTime = results[0].CreatedAt
	s.EndTime = results[0].CreatedAt

	counts := make(map[evidence.Decision]int)
	for _, r := range results {
		s.TotalKeywords++
		counts[r.Decision]++
		if r.Decision.IsOpportunity() {
			s.Opportunities++
			s.OpportunityResults = append(s.OpportunityResults, r)
		}
		if r.SERPResultsFound {
			s.SERPResultsFound++
		}
		for _, a := range r.Evidence.Assessments {
			s.Assessments++
			if a.Failed {
				s.FailedAssessments++
			}
		}

		if r.CreatedAt.Before(s.StartTime) {
			s.StartTime = r.CreatedAt
		}
		if r.CreatedAt.After(s.EndTime) {
			s.EndTime = r.CreatedAt
		}
	}

	for _, d := range evidence.Decisions {
		if n := counts[d]; n > 0 {
			s.Decisions = append(s.Decisions, DecisionCount{Decision: d, Label: d.Label(), Count: n})
		}
	}

	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// InRunOrder returns results sorted by creation time, oldest first, the
// order keywords were processed in.
func InRunOrder(results []*evidence.KeywordResult) []*evidence.KeywordResult {
	out := append([]*evidence.KeywordResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Write renders results in the given format.
func Write(w io.Writer, format Format, results []*evidence.KeywordResult, generatedAt time.Time) error {
	switch format {
	case FormatMarkdown:
		return WriteMarkdown(w, results, generatedAt)
	case FormatText:
		return WriteText(w, GenerateSummary(results))
	case FormatJSON:
		return WriteJSON(w, results)
	case FormatHTML:
		return WriteHTML(w, results, generatedAt)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// jsonReport is the document WriteJSON emits.
type jsonReport struct {
	Summary Summary                   `json:"summary"`
	Results []*evidence.KeywordResult `json:"results"`
}

// WriteJSON writes the summary and every result to the provided writer in
// JSON format.
func WriteJSON(w io.Writer, results []*evidence.KeywordResult) error {
	if results == nil {
		results = []*evidence.KeywordResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonReport{Summary: GenerateSummary(results), Results: results}); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Category Opportunity Summary
----------------------------
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Keywords:      {{.TotalKeywords}}
SERP found:    {{.SERPResultsFound}}
Assessments:   {{.Assessments}} ({{.FailedAssessments}} failed)
Opportunities: {{.Opportunities}}

Decisions:
{{- range .Decisions}}
  {{.Label}}: {{.Count}}
{{- else}}
  None
{{- end}}

Opportunities:
{{- range .OpportunityResults}}
  {{.Keyword}}: {{.Decision.Label}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse text template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render text report: %w", err)
	}

	return nil
}
