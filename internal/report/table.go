package report

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/FranksOps/catgap/internal/evidence"
)

const (
	keywordColumnWidth       = 30
	decisionColumnWidth      = 36
	justificationColumnWidth = 60
)

// WriteTable renders the per-keyword console summary.
func WriteTable(w io.Writer, results []*evidence.KeywordResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Options.SeparateRows = true

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMax: keywordColumnWidth},
		{Number: 2, WidthMax: decisionColumnWidth},
		{Number: 3, WidthMax: justificationColumnWidth},
	})
	t.AppendHeader(table.Row{"Keyword", "Decision", "Justification", "SERP Found"})

	for _, r := range InRunOrder(results) {
		t.AppendRow(table.Row{
			r.Keyword,
			r.Decision.Label(),
			r.Justification,
			foundLabel(r.SERPResultsFound),
		})
	}

	s := GenerateSummary(results)
	t.AppendFooter(table.Row{"Total", len(results), "Opportunities", s.Opportunities})
	t.Render()
}
