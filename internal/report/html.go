package report

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/FranksOps/catgap/internal/evidence"
)

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Category Opportunity Analysis</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  .yes { color: green; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; vertical-align: top; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Category Opportunity Analysis</h1>
  <p><strong>Generated:</strong> {{.GeneratedAt.Format "2006-01-02 15:04:05"}}</p>

  <div class="stat-card">
    <div>Keywords</div>
    <div class="stat-val">{{.Summary.TotalKeywords}}</div>
  </div>
  <div class="stat-card">
    <div>Opportunities</div>
    <div class="stat-val yes">{{.Summary.Opportunities}}</div>
  </div>
  <div class="stat-card">
    <div>Failed Assessments</div>
    <div class="stat-val" style="color: {{if gt .Summary.FailedAssessments 0}}red{{else}}green{{end}};">{{.Summary.FailedAssessments}}</div>
  </div>

  <h3>Decisions</h3>
  <table>
    <tr><th>Decision</th><th>Count</th></tr>
    {{- range .Summary.Decisions}}
    <tr><td>{{.Label}}</td><td>{{.Count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Keywords</h3>
  <table>
    <tr><th>Keyword</th><th>Decision</th><th>Justification</th><th>SERP</th><th>Best Listing</th><th>Assessments</th></tr>
    {{- range .Results}}
    <tr>
      <td>{{.Keyword}}</td>
      <td{{if .Decision.IsOpportunity}} class="yes"{{end}}>{{.Decision.Label}}</td>
      <td>{{.Justification}}</td>
      <td>{{if .SERPResultsFound}}Found{{else}}Not Found{{end}}</td>
      <td>{{.Evidence.BestListingLabel}}</td>
      <td>
        {{- range .Evidence.Assessments}}
        <div><a href="{{.URL}}">{{.URL}}</a>: {{.VerdictLabel}}{{if .PageType}} ({{.PageTypeLabel}}){{end}}</div>
        {{- else}}None{{end}}
      </td>
    </tr>
    {{- else}}
    <tr><td colspan="6">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`

var htmlReport = template.Must(template.New("htmlReport").Parse(htmlTmpl))

// WriteHTML writes a standalone HTML report to the provided writer.
func WriteHTML(w io.Writer, results []*evidence.KeywordResult, generatedAt time.Time) error {
	results = InRunOrder(results)
	data := struct {
		GeneratedAt time.Time
		Summary     Summary
		Results     []*evidence.KeywordResult
	}{generatedAt, GenerateSummary(results), results}

	if err := htmlReport.Execute(w, data); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}
