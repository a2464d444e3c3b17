package evidence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/FranksOps/catgap/internal/urlclass"
)

// NotAvailable is the explicit marker for absent values in rendered output.
const NotAvailable = "N/A"

// FailedLabel is the verdict label shown for an assessment that failed.
const FailedLabel = "Assessment Failed"

// Kind is the assessor operation that produced an assessment.
type Kind string

const (
	KindListing Kind = "listing"
	KindDetail  Kind = "detail"
	KindUnknown Kind = "unknown"
)

// Kinds lists the assessment kinds in pipeline order.
var Kinds = []Kind{KindListing, KindUnknown, KindDetail}

// PageAssessment is the outcome of one relevance query for one URL.
type PageAssessment struct {
	URL            string
	Classification urlclass.Classification
	Kind           Kind
	// PageType is set only for KindUnknown assessments that succeeded.
	PageType      PageType
	Verdict       Verdict // nil when Failed
	Justification string
	Failed        bool
	AssessedAt    time.Time
}

// VerdictLabel renders the verdict, using FailedLabel and NotAvailable for
// the degenerate cases.
func (a PageAssessment) VerdictLabel() string {
	if a.Failed {
		return FailedLabel
	}
	if a.Verdict == nil {
		return NotAvailable
	}
	return a.Verdict.Label()
}

// PageTypeLabel renders the page type, or NotAvailable.
func (a PageAssessment) PageTypeLabel() string {
	if a.PageType == "" {
		return NotAvailable
	}
	return string(a.PageType)
}

type assessmentWire struct {
	URL            string                  `json:"url"`
	Classification urlclass.Classification `json:"classification"`
	Kind           Kind                    `json:"kind"`
	PageType       PageType                `json:"page_type,omitempty"`
	Scale          Scale                   `json:"scale,omitempty"`
	Verdict        string                  `json:"verdict"`
	Justification  string                  `json:"justification"`
	Failed         bool                    `json:"failed"`
	AssessedAt     time.Time               `json:"assessed_at"`
}

// MarshalJSON flattens the verdict into its scale and label.
func (a PageAssessment) MarshalJSON() ([]byte, error) {
	w := assessmentWire{
		URL:            a.URL,
		Classification: a.Classification,
		Kind:           a.Kind,
		PageType:       a.PageType,
		Verdict:        a.VerdictLabel(),
		Justification:  a.Justification,
		Failed:         a.Failed,
		AssessedAt:     a.AssessedAt,
	}
	if !a.Failed && a.Verdict != nil {
		w.Scale = a.Verdict.Scale()
	}
	return json.Marshal(w)
}

// UnmarshalJSON restores the typed verdict from its scale and label.
func (a *PageAssessment) UnmarshalJSON(b []byte) error {
	var w assessmentWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*a = PageAssessment{
		URL:            w.URL,
		Classification: w.Classification,
		Kind:           w.Kind,
		PageType:       w.PageType,
		Justification:  w.Justification,
		Failed:         w.Failed,
		AssessedAt:     w.AssessedAt,
	}
	if w.Failed || w.Scale == "" {
		return nil
	}
	v, err := ParseVerdict(w.Scale, w.Verdict)
	if err != nil {
		return fmt.Errorf("assessment %s: %w", w.URL, err)
	}
	a.Verdict = v
	return nil
}
