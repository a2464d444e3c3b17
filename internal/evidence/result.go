package evidence

import (
	"time"

	"github.com/google/uuid"
)

// Justification used until a keyword run reaches a terminal state.
const ProcessingFailed = "Processing failed."

// KeywordResult is the terminal record for one keyword. It is created when
// processing of the keyword starts, mutated only by that keyword's pipeline
// run, and never changed after it has been appended to a run's results.
type KeywordResult struct {
	ID                uuid.UUID       `json:"id"`
	RunID             string          `json:"run_id"`
	Keyword           string          `json:"keyword"`
	Decision          Decision        `json:"decision"`
	Justification     string          `json:"justification"`
	SERPResultsFound  bool            `json:"serp_results_found"`
	RawSearchArtifact string          `json:"serp_raw_html_url"`
	Evidence          KeywordEvidence `json:"evidence"`
	CreatedAt         time.Time       `json:"created_at"`
}

// NewKeywordResult starts a result in the Error state so that a run which
// never reaches a decision still yields exactly one.
func NewKeywordResult(runID, keyword string) *KeywordResult {
	return &KeywordResult{
		ID:                uuid.New(),
		RunID:             runID,
		Keyword:           keyword,
		Decision:          DecisionError,
		Justification:     ProcessingFailed,
		RawSearchArtifact: NotAvailable,
		Evidence:          NewKeywordEvidence(),
		CreatedAt:         time.Now().UTC(),
	}
}

// Conclude sets the terminal decision.
func (r *KeywordResult) Conclude(d Decision, justification string) {
	r.Decision = d
	r.Justification = justification
}
