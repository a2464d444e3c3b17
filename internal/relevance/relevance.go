// Package relevance turns page-content relevance judgments from an external
// provider into validated assessments on the listing and detail scales.
package relevance

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrDisabled is returned by extractors that are missing credentials.
var ErrDisabled = errors.New("relevance provider disabled")

// ExtractRequest is one structured-extraction query against one page.
type ExtractRequest struct {
	Keyword string
	URL     string
	Prompt  string
	Schema  map[string]any
}

// Extractor is the raw provider boundary: it answers a prompt about a page
// with a JSON object shaped by Schema. Implementations do not validate the
// object; the Assessor does.
type Extractor interface {
	Name() string
	Enabled() bool
	Extract(ctx context.Context, req ExtractRequest) (json.RawMessage, error)
}

// ErrInvalidPayload wraps every validation failure of a provider response.
var ErrInvalidPayload = errors.New("invalid relevance payload")
