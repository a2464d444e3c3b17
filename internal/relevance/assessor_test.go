package relevance

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FranksOps/catgap/internal/evidence"
	"github.com/FranksOps/catgap/internal/urlclass"
)

type fakeExtractor struct {
	reply   string
	err     error
	panics  bool
	enabled bool
	calls   []ExtractRequest
}

func (f *fakeExtractor) Name() string  { return "fake" }
func (f *fakeExtractor) Enabled() bool { return f.enabled }

func (f *fakeExtractor) Extract(_ context.Context, req ExtractRequest) (json.RawMessage, error) {
	f.calls = append(f.calls, req)
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.reply), nil
}

func reply(s string) *fakeExtractor { return &fakeExtractor{reply: s, enabled: true} }

const pageURL = "https://shop.example/collections/hair"

func TestAssessListing(t *testing.T) {
	ext := reply(`{"Relevant": "Loosely Related", "Analysis": "Hair products including powders."}`)
	a := NewAssessor(ext, nil)

	pa := a.AssessListing(context.Background(), "hair powder", pageURL)

	require.False(t, pa.Failed, pa.Justification)
	assert.Equal(t, evidence.LooselyRelated, pa.Verdict)
	assert.Equal(t, "Hair products including powders.", pa.Justification)
	assert.Equal(t, urlclass.KnownListing, pa.Classification)
	assert.Equal(t, evidence.KindListing, pa.Kind)
	assert.False(t, pa.AssessedAt.IsZero())

	require.Len(t, ext.calls, 1)
	assert.Equal(t, pageURL, ext.calls[0].URL)
	assert.Equal(t, "hair powder", ext.calls[0].Keyword)
	assert.Contains(t, ext.calls[0].Prompt, `"hair powder"`)
	assert.Equal(t, listingSchema, ext.calls[0].Schema)
}

func TestAssessListing_Invalid(t *testing.T) {
	cases := map[string]string{
		"detail scale value": `{"Relevant": "Related", "Analysis": "x"}`,
		"missing analysis":   `{"Relevant": "Unrelated"}`,
		"blank verdict":      `{"Relevant": "  ", "Analysis": "x"}`,
		"not json":           `Closely Related`,
		"empty":              ``,
		"wrong field casing": `{"relevance": "Unrelated", "analysis": "x"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			pa := NewAssessor(reply(raw), nil).AssessListing(context.Background(), "hair powder", pageURL)
			assert.True(t, pa.Failed)
			assert.Nil(t, pa.Verdict)
			assert.Contains(t, pa.Justification, "Assessment failed")
			assert.Equal(t, evidence.FailedLabel, pa.VerdictLabel())
		})
	}
}

func TestAssessDetail(t *testing.T) {
	pa := NewAssessor(reply(`{"Relevance": "related", "Analysis": "It is a styling powder."}`), nil).
		AssessDetail(context.Background(), "hair powder", "https://shop.example/products/styling-powder")

	require.False(t, pa.Failed, pa.Justification)
	assert.Equal(t, evidence.Related, pa.Verdict)
	assert.Equal(t, urlclass.KnownDetail, pa.Classification)
	assert.Equal(t, evidence.KindDetail, pa.Kind)

	pa = NewAssessor(reply(`{"Relevance": "Loosely Related", "Analysis": "x"}`), nil).
		AssessDetail(context.Background(), "hair powder", "https://shop.example/products/comb")
	assert.True(t, pa.Failed)
}

func TestClassifyAndAssess(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		pageType evidence.PageType
		verdict  evidence.Verdict
		failed   bool
	}{
		{"listing", `{"determined_type": "PLP", "relevance": "Closely Related", "analysis": "a"}`, evidence.PageListing, evidence.CloselyRelated, false},
		{"brand", `{"determined_type": "Brand Page", "relevance": "Unrelated", "analysis": "a"}`, evidence.PageBrand, evidence.ListingUnrelated, false},
		{"detail", `{"determined_type": "PDP", "relevance": "Related", "analysis": "a"}`, evidence.PageDetail, evidence.Related, false},
		{"article coerced", `{"determined_type": "Article", "relevance": "Closely Related", "analysis": "a"}`, evidence.PageArticle, evidence.NotApplicable, false},
		{"other", `{"determined_type": "Other", "relevance": "N/A", "analysis": "a"}`, evidence.PageOther, evidence.NotApplicable, false},
		{"detail with listing scale", `{"determined_type": "PDP", "relevance": "Loosely Related", "analysis": "a"}`, "", nil, true},
		{"listing with detail scale", `{"determined_type": "PLP", "relevance": "Related", "analysis": "a"}`, "", nil, true},
		{"unknown type", `{"determined_type": "Forum", "relevance": "N/A", "analysis": "a"}`, "", nil, true},
		{"missing type", `{"relevance": "N/A", "analysis": "a"}`, "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pa := NewAssessor(reply(tt.reply), nil).ClassifyAndAssess(context.Background(), "hair powder", "https://shop.example/blogs/styling")
			assert.Equal(t, tt.failed, pa.Failed, pa.Justification)
			assert.Equal(t, tt.pageType, pa.PageType)
			assert.Equal(t, tt.verdict, pa.Verdict)
			assert.Equal(t, urlclass.Unknown, pa.Classification)
			assert.Equal(t, evidence.KindUnknown, pa.Kind)
		})
	}
}

func TestAssessor_ProviderFailures(t *testing.T) {
	ctx := context.Background()

	pa := NewAssessor(&fakeExtractor{err: errors.New("connection reset"), enabled: true}, nil).AssessListing(ctx, "kw", pageURL)
	assert.True(t, pa.Failed)
	assert.Contains(t, pa.Justification, "connection reset")

	pa = NewAssessor(&fakeExtractor{panics: true, enabled: true}, nil).AssessDetail(ctx, "kw", pageURL)
	assert.True(t, pa.Failed)
	assert.Contains(t, pa.Justification, "panicked")

	pa = NewAssessor(nil, nil).ClassifyAndAssess(ctx, "kw", pageURL)
	assert.True(t, pa.Failed)
	assert.Contains(t, pa.Justification, ErrDisabled.Error())
}
