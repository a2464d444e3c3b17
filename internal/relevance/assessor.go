package relevance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/catgap/internal/evidence"
	"github.com/FranksOps/catgap/internal/metrics"
	"github.com/FranksOps/catgap/internal/urlclass"
)

// Operation names used for logging and metrics.
const (
	OpAssessListing     = "assess_listing"
	OpAssessDetail      = "assess_detail"
	OpClassifyAndAssess = "classify_and_assess"
)

// Assessor wraps an Extractor and converts its raw answers into
// PageAssessments. It never returns an error: transport failures, provider
// errors and invalid payloads all become a Failed assessment.
type Assessor struct {
	extractor Extractor
	logger    *slog.Logger
	now       func() time.Time
}

// NewAssessor returns an Assessor backed by extractor.
func NewAssessor(extractor Extractor, logger *slog.Logger) *Assessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assessor{extractor: extractor, logger: logger, now: time.Now}
}

type listingPayload struct {
	Relevant *string `json:"Relevant"`
	Analysis *string `json:"Analysis"`
}

type detailPayload struct {
	Relevance *string `json:"Relevance"`
	Analysis  *string `json:"Analysis"`
}

type combinedPayload struct {
	DeterminedType *string `json:"determined_type"`
	Relevance      *string `json:"relevance"`
	Analysis       *string `json:"analysis"`
}

// AssessListing judges a known listing page on the 3-point listing scale.
func (a *Assessor) AssessListing(ctx context.Context, keyword, url string) evidence.PageAssessment {
	pa := a.start(url, urlclass.KnownListing, evidence.KindListing)

	raw, err := a.extract(ctx, OpAssessListing, keyword, url, listingPrompt(keyword, url), listingSchema)
	if err != nil {
		return a.fail(pa, keyword, OpAssessListing, err)
	}

	var p listingPayload
	if err := decodePayload(raw, &p); err != nil {
		return a.fail(pa, keyword, OpAssessListing, err)
	}
	rel, analysis, err := required(p.Relevant, "Relevant", p.Analysis, "Analysis")
	if err != nil {
		return a.fail(pa, keyword, OpAssessListing, err)
	}
	v, ok := evidence.ParseListingVerdict(rel)
	if !ok {
		return a.fail(pa, keyword, OpAssessListing, fmt.Errorf("%w: listing relevance %q", ErrInvalidPayload, rel))
	}

	pa.Verdict = v
	pa.Justification = analysis
	a.succeed(pa, keyword, OpAssessListing)
	return pa
}

// AssessDetail judges a known detail page on the 2-point detail scale.
func (a *Assessor) AssessDetail(ctx context.Context, keyword, url string) evidence.PageAssessment {
	pa := a.start(url, urlclass.KnownDetail, evidence.KindDetail)

	raw, err := a.extract(ctx, OpAssessDetail, keyword, url, detailPrompt(keyword, url), detailSchema)
	if err != nil {
		return a.fail(pa, keyword, OpAssessDetail, err)
	}

	var p detailPayload
	if err := decodePayload(raw, &p); err != nil {
		return a.fail(pa, keyword, OpAssessDetail, err)
	}
	rel, analysis, err := required(p.Relevance, "Relevance", p.Analysis, "Analysis")
	if err != nil {
		return a.fail(pa, keyword, OpAssessDetail, err)
	}
	v, ok := evidence.ParseDetailVerdict(rel)
	if !ok {
		return a.fail(pa, keyword, OpAssessDetail, fmt.Errorf("%w: detail relevance %q", ErrInvalidPayload, rel))
	}

	pa.Verdict = v
	pa.Justification = analysis
	a.succeed(pa, keyword, OpAssessDetail)
	return pa
}

// ClassifyAndAssess determines the page type of an unknown URL and judges
// its relevance on the scale that type calls for, in one provider call.
func (a *Assessor) ClassifyAndAssess(ctx context.Context, keyword, url string) evidence.PageAssessment {
	pa := a.start(url, urlclass.Unknown, evidence.KindUnknown)

	raw, err := a.extract(ctx, OpClassifyAndAssess, keyword, url, combinedPrompt(keyword, url), combinedSchema)
	if err != nil {
		return a.fail(pa, keyword, OpClassifyAndAssess, err)
	}

	var p combinedPayload
	if err := decodePayload(raw, &p); err != nil {
		return a.fail(pa, keyword, OpClassifyAndAssess, err)
	}
	if p.DeterminedType == nil || strings.TrimSpace(*p.DeterminedType) == "" {
		return a.fail(pa, keyword, OpClassifyAndAssess, fmt.Errorf("%w: missing determined_type", ErrInvalidPayload))
	}
	rel, analysis, err := required(p.Relevance, "relevance", p.Analysis, "analysis")
	if err != nil {
		return a.fail(pa, keyword, OpClassifyAndAssess, err)
	}
	pt, ok := evidence.ParsePageType(*p.DeterminedType)
	if !ok {
		return a.fail(pa, keyword, OpClassifyAndAssess, fmt.Errorf("%w: page type %q", ErrInvalidPayload, *p.DeterminedType))
	}

	var v evidence.Verdict
	switch pt.Scale() {
	case evidence.ScaleListing:
		lv, ok := evidence.ParseListingVerdict(rel)
		if !ok {
			return a.fail(pa, keyword, OpClassifyAndAssess, fmt.Errorf("%w: %s relevance %q", ErrInvalidPayload, pt, rel))
		}
		v = lv
	case evidence.ScaleDetail:
		dv, ok := evidence.ParseDetailVerdict(rel)
		if !ok {
			return a.fail(pa, keyword, OpClassifyAndAssess, fmt.Errorf("%w: %s relevance %q", ErrInvalidPayload, pt, rel))
		}
		v = dv
	default:
		// articles and other pages never carry relevance, whatever was returned
		v = evidence.NotApplicable
	}

	pa.PageType = pt
	pa.Verdict = v
	pa.Justification = analysis
	a.succeed(pa, keyword, OpClassifyAndAssess)
	return pa
}

func (a *Assessor) start(url string, c urlclass.Classification, k evidence.Kind) evidence.PageAssessment {
	return evidence.PageAssessment{URL: url, Classification: c, Kind: k, AssessedAt: a.now().UTC()}
}

func (a *Assessor) extract(ctx context.Context, op, keyword, url, prompt string, schema map[string]any) (raw json.RawMessage, err error) {
	if a.extractor == nil {
		return nil, ErrDisabled
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", a.extractor.Name(), r)
		}
	}()

	a.logger.Debug("requesting relevance", "provider", a.providerName(), "stage", op, "keyword", keyword, "url", url)
	return a.extractor.Extract(ctx, ExtractRequest{Keyword: keyword, URL: url, Prompt: prompt, Schema: schema})
}

func (a *Assessor) providerName() string {
	if a.extractor == nil {
		return "none"
	}
	return a.extractor.Name()
}

func (a *Assessor) record(pa evidence.PageAssessment, op string, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(err, ErrInvalidPayload):
		outcome = metrics.OutcomeInvalid
	case err != nil:
		outcome = metrics.OutcomeError
	}
	metrics.RecordProviderCall(a.providerName(), op, outcome, a.now().UTC().Sub(pa.AssessedAt))
}

func (a *Assessor) fail(pa evidence.PageAssessment, keyword, op string, err error) evidence.PageAssessment {
	a.record(pa, op, err)
	pa.Failed = true
	pa.Verdict = nil
	pa.PageType = ""
	pa.Justification = "Assessment failed: " + err.Error()
	a.logger.Warn("relevance assessment failed",
		"keyword", keyword,
		"url", pa.URL,
		"stage", op,
		"provider", a.providerName(),
		"error", err,
	)
	return pa
}

func (a *Assessor) succeed(pa evidence.PageAssessment, keyword, op string) {
	a.record(pa, op, nil)
	a.logger.Info("relevance assessed",
		"keyword", keyword,
		"url", pa.URL,
		"stage", op,
		"page_type", pa.PageTypeLabel(),
		"verdict", pa.VerdictLabel(),
	)
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty response", ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func required(verdict *string, verdictField string, analysis *string, analysisField string) (string, string, error) {
	if verdict == nil || strings.TrimSpace(*verdict) == "" {
		return "", "", fmt.Errorf("%w: missing %s", ErrInvalidPayload, verdictField)
	}
	if analysis == nil || strings.TrimSpace(*analysis) == "" {
		return "", "", fmt.Errorf("%w: missing %s", ErrInvalidPayload, analysisField)
	}
	return strings.TrimSpace(*verdict), strings.TrimSpace(*analysis), nil
}
