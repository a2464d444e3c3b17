package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FranksOps/catgap/internal/evidence"
	"github.com/FranksOps/catgap/internal/serp"
	"github.com/FranksOps/catgap/internal/urlclass"
	"github.com/FranksOps/catgap/pkg/ratelimit"
)

const base = "https://shop.example"

type fakeSearch struct {
	results map[string][]string
	err     error
	calls   int
}

func (f *fakeSearch) Search(_ context.Context, keyword, site string) (*serp.Results, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	res := &serp.Results{RawHTMLFile: "https://serp.example/" + keyword + ".html"}
	for i, u := range f.results[keyword] {
		res.URLs = append(res.URLs, serp.RankedURL{Position: i + 1, URL: u})
	}
	return res, nil
}

type unknownAnswer struct {
	pageType evidence.PageType
	verdict  evidence.Verdict
}

// fakeAssessor answers from fixed tables. URLs missing from a table come back
// as failed assessments.
type fakeAssessor struct {
	listing map[string]evidence.ListingVerdict
	detail  map[string]evidence.DetailVerdict
	unknown map[string]unknownAnswer
	panicOn string
	calls   []string
}

func (f *fakeAssessor) record(op, url string) {
	f.calls = append(f.calls, op+" "+url)
	if url == f.panicOn {
		panic("assessor exploded")
	}
}

func failedAssessment(url string, c urlclass.Classification, k evidence.Kind) evidence.PageAssessment {
	return evidence.PageAssessment{URL: url, Classification: c, Kind: k, Failed: true, Justification: "Assessment failed: connection refused"}
}

func (f *fakeAssessor) AssessListing(_ context.Context, _ string, url string) evidence.PageAssessment {
	f.record("listing", url)
	v, ok := f.listing[url]
	if !ok {
		return failedAssessment(url, urlclass.KnownListing, evidence.KindListing)
	}
	return evidence.PageAssessment{URL: url, Classification: urlclass.KnownListing, Kind: evidence.KindListing, Verdict: v}
}

func (f *fakeAssessor) AssessDetail(_ context.Context, _ string, url string) evidence.PageAssessment {
	f.record("detail", url)
	v, ok := f.detail[url]
	if !ok {
		return failedAssessment(url, urlclass.KnownDetail, evidence.KindDetail)
	}
	return evidence.PageAssessment{URL: url, Classification: urlclass.KnownDetail, Kind: evidence.KindDetail, Verdict: v}
}

func (f *fakeAssessor) ClassifyAndAssess(_ context.Context, _ string, url string) evidence.PageAssessment {
	f.record("unknown", url)
	a, ok := f.unknown[url]
	if !ok {
		return failedAssessment(url, urlclass.Unknown, evidence.KindUnknown)
	}
	return evidence.PageAssessment{URL: url, Classification: urlclass.Unknown, Kind: evidence.KindUnknown, PageType: a.pageType, Verdict: a.verdict}
}

type memorySink struct {
	saved []*evidence.KeywordResult
	err   error
}

func (m *memorySink) Save(_ context.Context, r *evidence.KeywordResult) error {
	m.saved = append(m.saved, r)
	return m.err
}

func newPipeline(t *testing.T, search serp.Provider, assessor Assessor, known ...string) *Pipeline {
	t.Helper()
	paths, err := urlclass.NewPathConfig(base,
		[]string{"/shop-all-products/", "/collections/"},
		[]string{"/products/"},
		[]string{"/", "/pages/"},
		urlclass.Segments{},
	)
	require.NoError(t, err)
	return &Pipeline{
		Search:   search,
		Assessor: assessor,
		Paths:    paths,
		Known:    urlclass.NewKnownSet(paths, known),
		RunID:    "test-run",
	}
}

func u(path string) string { return base + path }

func TestProcess_NoSearchResults(t *testing.T) {
	for name, search := range map[string]*fakeSearch{
		"empty":          {results: map[string][]string{}},
		"provider error": {err: errors.New("401 unauthorized")},
	} {
		t.Run(name, func(t *testing.T) {
			assessor := &fakeAssessor{}
			res := newPipeline(t, search, assessor).Process(context.Background(), "unicorn saddles")

			assert.Equal(t, evidence.NoSearchResults, res.Decision)
			assert.Equal(t, JustNoSearchResults, res.Justification)
			assert.False(t, res.SERPResultsFound)
			assert.Empty(t, assessor.calls)
			assert.Empty(t, res.Evidence.Assessments)
		})
	}

	res := newPipeline(t, nil, &fakeAssessor{}).Process(context.Background(), "kw")
	assert.Equal(t, evidence.NoSearchResults, res.Decision)
}

func TestProcess_HairPowderNeedsSpecificCategory(t *testing.T) {
	listing, detail := u("/shop-all-products/"), u("/products/hair-styling-powder/")
	search := &fakeSearch{results: map[string][]string{"hair powder": {listing, detail}}}
	assessor := &fakeAssessor{
		listing: map[string]evidence.ListingVerdict{listing: evidence.LooselyRelated},
		detail:  map[string]evidence.DetailVerdict{detail: evidence.Related},
	}

	res := newPipeline(t, search, assessor).Process(context.Background(), "hair powder")

	assert.Equal(t, evidence.CreateSpecificCategory, res.Decision)
	assert.Equal(t, JustSpecific, res.Justification)
	assert.True(t, res.SERPResultsFound)
	assert.Equal(t, "https://serp.example/hair powder.html", res.RawSearchArtifact)
	require.NotNil(t, res.Evidence.BestListing)
	assert.Equal(t, evidence.LooselyRelated, *res.Evidence.BestListing)
	assert.True(t, res.Evidence.RelatedDetailFound)
	assert.False(t, res.Evidence.CloselyRelatedListingFound())
	assert.Equal(t, []string{"listing " + listing, "detail " + detail}, assessor.calls)
	assert.Equal(t, []string{listing}, res.Evidence.Initial[urlclass.KnownListing])
}

func TestProcess_OnlyHomepage(t *testing.T) {
	search := &fakeSearch{results: map[string][]string{"contact lenses": {u("/"), base}}}
	assessor := &fakeAssessor{}

	res := newPipeline(t, search, assessor).Process(context.Background(), "contact lenses")

	assert.Equal(t, evidence.NoRelevantContent, res.Decision)
	assert.Equal(t, JustNothing, res.Justification)
	assert.True(t, res.SERPResultsFound)
	assert.Empty(t, assessor.calls)
	assert.Nil(t, res.Evidence.BestListing)
	assert.Equal(t, 1, res.Evidence.InitialCounts()[urlclass.Irrelevant])
}

func TestProcess_EveryAssessmentFails(t *testing.T) {
	search := &fakeSearch{results: map[string][]string{"kw": {
		u("/collections/hair"), u("/blogs/styling"), u("/products/comb"),
	}}}
	assessor := &fakeAssessor{}

	res := newPipeline(t, search, assessor).Process(context.Background(), "kw")

	assert.Equal(t, evidence.NoRelevantContent, res.Decision)
	assert.False(t, res.Evidence.RelatedDetailFound)
	require.Len(t, res.Evidence.Assessments, 3)
	for _, a := range res.Evidence.Assessments {
		assert.True(t, a.Failed, a.URL)
	}
	assert.Len(t, assessor.calls, 3)
}

func TestProcess_KnownListingEarlyExit(t *testing.T) {
	first, second := u("/collections/hair-powder"), u("/collections/hair")
	search := &fakeSearch{results: map[string][]string{"hair powder": {
		u("/products/powder"), first, second, u("/blogs/styling"),
	}}}
	assessor := &fakeAssessor{
		listing: map[string]evidence.ListingVerdict{first: evidence.CloselyRelated, second: evidence.LooselyRelated},
	}

	res := newPipeline(t, search, assessor).Process(context.Background(), "hair powder")

	assert.Equal(t, evidence.ExistingSufficient, res.Decision)
	assert.Equal(t, JustKnownListing, res.Justification)
	assert.True(t, res.Evidence.CloselyRelatedListingFound())
	assert.Equal(t, []string{"listing " + first}, assessor.calls)
	assert.Len(t, res.Evidence.Assessments, 1)
	assert.Len(t, res.Evidence.Initial[urlclass.KnownDetail], 1)
}

func TestProcess_KnownListFromReferenceSet(t *testing.T) {
	sale := u("/sale/hair")
	search := &fakeSearch{results: map[string][]string{"kw": {sale + "?utm=x"}}}
	assessor := &fakeAssessor{listing: map[string]evidence.ListingVerdict{sale: evidence.CloselyRelated}}

	res := newPipeline(t, search, assessor, sale).Process(context.Background(), "kw")

	assert.Equal(t, evidence.ExistingSufficient, res.Decision)
	assert.Equal(t, []string{"listing " + sale}, assessor.calls)
}

func TestProcess_ClassifiedListingEarlyExit(t *testing.T) {
	brand, article, later := u("/brands/layrite"), u("/blogs/how-to"), u("/brands/other")
	search := &fakeSearch{results: map[string][]string{"pomade": {
		u("/collections/hair"), article, brand, later, u("/products/pomade"),
	}}}
	assessor := &fakeAssessor{
		listing: map[string]evidence.ListingVerdict{u("/collections/hair"): evidence.LooselyRelated},
		unknown: map[string]unknownAnswer{
			article: {evidence.PageArticle, evidence.NotApplicable},
			brand:   {evidence.PageBrand, evidence.CloselyRelated},
		},
	}

	res := newPipeline(t, search, assessor).Process(context.Background(), "pomade")

	assert.Equal(t, evidence.ExistingSufficient, res.Decision)
	assert.Equal(t, JustClassifiedListing, res.Justification)
	assert.Equal(t, []string{
		"listing " + u("/collections/hair"),
		"unknown " + article,
		"unknown " + brand,
	}, assessor.calls)
	assert.True(t, res.Evidence.CloselyRelatedListingFound())
}

func TestProcess_ClassifiedDetailCreatesNewCategory(t *testing.T) {
	pdp, article := u("/shop/pomade-tin"), u("/blogs/news")
	search := &fakeSearch{results: map[string][]string{"pomade": {pdp, article}}}
	assessor := &fakeAssessor{
		unknown: map[string]unknownAnswer{
			pdp:     {evidence.PageDetail, evidence.Related},
			article: {evidence.PageArticle, evidence.NotApplicable},
		},
	}

	res := newPipeline(t, search, assessor).Process(context.Background(), "pomade")

	assert.Equal(t, evidence.CreateNewCategory, res.Decision)
	assert.Equal(t, JustNew, res.Justification)
	assert.Nil(t, res.Evidence.BestListing)
	// related detail does not stop the unknown stage
	assert.Len(t, assessor.calls, 2)
}

func TestProcess_LooseListingOnly(t *testing.T) {
	listing, detail := u("/collections/hair"), u("/products/comb")
	search := &fakeSearch{results: map[string][]string{"kw": {listing, detail}}}
	assessor := &fakeAssessor{
		listing: map[string]evidence.ListingVerdict{listing: evidence.LooselyRelated},
		detail:  map[string]evidence.DetailVerdict{detail: evidence.DetailUnrelated},
	}

	res := newPipeline(t, search, assessor).Process(context.Background(), "kw")

	assert.Equal(t, evidence.LooseSufficientForNow, res.Decision)
	assert.Equal(t, JustLooseOnly, res.Justification)
}

func TestProcess_AllDetailsAssessed(t *testing.T) {
	a, b, c := u("/products/a"), u("/products/b"), u("/collections/x/products/c")
	search := &fakeSearch{results: map[string][]string{"kw": {a, b, c}}}
	assessor := &fakeAssessor{detail: map[string]evidence.DetailVerdict{
		a: evidence.Related, b: evidence.DetailUnrelated, c: evidence.Related,
	}}

	res := newPipeline(t, search, assessor).Process(context.Background(), "kw")

	assert.Equal(t, evidence.CreateNewCategory, res.Decision)
	assert.Len(t, res.Evidence.ByKind(evidence.KindDetail), 3)
}

func TestProcess_DuplicatesAndUnresolvableSkipped(t *testing.T) {
	listing := u("/collections/hair")
	search := &fakeSearch{results: map[string][]string{"kw": {
		listing, listing + "?page=2", listing + "#top", "mailto:shop@shop.example",
	}}}
	assessor := &fakeAssessor{listing: map[string]evidence.ListingVerdict{listing: evidence.ListingUnrelated}}

	res := newPipeline(t, search, assessor).Process(context.Background(), "kw")

	assert.Equal(t, []string{"listing " + listing}, assessor.calls)
	assert.Equal(t, evidence.NoRelevantContent, res.Decision)
	assert.Equal(t, []string{"mailto:shop@shop.example"}, res.Evidence.Initial[urlclass.Unknown])
}

func TestProcess_PanicBecomesError(t *testing.T) {
	listing := u("/collections/hair")
	search := &fakeSearch{results: map[string][]string{"kw": {listing}}}
	assessor := &fakeAssessor{panicOn: listing}

	res := newPipeline(t, search, assessor).Process(context.Background(), "kw")

	assert.Equal(t, evidence.DecisionError, res.Decision)
	assert.Contains(t, res.Justification, "assessor exploded")
}

func TestSynthesize(t *testing.T) {
	loose, unrelated, closely := evidence.LooselyRelated, evidence.ListingUnrelated, evidence.CloselyRelated

	tests := []struct {
		name    string
		best    *evidence.ListingVerdict
		related bool
		want    evidence.Decision
	}{
		{"loose and related", &loose, true, evidence.CreateSpecificCategory},
		{"loose only", &loose, false, evidence.LooseSufficientForNow},
		{"unrelated and related", &unrelated, true, evidence.CreateNewCategory},
		{"absent and related", nil, true, evidence.CreateNewCategory},
		{"unrelated only", &unrelated, false, evidence.NoRelevantContent},
		{"nothing", nil, false, evidence.NoRelevantContent},
		{"closely is an invariant violation", &closely, true, evidence.DecisionError},
		{"closely without details", &closely, false, evidence.DecisionError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Synthesize(tt.best, tt.related)
			assert.Equal(t, tt.want, got.Decision)
			assert.NotEmpty(t, got.Justification)
			assert.Equal(t, got, Synthesize(tt.best, tt.related))
		})
	}
}

func TestRun(t *testing.T) {
	listing := u("/collections/hair")
	search := &fakeSearch{results: map[string][]string{
		"good": {listing},
		"boom": {u("/collections/boom")},
	}}
	assessor := &fakeAssessor{
		listing: map[string]evidence.ListingVerdict{listing: evidence.CloselyRelated},
		panicOn: u("/collections/boom"),
	}
	sink := &memorySink{err: errors.New("disk full")}
	p := newPipeline(t, search, assessor)
	p.Sink = sink

	results := p.Run(context.Background(), []string{"good", "boom", "none"})

	require.Len(t, results, 3)
	assert.Equal(t, evidence.ExistingSufficient, results[0].Decision)
	assert.Equal(t, evidence.DecisionError, results[1].Decision)
	assert.Equal(t, evidence.NoSearchResults, results[2].Decision)
	assert.Equal(t, results, sink.saved)
	for i, r := range results {
		assert.Equal(t, "test-run", r.RunID, fmt.Sprint(i))
	}
	assert.Equal(t, 3, search.calls)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	search := &fakeSearch{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := newPipeline(t, search, &fakeAssessor{}).Run(ctx, []string{"a", "b"})

	assert.Empty(t, results)
	assert.Zero(t, search.calls)
}

// interruptingAssessor cancels the run after its first answer and fails any
// assessment made under a cancelled context, as a real provider call would.
type interruptingAssessor struct {
	*fakeAssessor
	cancel context.CancelFunc
}

func (a *interruptingAssessor) after(ctx context.Context, pa evidence.PageAssessment) evidence.PageAssessment {
	a.cancel()
	if err := ctx.Err(); err != nil {
		return failedAssessment(pa.URL, pa.Classification, pa.Kind)
	}
	return pa
}

func (a *interruptingAssessor) AssessListing(ctx context.Context, kw, url string) evidence.PageAssessment {
	if err := ctx.Err(); err != nil {
		return failedAssessment(url, urlclass.KnownListing, evidence.KindListing)
	}
	return a.after(ctx, a.fakeAssessor.AssessListing(ctx, kw, url))
}

func (a *interruptingAssessor) AssessDetail(ctx context.Context, kw, url string) evidence.PageAssessment {
	if err := ctx.Err(); err != nil {
		return failedAssessment(url, urlclass.KnownDetail, evidence.KindDetail)
	}
	return a.after(ctx, a.fakeAssessor.AssessDetail(ctx, kw, url))
}

func TestRun_InterruptedKeywordRunsToItsDecision(t *testing.T) {
	listing, detail := u("/collections/all"), u("/products/hair-powder")
	search := &fakeSearch{results: map[string][]string{"hair powder": {listing, detail}}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assessor := &interruptingAssessor{
		fakeAssessor: &fakeAssessor{
			listing: map[string]evidence.ListingVerdict{listing: evidence.LooselyRelated},
			detail:  map[string]evidence.DetailVerdict{detail: evidence.Related},
		},
		cancel: cancel,
	}
	sink := &memorySink{}
	p := newPipeline(t, search, assessor)
	p.Sink = sink

	results := p.Run(ctx, []string{"hair powder", "beard oil"})

	require.Len(t, results, 1, "the run stops before the next keyword")
	assert.Equal(t, evidence.CreateSpecificCategory, results[0].Decision)
	for _, a := range results[0].Evidence.Assessments {
		assert.False(t, a.Failed, a.URL)
	}
	assert.Equal(t, results, sink.saved)
	assert.Equal(t, 1, search.calls)
}

// pauseLog records which pacer paused, in order.
type pauseLog []string

func (l *pauseLog) pacer(name string) *ratelimit.Pacer {
	return ratelimit.NewPacerWithSleep(time.Second, 0, func(time.Duration) { *l = append(*l, name) })
}

func TestRun_PausesAfterEveryCallAndKeyword(t *testing.T) {
	loose, detail := u("/collections/hair"), u("/products/hair-powder")
	closely, skipped := u("/collections/beard-oil"), u("/collections/beard")
	search := &fakeSearch{results: map[string][]string{
		"hair powder": {loose, detail},
		"beard oil":   {closely, skipped, u("/products/oil")},
	}}
	assessor := &fakeAssessor{
		listing: map[string]evidence.ListingVerdict{loose: evidence.LooselyRelated, closely: evidence.CloselyRelated},
		detail:  map[string]evidence.DetailVerdict{detail: evidence.Related},
	}
	var pauses pauseLog
	p := newPipeline(t, search, assessor)
	p.CallPacer = pauses.pacer("call")
	p.KeywordPacer = pauses.pacer("keyword")

	results := p.Run(context.Background(), []string{"hair powder", "beard oil", "velvet capes"})

	require.Len(t, results, 3)
	assert.Equal(t, pauseLog{
		// search, listing, detail
		"call", "call", "call", "keyword",
		// search, first listing; the early exit skips the rest
		"call", "call", "keyword",
		// search with no results
		"call", "keyword",
	}, pauses)
}
