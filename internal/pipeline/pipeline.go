// Package pipeline decides, keyword by keyword, whether a site needs a new
// or more specific category page. Each keyword runs through a fixed sequence
// of stages: search, classify, assess known listings, assess unknown pages,
// assess known details, synthesize. The listing stages exit early on the
// first closely related page.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/catgap/internal/evidence"
	"github.com/FranksOps/catgap/internal/metrics"
	"github.com/FranksOps/catgap/internal/serp"
	"github.com/FranksOps/catgap/internal/urlclass"
	"github.com/FranksOps/catgap/pkg/ratelimit"
)

// Stage names used in logs.
const (
	StageSearch     = "search"
	StageClassify   = "classify"
	StageListings   = "known_listings"
	StageUnknown    = "unknown_urls"
	StageDetails    = "known_details"
	StageSynthesize = "synthesize"
)

// Assessor judges page relevance. Implementations never fail: a failed
// judgment comes back as an assessment with Failed set.
type Assessor interface {
	AssessListing(ctx context.Context, keyword, url string) evidence.PageAssessment
	AssessDetail(ctx context.Context, keyword, url string) evidence.PageAssessment
	ClassifyAndAssess(ctx context.Context, keyword, url string) evidence.PageAssessment
}

// Sink receives every finalized result as soon as it is produced.
type Sink interface {
	Save(ctx context.Context, r *evidence.KeywordResult) error
}

// Pipeline holds the collaborators of a run. Keywords and URLs are processed
// strictly one at a time.
type Pipeline struct {
	Search   serp.Provider
	Assessor Assessor
	Paths    urlclass.PathConfig
	Known    urlclass.KnownSet

	// CallPacer pauses after every external call, KeywordPacer after every
	// keyword. Nil pacers do not pause.
	CallPacer    *ratelimit.Pacer
	KeywordPacer *ratelimit.Pacer

	Sink   Sink
	Logger *slog.Logger
	RunID  string
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// Run processes keywords in order and returns one result per processed
// keyword. Each result is saved to the sink before the next keyword starts.
// Cancelling ctx stops the run between keywords; a keyword in progress runs
// to its decision with cancellation detached, so its provider calls are not
// cut short.
func (p *Pipeline) Run(ctx context.Context, keywords []string) []*evidence.KeywordResult {
	log := p.logger()
	results := make([]*evidence.KeywordResult, 0, len(keywords))
	start := time.Now()

	for i, kw := range keywords {
		if ctx.Err() != nil {
			log.Warn("run interrupted", "run_id", p.RunID, "processed", i, "remaining", len(keywords)-i)
			break
		}
		log.Info("processing keyword", "run_id", p.RunID, "keyword", kw, "index", i+1, "total", len(keywords))

		res := p.Process(context.WithoutCancel(ctx), kw)
		results = append(results, res)
		p.save(ctx, res)

		log.Info("keyword decided",
			"run_id", p.RunID,
			"keyword", kw,
			"decision", res.Decision.Label(),
			"assessments", len(res.Evidence.Assessments),
		)
		p.KeywordPacer.Pause()
	}

	log.Info("run complete", "run_id", p.RunID, "keywords", len(results), "elapsed", time.Since(start).Round(time.Millisecond))
	return results
}

func (p *Pipeline) save(ctx context.Context, res *evidence.KeywordResult) {
	if p.Sink == nil {
		return
	}
	// a cancelled run still persists what it finished
	if err := p.Sink.Save(context.WithoutCancel(ctx), res); err != nil {
		p.logger().Error("failed to save result", "run_id", p.RunID, "keyword", res.Keyword, "error", err)
	}
}

// Process runs one keyword through every stage and always returns a result
// carrying exactly one decision. A panic in any stage becomes DecisionError.
func (p *Pipeline) Process(ctx context.Context, keyword string) (res *evidence.KeywordResult) {
	res = evidence.NewKeywordResult(p.RunID, keyword)
	log := p.logger().With("run_id", p.RunID, "keyword", keyword)

	defer func() {
		if r := recover(); r != nil {
			log.Error("keyword processing aborted", "stage", "pipeline", "panic", r)
			res.Conclude(evidence.DecisionError, fmt.Sprintf("%s Internal error: %v", evidence.ProcessingFailed, r))
		}
		metrics.RecordDecision(res.Decision)
	}()

	out := p.decide(ctx, keyword, res, log)
	res.Conclude(out.Decision, out.Justification)
	return res
}

func (p *Pipeline) decide(ctx context.Context, keyword string, res *evidence.KeywordResult, log *slog.Logger) Outcome {
	// 1. search
	found := p.search(ctx, keyword, log)
	if found != nil && found.RawHTMLFile != "" {
		res.RawSearchArtifact = found.RawHTMLFile
	}
	links := found.Links()
	if len(links) == 0 {
		return Outcome{evidence.NoSearchResults, JustNoSearchResults}
	}
	res.SERPResultsFound = true

	// 2. classify
	buckets := p.Paths.Partition(links, p.Known)
	counts := buckets.Counts()
	res.Evidence.Initial = buckets.URLs()
	metrics.RecordClassification(counts)
	log.Debug("urls classified",
		"stage", StageClassify,
		"listing", counts[urlclass.KnownListing],
		"detail", counts[urlclass.KnownDetail],
		"irrelevant", counts[urlclass.Irrelevant],
		"unknown", counts[urlclass.Unknown],
	)

	ev := &res.Evidence

	// 3. known listings, stop at the first closely related one
	for _, e := range buckets.Listing {
		pa := p.Assessor.AssessListing(ctx, keyword, e.URL)
		p.CallPacer.Pause()
		if ev.FoldListing(pa) {
			log.Info("closely related known listing", "stage", StageListings, "url", e.URL)
			return Outcome{evidence.ExistingSufficient, JustKnownListing}
		}
	}

	// 4. unknown urls, stop at the first closely related listing or brand page
	for _, e := range buckets.Unknown {
		if !e.Resolvable {
			log.Debug("skipping unresolvable url", "stage", StageUnknown, "url", e.Raw)
			continue
		}
		pa := p.Assessor.ClassifyAndAssess(ctx, keyword, e.URL)
		p.CallPacer.Pause()
		if ev.FoldUnknown(pa) {
			log.Info("closely related classified page", "stage", StageUnknown, "url", e.URL, "page_type", pa.PageTypeLabel())
			return Outcome{evidence.ExistingSufficient, JustClassifiedListing}
		}
	}

	// 5. known details, all of them for the audit trail
	for _, e := range buckets.Detail {
		pa := p.Assessor.AssessDetail(ctx, keyword, e.URL)
		p.CallPacer.Pause()
		ev.FoldDetail(pa)
	}

	// 6. synthesize
	out := Synthesize(ev.BestListing, ev.RelatedDetailFound)
	if out.Decision == evidence.DecisionError {
		log.Error("unexpected evidence at synthesis",
			"stage", StageSynthesize,
			"best_listing", ev.BestListingLabel(),
			"related_detail", ev.RelatedDetailFound,
		)
	}
	return out
}

// search returns nil when the provider fails; a failed search and an empty
// one are treated alike.
func (p *Pipeline) search(ctx context.Context, keyword string, log *slog.Logger) *serp.Results {
	if p.Search == nil {
		log.Error("no search provider configured", "stage", StageSearch)
		return nil
	}
	start := time.Now()
	found, err := p.Search.Search(ctx, keyword, p.Paths.Root())

	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.RecordProviderCall("search", StageSearch, outcome, time.Since(start))
	p.CallPacer.Pause()

	if err != nil {
		log.Warn("search failed, treating as no results", "stage", StageSearch, "error", err)
		return nil
	}
	log.Debug("search results", "stage", StageSearch, "count", len(found.Links()))
	return found
}
