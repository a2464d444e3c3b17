// Package app assembles the configured components into a runnable
// analysis: page fetching, search and relevance providers, the decision
// pipeline, result sinks and report files.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FranksOps/catgap/internal/config"
	"github.com/FranksOps/catgap/internal/evidence"
	"github.com/FranksOps/catgap/internal/fingerprint"
	"github.com/FranksOps/catgap/internal/pipeline"
	"github.com/FranksOps/catgap/internal/relevance"
	"github.com/FranksOps/catgap/internal/report"
	"github.com/FranksOps/catgap/internal/scraper"
	"github.com/FranksOps/catgap/internal/serp"
	"github.com/FranksOps/catgap/internal/source"
	"github.com/FranksOps/catgap/internal/storage"
	"github.com/FranksOps/catgap/internal/storage/csvbackend"
	"github.com/FranksOps/catgap/internal/storage/jsonbackend"
	"github.com/FranksOps/catgap/internal/storage/postgres"
	"github.com/FranksOps/catgap/internal/storage/sqlite"
	"github.com/FranksOps/catgap/internal/urlclass"
	"github.com/FranksOps/catgap/pkg/ratelimit"
)

// App holds the components shared by every command.
type App struct {
	Config  config.Config
	Paths   urlclass.PathConfig
	Fetcher *scraper.Fetcher
	// Robots is nil when robots.txt is not respected.
	Robots *scraper.RobotsTxtAuditor
	Logger *slog.Logger

	limiter *ratelimit.Limiter
}

// New builds the shared components from a validated configuration.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	paths, err := cfg.PathConfig()
	if err != nil {
		return nil, fmt.Errorf("site paths: %w", err)
	}
	profile, err := fingerprint.ParseProfile(cfg.Fetch.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("fetch fingerprint: %w", err)
	}

	limiter := ratelimit.NewLimiter(cfg.Fetch.RPS, cfg.Fetch.Jitter)
	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		UserAgent:    cfg.Fetch.UserAgent,
		Timeout:      cfg.Fetch.Timeout,
		MaxRedirects: 10,
		UseCookieJar: true,
		Fingerprint:  profile,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		Limiter:      limiter,
	})
	if err != nil {
		limiter.Stop()
		return nil, fmt.Errorf("page fetcher: %w", err)
	}

	a := &App{
		Config:  cfg,
		Paths:   paths,
		Fetcher: fetcher,
		Logger:  logger,
		limiter: limiter,
	}
	if cfg.Fetch.RespectRobots {
		a.Robots = scraper.NewRobotsTxtAuditor(fetcher, logger)
	}
	return a, nil
}

// Close releases the fetch limiter.
func (a *App) Close() {
	a.limiter.Stop()
}

// Reader returns a page reader honouring the robots setting.
func (a *App) Reader() *scraper.Reader {
	return scraper.NewReader(a.Fetcher, a.Robots, a.Logger)
}

// Search builds the configured search provider.
func (a *App) Search() (*serp.SerpAPI, error) {
	c := a.Config.SerpAPI
	return serp.NewSerpAPI(serp.SerpAPIConfig{
		APIKey:  c.APIKey,
		BaseURL: c.BaseURL,
		Engine:  c.Engine,
		Num:     c.Num,
		Timeout: c.Timeout,
	}, a.Logger)
}

// Extractor builds the configured relevance provider.
func (a *App) Extractor() (relevance.Extractor, error) {
	rc := a.Config.Relevance

	newFirecrawl := func() (*relevance.Firecrawl, error) {
		return relevance.NewFirecrawl(relevance.FirecrawlConfig{
			APIKey:       rc.Firecrawl.APIKey,
			BaseURL:      rc.Firecrawl.BaseURL,
			PollInterval: rc.Firecrawl.PollInterval,
			MaxWait:      rc.Firecrawl.MaxWait,
			Timeout:      rc.Firecrawl.Timeout,
		}, a.Logger)
	}
	newClaude := func() *relevance.Claude {
		return relevance.NewClaude(relevance.ClaudeConfig{
			APIKey:       rc.Claude.APIKey,
			BaseURL:      rc.Claude.BaseURL,
			Model:        rc.Claude.Model,
			MaxTokens:    rc.Claude.MaxTokens,
			Timeout:      rc.Claude.Timeout,
			MaxPageChars: rc.Claude.MaxPageChars,
		}, a.Reader(), a.Logger)
	}

	switch rc.Provider {
	case config.ProviderFirecrawl:
		return newFirecrawl()
	case config.ProviderClaude:
		return newClaude(), nil
	case config.ProviderChain:
		fc, err := newFirecrawl()
		if err != nil {
			return nil, err
		}
		return relevance.WithFallback(fc, newClaude()), nil
	default:
		return nil, fmt.Errorf("unknown relevance provider %q", rc.Provider)
	}
}

// KnownListings loads the listing reference set. A configured but missing
// file is logged and treated as empty.
func (a *App) KnownListings() (urlclass.KnownSet, error) {
	known, err := source.LoadKnownListings(a.Config.KnownListings.File, a.Paths)
	if errors.Is(err, os.ErrNotExist) {
		a.Logger.Warn("known listings file not found, continuing without it", "file", a.Config.KnownListings.File)
		return urlclass.KnownSet{}, nil
	}
	return known, err
}

// Run is the outcome of one analysis.
type Run struct {
	ID          string
	StartedAt   time.Time
	Results     []*evidence.KeywordResult
	CSVPath     string
	ReportPaths []string
}

// Analyze runs the decision pipeline over keywords, saving each result as
// it is produced and writing the configured reports at the end. Search and
// assessment may be injected; nil values are built from the configuration.
func (a *App) Analyze(ctx context.Context, keywords []string, search serp.Provider, assessor pipeline.Assessor) (*Run, error) {
	if missing := a.Config.MissingCredentials(); len(missing) > 0 && (search == nil || assessor == nil) {
		a.Logger.Warn("provider credentials missing, dependent calls will fail", "env", strings.Join(missing, ","))
	}

	if search == nil {
		s, err := a.Search()
		if err != nil {
			return nil, err
		}
		search = s
	}
	if assessor == nil {
		ex, err := a.Extractor()
		if err != nil {
			return nil, err
		}
		assessor = relevance.NewAssessor(ex, a.Logger)
	}

	known, err := a.KnownListings()
	if err != nil {
		return nil, err
	}

	run := &Run{ID: uuid.NewString(), StartedAt: time.Now()}
	sink, csvPath, err := a.OpenSinks(ctx, run.StartedAt)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			a.Logger.Error("closing result sinks", "error", err)
		}
	}()
	run.CSVPath = csvPath

	pc := a.Config.Pacing
	p := &pipeline.Pipeline{
		Search:       search,
		Assessor:     assessor,
		Paths:        a.Paths,
		Known:        known,
		CallPacer:    ratelimit.NewPacer(pc.CallDelay, pc.Jitter),
		KeywordPacer: ratelimit.NewPacer(pc.KeywordDelay, pc.Jitter),
		Sink:         sink,
		Logger:       a.Logger,
		RunID:        run.ID,
	}

	a.Logger.Info("analysis started", "run_id", run.ID, "keywords", len(keywords), "known_listings", len(known))
	run.Results = p.Run(ctx, keywords)

	run.ReportPaths, err = a.WriteReports(run.Results, run.StartedAt)
	if err != nil {
		return run, err
	}

	a.Logger.Info("analysis finished",
		"run_id", run.ID,
		"results", len(run.Results),
		"csv", run.CSVPath,
		"duration", time.Since(run.StartedAt).Round(time.Millisecond),
	)
	return run, ctx.Err()
}

// OpenSinks opens the CSV report for the run plus the configured storage
// driver, if any.
func (a *App) OpenSinks(ctx context.Context, runAt time.Time) (storage.Multi, string, error) {
	out := a.Config.Output
	csvPath, err := storage.OutputPath(out.Dir, out.Basename, ".csv", runAt)
	if err != nil {
		return nil, "", err
	}
	csvSink, err := csvbackend.New(csvPath)
	if err != nil {
		return nil, "", err
	}
	sinks := storage.Multi{csvSink}

	var extra storage.Backend
	switch a.Config.Storage.Driver {
	case config.DriverNone:
	case config.DriverJSONL:
		path := a.Config.Storage.DSN
		if path == "" {
			path, err = storage.OutputPath(out.Dir, out.Basename, ".jsonl", runAt)
			if err != nil {
				break
			}
		}
		extra, err = jsonbackend.New(path)
	case config.DriverSQLite:
		dsn := a.Config.Storage.DSN
		if dsn == "" {
			dsn = filepath.Join(out.Dir, out.Basename+".db")
		}
		extra, err = sqlite.New(dsn)
	case config.DriverPostgres:
		extra, err = postgres.New(ctx, a.Config.Storage.DSN)
	default:
		err = fmt.Errorf("unknown storage driver %q", a.Config.Storage.Driver)
	}
	if err != nil {
		_ = sinks.Close()
		return nil, "", fmt.Errorf("open %s sink: %w", a.Config.Storage.Driver, err)
	}
	if extra != nil {
		sinks = append(sinks, extra)
	}
	return sinks, csvPath, nil
}

// WriteReports writes one file per configured report format.
func (a *App) WriteReports(results []*evidence.KeywordResult, runAt time.Time) ([]string, error) {
	out := a.Config.Output
	var paths []string
	for _, name := range out.Formats {
		format := report.Format(name)
		path, err := storage.OutputPath(out.Dir, out.Basename, format.Ext(), runAt)
		if err != nil {
			return paths, err
		}
		if err := writeFile(path, func(f *os.File) error {
			return report.Write(f, format, results, runAt)
		}); err != nil {
			return paths, fmt.Errorf("write %s report: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
