// Package scraper reads individual pages from the target site: robots.txt
// aware fetching, bot-challenge detection, sitemap discovery and text
// extraction. It fetches only the URLs it is given and never follows links.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/FranksOps/catgap/internal/bypass"
	"github.com/FranksOps/catgap/internal/fingerprint"
	"github.com/FranksOps/catgap/internal/metrics"
	"github.com/FranksOps/catgap/pkg/httpclient"
	"github.com/FranksOps/catgap/pkg/ratelimit"
)

// DefaultUserAgent identifies the tool to the target site.
const DefaultUserAgent = "catgap/1.0 (+https://github.com/FranksOps/catgap)"

// DefaultMaxBodyBytes caps how much of a page is read.
const DefaultMaxBodyBytes = 4 << 20

// FetchConfig configures the Fetcher.
type FetchConfig struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	Fingerprint  fingerprint.Profile
	MaxBodyBytes int64
	Limiter      *ratelimit.Limiter
}

// Page is one fetched response.
type Page struct {
	ID         string
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Truncated  bool
	Duration   time.Duration
	FetchedAt  time.Time
	// DetectedBy names the bot-protection vendor whose challenge was served
	// instead of the page, empty if none.
	DetectedBy string
}

// Challenged reports whether a bot-protection challenge was served.
func (p *Page) Challenged() bool { return p.DetectedBy != "" }

// Fetcher performs single URL fetches. Holding one client across requests
// lets connections and cookies persist for the lifetime of the Fetcher.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
}

// NewFetcher initializes a new Fetcher with the given configuration.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileGo
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &Fetcher{config: cfg, client: client}, nil
}

// UserAgent is the User-Agent header the fetcher sends.
func (f *Fetcher) UserAgent() string { return f.config.UserAgent }

// Fetch executes a GET request to targetURL and captures the response. A
// response with any status is returned as a Page; only failures to obtain
// a response are errors.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*Page, error) {
	if f.config.Limiter != nil {
		if err := f.config.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	domain := hostOf(targetURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-AU,en;q=0.8")

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		metrics.RecordFetch(domain, -1, "", 0)
		return nil, fmt.Errorf("fetch %s: %w", targetURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes+1))
	if err != nil {
		metrics.RecordFetch(domain, resp.StatusCode, "", len(body))
		return nil, fmt.Errorf("read body of %s: %w", targetURL, err)
	}

	page := &Page{
		ID:         uuid.New().String(),
		URL:        targetURL,
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		Duration:   time.Since(start),
		FetchedAt:  start.UTC(),
	}
	if int64(len(body)) > f.config.MaxBodyBytes {
		page.Body = body[:f.config.MaxBodyBytes]
		page.Truncated = true
	}

	page.DetectedBy, _ = bypass.Detect(bypass.Response{
		StatusCode: page.StatusCode,
		Headers:    page.Headers,
		Body:       page.Body,
	}, bypass.DefaultSignatures)

	metrics.RecordFetch(domain, page.StatusCode, page.DetectedBy, len(page.Body))
	return page, nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Hostname()
}
