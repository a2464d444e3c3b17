package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	sitemap "github.com/oxffaa/gopher-parse-sitemap"
)

var errNoEntries = errors.New("no entries")

// maxSitemapDepth bounds how deep sitemap indexes are followed.
const maxSitemapDepth = 3

// SitemapFetcher fetches sitemaps and sitemap indexes and lists page URLs.
type SitemapFetcher struct {
	fetcher *Fetcher
	logger  *slog.Logger
}

// NewSitemapFetcher initializes a new SitemapFetcher.
func NewSitemapFetcher(fetcher *Fetcher, logger *slog.Logger) *SitemapFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &SitemapFetcher{
		fetcher: fetcher,
		logger:  logger,
	}
}

// FetchSitemap fetches a sitemap or sitemap index and returns every page URL
// it lists, following nested indexes.
func (s *SitemapFetcher) FetchSitemap(ctx context.Context, sitemapURL string) ([]string, error) {
	return s.fetch(ctx, sitemapURL, 0, map[string]struct{}{})
}

func (s *SitemapFetcher) fetch(ctx context.Context, sitemapURL string, depth int, visited map[string]struct{}) ([]string, error) {
	if _, ok := visited[sitemapURL]; ok {
		return nil, nil
	}
	visited[sitemapURL] = struct{}{}

	s.logger.Debug("fetching sitemap", "url", sitemapURL, "depth", depth)

	page, err := s.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", err)
	}
	if page.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch sitemap %s: status %d", sitemapURL, page.StatusCode)
	}
	if page.Challenged() {
		return nil, fmt.Errorf("fetch sitemap %s: %w by %s", sitemapURL, ErrChallenged, page.DetectedBy)
	}

	var urls []string
	parseErr := sitemap.Parse(bytes.NewReader(page.Body), func(e sitemap.Entry) error {
		urls = append(urls, e.GetLocation())
		return nil
	})
	if parseErr == nil && len(urls) > 0 {
		return urls, nil
	}

	var nested []string
	indexErr := sitemap.ParseIndex(bytes.NewReader(page.Body), func(e sitemap.IndexEntry) error {
		nested = append(nested, e.GetLocation())
		return nil
	})
	if indexErr != nil || len(nested) == 0 {
		err := errors.Join(parseErr, indexErr)
		if err == nil {
			err = errNoEntries
		}
		return nil, fmt.Errorf("failed to parse %s as sitemap or index: %w", sitemapURL, err)
	}
	if depth >= maxSitemapDepth {
		s.logger.Warn("sitemap index too deep, not following", "url", sitemapURL, "depth", depth)
		return nil, nil
	}

	for _, n := range nested {
		if ctx.Err() != nil {
			return urls, ctx.Err()
		}
		nestedURLs, err := s.fetch(ctx, n, depth+1, visited)
		if err != nil {
			s.logger.Warn("failed to fetch nested sitemap", "url", n, "error", err)
			continue
		}
		urls = append(urls, nestedURLs...)
	}
	return urls, nil
}
