package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/FranksOps/catgap/internal/urlclass"
)

// SitemapLocator lists the sitemaps a site advertises, e.g. in robots.txt.
type SitemapLocator interface {
	Sitemaps(ctx context.Context, host string) []string
}

// SitemapReader expands a sitemap or sitemap index into page URLs.
type SitemapReader interface {
	FetchSitemap(ctx context.Context, sitemapURL string) ([]string, error)
}

// DiscoverListings collects every sitemap URL that classifies as a known
// listing under pc. Sitemaps come from locator, falling back to
// /sitemap.xml at the site root. The result is normalized, de-duplicated and
// sorted. It fails only when no sitemap could be read.
func DiscoverListings(ctx context.Context, locator SitemapLocator, reader SitemapReader, pc urlclass.PathConfig, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var sitemaps []string
	if locator != nil {
		sitemaps = locator.Sitemaps(ctx, pc.Root())
	}
	if len(sitemaps) == 0 {
		sitemaps = []string{pc.Root() + "sitemap.xml"}
	}

	var (
		found []string
		errs  []error
		read  int
	)
	for _, sm := range sitemaps {
		urls, err := reader.FetchSitemap(ctx, sm)
		if err != nil {
			logger.Warn("sitemap unavailable", "sitemap", sm, "error", err)
			errs = append(errs, err)
			continue
		}
		read++
		found = append(found, urls...)
		logger.Debug("sitemap read", "sitemap", sm, "urls", len(urls))
	}

	if read == 0 {
		return nil, fmt.Errorf("discover listings: %w", errors.Join(errs...))
	}
	return filterListings(found, pc), nil
}

// LinkWalker lists the pages reachable from a seed URL.
type LinkWalker interface {
	Crawl(ctx context.Context, seed string) ([]string, error)
}

// CrawlListings walks the site from its root and keeps the pages that
// classify as known listings. It serves sites that publish no sitemap.
func CrawlListings(ctx context.Context, walker LinkWalker, pc urlclass.PathConfig, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	urls, err := walker.Crawl(ctx, pc.Root())
	if err != nil {
		return nil, fmt.Errorf("crawl listings: %w", err)
	}
	listings := filterListings(urls, pc)
	logger.Debug("site crawled", "root", pc.Root(), "urls", len(urls), "listings", len(listings))
	return listings, nil
}

// filterListings normalizes, de-duplicates and sorts the URLs classified as
// known listings.
func filterListings(urls []string, pc urlclass.PathConfig) []string {
	seen := make(map[string]struct{})
	var listings []string
	for _, raw := range urls {
		if pc.Classify(raw, nil) != urlclass.KnownListing {
			continue
		}
		u, _ := pc.Normalize(raw)
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		listings = append(listings, u)
	}
	slices.Sort(listings)
	return listings
}
