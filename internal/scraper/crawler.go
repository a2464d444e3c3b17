package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

// CrawlConfig bounds a link crawl.
type CrawlConfig struct {
	// MaxDepth is the number of link hops followed from the seed.
	MaxDepth    int
	Concurrency int
	// MaxPages caps the number of pages fetched (0 = default 200).
	MaxPages int
}

// LinkCrawler walks the links of one site breadth first. It only collects
// URLs; page content is not kept.
type LinkCrawler struct {
	cfg     CrawlConfig
	fetcher *Fetcher
	robots  *RobotsTxtAuditor
	logger  *slog.Logger

	mu      sync.Mutex
	visited map[string]struct{}
	fetched int
}

// NewLinkCrawler creates a crawler. A nil robots auditor disables
// robots.txt checks.
func NewLinkCrawler(cfg CrawlConfig, fetcher *Fetcher, robots *RobotsTxtAuditor, logger *slog.Logger) *LinkCrawler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 200
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkCrawler{
		cfg:     cfg,
		fetcher: fetcher,
		robots:  robots,
		logger:  logger,
	}
}

// Crawl follows same-host links from seed up to MaxDepth hops and returns
// every URL seen, sorted. Pages that fail to load are skipped; only
// cancellation is an error.
func (c *LinkCrawler) Crawl(ctx context.Context, seed string) ([]string, error) {
	start, err := url.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("crawl seed: %w", err)
	}
	if start.Host == "" {
		return nil, fmt.Errorf("crawl seed %q: no host", seed)
	}

	c.mu.Lock()
	c.visited = map[string]struct{}{canonical(start): {}}
	c.fetched = 0
	c.mu.Unlock()

	frontier := []string{canonical(start)}
	for depth := 0; depth <= c.cfg.MaxDepth && len(frontier) > 0; depth++ {
		var next []string
		var nextMu sync.Mutex

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(c.cfg.Concurrency)
		for _, u := range frontier {
			if !c.reserve() {
				break
			}
			g.Go(func() error {
				for _, link := range c.visit(gCtx, u, start.Host) {
					nextMu.Lock()
					next = append(next, link)
					nextMu.Unlock()
				}
				return gCtx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if depth == c.cfg.MaxDepth {
			break
		}
		frontier = next
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.visited))
	for u := range c.visited {
		out = append(out, u)
	}
	slices.Sort(out)
	return out, nil
}

// reserve claims one page from the fetch budget.
func (c *LinkCrawler) reserve() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetched >= c.cfg.MaxPages {
		return false
	}
	c.fetched++
	return true
}

// visit fetches pageURL and returns the same-host links not seen before.
func (c *LinkCrawler) visit(ctx context.Context, pageURL, host string) []string {
	if c.robots != nil {
		allowed, err := c.robots.IsAllowed(ctx, pageURL)
		if err != nil {
			c.logger.Warn("error checking robots.txt", "url", pageURL, "error", err)
		} else if !allowed {
			c.logger.Debug("url blocked by robots.txt", "url", pageURL)
			return nil
		}
	}

	page, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		c.logger.Warn("crawl fetch failed", "url", pageURL, "error", err)
		return nil
	}
	if page.Challenged() || page.StatusCode >= 400 {
		c.logger.Debug("crawl page skipped", "url", pageURL, "status", page.StatusCode, "detected_by", page.DetectedBy)
		return nil
	}
	if ct := page.Headers.Get("Content-Type"); ct != "" && !strings.Contains(strings.ToLower(ct), "text/html") {
		return nil
	}

	var fresh []string
	for _, link := range extractLinks(page.FinalURL, page.Body) {
		if link.Host != host || (link.Scheme != "http" && link.Scheme != "https") {
			continue
		}
		key := canonical(link)
		c.mu.Lock()
		_, seen := c.visited[key]
		if !seen {
			c.visited[key] = struct{}{}
		}
		c.mu.Unlock()
		if !seen {
			fresh = append(fresh, key)
		}
	}
	return fresh
}

// canonical drops the fragment and query of u.
func canonical(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	c.RawQuery = ""
	return c.String()
}

func extractLinks(baseURL string, body []byte) []*url.URL {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var links []*url.URL
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		links = append(links, base.ResolveReference(u))
	})
	return links
}
