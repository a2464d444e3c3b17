package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsTxtAuditor fetches, caches and enforces robots.txt per host.
type RobotsTxtAuditor struct {
	fetcher *Fetcher
	logger  *slog.Logger
	mu      sync.Mutex
	cache   map[string]*robotstxt.RobotsData
}

// NewRobotsTxtAuditor creates a new instance.
func NewRobotsTxtAuditor(fetcher *Fetcher, logger *slog.Logger) *RobotsTxtAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsTxtAuditor{
		fetcher: fetcher,
		logger:  logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// IsAllowed reports whether the fetcher's User-Agent may fetch targetURL. A
// missing or unreadable robots.txt allows everything.
func (r *RobotsTxtAuditor) IsAllowed(ctx context.Context, targetURL string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}
	if u.Host == "" {
		return false, fmt.Errorf("invalid url %q: no host", targetURL)
	}

	data := r.get(ctx, u.Scheme+"://"+u.Host)
	if data == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.FindGroup(r.fetcher.UserAgent()).Test(path), nil
}

// Sitemaps returns the Sitemap: entries of the host's robots.txt.
func (r *RobotsTxtAuditor) Sitemaps(ctx context.Context, host string) []string {
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	data := r.get(ctx, strings.TrimRight(host, "/"))
	if data == nil {
		return nil
	}
	return data.Sitemaps
}

// get returns the cached robots data for origin, fetching it on first use.
// Failures are cached as nil so a broken robots.txt is fetched once.
func (r *RobotsTxtAuditor) get(ctx context.Context, origin string) *robotstxt.RobotsData {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data, ok := r.cache[origin]; ok {
		return data
	}

	data, err := r.fetch(ctx, origin)
	if err != nil {
		r.logger.Debug("robots.txt unavailable, allowing all", "origin", origin, "error", err)
	}
	r.cache[origin] = data
	return data
}

func (r *RobotsTxtAuditor) fetch(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	page, err := r.fetcher.Fetch(ctx, origin+"/robots.txt")
	if err != nil {
		return nil, err
	}
	if page.StatusCode >= 400 || page.Challenged() {
		return nil, fmt.Errorf("status %d", page.StatusCode)
	}

	data, err := robotstxt.FromBytes(page.Body)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return data, nil
}
