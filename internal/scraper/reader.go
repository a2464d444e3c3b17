package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrDisallowed is returned when robots.txt forbids fetching a URL.
	ErrDisallowed = errors.New("disallowed by robots.txt")
	// ErrChallenged is returned when a bot-protection challenge was served
	// instead of the page.
	ErrChallenged = errors.New("bot challenge served")
)

// Reader fetches one page and returns its readable content.
type Reader struct {
	fetcher *Fetcher
	robots  *RobotsTxtAuditor
	logger  *slog.Logger
}

// NewReader builds a Reader. A nil robots auditor disables robots.txt
// checks.
func NewReader(fetcher *Fetcher, robots *RobotsTxtAuditor, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{fetcher: fetcher, robots: robots, logger: logger}
}

// Read fetches pageURL and parses it into a Document.
func (r *Reader) Read(ctx context.Context, pageURL string) (*Document, error) {
	if r.robots != nil {
		allowed, err := r.robots.IsAllowed(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", pageURL, ErrDisallowed)
		}
	}

	page, err := r.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if page.Challenged() {
		return nil, fmt.Errorf("%s: %w by %s", pageURL, ErrChallenged, page.DetectedBy)
	}
	if page.StatusCode >= 400 {
		return nil, fmt.Errorf("%s: status %d", pageURL, page.StatusCode)
	}
	if page.Truncated {
		r.logger.Debug("page body truncated", "url", pageURL, "bytes", len(page.Body))
	}

	return ParseDocument(page.FinalURL, page.Body)
}
