// Package serp fetches organic search rankings for a keyword restricted to
// one site.
package serp

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned when the provider has no credentials.
var ErrMissingAPIKey = errors.New("serp: missing API key")

// RankedURL is one organic search result.
type RankedURL struct {
	Position int    `json:"position"` // 1-based
	URL      string `json:"url"`
	Snippet  string `json:"snippet,omitempty"`
}

// Results is the outcome of one search. RawHTMLFile references the provider's
// stored copy of the results page, empty when the provider keeps none.
type Results struct {
	RawHTMLFile string      `json:"raw_html_file,omitempty"`
	URLs        []RankedURL `json:"urls"`
}

// Links returns the result URLs in ranking order.
func (r *Results) Links() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.URLs))
	for i, u := range r.URLs {
		out[i] = u.URL
	}
	return out
}

// Provider abstracts a search engine returning ranked organic results for a
// query restricted to site.
type Provider interface {
	Search(ctx context.Context, keyword, site string) (*Results, error)
}
