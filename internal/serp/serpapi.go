package serp

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/FranksOps/catgap/pkg/httpclient"
)

// DefaultSerpAPIURL is the public SerpApi endpoint base.
const DefaultSerpAPIURL = "https://serpapi.com"

// SerpAPIConfig configures the SerpApi client.
type SerpAPIConfig struct {
	APIKey  string
	BaseURL string
	Engine  string
	Num     int
	Timeout time.Duration
}

// SerpAPI implements Provider on top of the SerpApi Google engine.
type SerpAPI struct {
	cfg    SerpAPIConfig
	client *httpclient.Client
	logger *slog.Logger
}

// NewSerpAPI builds the client. The API key is checked on each Search so a
// keyless client can still be constructed.
func NewSerpAPI(cfg SerpAPIConfig, logger *slog.Logger) (*SerpAPI, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSerpAPIURL
	}
	if cfg.Engine == "" {
		cfg.Engine = "google"
	}
	if cfg.Num <= 0 {
		cfg.Num = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("serpapi client: %w", err)
	}
	return &SerpAPI{cfg: cfg, client: client, logger: logger}, nil
}

type serpAPIResponse struct {
	Error          string `json:"error"`
	SearchMetadata struct {
		Status      string `json:"status"`
		RawHTMLFile string `json:"raw_html_file"`
	} `json:"search_metadata"`
	OrganicResults []struct {
		Position int    `json:"position"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
	} `json:"organic_results"`
}

// Search runs `<keyword> site:<site>` and returns the organic results that
// carry a link. Positions are the 1-based order in the response.
func (s *SerpAPI) Search(ctx context.Context, keyword, site string) (*Results, error) {
	if s.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	q := Query(keyword, site)
	params := url.Values{
		"engine":  {s.cfg.Engine},
		"q":       {q},
		"num":     {strconv.Itoa(s.cfg.Num)},
		"api_key": {s.cfg.APIKey},
	}

	s.logger.Debug("serpapi search", "query", q)

	var resp serpAPIResponse
	if err := s.client.GetJSON(ctx, s.cfg.BaseURL+"/search.json?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("serpapi search %q: %w", q, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("serpapi search %q: %s", q, resp.Error)
	}

	res := &Results{RawHTMLFile: resp.SearchMetadata.RawHTMLFile}
	for i, r := range resp.OrganicResults {
		if strings.TrimSpace(r.Link) == "" {
			continue
		}
		res.URLs = append(res.URLs, RankedURL{Position: i + 1, URL: r.Link, Snippet: r.Snippet})
	}
	return res, nil
}

// Query builds the site-restricted search query. "&" is spelled out because
// the engine treats it as a separator, and the site loses its scheme and
// slashes.
func Query(keyword, site string) string {
	kw := strings.Join(strings.Fields(strings.ReplaceAll(keyword, "&", " and ")), " ")
	site = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(site), "https://"), "http://")
	site = strings.Trim(site, "/")
	return kw + " site:" + site
}
