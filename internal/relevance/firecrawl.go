package relevance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/catgap/pkg/httpclient"
)

// DefaultFirecrawlURL is the public Firecrawl API base.
const DefaultFirecrawlURL = "https://api.firecrawl.dev"

// FirecrawlConfig configures the Firecrawl extract client.
type FirecrawlConfig struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	MaxWait      time.Duration
	Timeout      time.Duration
}

// Firecrawl runs structured extraction through the Firecrawl /v1/extract
// API. Extraction jobs are asynchronous: the job is submitted and then polled
// until it completes, fails, or MaxWait elapses.
type Firecrawl struct {
	cfg    FirecrawlConfig
	client *httpclient.Client
	logger *slog.Logger
}

// NewFirecrawl builds the client. A missing API key yields a disabled
// extractor whose calls return ErrDisabled.
func NewFirecrawl(cfg FirecrawlConfig, logger *slog.Logger) (*Firecrawl, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultFirecrawlURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 2 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("firecrawl client: %w", err)
	}
	return &Firecrawl{cfg: cfg, client: client, logger: logger}, nil
}

func (f *Firecrawl) Name() string { return "firecrawl" }

// Enabled reports whether the client has credentials.
func (f *Firecrawl) Enabled() bool {
	return f != nil && f.cfg.APIKey != ""
}

type extractRequest struct {
	URLs   []string       `json:"urls"`
	Prompt string         `json:"prompt"`
	Schema map[string]any `json:"schema,omitempty"`
}

type extractResponse struct {
	Success bool            `json:"success"`
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Extract submits an extract job for one URL and waits for its data.
func (f *Firecrawl) Extract(ctx context.Context, req ExtractRequest) (json.RawMessage, error) {
	if !f.Enabled() {
		return nil, ErrDisabled
	}

	var submitted extractResponse
	body := extractRequest{URLs: []string{req.URL}, Prompt: req.Prompt, Schema: req.Schema}
	if err := f.client.PostJSON(ctx, f.cfg.BaseURL+"/v1/extract", f.header(), body, &submitted); err != nil {
		return nil, fmt.Errorf("firecrawl extract: %w", err)
	}
	if data, done, err := settled(submitted); done {
		return data, err
	}
	if submitted.ID == "" {
		return nil, errors.New("firecrawl extract: response has neither data nor job id")
	}

	f.logger.Debug("firecrawl job submitted", "job", submitted.ID, "url", req.URL)
	return f.poll(ctx, submitted.ID)
}

func (f *Firecrawl) poll(ctx context.Context, id string) (json.RawMessage, error) {
	deadline := time.NewTimer(f.cfg.MaxWait)
	defer deadline.Stop()
	ticker := time.NewTicker(f.cfg.PollInterval)
	defer ticker.Stop()

	statusURL := f.cfg.BaseURL + "/v1/extract/" + url.PathEscape(id)
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("firecrawl job %s: %w", id, ctx.Err())
		case <-deadline.C:
			return nil, fmt.Errorf("firecrawl job %s: not completed after %s", id, f.cfg.MaxWait)
		case <-ticker.C:
		}

		var status extractResponse
		if err := f.client.GetJSON(ctx, statusURL, f.header(), &status); err != nil {
			return nil, fmt.Errorf("firecrawl job %s: %w", id, err)
		}
		if data, done, err := settled(status); done {
			if err != nil {
				return nil, fmt.Errorf("firecrawl job %s: %w", id, err)
			}
			return data, nil
		}
		f.logger.Debug("firecrawl job pending", "job", id, "status", status.Status)
	}
}

// settled interprets an extract response. done is false while the job is
// still running.
func settled(r extractResponse) (json.RawMessage, bool, error) {
	if r.Error != "" {
		return nil, true, fmt.Errorf("provider error: %s", r.Error)
	}
	switch strings.ToLower(r.Status) {
	case "failed", "cancelled":
		return nil, true, fmt.Errorf("job %s", strings.ToLower(r.Status))
	case "completed":
		if !hasData(r.Data) {
			return nil, true, fmt.Errorf("%w: completed without data", ErrInvalidPayload)
		}
		return r.Data, true, nil
	case "":
		if hasData(r.Data) {
			return r.Data, true, nil
		}
		if !r.Success && r.ID == "" {
			return nil, true, errors.New("request was not successful")
		}
	}
	return nil, false, nil
}

func hasData(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null" && s != "{}"
}

func (f *Firecrawl) header() http.Header {
	return http.Header{"Authorization": {"Bearer " + f.cfg.APIKey}}
}
