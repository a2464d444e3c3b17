package relevance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/FranksOps/catgap/internal/analyzer"
	"github.com/FranksOps/catgap/internal/scraper"
)

// DefaultClaudeModel is used when ClaudeConfig.Model is empty.
const DefaultClaudeModel = anthropic.ModelClaudeSonnet4_5

// PageReader fetches and parses one page.
type PageReader interface {
	Read(ctx context.Context, url string) (*scraper.Document, error)
}

// ClaudeConfig configures the Anthropic-backed extractor.
type ClaudeConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int64
	Timeout   time.Duration
	// MaxPageChars bounds how much page text is sent with each prompt.
	MaxPageChars int
}

// Claude answers extraction prompts by reading the page itself and asking an
// Anthropic model about its content.
type Claude struct {
	cfg    ClaudeConfig
	client anthropic.Client
	reader PageReader
	logger *slog.Logger
}

const claudeSystemPrompt = "You are an e-commerce merchandising analyst. You judge pages only from the content provided. Respond with a single JSON object that follows the requested format and schema, without commentary."

// NewClaude builds the extractor. A missing API key yields a disabled
// extractor whose calls return ErrDisabled.
func NewClaude(cfg ClaudeConfig, reader PageReader, logger *slog.Logger) *Claude {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Model == "" {
		cfg.Model = string(DefaultClaudeModel)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxPageChars <= 0 {
		cfg.MaxPageChars = 12000
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Claude{
		cfg:    cfg,
		client: anthropic.NewClient(opts...),
		reader: reader,
		logger: logger,
	}
}

func (c *Claude) Name() string { return "claude" }

// Enabled reports whether the extractor has credentials and a page reader.
func (c *Claude) Enabled() bool {
	return c != nil && c.cfg.APIKey != "" && c.reader != nil
}

// Extract reads req.URL, then asks the model req.Prompt about it.
func (c *Claude) Extract(ctx context.Context, req ExtractRequest) (json.RawMessage, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	doc, err := c.reader.Read(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("claude read page: %w", err)
	}

	schema, err := json.Marshal(req.Schema)
	if err != nil {
		return nil, fmt.Errorf("claude encode schema: %w", err)
	}

	var b strings.Builder
	b.WriteString(req.Prompt)
	b.WriteString("\n\nJSON schema of the answer:\n")
	b.Write(schema)
	b.WriteString("\n\nPage content:\n")
	b.WriteString(digest(doc, req.Keyword, c.cfg.MaxPageChars))

	c.logger.Debug("claude request", "url", req.URL, "model", c.cfg.Model, "prompt_chars", b.Len())

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: c.cfg.MaxTokens,
		System:    []anthropic.TextBlockParam{{Text: claudeSystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(b.String())),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude messages: %w", err)
	}

	var reply strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	cleaned := normalizeJSONBlock(reply.String())
	if !isObject(json.RawMessage(cleaned)) {
		return nil, fmt.Errorf("claude: %w: reply is not a JSON object", ErrInvalidPayload)
	}
	return json.RawMessage(cleaned), nil
}

// digest renders the parts of doc a relevance judgment depends on. Keyword
// mentions come before the body text so they survive truncation.
func digest(doc *scraper.Document, keyword string, maxChars int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", doc.URL)
	if doc.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", doc.Title)
	}
	if doc.Description != "" {
		fmt.Fprintf(&b, "Meta description: %s\n", doc.Description)
	}
	if len(doc.Breadcrumbs) > 0 {
		fmt.Fprintf(&b, "Breadcrumbs: %s\n", strings.Join(doc.Breadcrumbs, " > "))
	}
	if len(doc.Headings) > 0 {
		fmt.Fprintf(&b, "Headings: %s\n", strings.Join(doc.Headings, " | "))
	}
	fmt.Fprintf(&b, "Distinct product links: %d\n", doc.ProductLinks)

	matches := analyzer.FindTermMatches(doc.Text, analyzer.KeywordTerms(keyword), 3)
	if len(matches) > 0 {
		b.WriteString("Keyword mentions:\n")
		for _, m := range matches {
			fmt.Fprintf(&b, "- %q (%d): %s\n", m.Term, m.Count, strings.Join(m.Sentences, " / "))
		}
	} else {
		fmt.Fprintf(&b, "Keyword mentions: none of %q found in the page text\n", keyword)
	}

	text := doc.Text
	if r := []rune(text); len(r) > maxChars {
		text = string(r[:maxChars]) + " [truncated]"
	}
	b.WriteString("Text:\n")
	b.WriteString(text)
	return b.String()
}
