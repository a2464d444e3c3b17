package relevance

import (
	"context"
	"encoding/json"
	"fmt"
)

type extractorChain struct {
	primary  Extractor
	fallback Extractor
}

// WithFallback returns an extractor that first tries the primary
// implementation and falls back to the other one when the primary is
// disabled, fails, or answers with something that is not a JSON object.
func WithFallback(primary, fallback Extractor) Extractor {
	if primary == nil {
		return fallback
	}
	if fallback == nil {
		return primary
	}
	return &extractorChain{primary: primary, fallback: fallback}
}

func (c *extractorChain) Name() string {
	return c.primary.Name() + "+" + c.fallback.Name()
}

func (c *extractorChain) Enabled() bool {
	if c == nil {
		return false
	}
	return c.primary.Enabled() || c.fallback.Enabled()
}

func (c *extractorChain) Extract(ctx context.Context, req ExtractRequest) (json.RawMessage, error) {
	if c == nil {
		return nil, ErrDisabled
	}
	var primaryErr error
	if c.primary.Enabled() {
		raw, err := c.primary.Extract(ctx, req)
		if err == nil && isObject(raw) {
			return raw, nil
		}
		primaryErr = err
		if primaryErr == nil {
			primaryErr = fmt.Errorf("%s: %w: not a JSON object", c.primary.Name(), ErrInvalidPayload)
		}
	}
	if c.fallback.Enabled() {
		return c.fallback.Extract(ctx, req)
	}
	if primaryErr != nil {
		return nil, primaryErr
	}
	return nil, ErrDisabled
}

func isObject(raw json.RawMessage) bool {
	var m map[string]json.RawMessage
	return json.Unmarshal(raw, &m) == nil && m != nil
}
