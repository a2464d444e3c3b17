// Package storage persists finalized keyword results. Backends are write
// targets for reporting; the decision pipeline never reads them back.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/FranksOps/catgap/internal/evidence"
)

// Filter selects stored keyword results.
type Filter struct {
	RunID    string
	Keyword  string
	Decision evidence.Decision
	Since    *time.Time
	Limit    int
	Offset   int
}

// Matches reports whether r passes every set field of the filter.
func (f Filter) Matches(r *evidence.KeywordResult) bool {
	if f.RunID != "" && r.RunID != f.RunID {
		return false
	}
	if f.Keyword != "" && r.Keyword != f.Keyword {
		return false
	}
	if f.Decision != "" && r.Decision != f.Decision {
		return false
	}
	if f.Since != nil && r.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Backend defines the interface for storing and querying keyword results.
type Backend interface {
	Save(ctx context.Context, result *evidence.KeywordResult) error
	Query(ctx context.Context, filter Filter) ([]*evidence.KeywordResult, error)
	Close() error
}

// Apply filters results held in memory, orders them by created_at
// descending and pages them. File backends use it in place of a query
// engine.
func Apply(results []*evidence.KeywordResult, filter Filter) []*evidence.KeywordResult {
	var out []*evidence.KeywordResult
	for _, r := range results {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}

	// Stable so results written within the same instant keep reverse
	// insertion order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*evidence.KeywordResult{}
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out
}

// TimestampLayout is the suffix format of output file names.
const TimestampLayout = "20060102_150405"

// OutputPath returns <dir>/<basename>_<timestamp><ext>, creating dir if it
// is missing.
func OutputPath(dir, basename, ext string, at time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	return filepath.Join(dir, basename+"_"+at.Format(TimestampLayout)+ext), nil
}

// Multi fans each result out to several backends.
type Multi []Backend

var _ Backend = Multi(nil)

// Save writes result to every backend, attempting all of them even when
// one fails.
func (m Multi) Save(ctx context.Context, result *evidence.KeywordResult) error {
	var errs []error
	for _, b := range m {
		if err := b.Save(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Query reads from the first backend.
func (m Multi) Query(ctx context.Context, filter Filter) ([]*evidence.KeywordResult, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return m[0].Query(ctx, filter)
}

// Close closes every backend.
func (m Multi) Close() error {
	var errs []error
	for _, b := range m {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
