package urlclass

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultCollectionSegment marks a collection path. A URL containing both
	// this and the product segment is a detail page nested inside a collection.
	DefaultCollectionSegment = "/collections/"
	// DefaultProductSegment marks a product detail path.
	DefaultProductSegment = "/products/"
)

// Segments overrides the path segments used by the listing and detail rules.
// Zero values fall back to the defaults.
type Segments struct {
	Collection string
	Product    string
}

// PathConfig is the static, per-site description of known URL shapes. It is
// immutable once built; accessors return copies.
type PathConfig struct {
	scheme     string
	host       string
	root       string
	listing    []string
	detail     []string
	irrelevant []string
	collection string
	product    string
}

// NewPathConfig resolves the supplied path lists against baseURL. Entries may
// be absolute URLs or site-relative paths such as "/products/".
func NewPathConfig(baseURL string, listing, detail, irrelevant []string, seg Segments) (PathConfig, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return PathConfig{}, fmt.Errorf("parse base url: %w", err)
	}
	if base.Host == "" {
		// "example.com" parses as a bare path
		base, err = url.Parse("https://" + strings.Trim(strings.TrimSpace(baseURL), "/"))
		if err != nil || base.Host == "" {
			return PathConfig{}, fmt.Errorf("base url %q has no host", baseURL)
		}
	}
	if base.Scheme == "" {
		base.Scheme = "https"
	}

	pc := PathConfig{
		scheme:     strings.ToLower(base.Scheme),
		host:       strings.ToLower(base.Host),
		collection: seg.Collection,
		product:    seg.Product,
	}
	if pc.collection == "" {
		pc.collection = DefaultCollectionSegment
	}
	if pc.product == "" {
		pc.product = DefaultProductSegment
	}
	pc.root = pc.scheme + "://" + pc.host + "/"

	if pc.listing, err = pc.resolveAll(listing); err != nil {
		return PathConfig{}, fmt.Errorf("listing paths: %w", err)
	}
	if pc.detail, err = pc.resolveAll(detail); err != nil {
		return PathConfig{}, fmt.Errorf("detail paths: %w", err)
	}
	if pc.irrelevant, err = pc.resolveAll(irrelevant); err != nil {
		return PathConfig{}, fmt.Errorf("irrelevant paths: %w", err)
	}
	return pc, nil
}

func (pc PathConfig) resolveAll(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		resolved, ok := pc.resolvePath(p)
		if !ok {
			return nil, fmt.Errorf("cannot resolve %q", p)
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		out = append(out, resolved)
	}
	return out, nil
}

// resolvePath turns a configured path into the normalized prefix form. Unlike
// Normalize it keeps a bare "/collections" prefix without a trailing slash.
func (pc PathConfig) resolvePath(p string) (string, bool) {
	if strings.HasPrefix(p, "/") {
		return pc.scheme + "://" + pc.host + p, true
	}
	return pc.Normalize(p)
}

// Host returns the site host, e.g. "www.example.com".
func (pc PathConfig) Host() string { return pc.host }

// Root returns the canonical site root, e.g. "https://www.example.com/".
func (pc PathConfig) Root() string { return pc.root }

// ListingPaths returns a copy of the listing prefixes.
func (pc PathConfig) ListingPaths() []string { return append([]string(nil), pc.listing...) }

// DetailPaths returns a copy of the detail prefixes.
func (pc PathConfig) DetailPaths() []string { return append([]string(nil), pc.detail...) }

// IrrelevantPaths returns a copy of the irrelevant paths.
func (pc PathConfig) IrrelevantPaths() []string { return append([]string(nil), pc.irrelevant...) }
