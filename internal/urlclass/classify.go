// Package urlclass tags ranked URLs by the kind of page they point to, using
// only the static path layout of the target site.
package urlclass

import "strings"

// Classification is the static page-kind tag of a URL.
type Classification string

const (
	KnownListing Classification = "known_listing"
	KnownDetail  Classification = "known_detail"
	Irrelevant   Classification = "irrelevant"
	Unknown      Classification = "unknown"
)

// Classifications lists every tag in bucket order.
var Classifications = []Classification{KnownListing, KnownDetail, Irrelevant, Unknown}

// Label is the human-readable name used in reports.
func (c Classification) Label() string {
	switch c {
	case KnownListing:
		return "Known Listing"
	case KnownDetail:
		return "Known Detail"
	case Irrelevant:
		return "Irrelevant"
	case Unknown:
		return "Unknown"
	default:
		return string(c)
	}
}

// ParseClassification maps a stored tag back to its value.
func ParseClassification(s string) (Classification, bool) {
	for _, c := range Classifications {
		if string(c) == s || c.Label() == s {
			return c, true
		}
	}
	return "", false
}

// KnownSet holds externally supplied listing URLs in normalized form.
type KnownSet map[string]struct{}

// NewKnownSet normalizes and de-duplicates urls. Unresolvable entries are
// dropped.
func NewKnownSet(pc PathConfig, urls []string) KnownSet {
	set := make(KnownSet, len(urls))
	for _, raw := range urls {
		if u, ok := pc.Normalize(raw); ok {
			set[u] = struct{}{}
		}
	}
	return set
}

// Contains reports whether the normalized url is in the set.
func (k KnownSet) Contains(u string) bool {
	_, ok := k[u]
	return ok
}

// Classify tags a URL. It normalizes its input first, so raw and cleaned URLs
// give the same answer; unresolvable input is Unknown. Rules are evaluated in
// fixed precedence and the first match wins.
func (pc PathConfig) Classify(raw string, known KnownSet) Classification {
	u, ok := pc.Normalize(raw)
	if !ok {
		return Unknown
	}

	if pc.isIrrelevant(u) {
		return Irrelevant
	}
	if known.Contains(u) {
		return KnownListing
	}
	nested := strings.Contains(u, pc.collection) && strings.Contains(u, pc.product)
	if hasAnyPrefix(u, pc.listing) && !nested {
		return KnownListing
	}
	if hasAnyPrefix(u, pc.detail) || strings.Contains(u, pc.product) {
		return KnownDetail
	}
	return Unknown
}

func (pc PathConfig) isIrrelevant(u string) bool {
	if u == pc.root {
		return true
	}
	for _, p := range pc.irrelevant {
		if p == pc.root {
			// root as a prefix would swallow the whole site
			continue
		}
		if strings.HasPrefix(u, p) && len(u) > len(p) {
			return true
		}
	}
	for _, p := range pc.irrelevant {
		if u == p {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
