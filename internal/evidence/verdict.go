// Package evidence holds the per-keyword records the decision pipeline
// produces: relevance verdicts, page assessments, the running evidence
// aggregate, and the terminal keyword result.
package evidence

import (
	"fmt"
	"strings"
)

// Scale identifies which ordered verdict scale a Verdict belongs to.
type Scale string

const (
	ScaleListing Scale = "listing"
	ScaleDetail  Scale = "detail"
	ScaleNone    Scale = "none"
)

// Verdict is a relevance judgment on one of the scales. The set of
// implementations is closed: ListingVerdict, DetailVerdict and
// NotApplicable. Verdicts on different scales have different Go types and
// are never compared with each other.
type Verdict interface {
	Scale() Scale
	Label() string
	sealed()
}

// ListingVerdict is the 3-point scale used for listing and brand pages.
// Values are ordered so the running best can be kept with a plain max.
type ListingVerdict int

const (
	ListingUnrelated ListingVerdict = iota + 1
	LooselyRelated
	CloselyRelated
)

func (ListingVerdict) Scale() Scale { return ScaleListing }
func (ListingVerdict) sealed()      {}

func (v ListingVerdict) Label() string {
	switch v {
	case ListingUnrelated:
		return "Unrelated"
	case LooselyRelated:
		return "Loosely Related"
	case CloselyRelated:
		return "Closely Related"
	default:
		return fmt.Sprintf("ListingVerdict(%d)", int(v))
	}
}

func (v ListingVerdict) String() string { return v.Label() }

// MarshalText encodes the verdict as its label.
func (v ListingVerdict) MarshalText() ([]byte, error) {
	if v < ListingUnrelated || v > CloselyRelated {
		return nil, fmt.Errorf("invalid listing verdict %d", int(v))
	}
	return []byte(v.Label()), nil
}

// UnmarshalText accepts any label ParseListingVerdict accepts.
func (v *ListingVerdict) UnmarshalText(b []byte) error {
	parsed, ok := ParseListingVerdict(string(b))
	if !ok {
		return fmt.Errorf("invalid listing verdict %q", string(b))
	}
	*v = parsed
	return nil
}

// ParseListingVerdict maps a provider label onto the listing scale.
func ParseListingVerdict(s string) (ListingVerdict, bool) {
	switch canonical(s) {
	case "unrelated":
		return ListingUnrelated, true
	case "loosely related", "loosely_related", "looselyrelated":
		return LooselyRelated, true
	case "closely related", "closely_related", "closelyrelated":
		return CloselyRelated, true
	}
	return 0, false
}

// DetailVerdict is the 2-point scale used for product detail pages.
type DetailVerdict int

const (
	DetailUnrelated DetailVerdict = iota + 1
	Related
)

func (DetailVerdict) Scale() Scale { return ScaleDetail }
func (DetailVerdict) sealed()      {}

func (v DetailVerdict) Label() string {
	switch v {
	case DetailUnrelated:
		return "Unrelated"
	case Related:
		return "Related"
	default:
		return fmt.Sprintf("DetailVerdict(%d)", int(v))
	}
}

func (v DetailVerdict) String() string { return v.Label() }

func (v DetailVerdict) MarshalText() ([]byte, error) {
	if v < DetailUnrelated || v > Related {
		return nil, fmt.Errorf("invalid detail verdict %d", int(v))
	}
	return []byte(v.Label()), nil
}

func (v *DetailVerdict) UnmarshalText(b []byte) error {
	parsed, ok := ParseDetailVerdict(string(b))
	if !ok {
		return fmt.Errorf("invalid detail verdict %q", string(b))
	}
	*v = parsed
	return nil
}

// ParseDetailVerdict maps a provider label onto the detail scale.
func ParseDetailVerdict(s string) (DetailVerdict, bool) {
	switch canonical(s) {
	case "unrelated":
		return DetailUnrelated, true
	case "related":
		return Related, true
	}
	return 0, false
}

// NotApplicableVerdict marks pages whose type carries no relevance, such as
// articles.
type NotApplicableVerdict struct{}

// NotApplicable is the only NotApplicableVerdict value.
var NotApplicable Verdict = NotApplicableVerdict{}

func (NotApplicableVerdict) Scale() Scale  { return ScaleNone }
func (NotApplicableVerdict) Label() string { return NotAvailable }
func (NotApplicableVerdict) sealed()       {}

// ParseVerdict decodes a label on the given scale.
func ParseVerdict(scale Scale, label string) (Verdict, error) {
	switch scale {
	case ScaleListing:
		if v, ok := ParseListingVerdict(label); ok {
			return v, nil
		}
	case ScaleDetail:
		if v, ok := ParseDetailVerdict(label); ok {
			return v, nil
		}
	case ScaleNone:
		if canonical(label) == "n/a" || canonical(label) == "" {
			return NotApplicable, nil
		}
	default:
		return nil, fmt.Errorf("unknown verdict scale %q", scale)
	}
	return nil, fmt.Errorf("%q is not a %s verdict", label, scale)
}

// PageType is the page kind a provider assigns to an unknown URL. Values are
// the provider wire labels.
type PageType string

const (
	PageListing PageType = "PLP"
	PageDetail  PageType = "PDP"
	PageBrand   PageType = "Brand Page"
	PageArticle PageType = "Article"
	PageOther   PageType = "Other"
)

// PageTypes lists every page type in wire order.
var PageTypes = []PageType{PageListing, PageDetail, PageBrand, PageArticle, PageOther}

// ParsePageType accepts the wire label or a descriptive alias, ignoring case.
func ParsePageType(s string) (PageType, bool) {
	switch canonical(s) {
	case "plp", "listing", "category", "category page":
		return PageListing, true
	case "pdp", "detail", "product", "product page":
		return PageDetail, true
	case "brand page", "brand":
		return PageBrand, true
	case "article", "blog", "blog post":
		return PageArticle, true
	case "other":
		return PageOther, true
	}
	return "", false
}

// Scale returns the verdict scale relevance is judged on for this page type.
func (p PageType) Scale() Scale {
	switch p {
	case PageListing, PageBrand:
		return ScaleListing
	case PageDetail:
		return ScaleDetail
	default:
		return ScaleNone
	}
}

func canonical(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
