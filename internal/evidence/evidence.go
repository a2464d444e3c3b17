package evidence

import (
	"github.com/FranksOps/catgap/internal/urlclass"
)

// KeywordEvidence is the running aggregate of everything learned about one
// keyword. It only grows: assessments are appended even after an early exit.
type KeywordEvidence struct {
	// BestListing is the highest listing-scale verdict seen, nil if none.
	BestListing        *ListingVerdict                      `json:"best_listing_relevance"`
	RelatedDetailFound bool                                 `json:"related_detail_found"`
	Initial            map[urlclass.Classification][]string `json:"initial_classification"`
	Assessments        []PageAssessment                     `json:"assessments"`
}

// NewKeywordEvidence returns evidence with every classification bucket
// present and empty.
func NewKeywordEvidence() KeywordEvidence {
	return KeywordEvidence{Initial: urlclass.Buckets{}.URLs()}
}

// CloselyRelatedListingFound reports whether the best listing verdict is
// CloselyRelated. It is derived so it can never disagree with BestListing.
func (e *KeywordEvidence) CloselyRelatedListingFound() bool {
	return e.BestListing != nil && *e.BestListing == CloselyRelated
}

// FoldListing records a known-listing assessment and raises the running
// best. A failure floors an absent best at Unrelated. It reports whether
// the assessment is CloselyRelated, the signal to stop assessing listings.
func (e *KeywordEvidence) FoldListing(a PageAssessment) bool {
	e.Assessments = append(e.Assessments, a)
	if a.Failed {
		if e.BestListing == nil {
			e.raise(ListingUnrelated)
		}
		return false
	}
	v, ok := a.Verdict.(ListingVerdict)
	if !ok {
		return false
	}
	e.raise(v)
	return v == CloselyRelated
}

// FoldUnknown records a combined classify-and-assess result. Listing and
// brand pages raise the running best; related detail pages set the detail
// flag; anything else is kept for the audit trail only. It reports whether
// the page is a CloselyRelated listing or brand page.
func (e *KeywordEvidence) FoldUnknown(a PageAssessment) bool {
	e.Assessments = append(e.Assessments, a)
	if a.Failed {
		return false
	}
	switch a.PageType {
	case PageListing, PageBrand:
		v, ok := a.Verdict.(ListingVerdict)
		if !ok {
			return false
		}
		e.raise(v)
		return v == CloselyRelated
	case PageDetail:
		if v, ok := a.Verdict.(DetailVerdict); ok && v == Related {
			e.RelatedDetailFound = true
		}
	}
	return false
}

// FoldDetail records a known-detail assessment. Any Related verdict sets the
// detail flag; there is no early exit for details.
func (e *KeywordEvidence) FoldDetail(a PageAssessment) {
	e.Assessments = append(e.Assessments, a)
	if a.Failed {
		return
	}
	if v, ok := a.Verdict.(DetailVerdict); ok && v == Related {
		e.RelatedDetailFound = true
	}
}

func (e *KeywordEvidence) raise(v ListingVerdict) {
	if e.BestListing == nil || v > *e.BestListing {
		e.BestListing = &v
	}
}

// ByKind returns the assessments produced by one assessor operation, in the
// order they were made.
func (e *KeywordEvidence) ByKind(k Kind) []PageAssessment {
	var out []PageAssessment
	for _, a := range e.Assessments {
		if a.Kind == k {
			out = append(out, a)
		}
	}
	return out
}

// BestListingLabel renders BestListing, or NotAvailable.
func (e *KeywordEvidence) BestListingLabel() string {
	if e.BestListing == nil {
		return NotAvailable
	}
	return e.BestListing.Label()
}

// InitialCounts returns the bucket sizes from the initial classification.
func (e *KeywordEvidence) InitialCounts() map[urlclass.Classification]int {
	out := make(map[urlclass.Classification]int, len(urlclass.Classifications))
	for _, c := range urlclass.Classifications {
		out[c] = len(e.Initial[c])
	}
	return out
}
