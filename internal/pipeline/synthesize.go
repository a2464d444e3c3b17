package pipeline

import "github.com/FranksOps/catgap/internal/evidence"

// Fixed justifications, one per terminal transition.
const (
	JustNoSearchResults   = "No organic results found for this keyword on the target site."
	JustKnownListing      = "A closely related known listing page already ranks for this keyword."
	JustClassifiedListing = "An AI-classified listing or brand page was found closely related."
	JustSpecific          = "Found a 'Loosely Related' listing page and 'Related' products/pages, suggesting a more specific category is needed."
	JustLooseOnly         = "Found a 'Loosely Related' listing page, but no specific 'Related' products/pages to justify a new category."
	JustNew               = "No relevant listing page found, but 'Related' products/pages exist, justifying a new category."
	JustNothing           = "No relevant listing pages or other pages related to the keyword were found."
	JustUnhandled         = "Unhandled case in final decision logic."
)

// Outcome is a terminal decision and its justification.
type Outcome struct {
	Decision      evidence.Decision
	Justification string
}

// Synthesize maps the accumulated evidence to a decision. It is only reached
// when no CloselyRelated listing was found, so a CloselyRelated best yields
// DecisionError.
func Synthesize(best *evidence.ListingVerdict, relatedDetail bool) Outcome {
	level := evidence.ListingUnrelated
	if best != nil {
		level = *best
	}

	switch {
	case level == evidence.LooselyRelated && relatedDetail:
		return Outcome{evidence.CreateSpecificCategory, JustSpecific}
	case level == evidence.LooselyRelated:
		return Outcome{evidence.LooseSufficientForNow, JustLooseOnly}
	case level == evidence.ListingUnrelated && relatedDetail:
		return Outcome{evidence.CreateNewCategory, JustNew}
	case level == evidence.ListingUnrelated:
		return Outcome{evidence.NoRelevantContent, JustNothing}
	default:
		return Outcome{evidence.DecisionError, JustUnhandled}
	}
}
