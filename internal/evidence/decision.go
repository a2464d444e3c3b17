package evidence

// Decision is the terminal answer for one keyword.
type Decision string

const (
	CreateNewCategory      Decision = "create_new_category"
	CreateSpecificCategory Decision = "create_specific_category"
	ExistingSufficient     Decision = "existing_sufficient"
	LooseSufficientForNow  Decision = "loose_sufficient_for_now"
	NoRelevantContent      Decision = "no_relevant_content"
	NoSearchResults        Decision = "no_search_results"
	DecisionError          Decision = "error"
)

// Decisions lists every decision, opportunities first.
var Decisions = []Decision{
	CreateNewCategory,
	CreateSpecificCategory,
	ExistingSufficient,
	LooseSufficientForNow,
	NoRelevantContent,
	NoSearchResults,
	DecisionError,
}

// Label is the report wording for the decision.
func (d Decision) Label() string {
	switch d {
	case CreateNewCategory:
		return "Yes (Create *new* category)"
	case CreateSpecificCategory:
		return "Yes (Create *specific* category)"
	case ExistingSufficient:
		return "No (Existing page sufficient)"
	case LooseSufficientForNow:
		return "No (Loose listing is best for now)"
	case NoRelevantContent:
		return "No (No relevant products/pages)"
	case NoSearchResults:
		return "No (Irrelevant)"
	case DecisionError:
		return "Error"
	default:
		return string(d)
	}
}

// IsOpportunity reports whether the decision recommends creating a category.
func (d Decision) IsOpportunity() bool {
	return d == CreateNewCategory || d == CreateSpecificCategory
}

// ParseDecision accepts either the stored code or the report label.
func ParseDecision(s string) (Decision, bool) {
	for _, d := range Decisions {
		if string(d) == s || d.Label() == s {
			return d, true
		}
	}
	return "", false
}
