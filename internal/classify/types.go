// Package classify assigns a case code to a feature snapshot by evaluating
// it against the active rule catalog.
package classify

import "github.com/canbcare/counselor/internal/catalog"

// Unclassified is the case code returned when no definition's core
// predicates hold. It is an outcome, not an error.
const Unclassified = "UNCLASSIFIED"

// Tier is a coarse confidence grading derived from the supporting score.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
	TierNone   Tier = "none" // UNCLASSIFIED
)

// Score thresholds for confidence tiers.
const (
	highScore   = 0.67
	mediumScore = 0.34
)

// TierFor grades a supporting score in [0,1].
func TierFor(score float64) Tier {
	switch {
	case score >= highScore:
		return TierHigh
	case score >= mediumScore:
		return TierMedium
	default:
		return TierLow
	}
}

// Alternate is a losing candidate whose core predicates also matched.
type Alternate struct {
	CaseCode          string  `json:"case_code"`
	SupportingMatched int     `json:"supporting_matched"`
	SupportingTotal   int     `json:"supporting_total"`
	SupportingScore   float64 `json:"supporting_score"`
}

// Result is the output of classifying one snapshot.
type Result struct {
	CaseCode          string      `json:"case_code"`
	SupportingMatched int         `json:"supporting_matched"`
	SupportingTotal   int         `json:"supporting_total"`
	SupportingScore   float64     `json:"supporting_score"` // matched/total, 0 when total is 0
	Alternates        []Alternate `json:"alternates"`       // ranked, best first
	ConfidenceTier    Tier        `json:"confidence_tier"`
	CatalogVersion    string      `json:"catalog_version"`

	// Definition is the selected case from the catalog the result was
	// computed against. Nil when unclassified.
	Definition *catalog.Definition `json:"-"`
}

// Classified reports whether a case was selected.
func (r *Result) Classified() bool {
	return r.CaseCode != Unclassified
}

func unclassified(version string) *Result {
	return &Result{
		CaseCode:       Unclassified,
		Alternates:     []Alternate{},
		ConfidenceTier: TierNone,
		CatalogVersion: version,
	}
}
