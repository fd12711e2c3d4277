// Package catalog holds the declarative case rule set used by the
// classification engine.
package catalog

import (
	"fmt"

	"github.com/canbcare/counselor/internal/feature"
)

// Category groups cases by the student's exam history.
type Category string

const (
	CategoryOngoing         Category = "ongoing"
	CategoryFirstEvaluation Category = "first-evaluation"
)

// Definition is one case in the catalog.
type Definition struct {
	Code      string      `yaml:"code"`
	Category  Category    `yaml:"category"`
	Name      string      `yaml:"name"`
	Summary   string      `yaml:"summary"`
	Guideline string      `yaml:"guideline"`
	Order     int         `yaml:"order"`
	Core      []Predicate `yaml:"core"`
	// Supporting predicates never gate a match; they only rank candidates.
	Supporting []Predicate `yaml:"supporting,omitempty"`
}

// Partition returns the definition's leading EXAM_CNT predicate.
func (d *Definition) Partition() Predicate {
	return d.Core[0]
}

// InFamily reports whether the snapshot's exam count falls in the
// definition's partition. Pivot fields are always present, so this never
// fails.
func (d *Definition) InFamily(s *feature.Snapshot) bool {
	ok, _ := d.Partition().Evaluate(s)
	return ok
}

// CoreFields lists the non-pivot fields referenced by core predicates, in
// predicate order without duplicates.
func (d *Definition) CoreFields() []feature.Field {
	var out []feature.Field
	seen := make(map[feature.Field]bool)
	for _, p := range d.Core {
		if p.Field.IsPivot() || seen[p.Field] {
			continue
		}
		seen[p.Field] = true
		out = append(out, p.Field)
	}
	return out
}

// MatchCore evaluates the core conjunction. A missing field is an error.
func (d *Definition) MatchCore(s *feature.Snapshot) (bool, error) {
	for _, p := range d.Core {
		ok, err := p.Evaluate(s)
		if err != nil {
			return false, fmt.Errorf("%s core %s: %w", d.Code, p, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// CountSupporting returns how many supporting predicates hold. Predicates
// on absent fields count as unsatisfied.
func (d *Definition) CountSupporting(s *feature.Snapshot) int {
	n := 0
	for _, p := range d.Supporting {
		if ok, err := p.Evaluate(s); err == nil && ok {
			n++
		}
	}
	return n
}

func (d *Definition) validate() error {
	if d.Code == "" {
		return fmt.Errorf("empty code")
	}
	if d.Order <= 0 {
		return fmt.Errorf("order must be positive, got %d", d.Order)
	}
	if len(d.Core) == 0 {
		return fmt.Errorf("no core predicates")
	}

	part := d.Core[0]
	if part.Field != feature.ExamCount {
		return fmt.Errorf("first core predicate must be on %s, got %s", feature.ExamCount, part.Field)
	}
	switch d.Category {
	case CategoryFirstEvaluation:
		if part.Op != OpEQ || part.Value != 1 {
			return fmt.Errorf("first-evaluation partition must be %s = 1, got %s", feature.ExamCount, part)
		}
	case CategoryOngoing:
		if part.Op != OpGE || part.Value < 2 {
			return fmt.Errorf("ongoing partition must be %s >= n with n >= 2, got %s", feature.ExamCount, part)
		}
	default:
		return fmt.Errorf("unknown category %q", d.Category)
	}

	for _, p := range d.Core {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("core: %w", err)
		}
	}
	for i, p := range d.Core[1:] {
		if p.Field == feature.ExamCount {
			return fmt.Errorf("core predicate %d repeats the partition field", i+1)
		}
	}
	for _, p := range d.Supporting {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("supporting: %w", err)
		}
	}
	return nil
}
