package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/canbcare/counselor/internal/feature"
)

// Op is a predicate operator.
type Op string

const (
	OpLT    Op = "lt"    // field < value
	OpLE    Op = "le"    // field <= value
	OpGT    Op = "gt"    // field > value
	OpGE    Op = "ge"    // field >= value
	OpEQ    Op = "eq"    // field == value
	OpRange Op = "range" // lo <= field < hi
	OpIn    Op = "in"    // field is one of values
	OpIs    Op = "is"    // boolean field equals flag
)

// Predicate is one atomic condition over a single snapshot field.
// Exactly one operand group is meaningful per Op: Value for thresholds,
// Lo/Hi for range, Values for set membership, Flag for booleans.
type Predicate struct {
	Field  feature.Field `yaml:"field"`
	Op     Op            `yaml:"op"`
	Value  float64       `yaml:"value,omitempty"`
	Lo     float64       `yaml:"lo,omitempty"`
	Hi     float64       `yaml:"hi,omitempty"`
	Values []string      `yaml:"values,omitempty,flow"`
	Flag   bool          `yaml:"flag,omitempty"`
}

// AtMost is field <= v.
func AtMost(f feature.Field, v float64) Predicate { return Predicate{Field: f, Op: OpLE, Value: v} }

// AtLeast is field >= v.
func AtLeast(f feature.Field, v float64) Predicate { return Predicate{Field: f, Op: OpGE, Value: v} }

// Below is field < v.
func Below(f feature.Field, v float64) Predicate { return Predicate{Field: f, Op: OpLT, Value: v} }

// Above is field > v.
func Above(f feature.Field, v float64) Predicate { return Predicate{Field: f, Op: OpGT, Value: v} }

// Equals is field == v.
func Equals(f feature.Field, v float64) Predicate { return Predicate{Field: f, Op: OpEQ, Value: v} }

// Between is lo <= field < hi.
func Between(f feature.Field, lo, hi float64) Predicate {
	return Predicate{Field: f, Op: OpRange, Lo: lo, Hi: hi}
}

// OneOf is set membership on a trend or level field.
func OneOf[S ~string](f feature.Field, values ...S) Predicate {
	vs := make([]string, len(values))
	for i, v := range values {
		vs[i] = string(v)
	}
	return Predicate{Field: f, Op: OpIn, Values: vs}
}

// Is matches a boolean field against flag.
func Is(f feature.Field, flag bool) Predicate { return Predicate{Field: f, Op: OpIs, Flag: flag} }

// MissingFieldError is returned by Evaluate when the snapshot lacks the
// predicate's field.
type MissingFieldError struct {
	Field feature.Field
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("field %s is absent", e.Field)
}

// Evaluate reports whether the snapshot satisfies p. It returns a
// *MissingFieldError when the field is absent.
func (p Predicate) Evaluate(s *feature.Snapshot) (bool, error) {
	if !s.Has(p.Field) {
		return false, &MissingFieldError{Field: p.Field}
	}

	switch p.Op {
	case OpLT, OpLE, OpGT, OpGE, OpEQ, OpRange:
		v, _ := s.Number(p.Field)
		return p.compare(v), nil
	case OpIn:
		v, _ := s.Symbol(p.Field)
		// unknown is a present value that belongs to no set.
		if v == string(feature.TrendUnknown) {
			return false, nil
		}
		return slices.Contains(p.Values, v), nil
	case OpIs:
		v, _ := s.Flag(p.Field)
		return v == p.Flag, nil
	}
	return false, fmt.Errorf("unknown operator %q", p.Op)
}

func (p Predicate) compare(v float64) bool {
	switch p.Op {
	case OpLT:
		return v < p.Value
	case OpLE:
		return v <= p.Value
	case OpGT:
		return v > p.Value
	case OpGE:
		return v >= p.Value
	case OpEQ:
		return v == p.Value
	case OpRange:
		return v >= p.Lo && v < p.Hi
	}
	return false
}

// Validate checks that p is well-formed for its field's kind.
func (p Predicate) Validate() error {
	if !p.Field.Valid() {
		return fmt.Errorf("unknown field %q", p.Field)
	}
	kind := p.Field.Kind()

	switch p.Op {
	case OpLT, OpLE, OpGT, OpGE, OpEQ:
		if kind != feature.KindNumber && kind != feature.KindCount {
			return fmt.Errorf("%s: operator %s needs a numeric field, got %s", p.Field, p.Op, kind)
		}
	case OpRange:
		if kind != feature.KindNumber && kind != feature.KindCount {
			return fmt.Errorf("%s: range needs a numeric field, got %s", p.Field, kind)
		}
		if p.Lo >= p.Hi {
			return fmt.Errorf("%s: empty range [%g,%g)", p.Field, p.Lo, p.Hi)
		}
	case OpIn:
		if kind != feature.KindTrend && kind != feature.KindLevel {
			return fmt.Errorf("%s: set membership needs a trend or level field, got %s", p.Field, kind)
		}
		if len(p.Values) == 0 {
			return fmt.Errorf("%s: empty value set", p.Field)
		}
		for _, v := range p.Values {
			if !symbolAllowed(kind, v) {
				return fmt.Errorf("%s: %q is not a valid %s", p.Field, v, kind)
			}
		}
	case OpIs:
		if kind != feature.KindFlag {
			return fmt.Errorf("%s: operator is needs a flag field, got %s", p.Field, kind)
		}
	default:
		return fmt.Errorf("%s: unknown operator %q", p.Field, p.Op)
	}
	return nil
}

func symbolAllowed(k feature.Kind, v string) bool {
	switch k {
	case feature.KindTrend:
		return feature.Trend(v).Valid() && feature.Trend(v) != feature.TrendUnknown
	case feature.KindLevel:
		return feature.Level(v).Valid()
	}
	return false
}

// String renders p in a compact human-readable form, e.g. "PCT <= 20".
func (p Predicate) String() string {
	switch p.Op {
	case OpLT:
		return fmt.Sprintf("%s < %g", p.Field, p.Value)
	case OpLE:
		return fmt.Sprintf("%s <= %g", p.Field, p.Value)
	case OpGT:
		return fmt.Sprintf("%s > %g", p.Field, p.Value)
	case OpGE:
		return fmt.Sprintf("%s >= %g", p.Field, p.Value)
	case OpEQ:
		return fmt.Sprintf("%s = %g", p.Field, p.Value)
	case OpRange:
		return fmt.Sprintf("%g <= %s < %g", p.Lo, p.Field, p.Hi)
	case OpIn:
		return fmt.Sprintf("%s in {%s}", p.Field, strings.Join(p.Values, ","))
	case OpIs:
		return fmt.Sprintf("%s is %t", p.Field, p.Flag)
	}
	return fmt.Sprintf("%s %s ?", p.Field, p.Op)
}
