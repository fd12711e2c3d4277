package feature

import (
	"fmt"
	"math"
	"sort"
)

// Pivot is the per-subject Below/On/Above breakdown against the prior exam,
// plus the number of exams taken so far.
type Pivot struct {
	Below     int `json:"BELOW_CNT" yaml:"below"`
	On        int `json:"ON_CNT" yaml:"on"`
	Above     int `json:"ABOVE_CNT" yaml:"above"`
	ExamCount int `json:"EXAM_CNT" yaml:"exam_count"`
}

// Snapshot is an immutable, validated set of signals for one student at one
// evaluation point. The zero value is not usable; build one with a Builder
// or Record.Snapshot.
type Snapshot struct {
	numbers map[Field]float64
	symbols map[Field]string
	flags   map[Field]bool
	pivot   Pivot
}

// Number returns the value of a number or count field.
func (s *Snapshot) Number(f Field) (float64, bool) {
	switch f {
	case BelowCount:
		return float64(s.pivot.Below), true
	case OnCount:
		return float64(s.pivot.On), true
	case AboveCount:
		return float64(s.pivot.Above), true
	case ExamCount:
		return float64(s.pivot.ExamCount), true
	}
	v, ok := s.numbers[f]
	return v, ok
}

// Symbol returns the value of a trend or level field.
func (s *Snapshot) Symbol(f Field) (string, bool) {
	v, ok := s.symbols[f]
	return v, ok
}

// Flag returns the value of a boolean field.
func (s *Snapshot) Flag(f Field) (bool, bool) {
	v, ok := s.flags[f]
	return v, ok
}

// Has reports whether the snapshot carries a value for f.
func (s *Snapshot) Has(f Field) bool {
	if f.IsPivot() {
		return true
	}
	switch f.Kind() {
	case KindNumber, KindCount:
		_, ok := s.numbers[f]
		return ok
	case KindTrend, KindLevel:
		_, ok := s.symbols[f]
		return ok
	case KindFlag:
		_, ok := s.flags[f]
		return ok
	}
	return false
}

// Pivot returns the pivot block.
func (s *Snapshot) Pivot() Pivot {
	return s.pivot
}

// ExamCount is shorthand for Pivot().ExamCount.
func (s *Snapshot) ExamCount() int {
	return s.pivot.ExamCount
}

// FirstEvaluation reports whether this is the student's first exam.
func (s *Snapshot) FirstEvaluation() bool {
	return s.pivot.ExamCount == 1
}

// Present returns every non-pivot field that carries a value, in wire order.
func (s *Snapshot) Present() []Field {
	var out []Field
	for _, f := range allFields {
		if !f.IsPivot() && s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Builder accumulates field values and validates them on Build.
// A Builder is not safe for concurrent use.
type Builder struct {
	numbers map[Field]float64
	symbols map[Field]string
	flags   map[Field]bool
	pivot   Pivot
	issues  []Issue
}

// NewBuilder starts a snapshot for a student who has taken examCount exams.
func NewBuilder(examCount int) *Builder {
	return &Builder{
		numbers: make(map[Field]float64),
		symbols: make(map[Field]string),
		flags:   make(map[Field]bool),
		pivot:   Pivot{ExamCount: examCount},
	}
}

// Number sets a number or count field.
func (b *Builder) Number(f Field, v float64) *Builder {
	switch {
	case f.IsPivot():
		b.setPivot(f, v)
	case f.Kind() == KindNumber || f.Kind() == KindCount:
		b.numbers[f] = v
	default:
		b.kindMismatch(f, KindNumber)
	}
	return b
}

// Trend sets a trend field.
func (b *Builder) Trend(f Field, t Trend) *Builder {
	if f.Kind() != KindTrend {
		b.kindMismatch(f, KindTrend)
		return b
	}
	if t == "" {
		t = TrendUnknown
	}
	b.symbols[f] = string(t)
	return b
}

// Level sets a level field.
func (b *Builder) Level(f Field, l Level) *Builder {
	if f.Kind() != KindLevel {
		b.kindMismatch(f, KindLevel)
		return b
	}
	b.symbols[f] = string(l)
	return b
}

// Flag sets a boolean field.
func (b *Builder) Flag(f Field, v bool) *Builder {
	if f.Kind() != KindFlag {
		b.kindMismatch(f, KindFlag)
		return b
	}
	b.flags[f] = v
	return b
}

// Pivot sets the Below/On/Above subject counts.
func (b *Builder) Pivot(below, on, above int) *Builder {
	b.pivot.Below, b.pivot.On, b.pivot.Above = below, on, above
	return b
}

func (b *Builder) setPivot(f Field, v float64) {
	n := int(v)
	if float64(n) != v {
		b.issues = append(b.issues, Issue{Field: f, Reason: "must be an integer"})
		return
	}
	switch f {
	case BelowCount:
		b.pivot.Below = n
	case OnCount:
		b.pivot.On = n
	case AboveCount:
		b.pivot.Above = n
	case ExamCount:
		b.pivot.ExamCount = n
	}
}

func (b *Builder) kindMismatch(f Field, want Kind) {
	if !f.Valid() {
		b.issues = append(b.issues, Issue{Field: f, Reason: "unknown field"})
		return
	}
	b.issues = append(b.issues, Issue{
		Field:  f,
		Reason: fmt.Sprintf("is a %s field, not %s", f.Kind(), want),
	})
}

// Build validates the accumulated values and returns an immutable snapshot.
// The Builder may be reused afterwards; the snapshot does not share state
// with it.
func (b *Builder) Build() (*Snapshot, error) {
	issues := append([]Issue(nil), b.issues...)

	for f, v := range b.numbers {
		if reason := checkNumber(f, v); reason != "" {
			issues = append(issues, Issue{Field: f, Reason: reason})
		}
	}
	for f, v := range b.symbols {
		if !symbolValid(f.Kind(), v) {
			issues = append(issues, Issue{Field: f, Reason: fmt.Sprintf("invalid %s %q", f.Kind(), v)})
		}
	}
	for f, n := range map[Field]int{
		BelowCount: b.pivot.Below,
		OnCount:    b.pivot.On,
		AboveCount: b.pivot.Above,
		ExamCount:  b.pivot.ExamCount,
	} {
		if n < 0 {
			issues = append(issues, Issue{Field: f, Reason: "must be >= 0"})
		}
	}

	if len(issues) > 0 {
		sort.Slice(issues, func(i, j int) bool { return issues[i].Field < issues[j].Field })
		return nil, &ValidationError{Issues: issues}
	}

	s := &Snapshot{
		numbers: make(map[Field]float64, len(b.numbers)),
		symbols: make(map[Field]string, len(b.symbols)),
		flags:   make(map[Field]bool, len(b.flags)),
		pivot:   b.pivot,
	}
	for f, v := range b.numbers {
		s.numbers[f] = v
	}
	for f, v := range b.symbols {
		s.symbols[f] = v
	}
	for f, v := range b.flags {
		s.flags[f] = v
	}
	return s, nil
}

func checkNumber(f Field, v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "must be a finite number"
	}
	spec := fieldSpecs[f]
	if spec.kind == KindCount {
		if v < 0 || v != math.Trunc(v) {
			return "must be a non-negative integer"
		}
		return ""
	}
	switch spec.bound {
	case percentage:
		if v < 0 || v > 100 {
			return "out of range [0,100]"
		}
	case nonNegative:
		if v < 0 {
			return "must be >= 0"
		}
	}
	return ""
}
