package catalog

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/canbcare/counselor/internal/feature"
)

func TestDefault_Count(t *testing.T) {
	c := Default()
	if c.Len() != 16 {
		t.Fatalf("got %d definitions, want 16", c.Len())
	}

	var ongoingN, firstN int
	for _, d := range c.Definitions() {
		switch d.Category {
		case CategoryOngoing:
			ongoingN++
		case CategoryFirstEvaluation:
			firstN++
		}
	}
	if ongoingN != 12 || firstN != 4 {
		t.Errorf("ongoing=%d first=%d, want 12 and 4", ongoingN, firstN)
	}
}

func TestDefault_OrderMatchesSeed(t *testing.T) {
	want := []string{
		"STEADY_TOP", "TOP_COASTING", "RISING_FAST", "GRADUAL_RISE",
		"REBOUND", "OVERALL_DIP", "SLOW_DECLINE", "SINGLE_SUBJECT_DROP",
		"SUBJECT_IMBALANCE", "UNSTABLE_SWING", "ONLINE_TEST_GAP", "ATTENDANCE_WARNING",
		"INIT_TOP", "INIT_BALANCED", "INIT_FOUNDATION", "INIT_ROUTINE_BUILD",
	}
	var got []string
	for i, d := range Default().Definitions() {
		got = append(got, d.Code)
		if d.Order != i+1 {
			t.Errorf("%s order = %d, want %d", d.Code, d.Order, i+1)
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("catalog order mismatch (-want +got):\n%s", diff)
	}
}

func TestSeedData_AllFieldsPopulated(t *testing.T) {
	for _, d := range seedDefinitions {
		if d.Name == "" || d.Summary == "" || d.Guideline == "" {
			t.Errorf("%s: name, summary and guideline must be set", d.Code)
		}
		if len(d.Supporting) == 0 {
			t.Errorf("%s: no supporting predicates", d.Code)
		}
	}
}

func TestLookup(t *testing.T) {
	c := Default()
	d := c.Lookup("OVERALL_DIP")
	if d == nil {
		t.Fatal("Lookup(OVERALL_DIP) returned nil")
	}
	if d.Category != CategoryOngoing {
		t.Errorf("category = %q, want ongoing", d.Category)
	}
	if c.Lookup("nonexistent") != nil {
		t.Error("Lookup(nonexistent) should be nil")
	}
}

func TestNew_RejectsInvalid(t *testing.T) {
	valid := func() Definition {
		return Definition{
			Code:     "X",
			Category: CategoryOngoing,
			Order:    1,
			Core:     []Predicate{AtLeast(feature.ExamCount, 2), AtMost(feature.PCT, 20)},
		}
	}

	tests := []struct {
		name   string
		defs   func() []Definition
		substr string
	}{
		{"empty", func() []Definition { return nil }, "no definitions"},
		{"duplicate code", func() []Definition {
			a, b := valid(), valid()
			b.Order = 2
			return []Definition{a, b}
		}, "duplicate code"},
		{"duplicate order", func() []Definition {
			a, b := valid(), valid()
			b.Code = "Y"
			return []Definition{a, b}
		}, "order 1 already used"},
		{"no core", func() []Definition {
			d := valid()
			d.Core = nil
			return []Definition{d}
		}, "no core predicates"},
		{"partition not first", func() []Definition {
			d := valid()
			d.Core[0], d.Core[1] = d.Core[1], d.Core[0]
			return []Definition{d}
		}, "first core predicate"},
		{"first-eval partition wrong", func() []Definition {
			d := valid()
			d.Category = CategoryFirstEvaluation
			return []Definition{d}
		}, "first-evaluation partition"},
		{"set on numeric field", func() []Definition {
			d := valid()
			d.Core = append(d.Core, OneOf(feature.PCT, "rise"))
			return []Definition{d}
		}, "set membership"},
		{"threshold on trend", func() []Definition {
			d := valid()
			d.Supporting = []Predicate{AtLeast(feature.PCTTrend, 1)}
			return []Definition{d}
		}, "numeric field"},
		{"bad trend value", func() []Definition {
			d := valid()
			d.Core = append(d.Core, OneOf(feature.PCTTrend, "unknown"))
			return []Definition{d}
		}, "not a valid trend"},
		{"empty range", func() []Definition {
			d := valid()
			d.Core = append(d.Core, Between(feature.PCT, 50, 20))
			return []Definition{d}
		}, "empty range"},
		{"flag op on number", func() []Definition {
			d := valid()
			d.Core = append(d.Core, Is(feature.PCT, true))
			return []Definition{d}
		}, "flag field"},
		{"unknown category", func() []Definition {
			d := valid()
			d.Category = "other"
			return []Definition{d}
		}, "unknown category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("test", tt.defs())
			var derr *DefinitionError
			if !errors.As(err, &derr) {
				t.Fatalf("expected *DefinitionError, got %T (%v)", err, err)
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error %q does not contain %q", err, tt.substr)
			}
		})
	}
}

func TestNew_CopiesInput(t *testing.T) {
	defs := []Definition{{
		Code:     "X",
		Category: CategoryOngoing,
		Order:    1,
		Core:     []Predicate{AtLeast(feature.ExamCount, 2), OneOf(feature.PCTTrend, feature.TrendRise)},
	}}
	c, err := New("test", defs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defs[0].Core[1].Values[0] = "fall"
	if got := c.Lookup("X").Core[1].Values[0]; got != "rise" {
		t.Errorf("catalog shares predicate storage with caller: %q", got)
	}
}

func TestRequiredFields_PerFamily(t *testing.T) {
	c := Default()

	first, _ := feature.NewBuilder(1).Build()
	got := c.RequiredFields(first)
	want := []feature.Field{feature.PCT, feature.AsgnRate, feature.LowDiffErrRate}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("first-evaluation fields (-want +got):\n%s", diff)
	}

	two, _ := feature.NewBuilder(2).Build()
	got = c.RequiredFields(two)
	for _, f := range []feature.Field{feature.ConsecImp, feature.SessionDiff, feature.AsgnTrend} {
		for _, g := range got {
			if g == f {
				t.Errorf("%s is only needed by EXAM_CNT >= 3 cases, should not be required at 2", f)
			}
		}
	}

	three, _ := feature.NewBuilder(3).Build()
	if n := len(c.RequiredFields(three)); n <= len(got) {
		t.Errorf("EXAM_CNT=3 should require more fields than EXAM_CNT=2, got %d vs %d", n, len(got))
	}

	zero, _ := feature.NewBuilder(0).Build()
	if got := c.RequiredFields(zero); len(got) != 0 {
		t.Errorf("EXAM_CNT=0 belongs to no family, got %v", got)
	}
}

func TestRegistry_Swap(t *testing.T) {
	a := Default()
	r := NewRegistry(a)
	if r.Load() != a {
		t.Fatal("Load should return the initial catalog")
	}

	b, err := New("v2", seedDefinitions[:1])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prev := r.Swap(b); prev != a {
		t.Error("Swap should return the previous catalog")
	}
	if r.Load().Version() != "v2" {
		t.Errorf("version = %q, want v2", r.Load().Version())
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Default().Encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	c, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Version() != DefaultVersion {
		t.Errorf("version = %q, want %q", c.Version(), DefaultVersion)
	}
	if diff := cmp.Diff(Default().Definitions(), c.Definitions()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing version", "cases: []\n"},
		{"unknown key", "version: x\ncases: []\nextra: 1\n"},
		{"invalid case", `version: x
cases:
  - code: BAD
    category: ongoing
    order: 1
    core:
      - {field: PCT, op: le, value: 20}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
