package feature

import (
	"errors"
	"math"
	"testing"
)

func TestBuilder_BuildsImmutableSnapshot(t *testing.T) {
	b := NewBuilder(4).
		Number(PCT, 15).
		Trend(PCTTrend, TrendMaintain).
		Level(DiffGap, LevelLow).
		Flag(SingleDrop, false).
		Pivot(0, 4, 1)

	s, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutating the builder after Build must not leak into the snapshot.
	b.Number(PCT, 99).Trend(PCTTrend, TrendFall)

	if v, ok := s.Number(PCT); !ok || v != 15 {
		t.Fatalf("PCT = %v (%v), want 15", v, ok)
	}
	if v, ok := s.Symbol(PCTTrend); !ok || v != string(TrendMaintain) {
		t.Fatalf("PCT_TR = %q (%v), want maintain", v, ok)
	}
	if s.ExamCount() != 4 {
		t.Fatalf("exam count = %d, want 4", s.ExamCount())
	}
	if v, _ := s.Number(AboveCount); v != 1 {
		t.Fatalf("ABOVE_CNT = %v, want 1", v)
	}
}

func TestBuilder_AbsentIsNotZero(t *testing.T) {
	s, err := NewBuilder(2).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Has(PCT) {
		t.Fatal("PCT should be absent")
	}
	if _, ok := s.Number(PCT); ok {
		t.Fatal("Number(PCT) should report absent")
	}
	if !s.Has(ExamCount) || !s.Has(BelowCount) {
		t.Fatal("pivot fields are always present")
	}
}

func TestBuilder_EmptyTrendIsUnknown(t *testing.T) {
	s, err := NewBuilder(2).Trend(ReadTrend, "").Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := s.Symbol(ReadTrend); v != string(TrendUnknown) {
		t.Fatalf("READ_TR = %q, want unknown", v)
	}
}

func TestBuilder_ValidationIssues(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Builder
		field Field
	}{
		{"pct above 100", func() *Builder { return NewBuilder(2).Number(PCT, 101) }, PCT},
		{"negative rate", func() *Builder { return NewBuilder(2).Number(AsgnRate, -1) }, AsgnRate},
		{"negative absences", func() *Builder { return NewBuilder(2).Number(AbsCount, -2) }, AbsCount},
		{"nan", func() *Builder { return NewBuilder(2).Number(DeltaMean, math.NaN()) }, DeltaMean},
		{"fractional streak", func() *Builder { return NewBuilder(2).Number(ConsecImp, 1.5) }, ConsecImp},
		{"bad trend", func() *Builder { return NewBuilder(2).Trend(PCTTrend, "sideways") }, PCTTrend},
		{"bad level", func() *Builder { return NewBuilder(2).Level(DiffGap, "extreme") }, DiffGap},
		{"kind mismatch", func() *Builder { return NewBuilder(2).Number(PCTTrend, 1) }, PCTTrend},
		{"negative pivot", func() *Builder { return NewBuilder(2).Pivot(-1, 0, 0) }, BelowCount},
		{"negative exam count", func() *Builder { return NewBuilder(-1) }, ExamCount},
		{"unknown field", func() *Builder { return NewBuilder(2).Flag(Field("NOPE"), true) }, Field("NOPE")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Build()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
			}
			found := false
			for _, is := range verr.Issues {
				if is.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("issues %v do not mention %s", verr.Issues, tt.field)
			}
		})
	}
}

func TestSignedNumbersAllowed(t *testing.T) {
	_, err := NewBuilder(3).
		Number(ScoreChange, -10).
		Number(DeltaMean, -5).
		Number(OnlineGap, -3).
		Build()
	if err != nil {
		t.Fatalf("signed fields should accept negatives: %v", err)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	pct := 42.0
	tr := TrendRise
	lvl := LevelHigh
	streak := 3
	drop := true
	in := Record{
		PCT:            &pct,
		PCTTrend:       &tr,
		LowDiffErrRate: &lvl,
		ConsecImp:      &streak,
		SingleDrop:     &drop,
		Pivot:          Pivot{Below: 1, On: 2, Above: 1, ExamCount: 5},
	}

	s, err := in.Snapshot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := s.Record()

	if out.PCT == nil || *out.PCT != 42 {
		t.Fatalf("PCT lost: %v", out.PCT)
	}
	if out.PCTTrend == nil || *out.PCTTrend != TrendRise {
		t.Fatalf("PCT_TR lost: %v", out.PCTTrend)
	}
	if out.ConsecImp == nil || *out.ConsecImp != 3 {
		t.Fatalf("CONSEC_IMP lost: %v", out.ConsecImp)
	}
	if out.SingleDrop == nil || !*out.SingleDrop {
		t.Fatalf("SINGLE_DROP lost: %v", out.SingleDrop)
	}
	if out.AsgnRate != nil {
		t.Fatalf("ASGN_RATE should stay absent, got %v", *out.AsgnRate)
	}
	if out.Pivot != in.Pivot {
		t.Fatalf("pivot = %+v, want %+v", out.Pivot, in.Pivot)
	}

	// The returned record must not alias snapshot storage.
	*out.PCT = 1
	if v, _ := s.Number(PCT); v != 42 {
		t.Fatalf("snapshot mutated through record: PCT = %v", v)
	}
}

func TestMissingFieldsError(t *testing.T) {
	err := MissingFieldsError([]Field{PCT, AbsTrend})
	if got := err.Missing(); len(got) != 2 || got[0] != PCT || got[1] != AbsTrend {
		t.Fatalf("Missing() = %v", got)
	}
	want := "invalid feature snapshot: PCT: missing; ABS_TR: missing"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
