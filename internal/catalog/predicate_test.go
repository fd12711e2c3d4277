package catalog

import (
	"errors"
	"testing"

	"github.com/canbcare/counselor/internal/feature"
)

func snapshot(t *testing.T, b *feature.Builder) *feature.Snapshot {
	t.Helper()
	s, err := b.Build()
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}
	return s
}

func TestPredicate_Evaluate(t *testing.T) {
	s := snapshot(t, feature.NewBuilder(3).
		Number(feature.PCT, 20).
		Number(feature.ScoreChange, -5).
		Trend(feature.PCTTrend, feature.TrendMaintain).
		Trend(feature.AsgnTrend, feature.TrendUnknown).
		Level(feature.DiffGap, feature.LevelLow).
		Flag(feature.SingleDrop, true).
		Pivot(1, 2, 0))

	tests := []struct {
		name string
		p    Predicate
		want bool
	}{
		{"le boundary", AtMost(feature.PCT, 20), true},
		{"lt boundary", Below(feature.PCT, 20), false},
		{"ge boundary", AtLeast(feature.PCT, 20), true},
		{"gt boundary", Above(feature.PCT, 20), false},
		{"eq", Equals(feature.PCT, 20), true},
		{"range includes lo", Between(feature.PCT, 20, 50), true},
		{"range excludes hi", Between(feature.PCT, 0, 20), false},
		{"negative threshold", AtMost(feature.ScoreChange, -5), true},
		{"set hit", OneOf(feature.PCTTrend, feature.TrendMaintain, feature.TrendRise), true},
		{"set miss", OneOf(feature.PCTTrend, feature.TrendFall), false},
		{"unknown trend never matches", OneOf(feature.AsgnTrend, feature.TrendMaintain, feature.TrendRise, feature.TrendFall, feature.TrendUnstable, feature.TrendSpike), false},
		{"level", OneOf(feature.DiffGap, feature.LevelLow), true},
		{"flag true", Is(feature.SingleDrop, true), true},
		{"flag false", Is(feature.SingleDrop, false), false},
		{"pivot below", Equals(feature.BelowCount, 1), true},
		{"pivot above", Equals(feature.AboveCount, 0), true},
		{"exam count", AtLeast(feature.ExamCount, 3), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.p.Evaluate(s)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("%s = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestPredicate_EvaluateMissing(t *testing.T) {
	s := snapshot(t, feature.NewBuilder(2))

	_, err := AtMost(feature.PCT, 20).Evaluate(s)
	var mf *MissingFieldError
	if !errors.As(err, &mf) {
		t.Fatalf("expected *MissingFieldError, got %T (%v)", err, err)
	}
	if mf.Field != feature.PCT {
		t.Errorf("field = %s, want PCT", mf.Field)
	}
}

func TestDefinition_CountSupportingSkipsAbsent(t *testing.T) {
	d := Default().Lookup("STEADY_TOP")
	s := snapshot(t, feature.NewBuilder(4).
		Level(feature.DiffGap, feature.LevelLow).
		Number(feature.AsgnRate, 95))

	if got := d.CountSupporting(s); got != 2 {
		t.Errorf("CountSupporting = %d, want 2", got)
	}
}

func TestPredicate_String(t *testing.T) {
	tests := []struct {
		p    Predicate
		want string
	}{
		{AtMost(feature.PCT, 20), "PCT <= 20"},
		{Between(feature.ScoreChange, 0, 10), "0 <= SCORE_CHG < 10"},
		{OneOf(feature.PCTTrend, feature.TrendMaintain, feature.TrendRise), "PCT_TR in {maintain,rise}"},
		{Is(feature.SingleDrop, true), "SINGLE_DROP is true"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
