package intake

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/canbcare/counselor/internal/feature"
)

// Student is a normalized request: the validated snapshot plus the context
// the guide generator needs.
type Student struct {
	Request  *Request
	Snapshot *feature.Snapshot
	Period   Period

	// History keeps series supplied in place of a trend label, e.g. a list
	// of past percentiles under PCT_TR.
	History map[feature.Field][]float64

	Details Details
}

// Normalize maps the request's analytics blocks onto a feature snapshot.
// Conversion and range problems are reported together as a
// *feature.ValidationError.
func Normalize(r *Request) (*Student, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	details, err := r.StudentPerformance.details()
	if err != nil {
		return nil, err
	}

	flat := r.StudentPerformance.flatten()
	st := &Student{
		Request: r,
		Period:  r.StudentPerformance.period(),
		History: make(map[feature.Field][]float64),
		Details: details,
	}

	var issues []feature.Issue
	bad := func(f feature.Field, format string, args ...any) {
		issues = append(issues, feature.Issue{Field: f, Reason: fmt.Sprintf(format, args...)})
	}

	examCount, ok := r.StudentPerformance.examCount(flat)
	if !ok {
		bad(feature.ExamCount, feature.ReasonMissing)
	}
	b := feature.NewBuilder(examCount)

	pivot := pivotBlock(flat)
	var counts [3]int
	for i, f := range []feature.Field{feature.BelowCount, feature.OnCount, feature.AboveCount} {
		v, present := pivot[string(f)]
		if !present || v == nil {
			continue
		}
		n, err := toNumber(v)
		if err != nil || n != float64(int(n)) {
			bad(f, "must be an integer, got %v", v)
			continue
		}
		counts[i] = int(n)
	}
	b.Pivot(counts[0], counts[1], counts[2])

	for _, f := range feature.Fields() {
		if f.IsPivot() {
			continue
		}
		v, present := flat[string(f)]
		if !present || v == nil {
			continue
		}

		switch f.Kind() {
		case feature.KindNumber, feature.KindCount:
			n, err := toNumber(v)
			if err != nil {
				bad(f, "%v", err)
				continue
			}
			b.Number(f, n)
		case feature.KindTrend:
			label, series, err := toTrend(v)
			if err != nil {
				bad(f, "%v", err)
				continue
			}
			if series != nil {
				st.History[f] = series
			}
			b.Trend(f, feature.Trend(label))
		case feature.KindLevel:
			s, ok := v.(string)
			if !ok {
				bad(f, "expected a level string, got %T", v)
				continue
			}
			b.Level(f, feature.Level(strings.ToLower(strings.TrimSpace(s))))
		case feature.KindFlag:
			flag, err := toFlag(v)
			if err != nil {
				bad(f, "%v", err)
				continue
			}
			b.Flag(f, flag)
		}
	}

	snap, err := b.Build()
	if err != nil {
		var verr *feature.ValidationError
		if !errors.As(err, &verr) {
			return nil, err
		}
		issues = append(issues, verr.Issues...)
	}
	if len(issues) > 0 {
		sort.SliceStable(issues, func(i, j int) bool { return issues[i].Field < issues[j].Field })
		return nil, &feature.ValidationError{Issues: issues}
	}

	st.Snapshot = snap
	return st, nil
}

// flatten merges the feature blocks into one key space. Earlier blocks win
// on conflicting keys.
func (p *Performance) flatten() map[string]any {
	out := make(map[string]any)
	merge := func(m map[string]any) {
		for k, v := range m {
			if _, exists := out[k]; !exists {
				out[k] = v
			}
		}
	}

	if sf := asMap(p.ScoreAnalysis["score_features"]); sf != nil {
		merge(sf)
	} else {
		merge(asMap(p.ScoreAnalysis["features"]))
	}
	merge(asMap(p.ScoreAnalysis["exam_detail_features"]))
	merge(asMap(p.LearningRoutine["features"]))
	merge(asMap(p.Attendance["features"]))
	return out
}

func (p *Performance) period() Period {
	ap := asMap(p.ScoreAnalysis["analysis_period"])
	if ap == nil {
		ap = asMap(p.LearningRoutine["analysis_period"])
	}
	var per Period
	if s, ok := ap["start"].(string); ok {
		per.Start = s
	}
	if s, ok := ap["end"].(string); ok {
		per.End = s
	}
	return per
}

// examCount looks for EXAM_CNT at the top level, inside PIVOT, then falls
// back to the length of an exams list.
func (p *Performance) examCount(flat map[string]any) (int, bool) {
	candidates := []any{flat[string(feature.ExamCount)], pivotBlock(flat)[string(feature.ExamCount)]}
	for _, v := range candidates {
		if v == nil {
			continue
		}
		if n, err := toNumber(v); err == nil && n >= 0 && n == float64(int(n)) {
			return int(n), true
		}
	}

	for _, src := range []map[string]any{p.ScoreAnalysis, asMap(p.ScoreAnalysis["student_data"])} {
		if exams, ok := src["exams"].([]any); ok {
			return len(exams), true
		}
	}
	return 0, false
}

func pivotBlock(flat map[string]any) map[string]any {
	if m := asMap(flat["PIVOT"]); m != nil {
		return m
	}
	return flat
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func toNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n)
		}
		return f, nil
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}

// toTrend accepts a trend label, or a series whose last element is either
// a label or a number. A purely numeric series yields TrendUnknown and is
// returned for display.
func toTrend(v any) (string, []float64, error) {
	switch t := v.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(t)), nil, nil
	case []any:
		if len(t) == 0 {
			return string(feature.TrendUnknown), nil, nil
		}
		if s, ok := t[len(t)-1].(string); ok {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				return strings.ToLower(strings.TrimSpace(s)), nil, nil
			}
		}
		series := make([]float64, 0, len(t))
		for _, e := range t {
			n, err := toNumber(e)
			if err != nil {
				return "", nil, fmt.Errorf("trend series: %w", err)
			}
			series = append(series, n)
		}
		return string(feature.TrendUnknown), series, nil
	}
	return "", nil, fmt.Errorf("expected a trend label, got %T", v)
}

func toFlag(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case float64:
		if b == 0 || b == 1 {
			return b == 1, nil
		}
	case string:
		switch strings.ToUpper(strings.TrimSpace(b)) {
		case "Y", "TRUE", "1":
			return true, nil
		case "N", "FALSE", "0", "":
			return false, nil
		}
	}
	return false, fmt.Errorf("expected a boolean, got %v", v)
}
