// Package feature defines the per-student feature snapshot that case
// classification runs against.
package feature

// Field identifies one signal in a feature snapshot. The value doubles as
// the wire key used in JSON payloads and catalog files.
type Field string

const (
	PCT            Field = "PCT"
	PCTTrend       Field = "PCT_TR"
	DiffGap        Field = "DIFF_GAP"
	AsgnRate       Field = "ASGN_RATE"
	AsgnTrend      Field = "ASGN_TR"
	ReadCount      Field = "READ_CNT"
	ReadTrend      Field = "READ_TR"
	AbsCount       Field = "ABS_CNT"
	AbsTrend       Field = "ABS_TR"
	SubjDiff       Field = "SUBJ_DIFF"
	SubjDiffTrend  Field = "SUBJ_DIFF_TR"
	DeltaMean      Field = "DELTA_MEAN"
	ScoreChange    Field = "SCORE_CHG"
	ConsecImp      Field = "CONSEC_IMP"
	OnlineGap      Field = "ONLINE_GAP"
	LowDiffErrRate Field = "LOW_DIFF_ERR_RATE"
	SessionDiff    Field = "SESSION_DIFF"
	SingleDrop     Field = "SINGLE_DROP"

	// Pivot block. Always present on a built snapshot.
	BelowCount Field = "BELOW_CNT"
	OnCount    Field = "ON_CNT"
	AboveCount Field = "ABOVE_CNT"
	ExamCount  Field = "EXAM_CNT"
)

// Kind is the value type a field carries.
type Kind int

const (
	KindUnknown Kind = iota
	KindNumber       // real number
	KindCount        // non-negative integer
	KindTrend        // Trend enum
	KindLevel        // Level enum
	KindFlag         // boolean
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindCount:
		return "count"
	case KindTrend:
		return "trend"
	case KindLevel:
		return "level"
	case KindFlag:
		return "flag"
	default:
		return "unknown"
	}
}

type bound int

const (
	unbounded   bound = iota
	nonNegative       // >= 0
	percentage        // within [0, 100]
)

type fieldSpec struct {
	kind  Kind
	bound bound
}

var fieldSpecs = map[Field]fieldSpec{
	PCT:            {kind: KindNumber, bound: percentage},
	PCTTrend:       {kind: KindTrend},
	DiffGap:        {kind: KindLevel},
	AsgnRate:       {kind: KindNumber, bound: percentage},
	AsgnTrend:      {kind: KindTrend},
	ReadCount:      {kind: KindNumber, bound: nonNegative},
	ReadTrend:      {kind: KindTrend},
	AbsCount:       {kind: KindNumber, bound: nonNegative},
	AbsTrend:       {kind: KindTrend},
	SubjDiff:       {kind: KindNumber, bound: nonNegative},
	SubjDiffTrend:  {kind: KindTrend},
	DeltaMean:      {kind: KindNumber},
	ScoreChange:    {kind: KindNumber},
	ConsecImp:      {kind: KindCount},
	OnlineGap:      {kind: KindNumber},
	LowDiffErrRate: {kind: KindLevel},
	SessionDiff:    {kind: KindNumber, bound: nonNegative},
	SingleDrop:     {kind: KindFlag},
	BelowCount:     {kind: KindCount},
	OnCount:        {kind: KindCount},
	AboveCount:     {kind: KindCount},
	ExamCount:      {kind: KindCount},
}

// allFields lists every field in wire order.
var allFields = []Field{
	PCT, PCTTrend, DiffGap, AsgnRate, AsgnTrend, ReadCount, ReadTrend,
	AbsCount, AbsTrend, SubjDiff, SubjDiffTrend, DeltaMean, ScoreChange,
	ConsecImp, OnlineGap, LowDiffErrRate, SessionDiff, SingleDrop,
	BelowCount, OnCount, AboveCount, ExamCount,
}

// Fields returns every known field in wire order.
func Fields() []Field {
	out := make([]Field, len(allFields))
	copy(out, allFields)
	return out
}

// Kind reports the value type of f, or KindUnknown for unrecognised fields.
func (f Field) Kind() Kind {
	return fieldSpecs[f].kind
}

// Valid reports whether f is a known field.
func (f Field) Valid() bool {
	_, ok := fieldSpecs[f]
	return ok
}

// IsPivot reports whether f belongs to the always-present pivot block.
func (f Field) IsPivot() bool {
	switch f {
	case BelowCount, OnCount, AboveCount, ExamCount:
		return true
	}
	return false
}
