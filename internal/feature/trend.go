package feature

// Trend describes how a signal moved across evaluation periods.
type Trend string

const (
	TrendMaintain Trend = "maintain"
	TrendRise     Trend = "rise"
	TrendFall     Trend = "fall"
	TrendUnstable Trend = "unstable"
	TrendSpike    Trend = "spike"

	// TrendUnknown is a present value meaning no trend could be computed.
	// It never satisfies a trend set predicate.
	TrendUnknown Trend = "unknown"
)

// Valid reports whether t is one of the defined trends or TrendUnknown.
func (t Trend) Valid() bool {
	switch t {
	case TrendMaintain, TrendRise, TrendFall, TrendUnstable, TrendSpike, TrendUnknown:
		return true
	}
	return false
}

// Trends returns the defined trend values, excluding TrendUnknown.
func Trends() []Trend {
	return []Trend{TrendMaintain, TrendRise, TrendFall, TrendUnstable, TrendSpike}
}

// Level is a qualitative low/medium/high grading.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Valid reports whether l is a defined level.
func (l Level) Valid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh:
		return true
	}
	return false
}

// Levels returns the defined level values.
func Levels() []Level {
	return []Level{LevelLow, LevelMedium, LevelHigh}
}

// symbolValid reports whether s is a legal value for a trend or level field.
func symbolValid(k Kind, s string) bool {
	switch k {
	case KindTrend:
		return Trend(s).Valid()
	case KindLevel:
		return Level(s).Valid()
	}
	return false
}
