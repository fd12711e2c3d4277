package catalog

import (
	f "github.com/canbcare/counselor/internal/feature"
)

const (
	ongoingFrom2 = 2
	ongoingFrom3 = 3
)

func ongoing(n float64) Predicate { return AtLeast(f.ExamCount, n) }

func firstEval() Predicate { return Equals(f.ExamCount, 1) }

func trends(fl f.Field, ts ...f.Trend) Predicate { return OneOf(fl, ts...) }

func levels(fl f.Field, ls ...f.Level) Predicate { return OneOf(fl, ls...) }

// seedDefinitions is the built-in case catalog: 12 ongoing cases and 4
// first-evaluation cases, in catalog order.
var seedDefinitions = []Definition{
	// Ongoing (EXAM_CNT >= 2 or >= 3)
	{
		Code:     "STEADY_TOP",
		Category: CategoryOngoing,
		Order:    1,
		Name:     "Steady top performer",
		Summary:  "Top-tier percentile held or improved with no subject below the previous exam.",
		Guideline: `Acknowledge consistency before anything else. Frame the conversation around
keeping momentum and stretching into harder material rather than fixing gaps.
Suggest one concrete challenge goal (advanced reading, higher-level vocabulary set).
Avoid implying the student can relax; avoid comparing with other students.`,
		Core: []Predicate{
			ongoing(ongoingFrom3),
			trends(f.PCTTrend, f.TrendMaintain, f.TrendRise),
			AtMost(f.PCT, 20),
			Equals(f.BelowCount, 0),
		},
		Supporting: []Predicate{
			levels(f.DiffGap, f.LevelLow),
			AtLeast(f.AsgnRate, 90),
			trends(f.AsgnTrend, f.TrendMaintain, f.TrendRise),
			AtMost(f.SubjDiff, 10),
			AtMost(f.AbsCount, 1),
		},
	},
	{
		Code:     "TOP_COASTING",
		Category: CategoryOngoing,
		Order:    2,
		Name:     "Top performer coasting",
		Summary:  "Rank is still high but e-learning effort is falling off.",
		Guideline: `Start from the strong result, then point to the drop in assignment completion
as an early signal. Ask what changed in the weekly routine. Agree on a small,
checkable routine target for the next four weeks. Do not predict a score drop.`,
		Core: []Predicate{
			ongoing(ongoingFrom3),
			trends(f.PCTTrend, f.TrendMaintain),
			AtMost(f.PCT, 25),
			trends(f.AsgnTrend, f.TrendFall),
		},
		Supporting: []Predicate{
			Below(f.AsgnRate, 80),
			trends(f.ReadTrend, f.TrendFall),
			Below(f.DeltaMean, 0),
			AtMost(f.ScoreChange, 0),
		},
	},
	{
		Code:     "RISING_FAST",
		Category: CategoryOngoing,
		Order:    3,
		Name:     "Rapid riser",
		Summary:  "Large score gain on a rising percentile with a multi-exam improvement streak.",
		Guideline: `Celebrate the jump with specific numbers. Connect the gain to habits the student
actually changed so the cause is clear. Set the next goal as consolidation:
hold the new level across all subjects before pushing further.`,
		Core: []Predicate{
			ongoing(ongoingFrom3),
			trends(f.PCTTrend, f.TrendRise),
			AtLeast(f.ScoreChange, 10),
			AtLeast(f.ConsecImp, 2),
		},
		Supporting: []Predicate{
			AtLeast(f.AboveCount, 2),
			trends(f.AsgnTrend, f.TrendMaintain, f.TrendRise),
			Above(f.DeltaMean, 0),
			trends(f.ReadTrend, f.TrendRise),
		},
	},
	{
		Code:     "GRADUAL_RISE",
		Category: CategoryOngoing,
		Order:    4,
		Name:     "Gradual improver",
		Summary:  "Percentile rising through small, steady score gains.",
		Guideline: `Describe the improvement as a trend rather than a single result. Reinforce the
routine that produced it and name the subject with the most room to grow.
Keep the tone encouraging and patient; small gains are the expected pace.`,
		Core: []Predicate{
			ongoing(ongoingFrom3),
			trends(f.PCTTrend, f.TrendRise),
			Between(f.ScoreChange, 0, 10),
			AtLeast(f.ConsecImp, 1),
		},
		Supporting: []Predicate{
			AtLeast(f.AboveCount, 1),
			AtLeast(f.AsgnRate, 70),
			AtLeast(f.DeltaMean, 0),
			trends(f.SubjDiffTrend, f.TrendMaintain, f.TrendFall),
		},
	},
	{
		Code:     "REBOUND",
		Category: CategoryOngoing,
		Order:    5,
		Name:     "Rebound after a dip",
		Summary:  "Sharp recovery in percentile after a weaker previous exam.",
		Guideline: `Recognise the recovery and ask the student what they did differently. Treat the
previous dip as context, not as the headline. Focus on making the recovery
stick: repeat the routine that worked and watch the weakest subject.`,
		Core: []Predicate{
			ongoing(ongoingFrom3),
			trends(f.PCTTrend, f.TrendSpike),
			AtLeast(f.ScoreChange, 10),
		},
		Supporting: []Predicate{
			AtMost(f.ConsecImp, 1),
			Above(f.DeltaMean, 0),
			trends(f.AsgnTrend, f.TrendRise, f.TrendSpike),
			AtLeast(f.AboveCount, 2),
		},
	},
	{
		Code:     "OVERALL_DIP",
		Category: CategoryOngoing,
		Order:    6,
		Name:     "Overall dip",
		Summary:  "Scores fell across subjects and below the student's own average.",
		Guideline: `Open calmly and separate this result from the student's ability. Walk through
which subjects moved and by how much. Look for a shared cause (attendance,
routine, test conditions) before discussing subjects one by one. End with a
short recovery plan and a check-in date.`,
		Core: []Predicate{
			ongoing(ongoingFrom2),
			trends(f.PCTTrend, f.TrendFall),
			AtMost(f.ScoreChange, -5),
			Below(f.DeltaMean, 0),
			Equals(f.AboveCount, 0),
		},
		Supporting: []Predicate{
			AtLeast(f.BelowCount, 2),
			AtMost(f.ScoreChange, -10),
			AtMost(f.DeltaMean, -5),
			trends(f.AsgnTrend, f.TrendFall),
		},
	},
	{
		Code:     "SLOW_DECLINE",
		Category: CategoryOngoing,
		Order:    7,
		Name:     "Slow decline",
		Summary:  "Percentile slipping through small score losses.",
		Guideline: `Point out the direction of travel gently; each step is small but the trend is
consistent. Ask about workload and motivation. Propose one habit change and
a measurable target for the next exam.`,
		Core: []Predicate{
			ongoing(ongoingFrom3),
			trends(f.PCTTrend, f.TrendFall),
			Above(f.ScoreChange, -5),
			AtMost(f.ScoreChange, 0),
		},
		Supporting: []Predicate{
			Equals(f.ConsecImp, 0),
			Below(f.DeltaMean, 0),
			trends(f.AsgnTrend, f.TrendFall, f.TrendMaintain),
			trends(f.ReadTrend, f.TrendFall),
		},
	},
	{
		Code:     "SINGLE_SUBJECT_DROP",
		Category: CategoryOngoing,
		Order:    8,
		Name:     "Single subject drop",
		Summary:  "One subject fell while the rest held.",
		Guideline: `Name the subject and keep the rest of the result in view so the drop is not
overstated. Check the subject's question types and recent assignments for a
specific gap. Give one targeted practice suggestion for that subject.`,
		Core: []Predicate{
			ongoing(ongoingFrom2),
			Equals(f.BelowCount, 1),
			Is(f.SingleDrop, true),
			trends(f.PCTTrend, f.TrendMaintain, f.TrendFall, f.TrendUnstable),
		},
		Supporting: []Predicate{
			AtLeast(f.SubjDiff, 15),
			trends(f.SubjDiffTrend, f.TrendRise, f.TrendSpike),
			Above(f.DeltaMean, -5),
			AtLeast(f.AboveCount, 1),
		},
	},
	{
		Code:     "SUBJECT_IMBALANCE",
		Category: CategoryOngoing,
		Order:    9,
		Name:     "Subject imbalance",
		Summary:  "Wide accuracy spread between the strongest and weakest subjects.",
		Guideline: `Show the spread between subjects with numbers. Use the strong subject as
evidence of the student's capacity and shift study time toward the weak one.
Avoid ranking language about the weak subject.`,
		Core: []Predicate{
			ongoing(ongoingFrom2),
			trends(f.PCTTrend, f.TrendMaintain, f.TrendRise, f.TrendUnstable),
			AtLeast(f.SubjDiff, 20),
		},
		Supporting: []Predicate{
			AtLeast(f.SubjDiff, 30),
			trends(f.SubjDiffTrend, f.TrendMaintain, f.TrendRise),
			levels(f.DiffGap, f.LevelHigh),
			AtLeast(f.BelowCount, 1),
		},
	},
	{
		Code:     "UNSTABLE_SWING",
		Category: CategoryOngoing,
		Order:    10,
		Name:     "Unstable swings",
		Summary:  "Results swing between exams and between sessions of the same exam.",
		Guideline: `Describe the swings without judging any single result. Look for conditions that
differ between good and weak sessions (sleep, timing, test fatigue). Recommend
a consistent pre-test routine and timed practice.`,
		Core: []Predicate{
			ongoing(ongoingFrom3),
			trends(f.PCTTrend, f.TrendUnstable),
			AtLeast(f.SessionDiff, 15),
		},
		Supporting: []Predicate{
			AtLeast(f.SessionDiff, 25),
			trends(f.SubjDiffTrend, f.TrendUnstable),
			trends(f.AsgnTrend, f.TrendUnstable, f.TrendFall),
			AtLeast(f.AbsCount, 2),
		},
	},
	{
		Code:     "ONLINE_TEST_GAP",
		Category: CategoryOngoing,
		Order:    11,
		Name:     "Online to test gap",
		Summary:  "Strong e-learning completion that does not carry over to test scores.",
		Guideline: `Acknowledge the effort shown in online work. Explain that completion alone does
not guarantee transfer and look at accuracy on online items versus the test.
Suggest review of missed online items and closed-book practice.`,
		Core: []Predicate{
			ongoing(ongoingFrom2),
			trends(f.PCTTrend, f.TrendMaintain, f.TrendUnstable),
			AtLeast(f.PCT, 40),
			AtLeast(f.AsgnRate, 80),
			AtLeast(f.OnlineGap, 15),
		},
		Supporting: []Predicate{
			AtLeast(f.OnlineGap, 25),
			trends(f.AsgnTrend, f.TrendMaintain, f.TrendRise),
			levels(f.LowDiffErrRate, f.LevelMedium, f.LevelHigh),
			AtLeast(f.ReadCount, 5),
		},
	},
	{
		Code:     "ATTENDANCE_WARNING",
		Category: CategoryOngoing,
		Order:    12,
		Name:     "Attendance warning",
		Summary:  "Absences are accumulating and rising.",
		Guideline: `Raise attendance first and factually, with the count and the trend. Ask about
the reasons before linking absences to results. Agree on a make-up plan for
missed lessons and involve the parent if absences continue.`,
		Core: []Predicate{
			ongoing(ongoingFrom2),
			trends(f.PCTTrend, f.TrendMaintain, f.TrendUnstable),
			AtLeast(f.AbsCount, 3),
			trends(f.AbsTrend, f.TrendRise, f.TrendSpike),
		},
		Supporting: []Predicate{
			AtLeast(f.AbsCount, 5),
			trends(f.AsgnTrend, f.TrendFall),
			Below(f.DeltaMean, 0),
			AtLeast(f.BelowCount, 1),
		},
	},

	// First evaluation (EXAM_CNT == 1)
	{
		Code:     "INIT_TOP",
		Category: CategoryFirstEvaluation,
		Order:    13,
		Name:     "Strong start",
		Summary:  "First exam in the top tier with high assignment completion.",
		Guideline: `Welcome the student and confirm the strong start with numbers. Set expectations
for the level ahead and suggest enrichment to keep the work challenging.`,
		Core: []Predicate{
			firstEval(),
			Below(f.PCT, 20),
			AtLeast(f.AsgnRate, 85),
		},
		Supporting: []Predicate{
			AtLeast(f.AsgnRate, 95),
			levels(f.LowDiffErrRate, f.LevelLow),
			levels(f.DiffGap, f.LevelLow),
			AtMost(f.SubjDiff, 10),
		},
	},
	{
		Code:     "INIT_BALANCED",
		Category: CategoryFirstEvaluation,
		Order:    14,
		Name:     "Balanced start",
		Summary:  "First exam in the middle band with a workable routine.",
		Guideline: `Describe the result as a solid baseline. Identify the strongest subject and one
area to build on. Encourage the student to keep the current routine steady.`,
		Core: []Predicate{
			firstEval(),
			Between(f.PCT, 20, 50),
			AtLeast(f.AsgnRate, 50),
		},
		Supporting: []Predicate{
			AtLeast(f.AsgnRate, 70),
			AtMost(f.SubjDiff, 15),
			levels(f.LowDiffErrRate, f.LevelLow, f.LevelMedium),
		},
	},
	{
		Code:     "INIT_FOUNDATION",
		Category: CategoryFirstEvaluation,
		Order:    15,
		Name:     "Foundation building",
		Summary:  "First exam below the median with frequent errors on easy items.",
		Guideline: `Keep the tone warm; this is a starting point. Focus on fundamentals the student
missed on easy items. Recommend short, frequent review sessions and check
progress after the next unit.`,
		Core: []Predicate{
			firstEval(),
			AtLeast(f.PCT, 50),
			levels(f.LowDiffErrRate, f.LevelHigh),
		},
		Supporting: []Predicate{
			AtLeast(f.PCT, 70),
			Below(f.AsgnRate, 50),
			levels(f.DiffGap, f.LevelHigh),
			Below(f.ReadCount, 3),
		},
	},
	{
		Code:     "INIT_ROUTINE_BUILD",
		Category: CategoryFirstEvaluation,
		Order:    16,
		Name:     "Routine building",
		Summary:  "First exam with low assignment completion outside the top tier.",
		Guideline: `Focus on building a weekly routine before discussing scores in detail. Agree on
a small, fixed schedule for online assignments and reading. Ask the parent to
help check completion at home.`,
		Core: []Predicate{
			firstEval(),
			Below(f.AsgnRate, 50),
			AtLeast(f.PCT, 20),
		},
		Supporting: []Predicate{
			Below(f.AsgnRate, 30),
			Below(f.ReadCount, 3),
			AtLeast(f.AbsCount, 2),
		},
	},
}

// Default builds the built-in catalog. It panics if the seed is invalid,
// which is a programming error caught by tests.
func Default() *Catalog {
	c, err := New(DefaultVersion, seedDefinitions)
	if err != nil {
		panic(err)
	}
	return c
}
