package guide

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canbcare/counselor/internal/feature"
	"github.com/canbcare/counselor/internal/intake"
)

func ptr(v float64) *intake.Number {
	n := intake.Number(v)
	return &n
}

func score(subject string, pct float64) intake.SubjectScore {
	return intake.SubjectScore{Subject: subject, Percentage: ptr(pct)}
}

func exam(name, date string, subjects map[string]float64) intake.Exam {
	ex := intake.Exam{Name: name, Date: date}
	for _, s := range trendSubjects {
		if v, ok := subjects[s]; ok {
			ex.Subjects = append(ex.Subjects, intake.ExamSubject{Name: s, ScorePercentage: ptr(v)})
		}
	}
	return ex
}

func TestRecommendations(t *testing.T) {
	guidances := []intake.LearningGuidance{
		{Subject: "Reading", Recommendation: "  Read aloud daily  "},
		{Subject: "Grammar", Recommendation: "Review tenses"},
		{Subject: "Listening", Recommendation: ""},
	}

	tests := []struct {
		name   string
		scores []intake.SubjectScore
		want   map[string]string
	}{
		{
			name:   "full score subjects skipped",
			scores: []intake.SubjectScore{score("Reading", 100), score("Grammar", 70)},
			want:   map[string]string{"Grammar": "Review tenses"},
		},
		{
			name:   "perfect exam",
			scores: []intake.SubjectScore{score("Reading", 100), score("Grammar", 100)},
			want:   map[string]string{"General": FullScoreRecommendation},
		},
		{
			name:   "no scores keeps guidance",
			scores: nil,
			want:   map[string]string{"Reading": "Read aloud daily", "Grammar": "Review tenses"},
		},
		{
			name: "unscored subjects ignored for the perfect check",
			scores: []intake.SubjectScore{
				score("Reading", 100),
				{Subject: "Grammar"},
			},
			want: map[string]string{"General": FullScoreRecommendation},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, recommendations(tt.scores, guidances))
		})
	}
}

func TestWeakSkills(t *testing.T) {
	scores := []intake.SubjectScore{
		{Subject: "Reading", WeakSkills: []intake.WeakSkill{
			{Indicator: "Context", Skill: "Completing phrases", Student: ptr(0), Average: ptr(92.86), Gap: ptr(92.86)},
			{Indicator: "", Skill: ""},
			{Skill: "Inference"},
		}},
		{Subject: "Phonics"},
	}
	want := map[string][]string{
		"Reading": {
			"indicator: Context / skill: Completing phrases (student 0%, average 92.86%, gap 92.86%)",
			"indicator: - / skill: Inference",
		},
	}
	if diff := cmp.Diff(want, weakSkills(scores)); diff != "" {
		t.Errorf("weak skills (-want +got):\n%s", diff)
	}
	assert.Nil(t, weakSkills(nil))
}

func TestExamRanks(t *testing.T) {
	exams := []intake.Exam{
		{Name: "2025 Summer Hepta 1 MT1", Rank: ptr(83), TotalStudents: ptr(209)},
		{Name: "2025 Summer Hepta 1 MT2", Rank: ptr(40)},
		{Rank: ptr(1), TotalStudents: ptr(10)},
	}
	assert.Equal(t, map[string]string{"2025 Summer Hepta 1 MT1": "83/209"}, examRanks(exams))
}

func TestMonthlyOverview(t *testing.T) {
	recs := []intake.MonthlyRecord{
		{Month: ptr(11), BookCount: ptr(3)},
		{Month: ptr(9), BookCount: ptr(4)},
		{Month: ptr(10), BookCount: ptr(10)},
		{Month: ptr(7)},
		{Month: ptr(13), BookCount: ptr(1)},
	}
	timeline := monthTimeline("2025-09-01", "2025-12-31")
	require.Equal(t, []string{"202509", "202510", "202511", "202512"}, timeline)

	tests := []struct {
		name     string
		timeline []string
		cutoff   string
		want     string
	}{
		{"sorted", timeline, "", "9: 4 books, 10: 10 books, 11: 3 books"},
		{"cut at current exam", timeline, "202510", "9: 4 books, 10: 10 books"},
		{"no period keeps every month", nil, "202510", "9: 4 books, 10: 10 books, 11: 3 books"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, monthlyOverview(recs, bookCount, tt.timeline, tt.cutoff, "books", noData))
		})
	}

	assert.Equal(t, noAbsences, monthlyOverview(nil, absenceCount, timeline, "", "absences", noAbsences))
}

func TestMonthTimeline_CrossesYear(t *testing.T) {
	assert.Equal(t, []string{"202411", "202412", "202501"}, monthTimeline("20241115", "20250102"))
	assert.Nil(t, monthTimeline("2024", "20250102"))
}

func TestCutoffDate(t *testing.T) {
	exams := []intake.Exam{
		{Name: "2025 여름학기 Hepta 1 MT1", Date: "2025-07-10"},
		{Name: "2025 여름학기 Hepta 1 MT2", Date: "2025-08-10"},
		{Name: "2025 가을학기 Hepta 1 MT1", Date: "2025-09-20"},
		{Name: "2025 가을학기 Hepta 1 MT2", Date: "2025-10-25"},
	}

	tests := []struct {
		name      string
		requested string
		inferred  string
		want      string
	}{
		{"exact", "2025 여름학기 Hepta 1 MT2", "", "20250810"},
		{"abbreviated name", "25 가을학기 MT1", "", "20250920"},
		{"midterm number only picks latest", "MT2", "", "20251025"},
		{"inferred", "", "2025 여름학기 Hepta 1 MT1", "20250710"},
		{"latest", "Final", "", "20251025"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cutoffDate(exams, tt.requested, tt.inferred))
		})
	}
}

func TestSubjectTrend(t *testing.T) {
	exams := []intake.Exam{
		exam("Summer Term Test", "2025-06-20", map[string]float64{"Reading": 40}),
		exam("Fall Octa MT1", "2025-09-20", map[string]float64{"Reading": 80.4}),
		exam("Fall Octa MT2", "2025-10-25", map[string]float64{"Reading": 87.1}),
		exam("Fall Octa MT3", "2025-11-25", map[string]float64{"Reading": 90}),
	}

	tests := []struct {
		name    string
		cutoff  string
		current string
		want    string
	}{
		{"midterm drops term tests", "20251025", "Fall Octa MT2", "MT1 80.4 -> MT2 87.1"},
		{"term test keeps history", "20251231", "Winter TT", "TT 40 -> MT1 80.4 -> MT2 87.1 -> MT3 90"},
		{"cut at current exam", "20250920", "Fall Octa MT3", "TT 40 -> MT1 80.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, subjectTrend(exams, "Reading", tt.cutoff, tt.current))
		})
	}
	assert.Equal(t, noData, subjectTrend(exams, "Phonics", "", ""))
}

func TestExamTrends(t *testing.T) {
	exams := []intake.Exam{
		{Name: "2025 Summer Penta 2 MT1", Date: "2025-07-01", TotalScore: ptr(238)},
		{Name: "2025 Summer Penta 2 MT3", Date: "2025-08-20", TotalScore: ptr(182.7)},
		{Name: "2025 Fall Penta 2 MT2", Date: "2025-10-01", TotalScore: ptr(260)},
		{Name: "2025 Fall Hexa 1 MT3", Date: "2025-11-20", TotalScore: ptr(222.2)},
	}
	mt, tt := splitExams(exams)
	require.Len(t, mt, 2)
	require.Len(t, tt, 2)

	assert.Equal(t, "MT1 238 -> MT2 260", mtTrend(mt))
	assert.Equal(t, "Summer_MT3 182.7 -> Fall_MT3 222.2", ttTrend(tt))
	assert.Equal(t, "Penta2 -> Hexa1", levelChange(exams))
}

func TestSplitExams_TypeCodesWin(t *testing.T) {
	exams := []intake.Exam{
		{Name: "Octa MT1", TypeCode: "1010"},
		{Name: "Octa TT", TypeCode: "1007"},
	}
	mt, tt := splitExams(exams)
	assert.Equal(t, "Octa TT", mt[0].Name)
	assert.Equal(t, "Octa MT1", tt[0].Name)
}

func TestSummarize(t *testing.T) {
	snap, err := feature.NewBuilder(2).Number(feature.AsgnRate, 92).Build()
	require.NoError(t, err)

	in := Input{
		ExamName:    "Octa 1 MT2",
		PeriodStart: "20250901",
		PeriodEnd:   "20251130",
		Snapshot:    snap,
		Details: intake.Details{
			Exams: []intake.Exam{
				exam("Octa 1 MT1", "2025-09-20", map[string]float64{"Reading": 70}),
				exam("Octa 1 MT2", "2025-10-25", map[string]float64{"Reading": 85}),
			},
			ExamScores: []intake.SubjectScore{score("Reading", 85), score("Grammar", 100)},
			ActivityScores: []intake.ActivityScore{
				{SubjectType: "Reading", CompletionRate: ptr(95), AverageScore: ptr(88.5)},
			},
			AbsenceRecords: []intake.MonthlyRecord{
				{Month: ptr(10), AbsenceCount: ptr(1)},
				{Month: ptr(11), AbsenceCount: ptr(2)},
			},
		},
	}

	s := Summarize(in)
	assert.Equal(t, "Octa 1 MT2", s.CurrentExam)
	assert.Equal(t, "Reading 85, Grammar 100", s.SubjectsCurrent)
	assert.Equal(t, "MT1 70 -> MT2 85", s.SubjectTrends[SubjectReading])
	assert.Equal(t, noData, s.SubjectTrends[SubjectPhonics])
	assert.Equal(t, map[string]string{"activity_rate": "92%", "Reading": "95%"}, s.ReadiActivity)
	assert.Equal(t, map[string]float64{"Reading": 88.5}, s.ReadiScores)
	assert.Equal(t, noData, s.ReadingOverview)
	assert.Equal(t, "10: 1 absences", s.AbsenceOverview)
	assert.Equal(t, "Octa1 -> Octa1", s.LevelChange)
}
