package intake

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Number is a JSON number that may also arrive as a numeric string.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", s)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Text is a JSON string that may also arrive as a number, as exam type
// codes do.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	if string(b) == "null" {
		return nil
	}
	*t = Text(b)
	return nil
}

// Exam is one past or current exam from the score analysis history.
type Exam struct {
	Name          string        `json:"exam_name"`
	Date          string        `json:"exam_date"`
	TypeCode      Text          `json:"exam_type_code"`
	TotalScore    *Number       `json:"total_score"`
	Rank          *Number       `json:"rank"`
	TotalStudents *Number       `json:"total_students"`
	Subjects      []ExamSubject `json:"subjects"`
}

type ExamSubject struct {
	Name            string  `json:"subject_name"`
	ScorePercentage *Number `json:"score_percentage"`
	Percentage      *Number `json:"percentage"`
}

// Score returns the subject's percentage score, preferring
// score_percentage.
func (s ExamSubject) Score() (float64, bool) {
	switch {
	case s.ScorePercentage != nil:
		return float64(*s.ScorePercentage), true
	case s.Percentage != nil:
		return float64(*s.Percentage), true
	}
	return 0, false
}

// SubjectScore is one subject of the current exam.
type SubjectScore struct {
	Subject    string      `json:"subject_name"`
	Percentage *Number     `json:"score_percentage"`
	WeakSkills []WeakSkill `json:"weak_skills"`
}

type WeakSkill struct {
	Indicator string  `json:"indicator_name"`
	Skill     string  `json:"skill_name"`
	Student   *Number `json:"student_percentage"`
	Average   *Number `json:"avg_percentage"`
	Gap       *Number `json:"gap"`
}

type LearningGuidance struct {
	Subject        string `json:"subject_name"`
	Recommendation string `json:"learning_recommendation"`
}

// ActivityScore is online (READi) activity for one subject type.
type ActivityScore struct {
	SubjectType    string  `json:"subject_type"`
	CompletionRate *Number `json:"completion_rate"`
	AverageScore   *Number `json:"average_score"`
}

// MonthlyRecord is one month of reading or attendance activity. Month is
// the calendar month without a year.
type MonthlyRecord struct {
	Month        *Number `json:"month"`
	BookCount    *Number `json:"alex_book_count"`
	AbsenceCount *Number `json:"absence_count"`
}

// Details holds the non-feature parts of a performance payload that the
// guide summarizes: exam history, current exam scores and monthly records.
type Details struct {
	Exams          []Exam
	ExamScores     []SubjectScore
	Guidances      []LearningGuidance
	ActivityScores []ActivityScore
	ReadingRecords []MonthlyRecord
	AbsenceRecords []MonthlyRecord
}

// details decodes the summary inputs. A key with the wrong shape is an
// error; absent keys leave their slice empty.
func (p *Performance) details() (Details, error) {
	var d Details

	extras := []struct {
		key string
		out any
	}{
		{"exam_scores", &d.ExamScores},
		{"subject_learning_guidances", &d.Guidances},
		{"activity_scores", &d.ActivityScores},
	}
	for _, e := range extras {
		raw, ok := p.Extra[e.key]
		if !ok || string(raw) == "null" {
			continue
		}
		if err := json.Unmarshal(raw, e.out); err != nil {
			return Details{}, fmt.Errorf("student_performance.%s: %w", e.key, err)
		}
	}

	if exams, key := p.exams(); exams != nil {
		if err := convert(exams, &d.Exams); err != nil {
			return Details{}, fmt.Errorf("%s: %w", key, err)
		}
	}
	if recs := p.LearningRoutine["monthly_records"]; recs != nil {
		if err := convert(recs, &d.ReadingRecords); err != nil {
			return Details{}, fmt.Errorf("learning_routine.monthly_records: %w", err)
		}
	}
	if recs := p.Attendance["monthly_records"]; recs != nil {
		if err := convert(recs, &d.AbsenceRecords); err != nil {
			return Details{}, fmt.Errorf("attendance.monthly_records: %w", err)
		}
	}
	return d, nil
}

// exams finds the exam history: a student_data block in any analytics
// block wins over a bare exams key.
func (p *Performance) exams() (any, string) {
	blocks := []struct {
		name string
		m    map[string]any
	}{
		{"score_analysis", p.ScoreAnalysis},
		{"learning_routine", p.LearningRoutine},
		{"attendance", p.Attendance},
	}
	for _, b := range blocks {
		if sd := asMap(b.m["student_data"]); sd != nil {
			return sd["exams"], b.name + ".student_data.exams"
		}
	}
	for _, b := range blocks {
		if v, ok := b.m["exams"]; ok {
			return v, b.name + ".exams"
		}
	}
	return nil, ""
}

// convert re-decodes an already decoded JSON value into a typed target.
func convert(v any, out any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// Empty reports whether the payload carried none of the detail blocks.
func (d Details) Empty() bool {
	return len(d.Exams) == 0 && len(d.ExamScores) == 0 && len(d.Guidances) == 0 &&
		len(d.ActivityScores) == 0 && len(d.ReadingRecords) == 0 && len(d.AbsenceRecords) == 0
}
