// Package intake turns analytics payloads into feature snapshots.
package intake

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Request is one student's counseling request.
type Request struct {
	MemberCode         string      `json:"member_code"`
	ExamTestCode       string      `json:"exam_test_code"`
	ExamDiv            string      `json:"exam_div,omitempty"`
	ExamName           string      `json:"exam_name,omitempty"`
	CourseCode         *int        `json:"course_code,omitempty"`
	StudentPerformance Performance `json:"student_performance"`
}

// BatchRequest is the payload of a batch counseling call.
type BatchRequest struct {
	BatchData []Request `json:"batch_data"`
}

// Performance carries the analytics blocks for one student. Each block is
// kept as decoded JSON since upstream shapes vary by endpoint version.
// Every other key of student_performance (exam_scores,
// subject_learning_guidances, activity_scores, ...) is kept in Extra.
type Performance struct {
	ScoreAnalysis   map[string]any `json:"score_analysis,omitempty"`
	LearningRoutine map[string]any `json:"learning_routine,omitempty"`
	Attendance      map[string]any `json:"attendance,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type performanceBlocks struct {
	ScoreAnalysis   map[string]any `json:"score_analysis,omitempty"`
	LearningRoutine map[string]any `json:"learning_routine,omitempty"`
	Attendance      map[string]any `json:"attendance,omitempty"`
}

var analyticsKeys = []string{"score_analysis", "learning_routine", "attendance"}

func (p *Performance) UnmarshalJSON(data []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	var blocks performanceBlocks
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	*p = Performance{
		ScoreAnalysis:   blocks.ScoreAnalysis,
		LearningRoutine: blocks.LearningRoutine,
		Attendance:      blocks.Attendance,
	}
	for _, k := range analyticsKeys {
		delete(all, k)
	}
	if len(all) > 0 {
		p.Extra = all
	}
	return nil
}

func (p Performance) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+3)
	for k, v := range p.Extra {
		out[k] = v
	}
	if p.ScoreAnalysis != nil {
		out["score_analysis"] = p.ScoreAnalysis
	}
	if p.LearningRoutine != nil {
		out["learning_routine"] = p.LearningRoutine
	}
	if p.Attendance != nil {
		out["attendance"] = p.Attendance
	}
	return json.Marshal(out)
}

// Period is the analysis window reported by score analysis.
type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// ErrEmptyBatch is returned when a batch request has no items.
var ErrEmptyBatch = errors.New("batch_data is empty")

// Validate checks the identifying fields.
func (r *Request) Validate() error {
	var missing []string
	if strings.TrimSpace(r.MemberCode) == "" {
		missing = append(missing, "member_code")
	}
	if strings.TrimSpace(r.ExamTestCode) == "" {
		missing = append(missing, "exam_test_code")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Validate checks that the batch is non-empty. Item-level problems are
// reported per item by the dispatcher, not here.
func (b *BatchRequest) Validate() error {
	if len(b.BatchData) == 0 {
		return ErrEmptyBatch
	}
	return nil
}
