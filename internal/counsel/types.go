// Package counsel runs the full counseling pipeline: intake, batch
// classification, guide generation and result persistence.
package counsel

import (
	"github.com/canbcare/counselor/internal/classify"
	"github.com/canbcare/counselor/internal/dispatch"
	"github.com/canbcare/counselor/internal/guide"
)

// Result is the outcome for one student, in request order.
type Result struct {
	MemberCode     string           `json:"member_code"`
	ExamTestCode   string           `json:"exam_test_code"`
	CourseCode     *int             `json:"course_code,omitempty"`
	ExamDiv        string           `json:"exam_div,omitempty"`
	ExamName       string           `json:"exam_name,omitempty"`
	Status         dispatch.Status  `json:"status"`
	Classification *classify.Result `json:"classification,omitempty"`
	AnalysisResult *guide.Guide     `json:"analysis_result,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// BatchResponse is the reply to a batch counseling call. Results always has
// one entry per request item.
type BatchResponse struct {
	Total     int      `json:"total"`
	BatchID   string   `json:"batch_id"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	NotRun    int      `json:"not_run"`
	Results   []Result `json:"results"`
}
