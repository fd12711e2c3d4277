package counsel

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/canbcare/counselor/internal/catalog"
	"github.com/canbcare/counselor/internal/classify"
	"github.com/canbcare/counselor/internal/dispatch"
	"github.com/canbcare/counselor/internal/feature"
	"github.com/canbcare/counselor/internal/guide"
	"github.com/canbcare/counselor/internal/intake"
	"github.com/canbcare/counselor/internal/llm"
	"github.com/canbcare/counselor/internal/store"
)

func TestMain(m *testing.M) {
	// opencensus (pulled in transitively via the genai SDK) starts a
	// package-level worker goroutine at init time.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

func firstEval(member string, pct, asgnRate float64) intake.Request {
	return intake.Request{
		MemberCode:   member,
		ExamTestCode: "MT1-2025",
		ExamName:     "Penta MT1",
		StudentPerformance: intake.Performance{
			ScoreAnalysis: map[string]any{
				"analysis_period": map[string]any{"start": "20250301", "end": "20250630"},
				"score_features":  map[string]any{"PCT": pct, "EXAM_CNT": 1, "LOW_DIFF_ERR_RATE": "LOW"},
			},
			LearningRoutine: map[string]any{"features": map[string]any{"ASGN_RATE": asgnRate}},
		},
	}
}

func newService(t *testing.T, gen Generator, results store.ResultRepo) *Service {
	t.Helper()
	engine := classify.NewEngine(catalog.NewRegistry(catalog.Default()))
	s, err := NewService(engine, gen, results, dispatch.Options{ConcurrencyLimit: 4, ChunkSize: 2}, nil)
	require.NoError(t, err)
	return s
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "counsel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCounselBatch_MixedOutcomes(t *testing.T) {
	st := openStore(t)
	gen := guide.NewGenerator(llm.NewStubProvider(), guide.DefaultConfig(), nil)
	svc := newService(t, gen, st.ResultRepo())

	broken := firstEval("M-2", 10, 90)
	delete(broken.StudentPerformance.ScoreAnalysis["score_features"].(map[string]any), "EXAM_CNT")

	batch := &intake.BatchRequest{BatchData: []intake.Request{
		firstEval("M-1", 10, 90),
		broken,
		firstEval("M-3", 10, 60),
	}}
	resp, err := svc.CounselBatch(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)

	ok := resp.Results[0]
	assert.Equal(t, dispatch.StatusSuccess, ok.Status)
	assert.Equal(t, "INIT_TOP", ok.Classification.CaseCode)
	require.NotNil(t, ok.AnalysisResult)
	assert.Equal(t, guide.TitleSummary, ok.AnalysisResult.Sections.Summary.Title)

	bad := resp.Results[1]
	assert.Equal(t, dispatch.StatusError, bad.Status)
	assert.Contains(t, bad.Error, "EXAM_CNT")
	assert.Nil(t, bad.AnalysisResult)

	none := resp.Results[2]
	assert.Equal(t, dispatch.StatusSuccess, none.Status)
	assert.Equal(t, classify.Unclassified, none.Classification.CaseCode)
	assert.Nil(t, none.AnalysisResult)

	records, err := st.ResultRepo().ResultsByBatch(context.Background(), resp.BatchID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "M-1", records[0].MemberCode)
	assert.Equal(t, "INIT_TOP", records[0].CaseCode)
	assert.Contains(t, records[0].Payload, `"sections"`)
	assert.Equal(t, "error", records[1].Status)
	assert.Empty(t, records[2].Payload)
}

func TestCounselBatch_GenerationFailureIsIsolated(t *testing.T) {
	mock := llm.NewMockProvider().
		Always(guide.AvoidSummarySchema.Name, llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("down")}})
	svc := newService(t, guide.NewGenerator(mock, guide.DefaultConfig(), nil), nil)

	resp, err := svc.CounselBatch(context.Background(), &intake.BatchRequest{BatchData: []intake.Request{
		firstEval("M-1", 10, 90),
		firstEval("M-2", 10, 60),
	}})
	require.NoError(t, err)

	assert.Equal(t, dispatch.StatusError, resp.Results[0].Status)
	assert.Contains(t, resp.Results[0].Error, "downstream")
	assert.Equal(t, "INIT_TOP", resp.Results[0].Classification.CaseCode)
	assert.Equal(t, dispatch.StatusSuccess, resp.Results[1].Status)
}

func TestCounselBatch_EmptyBatch(t *testing.T) {
	svc := newService(t, nil, nil)
	_, err := svc.CounselBatch(context.Background(), &intake.BatchRequest{})
	assert.ErrorIs(t, err, intake.ErrEmptyBatch)
}

func TestCounselBatch_CancelledBeforeStart(t *testing.T) {
	svc := newService(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := svc.CounselBatch(ctx, &intake.BatchRequest{BatchData: []intake.Request{
		firstEval("M-1", 10, 90),
	}})
	require.ErrorIs(t, err, dispatch.ErrDispatchAborted)
	require.NotNil(t, resp)
	assert.Equal(t, dispatch.StatusNotRun, resp.Results[0].Status)
	assert.Equal(t, 1, resp.NotRun)
}

func TestCounsel_Single(t *testing.T) {
	svc := newService(t, guide.NewGenerator(llm.NewStubProvider(), guide.DefaultConfig(), nil), nil)

	req := firstEval("M-9", 10, 90)
	res, err := svc.Counsel(context.Background(), &req)
	require.NoError(t, err)
	assert.Equal(t, "M-9", res.MemberCode)
	assert.Equal(t, dispatch.StatusSuccess, res.Status)
	assert.NotNil(t, res.AnalysisResult)

	req.StudentPerformance = intake.Performance{}
	_, err = svc.Counsel(context.Background(), &req)
	var verr *feature.ValidationError
	assert.ErrorAs(t, err, &verr)
}

type recordingGenerator struct {
	mu     sync.Mutex
	inputs []guide.Input
}

func (g *recordingGenerator) Generate(_ context.Context, in guide.Input) (*guide.Guide, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inputs = append(g.inputs, in)
	return &guide.Guide{}, nil
}

func TestCounsel_PassesPerformanceDetails(t *testing.T) {
	var req intake.Request
	require.NoError(t, json.Unmarshal([]byte(`{
	  "member_code": "M-5", "exam_test_code": "MT2-25", "exam_name": "Octa 1 MT2",
	  "student_performance": {
	    "score_analysis": {
	      "score_features": {"PCT": 10, "EXAM_CNT": 1, "LOW_DIFF_ERR_RATE": "low"},
	      "student_data": {"exams": [{"exam_name": "Octa 1 MT1", "exam_date": "2025-09-10", "rank": 12, "total_students": 80}]}
	    },
	    "learning_routine": {"features": {"ASGN_RATE": 90}, "monthly_records": [{"month": 9, "alex_book_count": 4}]},
	    "exam_scores": [{"subject_name": "Reading", "score_percentage": 80}],
	    "subject_learning_guidances": [{"subject_name": "Reading", "learning_recommendation": "Summarize each chapter"}]
	  }}`), &req))

	gen := &recordingGenerator{}
	res, err := newService(t, gen, nil).Counsel(context.Background(), &req)
	require.NoError(t, err)
	assert.Equal(t, dispatch.StatusSuccess, res.Status)

	require.Len(t, gen.inputs, 1)
	d := gen.inputs[0].Details
	require.Len(t, d.Exams, 1)
	assert.Equal(t, "Octa 1 MT1", d.Exams[0].Name)
	require.Len(t, d.ExamScores, 1)
	assert.Equal(t, "Reading", d.ExamScores[0].Subject)
	require.Len(t, d.Guidances, 1)
	require.Len(t, d.ReadingRecords, 1)

	s := guide.Summarize(gen.inputs[0])
	assert.Equal(t, map[string]string{"Octa 1 MT1": "12/80"}, s.ExamRanks)
	assert.Equal(t, map[string]string{"Reading": "Summarize each chapter"}, s.Recommendations)
}
