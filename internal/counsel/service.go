package counsel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/canbcare/counselor/internal/classify"
	"github.com/canbcare/counselor/internal/dispatch"
	"github.com/canbcare/counselor/internal/feature"
	"github.com/canbcare/counselor/internal/guide"
	"github.com/canbcare/counselor/internal/intake"
	"github.com/canbcare/counselor/internal/llm"
	"github.com/canbcare/counselor/internal/store"
)

// Generator writes the counseling guide for a classified student.
// *guide.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context, in guide.Input) (*guide.Guide, error)
}

// Service wires intake, dispatch, guide generation and storage.
type Service struct {
	engine     *classify.Engine
	guides     Generator
	results    store.ResultRepo
	dispatcher *dispatch.Dispatcher[*guide.Guide]
	logger     *zap.Logger
}

// NewService creates the counseling service. A nil generator runs
// classification only; a nil result repo skips persistence.
func NewService(engine *classify.Engine, guides Generator, results store.ResultRepo, opts dispatch.Options, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{engine: engine, guides: guides, results: results, logger: logger}

	var task dispatch.Task[*guide.Guide]
	if guides != nil {
		task = s.generate
	}
	d, err := dispatch.New(engine, task, opts, logger)
	if err != nil {
		return nil, err
	}
	s.dispatcher = d
	return s, nil
}

// Engine returns the classification engine the service runs against.
func (s *Service) Engine() *classify.Engine {
	return s.engine
}

// Classify classifies a single snapshot without generating a guide.
func (s *Service) Classify(snap *feature.Snapshot) (*classify.Result, error) {
	return s.engine.Classify(snap)
}

// Counsel handles a single student. Request and snapshot validation errors
// are returned directly; classification and generation failures are
// reported in the result like a batch item.
func (s *Service) Counsel(ctx context.Context, req *intake.Request) (*Result, error) {
	if _, err := intake.Normalize(req); err != nil {
		return nil, err
	}
	resp, err := s.CounselBatch(ctx, &intake.BatchRequest{BatchData: []intake.Request{*req}})
	if err != nil {
		return nil, err
	}
	return &resp.Results[0], nil
}

// CounselBatch runs every item through the pipeline and returns one result
// per item in request order. If ctx ends mid-batch the response is still
// complete (remaining items are not_run) and the error wraps
// dispatch.ErrDispatchAborted.
func (s *Service) CounselBatch(ctx context.Context, batch *intake.BatchRequest) (*BatchResponse, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}

	items := make([]dispatch.Item, len(batch.BatchData))
	for i := range batch.BatchData {
		req := &batch.BatchData[i]
		st, err := intake.Normalize(req)
		if err != nil {
			items[i] = dispatch.Item{Key: req.MemberCode, Err: err}
			continue
		}
		items[i] = dispatch.Item{Key: req.MemberCode, Snapshot: st.Snapshot, Ref: st}
	}

	report, runErr := s.dispatcher.Run(ctx, items)
	if report == nil {
		return nil, runErr
	}

	resp := &BatchResponse{
		Total:     len(items),
		BatchID:   report.BatchID,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
		NotRun:    report.NotRun,
		Results:   make([]Result, len(items)),
	}
	for i, o := range report.Outcomes {
		resp.Results[i] = toResult(&batch.BatchData[i], o)
	}

	if s.results != nil {
		if err := s.results.SaveResults(context.WithoutCancel(ctx), toRecords(report, resp.Results)); err != nil {
			s.logger.Warn("save results failed", zap.String("batch_id", report.BatchID), zap.Error(err))
		}
	}

	var aborted *dispatch.AbortedError
	if runErr != nil && !errors.As(runErr, &aborted) {
		return nil, runErr
	}
	return resp, runErr
}

func (s *Service) generate(ctx context.Context, it dispatch.Item, res *classify.Result) (*guide.Guide, error) {
	st, ok := it.Ref.(*intake.Student)
	if !ok {
		return nil, fmt.Errorf("unexpected item payload %T", it.Ref)
	}
	req := st.Request
	ctx = llm.WithItem(ctx, dispatch.BatchIDFrom(ctx), req.MemberCode)

	return s.guides.Generate(ctx, guide.Input{
		MemberCode:     req.MemberCode,
		ExamTestCode:   req.ExamTestCode,
		ExamName:       req.ExamName,
		ExamDiv:        req.ExamDiv,
		PeriodStart:    st.Period.Start,
		PeriodEnd:      st.Period.End,
		Case:           res.Definition,
		Classification: res,
		Snapshot:       st.Snapshot,
		History:        st.History,
		Details:        st.Details,
	})
}

func toResult(req *intake.Request, o dispatch.Outcome[*guide.Guide]) Result {
	r := Result{
		MemberCode:     req.MemberCode,
		ExamTestCode:   req.ExamTestCode,
		CourseCode:     req.CourseCode,
		ExamDiv:        req.ExamDiv,
		ExamName:       req.ExamName,
		Status:         o.Status,
		Classification: o.Classification,
		AnalysisResult: o.Payload,
	}
	switch {
	case o.Err != nil:
		r.Error = o.Err.Error()
	case o.Status == dispatch.StatusNotRun:
		r.Error = "not run: batch cancelled"
	}
	return r
}

func toRecords(report *dispatch.Report[*guide.Guide], results []Result) []store.CounselRecord {
	records := make([]store.CounselRecord, len(results))
	for i, r := range results {
		rec := store.CounselRecord{
			BatchID:      report.BatchID,
			ItemIndex:    i,
			MemberCode:   r.MemberCode,
			ExamTestCode: r.ExamTestCode,
			Status:       string(r.Status),
			ErrorMessage: r.Error,
			DurationMs:   report.Outcomes[i].Duration.Milliseconds(),
		}
		if c := r.Classification; c != nil {
			rec.CaseCode = c.CaseCode
			rec.CatalogVersion = c.CatalogVersion
			rec.SupportingScore = c.SupportingScore
			rec.ConfidenceTier = string(c.ConfidenceTier)
		}
		if r.AnalysisResult != nil {
			if b, err := json.Marshal(r.AnalysisResult); err == nil {
				rec.Payload = string(b)
			}
		}
		records[i] = rec
	}
	return records
}
