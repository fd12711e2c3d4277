package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/canbcare/counselor/internal/classify"
)

// CancelPolicy controls what happens to the running chunk when the batch
// context is cancelled. Later chunks never start either way.
type CancelPolicy string

const (
	// Drain lets items already in the running chunk finish with a context
	// that ignores the cancellation.
	Drain CancelPolicy = "drain"
	// Abandon passes the cancelled context through and skips items in the
	// running chunk that have not started.
	Abandon CancelPolicy = "abandon"
)

// ParseCancelPolicy parses "drain" or "abandon". Empty means Drain.
func ParseCancelPolicy(s string) (CancelPolicy, error) {
	switch CancelPolicy(s) {
	case "", Drain:
		return Drain, nil
	case Abandon:
		return Abandon, nil
	}
	return "", fmt.Errorf("unknown cancel policy %q (want drain or abandon)", s)
}

// Options configures a Dispatcher.
type Options struct {
	ConcurrencyLimit int
	ChunkSize        int
	CancelPolicy     CancelPolicy
}

// DefaultOptions returns the stock limits: 80 concurrent items per chunk of 20.
func DefaultOptions() Options {
	return Options{
		ConcurrencyLimit: 80,
		ChunkSize:        20,
		CancelPolicy:     Drain,
	}
}

func (o Options) validate() error {
	if o.ConcurrencyLimit < 1 {
		return fmt.Errorf("concurrency limit must be positive, got %d", o.ConcurrencyLimit)
	}
	if o.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be positive, got %d", o.ChunkSize)
	}
	if _, err := ParseCancelPolicy(string(o.CancelPolicy)); err != nil {
		return err
	}
	return nil
}

// Dispatcher runs a Task over batches of items.
type Dispatcher[T any] struct {
	classifier Classifier
	task       Task[T]
	opts       Options
	logger     *zap.Logger
}

// New creates a dispatcher. A nil task means classification only; a nil
// logger disables logging.
func New[T any](c Classifier, task Task[T], opts Options, logger *zap.Logger) (*Dispatcher[T], error) {
	if c == nil {
		return nil, fmt.Errorf("dispatch: nil classifier")
	}
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	if opts.CancelPolicy == "" {
		opts.CancelPolicy = Drain
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher[T]{classifier: c, task: task, opts: opts, logger: logger}, nil
}

// Run processes items chunk by chunk and returns one outcome per item, in
// input order. Item failures are recorded in their outcome and never stop
// the batch. If ctx ends before every chunk has started, the report marks
// the remaining items StatusNotRun and the error is an *AbortedError.
func (d *Dispatcher[T]) Run(ctx context.Context, items []Item) (*Report[T], error) {
	start := time.Now()
	batchID := BatchIDFrom(ctx)
	if batchID == "" {
		batchID = uuid.NewString()
		ctx = WithBatchID(ctx, batchID)
	}
	report := &Report[T]{
		BatchID:  batchID,
		Outcomes: make([]Outcome[T], len(items)),
	}
	for i, it := range items {
		report.Outcomes[i] = Outcome[T]{Index: i, Key: it.Key, Status: StatusNotRun}
	}

	log := d.logger.With(zap.String("batch_id", report.BatchID))
	log.Info("batch started",
		zap.Int("items", len(items)),
		zap.Int("chunk_size", d.opts.ChunkSize),
		zap.Int("concurrency_limit", d.opts.ConcurrencyLimit))

	var aborted error
	chunk := 0
	for lo := 0; lo < len(items); lo += d.opts.ChunkSize {
		if ctx.Err() != nil {
			aborted = context.Cause(ctx)
			break
		}
		hi := min(lo+d.opts.ChunkSize, len(items))
		d.runChunk(ctx, items, lo, hi, report.Outcomes)
		log.Debug("chunk finished", zap.Int("chunk", chunk), zap.Int("from", lo), zap.Int("to", hi))
		chunk++
	}
	if aborted == nil && ctx.Err() != nil && d.opts.CancelPolicy == Abandon {
		aborted = context.Cause(ctx)
	}

	report.tally()
	report.Duration = time.Since(start)
	log.Info("batch finished",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("not_run", report.NotRun),
		zap.Int64("duration_ms", report.Duration.Milliseconds()))

	if aborted != nil && report.NotRun > 0 {
		log.Warn("batch aborted", zap.Error(aborted))
		return report, &AbortedError{NotRun: report.NotRun, Cause: aborted}
	}
	return report, nil
}

func (d *Dispatcher[T]) runChunk(ctx context.Context, items []Item, lo, hi int, out []Outcome[T]) {
	taskCtx := ctx
	if d.opts.CancelPolicy == Drain {
		taskCtx = context.WithoutCancel(ctx)
	}

	// Item errors are captured in their slot, never returned to the group,
	// so one failure cannot cancel its siblings.
	var g errgroup.Group
	g.SetLimit(d.opts.ConcurrencyLimit)
	for i := lo; i < hi; i++ {
		g.Go(func() error {
			if d.opts.CancelPolicy == Abandon && ctx.Err() != nil {
				return nil
			}
			out[i] = d.runItem(taskCtx, i, items[i])
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher[T]) runItem(ctx context.Context, idx int, it Item) (o Outcome[T]) {
	start := time.Now()
	o = Outcome[T]{Index: idx, Key: it.Key}
	stage := StagePrepare

	fail := func(err error) {
		o.Status = StatusError
		o.Err = &ItemError{Index: idx, Key: it.Key, Stage: stage, Err: err}
		d.logger.Warn("item failed",
			zap.Int("index", idx),
			zap.String("member_code", it.Key),
			zap.String("stage", string(stage)),
			zap.Error(err))
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("item panicked", zap.Int("index", idx), zap.ByteString("stack", debug.Stack()))
			fail(fmt.Errorf("panic: %v", r))
		}
		o.Duration = time.Since(start)
	}()

	if it.Err != nil {
		fail(it.Err)
		return o
	}

	stage = StageClassify
	res, err := d.classifier.Classify(it.Snapshot)
	if err != nil {
		fail(err)
		return o
	}
	o.Classification = res

	if d.task != nil && res.CaseCode != classify.Unclassified {
		stage = StageDownstream
		payload, err := d.task(ctx, it, res)
		if err != nil {
			fail(err)
			return o
		}
		o.Payload = payload
	}

	o.Status = StatusSuccess
	d.logger.Debug("item done",
		zap.Int("index", idx),
		zap.String("member_code", it.Key),
		zap.String("case_code", res.CaseCode),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	return o
}
