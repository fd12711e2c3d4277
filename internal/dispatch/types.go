// Package dispatch runs classification and a downstream task over an
// ordered list of students, a chunk at a time, under a concurrency limit.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/canbcare/counselor/internal/classify"
	"github.com/canbcare/counselor/internal/feature"
)

// Classifier is the engine the dispatcher calls for every item.
// *classify.Engine satisfies it.
type Classifier interface {
	Classify(s *feature.Snapshot) (*classify.Result, error)
}

// Task is the downstream work run for every classified item. It is not
// called for UNCLASSIFIED results.
type Task[T any] func(ctx context.Context, item Item, res *classify.Result) (T, error)

type batchIDKey struct{}

// WithBatchID sets the batch ID Run reports. Tasks read it back with
// BatchIDFrom. Without it Run generates one.
func WithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchIDKey{}, id)
}

// BatchIDFrom returns the batch ID carried by ctx, or "".
func BatchIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(batchIDKey{}).(string)
	return id
}

// Item is one unit of batch work.
type Item struct {
	Key      string // caller correlation key, e.g. member code
	Snapshot *feature.Snapshot
	Ref      any // opaque to the dispatcher, passed to the Task

	// Err marks an item that failed before dispatch, e.g. while building
	// its snapshot. It is reported as a prepare-stage ItemError.
	Err error
}

// Status is the final state of one item.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusNotRun  Status = "not_run"
)

// Stage names where an item failed.
type Stage string

const (
	StagePrepare    Stage = "prepare"
	StageClassify   Stage = "classify"
	StageDownstream Stage = "downstream"
)

// Outcome is the result for the item at Index.
type Outcome[T any] struct {
	Index          int
	Key            string
	Status         Status
	Classification *classify.Result
	Payload        T
	Err            *ItemError
	Duration       time.Duration
}

// Report holds one outcome per input item, in input order.
type Report[T any] struct {
	BatchID   string
	Outcomes  []Outcome[T]
	Succeeded int
	Failed    int
	NotRun    int
	Duration  time.Duration
}

func (r *Report[T]) tally() {
	r.Succeeded, r.Failed, r.NotRun = 0, 0, 0
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusSuccess:
			r.Succeeded++
		case StatusError:
			r.Failed++
		case StatusNotRun:
			r.NotRun++
		}
	}
}

// ItemError describes why one item failed. It never affects other items.
type ItemError struct {
	Index int
	Key   string
	Stage Stage
	Err   error
}

func (e *ItemError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("item %d (%s): %s: %v", e.Index, e.Key, e.Stage, e.Err)
	}
	return fmt.Sprintf("item %d: %s: %v", e.Index, e.Stage, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// ErrDispatchAborted is matched by every *AbortedError.
var ErrDispatchAborted = errors.New("dispatch aborted")

// AbortedError is returned by Run when the context ended before every item
// was dispatched. The accompanying report is still complete: undispatched
// items are marked StatusNotRun.
type AbortedError struct {
	NotRun int
	Cause  error
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("dispatch aborted with %d items not run: %v", e.NotRun, e.Cause)
}

func (e *AbortedError) Unwrap() []error {
	return []error{ErrDispatchAborted, e.Cause}
}
