package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string
	BatchID string
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	BatchID      string
	MemberCode   string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// PurposeUsage aggregates token usage for one purpose label.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int
}

// ModelUsage aggregates token usage for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo records and queries LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns the event with the given ID, or nil if absent.
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)

	LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error)
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)
}

// CounselRecord is one persisted batch outcome.
type CounselRecord struct {
	ID              int64
	BatchID         string
	ItemIndex       int
	MemberCode      string
	ExamTestCode    string
	Status          string
	CaseCode        string
	CatalogVersion  string
	SupportingScore float64
	ConfidenceTier  string
	Payload         string // JSON of the full counsel result
	ErrorMessage    string
	DurationMs      int64
	CreatedAt       time.Time
}

// ResultRepo persists counsel outcomes.
type ResultRepo interface {
	// SaveResults writes all records in one transaction. Saving the same
	// (batch, index) twice replaces the earlier row.
	SaveResults(ctx context.Context, recs []CounselRecord) error

	// ResultsByBatch returns a batch's records in item order.
	ResultsByBatch(ctx context.Context, batchID string) ([]CounselRecord, error)

	// LatestForMember returns the newest record for a member and exam, or
	// nil if there is none.
	LatestForMember(ctx context.Context, memberCode, examTestCode string) (*CounselRecord, error)
}
