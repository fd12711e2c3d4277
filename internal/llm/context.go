package llm

import "context"

type contextKey string

const (
	purposeKey contextKey = "llm_purpose"
	itemKey    contextKey = "llm_item"
)

// WithPurpose attaches a purpose label to the context for event logging.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// ItemLabels ties an LLM call to the batch item that caused it.
type ItemLabels struct {
	BatchID    string
	MemberCode string
}

// WithItem attaches batch item labels to the context.
func WithItem(ctx context.Context, batchID, memberCode string) context.Context {
	return context.WithValue(ctx, itemKey, ItemLabels{BatchID: batchID, MemberCode: memberCode})
}

// ItemFrom returns the labels set by WithItem, or zero labels.
func ItemFrom(ctx context.Context) ItemLabels {
	v, _ := ctx.Value(itemKey).(ItemLabels)
	return v
}
