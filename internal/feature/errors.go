package feature

import (
	"fmt"
	"strings"
)

// Issue is one problem found while validating a snapshot.
type Issue struct {
	Field  Field
	Reason string
}

// ReasonMissing marks a field that a rule needs but the snapshot lacks.
const ReasonMissing = "missing"

// ValidationError reports why a snapshot cannot be built or classified.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = fmt.Sprintf("%s: %s", is.Field, is.Reason)
	}
	return "invalid feature snapshot: " + strings.Join(parts, "; ")
}

// Missing returns the fields reported as missing.
func (e *ValidationError) Missing() []Field {
	var out []Field
	for _, is := range e.Issues {
		if is.Reason == ReasonMissing {
			out = append(out, is.Field)
		}
	}
	return out
}

// MissingFieldsError builds a ValidationError for absent required fields.
func MissingFieldsError(fields []Field) *ValidationError {
	issues := make([]Issue, len(fields))
	for i, f := range fields {
		issues[i] = Issue{Field: f, Reason: ReasonMissing}
	}
	return &ValidationError{Issues: issues}
}
