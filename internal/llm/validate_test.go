package llm

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		schema  *Schema
		content string
		wantErr string
	}{
		{"nil schema", nil, `not even json`, ""},
		{"valid", noteSchema, `{"note":"n","tone":"firm"}`, ""},
		{"malformed", noteSchema, `{"note":`, "invalid JSON"},
		{"missing field", noteSchema, `{"note":"n"}`, "test-note"},
		{"extra field", noteSchema, `{"note":"n","tone":"warm","x":1}`, "test-note"},
		{"bad enum", noteSchema, `{"note":"n","tone":"loud"}`, "test-note"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(tt.schema, json.RawMessage(tt.content))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var inv *ErrInvalidResponse
			if !errors.As(err, &inv) {
				t.Fatalf("expected ErrInvalidResponse, got %T (%v)", err, err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
			if string(inv.Content) != tt.content {
				t.Errorf("content not preserved: %s", inv.Content)
			}
		})
	}
}

func TestCheckOutput_TruncationOnlyMattersForSchemas(t *testing.T) {
	if err := checkOutput(Request{}, json.RawMessage(`partial text`), "max_tokens"); err != nil {
		t.Errorf("free text truncation should pass, got %v", err)
	}
	err := checkOutput(Request{Schema: noteSchema}, json.RawMessage(`{"note":"n","tone":"warm"}`), "max_tokens")
	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Errorf("expected ErrMaxTokensExceeded, got %v", err)
	}
}

func TestLookupCost(t *testing.T) {
	tests := []struct {
		model string
		want  float64 // cost of 1M in + 1M out
	}{
		{"claude-sonnet-4-5-20250929", 18},
		{"anthropic/claude-sonnet-4.5", 18},
		{"gpt-4o-mini", 0.75},
		{"gpt-4o-mini-2024-07-18", 0.75},
		{"gemini-2.5-flash", 2.8},
	}
	for _, tt := range tests {
		c := LookupCost(tt.model)
		if c == nil {
			t.Errorf("%s: no price", tt.model)
			continue
		}
		if got := c.Cost(1_000_000, 1_000_000); got < tt.want-1e-9 || got > tt.want+1e-9 {
			t.Errorf("%s: cost = %v, want %v", tt.model, got, tt.want)
		}
	}
	if LookupCost("llama-3-8b") != nil {
		t.Error("expected nil for unknown model")
	}
}
