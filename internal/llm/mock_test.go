package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

func TestMockProvider_FIFO(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10}},
		MockResponse{Content: json.RawMessage(`{"b":2}`)},
	)

	first, err := mock.Generate(context.Background(), Request{System: "one"})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if string(first.Content) != `{"a":1}` || first.Usage.InputTokens != 10 {
		t.Errorf("first = %s %+v", first.Content, first.Usage)
	}
	second, _ := mock.Generate(context.Background(), Request{})
	if string(second.Content) != `{"b":2}` {
		t.Errorf("second = %s", second.Content)
	}

	_, err = mock.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("empty queue: got %T, want ErrProviderUnavailable", err)
	}
	if mock.CallCount() != 3 || mock.Calls[0].System != "one" {
		t.Errorf("calls not recorded: %+v", mock.Calls)
	}
}

func TestMockProvider_RoutesBySchema(t *testing.T) {
	a := &Schema{Name: "section-a"}
	b := &Schema{Name: "section-b"}
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`"fallback"`)}).
		On("section-a", MockResponse{Content: json.RawMessage(`"a1"`)}).
		Always("section-b", MockResponse{Content: json.RawMessage(`"b"`)})

	// Concurrent callers each get their own schema's answer.
	var wg sync.WaitGroup
	got := make([]string, 4)
	for i, s := range []*Schema{b, a, b, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := mock.Generate(context.Background(), Request{Schema: s})
			if err != nil {
				t.Errorf("call %d: %v", i, err)
				return
			}
			got[i] = string(resp.Content)
		}()
	}
	wg.Wait()

	want := []string{`"b"`, `"a1"`, `"b"`, `"b"`}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, got[i], want[i])
		}
	}

	// section-a's queue is drained, so it falls back to the shared queue.
	resp, err := mock.Generate(context.Background(), Request{Schema: a})
	if err != nil || string(resp.Content) != `"fallback"` {
		t.Errorf("fallback = %v, %v", resp, err)
	}
}

func TestStubProvider_SatisfiesSchema(t *testing.T) {
	schema := &Schema{
		Name: "stub-check",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{"type": "string"},
				"steps": map[string]any{
					"type":     "array",
					"minItems": 2,
					"items": map[string]any{
						"type":       "object",
						"properties": map[string]any{"n": map[string]any{"type": "integer", "minimum": 1}},
						"required":   []any{"n"},
					},
				},
				"tone":     map[string]any{"type": "string", "enum": []any{"warm", "firm"}},
				"optional": map[string]any{"type": "string"},
			},
			"required":             []any{"title", "steps", "tone"},
			"additionalProperties": false,
		},
	}

	resp, err := NewStubProvider().Generate(context.Background(), Request{Schema: schema})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var out struct {
		Title string
		Steps []struct{ N int }
		Tone  string
	}
	if err := resp.Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Title != "[stub-check.title]" || len(out.Steps) != 2 || out.Steps[0].N != 1 || out.Tone != "warm" {
		t.Errorf("stub = %+v", out)
	}
}
