package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

var noteSchema = &Schema{
	Name:        "test-note",
	Description: "A short counseling note",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"note": map[string]any{"type": "string"},
			"tone": map[string]any{"type": "string", "enum": []any{"warm", "firm"}},
		},
		"required":             []any{"note", "tone"},
		"additionalProperties": false,
	},
}

func notePrompt() Request {
	return Prompt("You are a study counselor.", "Summarize the student.", noteSchema, 256)
}

func newTestAnthropicProvider(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := anthropic.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(server.URL),
		option.WithMaxRetries(0),
	)
	return &AnthropicProvider{client: &client, model: "claude-sonnet-4-5-20250929"}
}

func anthropicMessage(text, stop string) map[string]any {
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"model":       "claude-sonnet-4-5-20250929",
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
	}
}

func anthropicError(w http.ResponseWriter, status int, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"type":  "error",
		"error": map[string]any{"type": kind, "message": kind},
	})
}

func TestAnthropicProvider_StructuredOutput(t *testing.T) {
	var body map[string]any
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(anthropicMessage(`{"note":"Keep the routine.","tone":"warm"}`, "end_turn"))
	})

	resp, err := p.Generate(context.Background(), notePrompt())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Usage.TotalTokens != 80 {
		t.Errorf("total tokens = %d, want 80", resp.Usage.TotalTokens)
	}
	if resp.StopReason != "end" {
		t.Errorf("stop reason = %q, want end", resp.StopReason)
	}

	var out struct{ Note, Tone string }
	if err := resp.Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Tone != "warm" {
		t.Errorf("tone = %q", out.Tone)
	}
	if body["system"] == nil {
		t.Error("system prompt not sent")
	}
}

func TestAnthropicProvider_SchemaViolation(t *testing.T) {
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(anthropicMessage(`{"note":"ok","tone":"sarcastic"}`, "end_turn"))
	})

	_, err := p.Generate(context.Background(), notePrompt())
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %T (%v)", err, err)
	}
}

func TestAnthropicProvider_Truncated(t *testing.T) {
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(anthropicMessage(`{"note":"Keep the`, "max_tokens"))
	})

	_, err := p.Generate(context.Background(), notePrompt())
	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("expected ErrMaxTokensExceeded, got %T (%v)", err, err)
	}
}

func TestAnthropicProvider_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   string
		check  func(error) bool
	}{
		{"rate limit", http.StatusTooManyRequests, "rate_limit_error", func(err error) bool {
			var rl *ErrRateLimit
			return errors.As(err, &rl) && rl.RetryAfter == 7*time.Second
		}},
		{"server error", http.StatusInternalServerError, "api_error", func(err error) bool {
			var unavail *ErrProviderUnavailable
			return errors.As(err, &unavail)
		}},
		{"bad key", http.StatusUnauthorized, "authentication_error", func(err error) bool {
			var rej *ErrRejected
			return errors.As(err, &rej) && rej.Status == http.StatusUnauthorized && !Retryable(err)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "7")
				anthropicError(w, tt.status, tt.kind)
			})
			_, err := p.Generate(context.Background(), notePrompt())
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error mapping: %T (%v)", err, err)
			}
		})
	}
}

func TestAnthropicModelMapping(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"claude-sonnet", "claude-sonnet-4-5-20250929"},
		{"claude-haiku", "claude-haiku-4-5-20251001"},
		{"claude-opus-4-1-20250805", "claude-opus-4-1-20250805"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.input, anthropicModels); got != tt.want {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func newChatServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server.URL + "/v1"
}

func chatCompletion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 25, "total_tokens": 65},
	}
}

func TestOpenAIProvider_StructuredOutput(t *testing.T) {
	var sent map[string]any
	url := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &sent)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletion(`{"note":"Review fractions.","tone":"firm"}`, "stop"))
	})

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: url})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	resp, err := p.Generate(context.Background(), notePrompt())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Usage.InputTokens != 40 || resp.Usage.OutputTokens != 25 {
		t.Errorf("usage = %+v", resp.Usage)
	}

	format, _ := sent["response_format"].(map[string]any)
	if format["type"] != "json_schema" {
		t.Errorf("response_format = %v, want json_schema", format)
	}
	msgs, _ := sent["messages"].([]any)
	if len(msgs) != 2 {
		t.Errorf("sent %d messages, want system + user", len(msgs))
	}
}

func TestOpenAIProvider_ErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusTooManyRequests, func(err error) bool { var e *ErrRateLimit; return errors.As(err, &e) }},
		{http.StatusBadGateway, func(err error) bool { var e *ErrProviderUnavailable; return errors.As(err, &e) }},
		{http.StatusBadRequest, func(err error) bool { var e *ErrRejected; return errors.As(err, &e) }},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			url := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"type": "error", "message": "nope"},
				})
			})
			p, _ := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: url})
			_, err := p.Generate(context.Background(), notePrompt())
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error mapping: %T (%v)", err, err)
			}
		})
	}
}

func TestOpenRouterProvider(t *testing.T) {
	var path, model string
	url := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		model, _ = req["model"].(string)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletion(`{"note":"ok","tone":"warm"}`, "stop"))
	})

	p, err := NewOpenRouterProvider(OpenRouterConfig{
		APIKey:  "sk-or-test",
		Model:   "anthropic/claude-sonnet-4.5",
		BaseURL: url,
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if p.ModelID() != "anthropic/claude-sonnet-4.5" {
		t.Errorf("model = %q, want pass-through", p.ModelID())
	}
	if _, err := p.Generate(context.Background(), notePrompt()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasSuffix(path, "/chat/completions") || model != "anthropic/claude-sonnet-4.5" {
		t.Errorf("request went to %q with model %q", path, model)
	}

	if _, err := NewOpenRouterProvider(OpenRouterConfig{Model: "x/y"}); err == nil {
		t.Error("expected error for empty API key")
	}
	if _, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "k"}); err == nil {
		t.Error("expected error for empty model")
	}
}

func TestBuildGeminiSchema(t *testing.T) {
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
			"items": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"tone": map[string]any{"type": "string", "enum": []string{"warm", "firm"}},
		},
		"required": []any{"title", "items"},
	}

	schema := buildGeminiSchema(def)
	if schema.Type != "OBJECT" {
		t.Fatalf("type = %s, want OBJECT", schema.Type)
	}
	if len(schema.Properties) != 3 {
		t.Fatalf("got %d properties, want 3", len(schema.Properties))
	}
	if schema.Properties["items"].Items.Type != "STRING" {
		t.Errorf("items element type = %s", schema.Properties["items"].Items.Type)
	}
	if len(schema.Properties["tone"].Enum) != 2 {
		t.Errorf("enum = %v", schema.Properties["tone"].Enum)
	}
	if len(schema.Required) != 2 {
		t.Errorf("required = %v", schema.Required)
	}
	if got := resolveModel("gemini-flash", geminiModels); got != "gemini-2.5-flash" {
		t.Errorf("resolveModel(gemini-flash) = %q", got)
	}
}
