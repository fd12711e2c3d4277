package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// StubProvider answers every request with placeholder JSON built from the
// request schema. It backs the "mock" provider setting so the service runs
// end to end without credentials.
type StubProvider struct{}

func NewStubProvider() *StubProvider { return &StubProvider{} }

func (StubProvider) Generate(_ context.Context, req Request) (*Response, error) {
	var v any = "stub response"
	if req.Schema != nil {
		v = stubValue(req.Schema.Name, req.Schema.Definition)
	}
	content, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal stub: %w", err)
	}
	if err := validateResponse(req.Schema, content); err != nil {
		return nil, err
	}
	return &Response{Content: content, Model: "stub", StopReason: "end"}, nil
}

func (StubProvider) ModelID() string { return "stub" }

// stubValue produces the smallest value satisfying def: required object
// properties, minItems array elements and the first enum member.
func stubValue(path string, def map[string]any) any {
	if enum := stringList(def["enum"]); len(enum) > 0 {
		return enum[0]
	}

	switch def["type"] {
	case "object":
		out := make(map[string]any)
		props, _ := def["properties"].(map[string]any)
		required := stringList(def["required"])
		sort.Strings(required)
		for _, name := range required {
			pdef, _ := props[name].(map[string]any)
			out[name] = stubValue(path+"."+name, pdef)
		}
		return out
	case "array":
		items, _ := def["items"].(map[string]any)
		n := 1
		if m, ok := toInt(def["minItems"]); ok && m > n {
			n = m
		}
		out := make([]any, n)
		for i := range out {
			out[i] = stubValue(fmt.Sprintf("%s[%d]", path, i), items)
		}
		return out
	case "integer", "number":
		if m, ok := toInt(def["minimum"]); ok {
			return m
		}
		return 0
	case "boolean":
		return false
	}
	return fmt.Sprintf("[%s]", path)
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}
