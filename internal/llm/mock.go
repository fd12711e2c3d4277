package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider is a deterministic Provider for tests. Responses queued with
// On are served to requests whose schema has that name; everything else
// draws from the shared FIFO queue. All requests are recorded.
type MockProvider struct {
	mu       sync.Mutex
	queue    []MockResponse
	bySchema map[string][]MockResponse
	sticky   map[string]MockResponse
	Calls    []Request
}

// NewMockProvider creates a MockProvider with the given canned responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{
		queue:    responses,
		bySchema: make(map[string][]MockResponse),
		sticky:   make(map[string]MockResponse),
	}
}

// On queues responses for requests using the named schema.
func (m *MockProvider) On(schemaName string, responses ...MockResponse) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bySchema[schemaName] = append(m.bySchema[schemaName], responses...)
	return m
}

// Always answers every request using the named schema with resp once its
// queue is drained.
func (m *MockProvider) Always(schemaName string, resp MockResponse) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sticky[schemaName] = resp
	return m
}

// Generate returns the next matching canned response, or
// ErrProviderUnavailable when none is left.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	resp, ok := m.next(req)
	if !ok {
		return nil, &ErrProviderUnavailable{}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return &Response{
		Content:    resp.Content,
		Usage:      resp.Usage,
		Model:      "mock",
		StopReason: "end",
	}, nil
}

func (m *MockProvider) next(req Request) (MockResponse, bool) {
	if req.Schema != nil {
		name := req.Schema.Name
		if q := m.bySchema[name]; len(q) > 0 {
			m.bySchema[name] = q[1:]
			return q[0], true
		}
		if r, ok := m.sticky[name]; ok {
			return r, true
		}
	}
	if len(m.queue) == 0 {
		return MockResponse{}, false
	}
	r := m.queue[0]
	m.queue = m.queue[1:]
	return r, true
}

func (m *MockProvider) ModelID() string {
	return "mock"
}

// CallCount returns the number of Generate calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
