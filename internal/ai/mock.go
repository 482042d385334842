package ai

import (
	"context"
	"sync"
)

// MockProvider is a scripted Provider for tests.
type MockProvider struct {
	mu        sync.Mutex
	responses []ChatResponse
	err       error
	calls     int
	lastReq   ChatRequest
}

var _ Provider = (*MockProvider)(nil)

func NewMockProvider(responses ...ChatResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// Fail makes every subsequent call return err.
func (m *MockProvider) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return ChatResponse{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.lastReq = req

	if m.err != nil {
		return ChatResponse{}, m.err
	}

	if len(m.responses) == 0 {
		return ChatResponse{Content: "ok", Model: req.Model}, nil
	}

	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

// Calls returns how many completions were attempted.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the most recent request seen.
func (m *MockProvider) LastRequest() ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReq
}
