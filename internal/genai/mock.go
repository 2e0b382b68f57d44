package genai

import (
	"context"
	"sync"
)

// MockProvider replays scripted outputs and records requests. Used by
// orchestrator tests and local development.
type MockProvider struct {
	mu sync.Mutex

	// Outputs are returned in order; when exhausted the last one repeats.
	Outputs []string

	// Errs maps a zero-based call index to an error returned instead of
	// an output.
	Errs map[int]error

	Calls []Request
}

func (m *MockProvider) Complete(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := len(m.Calls)
	m.Calls = append(m.Calls, req)

	if err, ok := m.Errs[i]; ok {
		return "", err
	}
	if len(m.Outputs) == 0 {
		return "", nil
	}
	if i >= len(m.Outputs) {
		return m.Outputs[len(m.Outputs)-1], nil
	}
	return m.Outputs[i], nil
}

// CallCount reports how many completions were requested.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
