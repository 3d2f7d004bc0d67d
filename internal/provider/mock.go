package provider

import (
	"context"
	"sync"

	"github.com/aletheia-ng/pidginforge/internal/schema"
)

// MockProvider is a scriptable Provider implementation for tests. Responses
// are consumed in call order; once the script is exhausted the default
// record is returned.
type MockProvider struct {
	mu      sync.Mutex
	name    string
	script  []func(*Request) (schema.Record, error)
	calls   int
	Default schema.Record
}

// NewMockProvider creates a mock provider with the given name.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		name:    name,
		Default: schema.Record{"title": "Tori Don Land", "content": "Dem don announce am today."},
	}
}

// Respond appends a scripted response for the next unscripted call.
func (m *MockProvider) Respond(fn func(*Request) (schema.Record, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, fn)
	return m
}

// Fail appends a scripted failure.
func (m *MockProvider) Fail(err error) *MockProvider {
	return m.Respond(func(*Request) (schema.Record, error) { return nil, err })
}

// Calls returns how many times Generate has been invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Generate returns the next scripted response, or the default record.
func (m *MockProvider) Generate(ctx context.Context, req *Request) (schema.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	call := m.calls
	m.calls++
	var fn func(*Request) (schema.Record, error)
	if call < len(m.script) {
		fn = m.script[call]
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(req)
	}
	return m.Default, nil
}

// Name returns the provider name.
func (m *MockProvider) Name() string { return m.name }

// Close cleans up resources.
func (m *MockProvider) Close() error { return nil }
