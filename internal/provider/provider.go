package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/aletheia-ng/pidginforge/internal/schema"
)

// Request represents one structured-generation request: a rendered prompt
// plus the record schema the response must conform to.
type Request struct {
	Model        string
	Prompt       string
	SystemPrompt string
	Schema       *schema.Schema

	Temperature *float64
	MaxTokens   *int
}

// Provider defines the uniform call contract over a remote text-generation
// backend. One outbound call per Generate; retry policy belongs to the
// caller, never to the adapter.
type Provider interface {
	// Generate submits the request and returns a schema-conformant record.
	// Failures are classified *Error values: provider_error, rate_limited
	// or schema_validation.
	Generate(ctx context.Context, req *Request) (schema.Record, error)

	// Name returns the provider name.
	Name() string

	// Close cleans up resources.
	Close() error
}

// Registry manages constructed providers by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}
	r.providers[name] = p
	return nil
}

// Get returns a registered provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("provider %s not found", name)
	}
	return p, nil
}

// Names returns all registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// Close closes all registered providers.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
