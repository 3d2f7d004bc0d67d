package cli

import (
	"fmt"

	"github.com/aletheia-ng/pidginforge/internal/provider"
	"github.com/aletheia-ng/pidginforge/internal/provider/anthropic"
	"github.com/aletheia-ng/pidginforge/internal/provider/openai"
	"github.com/aletheia-ng/pidginforge/internal/provider/openrouter"
)

// defaultModels maps each backend to the model used when --model is omitted.
var defaultModels = map[string]string{
	"openrouter": "google/gemma-3-27b-it:free",
	"openai":     "gpt-4o-mini",
	"anthropic":  "claude-3-5-haiku-latest",
}

// registerProvider constructs the requested backend and adds it to the
// registry, which then owns its lifecycle. Credentials come from the
// environment (and .env via godotenv).
func registerProvider(registry *provider.Registry, name string) error {
	var (
		p   provider.Provider
		err error
	)
	switch name {
	case "openrouter":
		p, err = openrouter.NewProvider(nil)
	case "openai":
		p, err = openai.NewProvider(nil)
	case "anthropic":
		p, err = anthropic.NewProvider(nil)
	default:
		return fmt.Errorf("unknown provider %q (expected openrouter, openai or anthropic)", name)
	}
	if err != nil {
		return err
	}
	return registry.Register(p)
}

// resolveModel returns the model to request, falling back to the backend's
// default when none was given.
func resolveModel(name, model string) string {
	if model == "" {
		return defaultModels[name]
	}
	return model
}
