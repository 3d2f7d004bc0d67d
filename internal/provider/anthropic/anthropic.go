package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"

	"github.com/aletheia-ng/pidginforge/internal/provider"
	"github.com/aletheia-ng/pidginforge/internal/schema"
)

// Provider implements the generation contract using Anthropic's API
type Provider struct {
	name   string
	client *anthropic.Client
	config *Config
}

// Config contains configuration for the Anthropic provider
type Config struct {
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxTokens int           `yaml:"max_tokens"`
	UserAgent string        `yaml:"user_agent"`
}

// DefaultConfig returns default configuration for Anthropic
func DefaultConfig() *Config {
	config := &Config{
		BaseURL:   "https://api.anthropic.com",
		Timeout:   120 * time.Second,
		MaxTokens: 8192,
		UserAgent: "pidginforge/1.0",
	}
	if baseURL := os.Getenv("PIDGINFORGE_ANTHROPIC_BASE_URL"); baseURL != "" {
		config.BaseURL = baseURL
	}

	return config
}

// NewProvider creates a new Anthropic provider
func NewProvider(config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	} else {
		defaults := DefaultConfig()
		if config.BaseURL == "" {
			config.BaseURL = defaults.BaseURL
		}
		if config.Timeout == 0 {
			config.Timeout = defaults.Timeout
		}
		if config.MaxTokens == 0 {
			config.MaxTokens = defaults.MaxTokens
		}
		if config.UserAgent == "" {
			config.UserAgent = defaults.UserAgent
		}
	}

	if config.APIKey == "" {
		config.APIKey = GetAPIKeyFromEnv()
		if config.APIKey == "" {
			return nil, fmt.Errorf("anthropic API key is required")
		}
	}

	// Retry policy belongs to the batch runner, not the SDK.
	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(config.BaseURL),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{
			Timeout: config.Timeout,
		}),
	)

	p := &Provider{
		name:   "anthropic",
		client: &client,
		config: config,
	}

	log.Info().
		Str("base_url", config.BaseURL).
		Msg("Anthropic provider initialized")

	return p, nil
}

// Generate submits one request and validates the response against the
// declared record schema. No retries happen here.
func (p *Provider) Generate(ctx context.Context, req *provider.Request) (schema.Record, error) {
	response, err := p.client.Messages.New(ctx, p.buildRequest(req))
	if err != nil {
		return nil, classify(ctx, err)
	}

	log.Debug().
		Str("model", req.Model).
		Int64("input_tokens", response.Usage.InputTokens).
		Int64("output_tokens", response.Usage.OutputTokens).
		Msg("Anthropic API call completed")

	text := extractText(response)
	if text == "" {
		return nil, provider.NewProviderError(fmt.Errorf("response contained no text content"))
	}

	record, err := req.Schema.Parse(text)
	if err != nil {
		return nil, provider.NewSchemaValidationError(err)
	}
	return record, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return p.name
}

// Close cleans up resources
func (p *Provider) Close() error {
	return nil
}

// buildRequest converts a generation request into Anthropic message params
func (p *Provider) buildRequest(req *provider.Request) anthropic.MessageNewParams {
	maxTokens := p.config.MaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	mp := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}

	// Leave temperature to the model default unless the request pins one.
	if req.Temperature != nil {
		mp.Temperature = anthropic.Float(*req.Temperature)
	}

	if req.SystemPrompt != "" {
		mp.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	return mp
}

// extractText concatenates the text blocks of a response
func extractText(response *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range response.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String()
}

// classify maps SDK errors onto the generation error taxonomy. Context
// errors pass through only when the caller's own context is done; the
// per-request timeout expiring inside the SDK is a backend failure.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return err
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) && apierr.StatusCode == http.StatusTooManyRequests {
		return provider.NewRateLimitError(err)
	}
	return provider.NewProviderError(fmt.Errorf("anthropic API call failed: %w", err))
}

// GetAPIKeyFromEnv retrieves the Anthropic API key from the environment
func GetAPIKeyFromEnv() string {
	envVars := []string{
		"ANTHROPIC_API_KEY",
		"CLAUDE_API_KEY",
		"ANTHROPIC_KEY",
	}

	for _, envVar := range envVars {
		if key := strings.TrimSpace(os.Getenv(envVar)); key != "" {
			return key
		}
	}

	return ""
}
