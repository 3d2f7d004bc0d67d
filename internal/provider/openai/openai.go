package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog/log"

	"github.com/aletheia-ng/pidginforge/internal/provider"
	"github.com/aletheia-ng/pidginforge/internal/schema"
)

// Provider implements the generation contract using OpenAI's API
type Provider struct {
	name   string
	client *openai.Client
	config *Config
}

// Config contains configuration for the OpenAI provider
type Config struct {
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxTokens int           `yaml:"max_tokens"`
	OrgID     string        `yaml:"organization_id"`
}

// NewProvider creates a new OpenAI provider
func NewProvider(config *Config) (*Provider, error) {
	if config == nil {
		config = &Config{}
	}

	defaults := defaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaults.MaxTokens
	}

	if config.APIKey == "" {
		config.APIKey = GetAPIKeyFromEnv()
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	// Retry policy belongs to the batch runner, not the SDK.
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(config.BaseURL),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(config.Timeout),
	}
	if config.OrgID != "" {
		opts = append(opts, option.WithOrganization(config.OrgID))
	}

	client := openai.NewClient(opts...)

	return &Provider{
		name:   "openai",
		client: &client,
		config: config,
	}, nil
}

// Generate submits one chat completion and validates the response against
// the declared record schema.
func (p *Provider) Generate(ctx context.Context, req *provider.Request) (schema.Record, error) {
	response, err := p.client.Chat.Completions.New(ctx, BuildParams(req, p.config.MaxTokens))
	if err != nil {
		return nil, Classify(ctx, err)
	}

	if len(response.Choices) == 0 {
		return nil, provider.NewProviderError(fmt.Errorf("no choices in response"))
	}

	log.Debug().
		Str("model", req.Model).
		Int64("prompt_tokens", response.Usage.PromptTokens).
		Int64("completion_tokens", response.Usage.CompletionTokens).
		Msg("OpenAI API call completed")

	record, err := req.Schema.Parse(response.Choices[0].Message.Content)
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

// BuildParams converts a generation request into chat completion params.
// Shared with the OpenRouter provider, which speaks the same wire format.
func BuildParams(req *provider.Request, defaultMaxTokens int) openai.ChatCompletionNewParams {
	maxTokens := int64(defaultMaxTokens)
	if req.MaxTokens != nil {
		maxTokens = int64(*req.MaxTokens)
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:               req.Model,
		Messages:            messages,
		MaxCompletionTokens: openai.Int(maxTokens),
		N:                   openai.Int(1),
	}
	// Leave temperature to the model default unless the request pins one.
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	// Declare the record schema as a structured-output format. Responses
	// still pass through Parse afterwards; models behind gateways do not
	// all honor the format.
	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "record",
					Schema: req.Schema.JSONSchema(),
				},
			},
		}
	}
	return params
}

// Classify maps SDK errors onto the generation error taxonomy. Context
// errors pass through only when the caller's own context is done; a
// per-request timeout expiring inside the SDK also surfaces as
// context.DeadlineExceeded, and that is a backend failure, not an
// interruption of the run.
func Classify(ctx context.Context, err error) error {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return err
	}

	var apierr *openai.Error
	if errors.As(err, &apierr) && apierr.StatusCode == http.StatusTooManyRequests {
		return provider.NewRateLimitError(err)
	}
	return provider.NewProviderError(fmt.Errorf("completion failed: %w", err))
}

// defaultConfig returns default configuration values
func defaultConfig() *Config {
	config := &Config{
		BaseURL:   "https://api.openai.com/v1",
		Timeout:   120 * time.Second,
		MaxTokens: 8192,
	}

	if baseURL := os.Getenv("PIDGINFORGE_OPENAI_BASE_URL"); baseURL != "" {
		config.BaseURL = baseURL
	}

	return config
}

// GetAPIKeyFromEnv retrieves the OpenAI API key from environment variables
func GetAPIKeyFromEnv() string {
	envVars := []string{
		"OPENAI_API_KEY",
		"OPENAI_KEY",
		"OPENAI_TOKEN",
	}

	for _, envVar := range envVars {
		if apiKey := os.Getenv(envVar); apiKey != "" {
			return apiKey
		}
	}

	return ""
}
