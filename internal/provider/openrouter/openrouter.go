package openrouter

import (
	"context"
	"fmt"
	"os"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	"github.com/aletheia-ng/pidginforge/internal/provider"
	openaiprov "github.com/aletheia-ng/pidginforge/internal/provider/openai"
	"github.com/aletheia-ng/pidginforge/internal/schema"
)

// OpenRouter speaks the OpenAI chat-completions wire format, so the provider
// reuses the OpenAI SDK pointed at the OpenRouter gateway. This is the
// backend the Pidgin corpus was originally generated against.
type Provider struct {
	name   string
	client *openaisdk.Client
	config *Config
}

// Config contains configuration for the OpenRouter provider
type Config struct {
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxTokens int           `yaml:"max_tokens"`
	// Referer and Title populate OpenRouter's app attribution headers.
	Referer string `yaml:"referer"`
	Title   string `yaml:"title"`
}

// DefaultConfig returns default configuration for OpenRouter
func DefaultConfig() *Config {
	config := &Config{
		BaseURL:   "https://openrouter.ai/api/v1",
		Timeout:   120 * time.Second,
		MaxTokens: 8192,
		Title:     "pidginforge",
	}
	if baseURL := os.Getenv("PIDGINFORGE_OPENROUTER_BASE_URL"); baseURL != "" {
		config.BaseURL = baseURL
	}

	return config
}

// NewProvider creates a new OpenRouter provider
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
		if config.Title == "" {
			config.Title = defaults.Title
		}
	}

	if config.APIKey == "" {
		config.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required (set OPENROUTER_API_KEY)")
	}

	// Retry policy belongs to the batch runner, not the SDK.
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(config.BaseURL),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(config.Timeout),
		option.WithHeader("X-Title", config.Title),
	}
	if config.Referer != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", config.Referer))
	}

	client := openaisdk.NewClient(opts...)

	log.Info().
		Str("base_url", config.BaseURL).
		Msg("OpenRouter provider initialized")

	return &Provider{
		name:   "openrouter",
		client: &client,
		config: config,
	}, nil
}

// Generate submits one chat completion through the OpenRouter gateway and
// validates the response against the declared record schema.
func (p *Provider) Generate(ctx context.Context, req *provider.Request) (schema.Record, error) {
	response, err := p.client.Chat.Completions.New(ctx, openaiprov.BuildParams(req, p.config.MaxTokens))
	if err != nil {
		return nil, openaiprov.Classify(ctx, err)
	}

	if len(response.Choices) == 0 {
		return nil, provider.NewProviderError(fmt.Errorf("no choices in response"))
	}

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
