package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mhollis/knowbase/pkg/types"
)

// Environment variables read by NewFromEnv.
const (
	EnvModel   = "KNOWBASE_LLM_MODEL"
	EnvBaseURL = "KNOWBASE_LLM_BASE_URL"
)

const (
	// DefaultBaseURL targets OpenRouter's OpenAI-compatible API.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultModel lets OpenRouter route to an appropriate model.
	DefaultModel = "openrouter/auto"

	// DefaultTimeout bounds a single chat-completion request.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxTokens caps answer length.
	DefaultMaxTokens = 1000

	// DefaultTemperature is the sampling temperature for answers.
	DefaultTemperature = 0.7
)

// Backend generates text from a system instruction and a user message.
// Implementations do not retry; callers own retry policy.
type Backend interface {
	Generate(ctx context.Context, system, user string) (string, error)
	Model() string
}

// Config configures the OpenAI-compatible backend.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// OpenAIBackend implements Backend against any OpenAI-compatible
// chat-completions API.
type OpenAIBackend struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// New creates an OpenAI-compatible backend. An API key is required.
func New(cfg Config) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: generation backend requires an API key", types.ErrConfiguration)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIBackend{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// NewFromEnv builds a backend from environment variables, or returns nil
// when no credential is present so callers can run retrieval-only.
func NewFromEnv() (*OpenAIBackend, error) {
	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, nil
	}
	return New(Config{
		BaseURL: os.Getenv(EnvBaseURL),
		APIKey:  apiKey,
		Model:   os.Getenv(EnvModel),
	})
}

// Generate sends one chat-completion request and returns the first choice.
func (b *OpenAIBackend) Generate(ctx context.Context, system, user string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   b.maxTokens,
		Temperature: DefaultTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrGenerationBackend, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", types.ErrGenerationBackend)
	}
	return resp.Choices[0].Message.Content, nil
}

// Model returns the configured model identifier.
func (b *OpenAIBackend) Model() string {
	return b.model
}
