package embedder

import (
	"fmt"
	"os"
	"strings"

	"github.com/mhollis/knowbase/pkg/types"
)

// Environment variables consulted by NewFromEnv.
const (
	EnvProvider      = "KNOWBASE_EMBEDDING_PROVIDER"
	EnvBaseURL       = "KNOWBASE_EMBEDDING_BASE_URL"
	EnvModel         = "KNOWBASE_EMBEDDING_MODEL"
	EnvOpenRouterKey = "OPENROUTER_API_KEY"
	EnvOpenAIKey     = "OPENAI_API_KEY"
)

// Config holds explicit embedder configuration.
type Config struct {
	Provider  string
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	CacheSize int
}

// NewFromEnv creates an embedder based on environment variables.
// Priority:
//  1. KNOWBASE_EMBEDDING_PROVIDER (remote, hash)
//  2. OPENROUTER_API_KEY or OPENAI_API_KEY present -> remote
//  3. Otherwise the deterministic hash fallback, so the system works with
//     no credentials and no network access.
func NewFromEnv() (Embedder, error) {
	cache := NewCache(10000)

	apiKey := os.Getenv(EnvOpenRouterKey)
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIKey)
	}

	provider := strings.ToLower(os.Getenv(EnvProvider))
	switch provider {
	case ProviderRemote:
		return NewRemoteProvider(RemoteConfig{
			BaseURL: os.Getenv(EnvBaseURL),
			APIKey:  apiKey,
			Model:   os.Getenv(EnvModel),
		}, cache)
	case ProviderHash:
		return NewHashProvider(DefaultHashDimension, cache), nil
	case "":
		// Auto-detect below.
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", types.ErrConfiguration, provider)
	}

	if apiKey != "" {
		return NewRemoteProvider(RemoteConfig{
			BaseURL: os.Getenv(EnvBaseURL),
			APIKey:  apiKey,
			Model:   os.Getenv(EnvModel),
		}, cache)
	}

	return NewHashProvider(DefaultHashDimension, cache), nil
}

// New creates an embedder with explicit configuration.
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderRemote:
		return NewRemoteProvider(RemoteConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		}, cache)
	case ProviderHash:
		return NewHashProvider(cfg.Dimension, cache), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", types.ErrConfiguration, cfg.Provider)
	}
}

// DetectProvider returns the provider NewFromEnv would select.
func DetectProvider() string {
	if provider := strings.ToLower(os.Getenv(EnvProvider)); provider != "" {
		return provider
	}
	if os.Getenv(EnvOpenRouterKey) != "" || os.Getenv(EnvOpenAIKey) != "" {
		return ProviderRemote
	}
	return ProviderHash
}
