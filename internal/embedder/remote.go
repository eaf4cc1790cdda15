package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mhollis/knowbase/pkg/types"
)

const (
	// DefaultBaseURL targets the OpenRouter OpenAI-compatible API.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultRemoteModel is the default remote embedding model.
	DefaultRemoteModel = "openai/text-embedding-3-small"

	// DefaultRemoteDimension is the dimensionality of the default model.
	DefaultRemoteDimension = 1536

	// DefaultTimeout bounds a single embedding API call.
	DefaultTimeout = 30 * time.Second

	// MaxBatchSize is the largest batch accepted per API call.
	MaxBatchSize = 100
)

// RemoteConfig configures a RemoteProvider.
type RemoteConfig struct {
	BaseURL   string        // OpenAI-compatible endpoint base; DefaultBaseURL if empty
	APIKey    string        // caller-supplied credential, required
	Model     string        // DefaultRemoteModel if empty
	Dimension int           // DefaultRemoteDimension if zero
	Timeout   time.Duration // DefaultTimeout if zero
}

// RemoteProvider implements Embedder against an OpenAI-compatible
// embeddings API. Transport failures and non-success responses are
// reported as types.ErrEmbeddingProvider; the provider never retries.
// Retry policy belongs to the calling orchestration layer.
type RemoteProvider struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
	cache      *Cache
}

// NewRemoteProvider creates a remote embedder.
func NewRemoteProvider(cfg RemoteConfig, cache *Cache) (*RemoteProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is required", types.ErrConfiguration)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultRemoteModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultRemoteDimension
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &RemoteProvider{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache: cache,
	}, nil
}

func (r *RemoteProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if r.cache != nil {
		if v, ok := r.cache.Get(ComputeHash(text)); ok {
			return v, nil
		}
	}

	// Single-item embedding goes through the batch path for consistency.
	vectors, err := r.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", types.ErrEmbeddingProvider)
	}
	return vectors[0], nil
}

func (r *RemoteProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: batch of %d exceeds max %d", types.ErrConfiguration, len(texts), MaxBatchSize)
	}

	vectors, err := r.callAPI(ctx, texts)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		for i, v := range vectors {
			r.cache.Set(ComputeHash(texts[i]), v)
		}
	}

	return vectors, nil
}

func (r *RemoteProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"model": r.model,
		"input": texts,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: api call: %v", types.ErrEmbeddingProvider, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: api error %d: %s", types.ErrEmbeddingProvider, resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", types.ErrEmbeddingProvider, err)
	}

	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", types.ErrEmbeddingProvider, len(apiResp.Data), len(texts))
	}

	vectors := make([][]float32, len(apiResp.Data))
	for i, data := range apiResp.Data {
		vectors[i] = data.Embedding
	}
	return vectors, nil
}

func (r *RemoteProvider) Dimension() int {
	return r.dimension
}

func (r *RemoteProvider) Provider() string {
	return ProviderRemote
}

func (r *RemoteProvider) Model() string {
	return r.model
}

func (r *RemoteProvider) Close() error {
	r.httpClient.CloseIdleConnections()
	return nil
}
