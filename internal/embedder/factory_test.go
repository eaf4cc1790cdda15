package embedder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhollis/knowbase/pkg/types"
)

func TestNewFromEnv_DefaultsToHash(t *testing.T) {
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvOpenRouterKey, "")
	t.Setenv(EnvOpenAIKey, "")

	emb, err := NewFromEnv()
	require.NoError(t, err)
	defer func() { _ = emb.Close() }()

	assert.Equal(t, ProviderHash, emb.Provider())
	assert.Equal(t, DefaultHashDimension, emb.Dimension())
}

func TestNewFromEnv_AutoDetectsRemote(t *testing.T) {
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvOpenRouterKey, "or-test-key")
	t.Setenv(EnvOpenAIKey, "")

	emb, err := NewFromEnv()
	require.NoError(t, err)
	defer func() { _ = emb.Close() }()

	assert.Equal(t, ProviderRemote, emb.Provider())
}

func TestNewFromEnv_ExplicitHashWinsOverKey(t *testing.T) {
	t.Setenv(EnvProvider, "hash")
	t.Setenv(EnvOpenRouterKey, "or-test-key")

	emb, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderHash, emb.Provider())
}

func TestNewFromEnv_UnknownProvider(t *testing.T) {
	t.Setenv(EnvProvider, "quantum")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}

func TestNew_ExplicitConfig(t *testing.T) {
	emb, err := New(Config{Provider: "hash", Dimension: 64, CacheSize: 16})
	require.NoError(t, err)
	assert.Equal(t, 64, emb.Dimension())

	_, err = New(Config{Provider: "remote"})
	require.Error(t, err, "remote without API key must fail")
}

func TestDetectProvider(t *testing.T) {
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvOpenRouterKey, "")
	t.Setenv(EnvOpenAIKey, "")
	assert.Equal(t, ProviderHash, DetectProvider())

	t.Setenv(EnvOpenAIKey, "sk-test")
	assert.Equal(t, ProviderRemote, DetectProvider())

	t.Setenv(EnvProvider, "hash")
	assert.Equal(t, ProviderHash, DetectProvider())
}
