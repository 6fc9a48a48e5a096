package ai

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doclave/doclave/internal/profile"
)

func TestNewConfigFromProfile(t *testing.T) {
	p := &profile.Profile{
		AIBaseURL:    "https://api.example.com/v1",
		AIAPIKey:     "sk-test",
		AIEmbedModel: "text-embedding-3-small",
		AIChatModel:  "gpt-4o-mini",
		AIDimensions: 1536,
	}

	cfg := NewConfigFromProfile(p)
	require.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	require.Equal(t, 1536, cfg.Embedding.Dimensions)
	require.Equal(t, "sk-test", cfg.Embedding.APIKey)
	require.Equal(t, "https://api.example.com/v1", cfg.Embedding.BaseURL)
	require.Equal(t, "gpt-4o-mini", cfg.Chat.Model)
	require.Equal(t, 2048, cfg.Chat.MaxTokens)
	require.False(t, cfg.Reranker.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestNewConfigFromProfileRerankerEnabled(t *testing.T) {
	p := &profile.Profile{
		AIAPIKey:      "sk-test",
		AIEmbedModel:  "text-embedding-3-small",
		AIRerankModel: "rerank-v1",
		AIDimensions:  1536,
	}

	cfg := NewConfigFromProfile(p)
	require.True(t, cfg.Reranker.Enabled)
	require.Equal(t, "rerank-v1", cfg.Reranker.Model)
	require.Equal(t, "sk-test", cfg.Reranker.APIKey)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing model",
			cfg:     Config{Embedding: EmbeddingConfig{APIKey: "k", Dimensions: 8}},
			wantErr: "embedding model is required",
		},
		{
			name:    "missing api key",
			cfg:     Config{Embedding: EmbeddingConfig{Model: "m", Dimensions: 8}},
			wantErr: "embedding API key is required",
		},
		{
			name:    "bad dimensions",
			cfg:     Config{Embedding: EmbeddingConfig{Model: "m", APIKey: "k"}},
			wantErr: "embedding dimensions must be positive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
