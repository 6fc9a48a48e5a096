package ai

import (
	"errors"

	"github.com/doclave/doclave/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Embedding EmbeddingConfig
	Chat      ChatConfig
	Reranker  RerankerConfig
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Model      string // text-embedding-3-small
	Dimensions int    // 1536
	APIKey     string
	BaseURL    string

	// RequestsPerSecond caps outbound embedding calls. Zero disables
	// throttling.
	RequestsPerSecond float64

	// Usage receives token counts from provider responses.
	Usage UsageRecorder
}

// ChatConfig represents chat completion configuration.
type ChatConfig struct {
	Model       string // gpt-4o-mini
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.0

	// Usage receives token counts from provider responses.
	Usage UsageRecorder
}

// RerankerConfig represents search re-ranking configuration. Disabled
// unless a model is set.
type RerankerConfig struct {
	Enabled bool
	Model   string
	APIKey  string
	BaseURL string
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Model:      p.AIEmbedModel,
			Dimensions: p.AIDimensions,
			APIKey:     p.AIAPIKey,
			BaseURL:    p.AIBaseURL,
		},
		Chat: ChatConfig{
			Model:       p.AIChatModel,
			APIKey:      p.AIAPIKey,
			BaseURL:     p.AIBaseURL,
			MaxTokens:   2048,
			Temperature: 0.0,
		},
		Reranker: RerankerConfig{
			Enabled: p.AIRerankModel != "",
			Model:   p.AIRerankModel,
			APIKey:  p.AIAPIKey,
			BaseURL: p.AIBaseURL,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Embedding.Model == "" {
		return errors.New("embedding model is required")
	}
	if c.Embedding.APIKey == "" {
		return errors.New("embedding API key is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return errors.New("embedding dimensions must be positive")
	}
	return nil
}
