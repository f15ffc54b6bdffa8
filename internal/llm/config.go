// Package llm provides generation and embedding clients for the summarization pipeline.
// Gemini (via the genai SDK) and a local Ollama server are supported.
package llm

import "time"

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for short per-item summaries
	TierLite ModelTier = "lite"
	// TierStandard is for per-article bullet extraction (map stage)
	TierStandard ModelTier = "standard"
	// TierAdvanced is for briefing synthesis (reduce stage)
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderOllama is a local Ollama server
	ProviderOllama Provider = "ollama"
)

// Default timeouts for dependency calls.
const (
	DefaultGenerateTimeout = 120 * time.Second
	DefaultEmbedTimeout    = 60 * time.Second
)

// Config holds the model configuration for the application
type Config struct {
	Provider   Provider
	Models     map[ModelTier]string
	EmbedModel string
	// BaseURL is the Ollama server address; unused for Gemini
	BaseURL         string
	Temperature     float32
	GenerateTimeout time.Duration
	EmbedTimeout    time.Duration
}

// DefaultConfig returns the default configuration (a local Ollama server)
func DefaultConfig() *Config {
	return DefaultOllamaConfig()
}

// DefaultOllamaConfig returns the default Ollama configuration
func DefaultOllamaConfig() *Config {
	return &Config{
		Provider: ProviderOllama,
		Models: map[ModelTier]string{
			TierLite:     "mistral:latest",
			TierStandard: "mistral:latest",
			TierAdvanced: "mistral:latest",
		},
		EmbedModel:      "nomic-embed-text:latest",
		BaseURL:         "http://localhost:11434",
		Temperature:     0.7,
		GenerateTimeout: DefaultGenerateTimeout,
		EmbedTimeout:    DefaultEmbedTimeout,
	}
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-flash",
		},
		EmbedModel:      "text-embedding-004",
		Temperature:     0.7,
		GenerateTimeout: DefaultGenerateTimeout,
		EmbedTimeout:    DefaultEmbedTimeout,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return "" // No model configured
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return &newConfig
}

// WithAllModels returns a new Config using model for every tier
func (c *Config) WithAllModels(model string) *Config {
	out := c.WithModel(TierLite, model)
	out.Models[TierStandard] = model
	out.Models[TierAdvanced] = model
	return out
}
