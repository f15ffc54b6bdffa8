package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OllamaClient implements Client and Embedder against an Ollama server.
// Native /api endpoints are called directly; the OpenAI-compatible /v1 API
// goes through go-openai.
type OllamaClient struct {
	baseURL    string
	config     *Config
	httpClient *http.Client
	compat     *openai.Client
}

// NewOllamaClient creates a client for config.BaseURL.
func NewOllamaClient(config *Config) *OllamaClient {
	if config == nil {
		config = DefaultOllamaConfig()
	}
	baseURL := strings.TrimRight(config.BaseURL, "/")
	httpClient := &http.Client{}

	// Ollama ignores the bearer token, so the key stays empty
	compatConfig := openai.DefaultConfig("")
	compatConfig.BaseURL = baseURL + "/v1"
	compatConfig.HTTPClient = httpClient

	return &OllamaClient{
		baseURL:    baseURL,
		config:     config,
		httpClient: httpClient,
		compat:     openai.NewClientWithConfig(compatConfig),
	}
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

// statusError is returned for non-2xx responses.
type statusError struct {
	URL    string
	Status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: HTTP status %d", e.URL, e.Status)
}

// GenerateContent generates text content using the specified model tier
func (c *OllamaClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.generate(ctx, prompt, tier, "")
}

// GenerateJSON generates JSON content using the specified model tier
func (c *OllamaClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	text, err := c.generate(ctx, prompt, tier, "json")
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

func (c *OllamaClient) generate(ctx context.Context, prompt string, tier ModelTier, format string) (string, error) {
	model := c.config.GetModel(tier)
	ctx, cancel := withTimeout(ctx, c.config.GenerateTimeout)
	defer cancel()

	req := ollamaGenerateRequest{
		Model:   model,
		Prompt:  prompt,
		Stream:  false,
		Format:  format,
		Options: map[string]any{"temperature": c.config.Temperature},
	}

	var resp ollamaGenerateResponse
	if err := c.postJSON(ctx, "/api/generate", req, &resp); err != nil {
		return "", &GenerationUnavailableError{Provider: ProviderOllama, Model: model, Cause: err}
	}

	text := strings.TrimSpace(resp.Response)
	if text == "" {
		return "", &GenerationUnavailableError{Provider: ProviderOllama, Model: model, Cause: ErrEmptyResponse}
	}
	return text, nil
}

// Embed implements Embedder. The native /api/embeddings endpoint is tried first,
// then the OpenAI-compatible /v1/embeddings endpoint.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := withTimeout(ctx, c.config.EmbedTimeout)
	defer cancel()

	vec, nativeErr := c.embedNative(ctx, text)
	if nativeErr == nil {
		return vec, nil
	}

	vec, compatErr := c.embedCompat(ctx, text)
	if compatErr == nil {
		return vec, nil
	}

	return nil, &EmbeddingUnavailableError{
		Provider: ProviderOllama,
		Model:    c.config.EmbedModel,
		Cause:    errors.Join(nativeErr, compatErr),
	}
}

func (c *OllamaClient) embedNative(ctx context.Context, text string) ([]float32, error) {
	req := map[string]string{"model": c.config.EmbedModel, "prompt": text}
	var resp struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := c.postJSON(ctx, "/api/embeddings", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp.Embedding, nil
}

func (c *OllamaClient) embedCompat(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.compat.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.config.EmbedModel),
	})
	if err != nil {
		return nil, fmt.Errorf("openai-compatible embeddings failed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp.Data[0].Embedding, nil
}

func (c *OllamaClient) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &statusError{URL: url, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}

// GetModel returns the model name for a tier
func (c *OllamaClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op; the HTTP client holds no dedicated resources.
func (c *OllamaClient) Close() error {
	return nil
}
