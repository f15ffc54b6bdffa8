package llm

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOllama(t *testing.T, handler http.HandlerFunc) *OllamaClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultOllamaConfig()
	config.BaseURL = server.URL + "/"
	return NewOllamaClient(config)
}

func TestOllama_GenerateContent(t *testing.T) {
	client := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral:latest", req.Model)
		assert.False(t, req.Stream)
		assert.Empty(t, req.Format)
		assert.InDelta(t, 0.7, req.Options["temperature"], 1e-6)
		_, _ = w.Write([]byte(`{"response":"  - bullet one\n"}`))
	})

	text, err := client.GenerateContent(t.Context(), "summarize", TierStandard)
	require.NoError(t, err)
	assert.Equal(t, "- bullet one", text)
}

func TestOllama_GenerateJSON(t *testing.T) {
	client := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "json", req.Format)
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "```json\n{\"summary\":\"s\"}\n```"})
	})

	text, err := client.GenerateJSON(t.Context(), "reduce", TierAdvanced)
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"s"}`, text)
}

func TestOllama_GenerateFailure(t *testing.T) {
	client := newTestOllama(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.GenerateContent(t.Context(), "x", TierLite)
	var genErr *GenerationUnavailableError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, ProviderOllama, genErr.Provider)
	assert.True(t, errors.Is(err, ErrDependencyUnavailable))
}

func TestOllama_GenerateEmptyResponse(t *testing.T) {
	client := newTestOllama(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":"   "}`))
	})

	_, err := client.GenerateContent(t.Context(), "x", TierLite)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOllama_EmbedNative(t *testing.T) {
	client := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text:latest", req["model"])
		assert.Equal(t, "hello", req["prompt"])
		_, _ = w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	})

	vec, err := client.Embed(t.Context(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestOllama_EmbedFallsBackToCompatEndpoint(t *testing.T) {
	client := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/embeddings":
			w.WriteHeader(http.StatusNotFound)
		case "/v1/embeddings":
			var req struct {
				Model string   `json:"model"`
				Input []string `json:"input"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "nomic-embed-text:latest", req.Model)
			assert.Equal(t, []string{"hello"}, req.Input)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"object":"list","model":"nomic-embed-text:latest","data":[{"object":"embedding","index":0,"embedding":[1,0]}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	vec, err := client.Embed(t.Context(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
}

func TestOllama_EmbedCompatEmptyData(t *testing.T) {
	client := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/embeddings" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	})

	_, err := client.Embed(t.Context(), "hello")
	var embErr *EmbeddingUnavailableError
	require.ErrorAs(t, err, &embErr)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOllama_EmbedUnavailable(t *testing.T) {
	client := newTestOllama(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Embed(t.Context(), "hello")
	var embErr *EmbeddingUnavailableError
	require.ErrorAs(t, err, &embErr)
	assert.ErrorIs(t, err, ErrDependencyUnavailable)
}
