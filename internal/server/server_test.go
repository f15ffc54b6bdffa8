package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/newsbrief/internal/llm"
	"github.com/jonathan/newsbrief/internal/pipeline"
	"github.com/jonathan/newsbrief/internal/safety"
	"github.com/jonathan/newsbrief/internal/server/ratelimit"
	"github.com/jonathan/newsbrief/internal/types"
)

type mockNews struct {
	mu       sync.Mutex
	resp     *pipeline.NewsResponse
	err      error
	lastReq  pipeline.NewsRequest
	batchIn  []types.Article
	batchOut map[string]string
}

func (m *mockNews) GetNews(_ context.Context, req pipeline.NewsRequest) (*pipeline.NewsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastReq = req
	if req.OnProgress != nil {
		req.OnProgress(pipeline.ProgressEvent{Step: pipeline.StepFetch, Message: "fetched 1 articles", Count: 1})
	}
	return m.resp, m.err
}

func (m *mockNews) SummarizeBatch(_ context.Context, items []types.Article) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchIn = items
	return m.batchOut
}

type mockModerator struct {
	result safety.Result
}

func (m *mockModerator) Moderate(_ context.Context, _ string) safety.Result {
	return m.result
}

func newTestServer(t *testing.T, news NewsService, moderator Moderator) http.Handler {
	t.Helper()
	s := New(Config{Port: 0, RateLimit: &ratelimit.Config{Enabled: false}}, news, moderator)
	t.Cleanup(s.Close)
	return s.Routes()
}

func doRequest(t *testing.T, h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func sampleResponse() *pipeline.NewsResponse {
	return &pipeline.NewsResponse{
		Articles: []types.Article{{Title: "Rally", Link: "https://example.com/rally"}},
		Summary: types.Briefing{
			Summary:    "1 articles found for 'markets'. (region=us, lang=en, timeframe=7d, sort=date)",
			Highlights: []string{"Rally"},
			Top:        []types.TopItem{{Title: "Rally", Link: "https://example.com/rally"}},
		},
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(t, &mockNews{}, &mockModerator{})

	w := doRequest(t, h, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestNewsEndpoint_Success(t *testing.T) {
	news := &mockNews{resp: sampleResponse()}
	h := newTestServer(t, news, &mockModerator{})

	w := doRequest(t, h, http.MethodGet, "/news?query=markets&user_id=7&prefs=short&region=gb&lang=en&timeframe=24h&sort=relevance&limit=10", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp pipeline.NewsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Articles, 1)
	assert.Equal(t, []string{"Rally"}, resp.Summary.Highlights)

	req := news.lastReq
	assert.Equal(t, "markets", req.Query)
	assert.Equal(t, int64(7), req.UserID)
	assert.Equal(t, "short", req.Prefs)
	assert.Equal(t, "gb", req.Region)
	assert.Equal(t, "24h", req.Timeframe)
	assert.Equal(t, "relevance", req.Sort)
	assert.Equal(t, 10, req.Limit)
	assert.True(t, req.Summarize)
	assert.Nil(t, req.OnProgress)
}

func TestNewsEndpoint_LegacyPath(t *testing.T) {
	h := newTestServer(t, &mockNews{resp: sampleResponse()}, &mockModerator{})

	w := doRequest(t, h, http.MethodGet, "/get_news?query=markets", "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewsEndpoint_BadParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
	}{
		{"missing query", "/news", "query"},
		{"blank query", "/news?query=%20%20", "query"},
		{"bad user id", "/news?query=x&user_id=abc", "user_id"},
		{"bad limit", "/news?query=x&limit=0", "limit"},
		{"bad summarize", "/news?query=x&summarize=maybe", "summarize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &mockNews{resp: sampleResponse()}, &mockModerator{})

			w := doRequest(t, h, http.MethodGet, tt.query, "")

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.field)
		})
	}
}

func TestNewsEndpoint_SummarizeFlag(t *testing.T) {
	news := &mockNews{resp: sampleResponse()}
	h := newTestServer(t, news, &mockModerator{})

	doRequest(t, h, http.MethodGet, "/news?query=x&summarize=false", "")

	assert.False(t, news.lastReq.Summarize)
}

func TestNewsEndpoint_Blocked(t *testing.T) {
	news := &mockNews{err: &safety.UnsafeContentError{
		Flags: map[string]bool{"adult": false, "hate": false, "violence": true},
	}}
	h := newTestServer(t, news, &mockModerator{})

	w := doRequest(t, h, http.MethodGet, "/news?query=gore", "")

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{
		"message": "Query blocked by content safety",
		"blocked": true,
		"flags": {"adult": false, "hate": false, "violence": true}
	}`, w.Body.String())
}

func TestNewsEndpoint_InternalError(t *testing.T) {
	h := newTestServer(t, &mockNews{err: errors.New("boom")}, &mockModerator{})

	w := doRequest(t, h, http.MethodGet, "/news?query=x", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "boom")
}

func TestNewsStream_EmitsProgressAndComplete(t *testing.T) {
	h := newTestServer(t, &mockNews{resp: sampleResponse()}, &mockModerator{})

	w := doRequest(t, h, http.MethodGet, "/news/stream?query=markets", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	progress := strings.Index(body, "event: progress")
	complete := strings.Index(body, "event: complete")
	require.GreaterOrEqual(t, progress, 0)
	require.Greater(t, complete, progress)
	assert.Contains(t, body, `"step":"fetch"`)
	assert.Contains(t, body, "https://example.com/rally")
}

func TestNewsStream_Error(t *testing.T) {
	h := newTestServer(t, &mockNews{err: &safety.UnsafeContentError{Flags: map[string]bool{"hate": true}}}, &mockModerator{})

	w := doRequest(t, h, http.MethodGet, "/news/stream?query=x", "")

	assert.Contains(t, w.Body.String(), "event: error")
	assert.Contains(t, w.Body.String(), `"blocked":true`)
}

func TestSummarizeBatchEndpoint(t *testing.T) {
	news := &mockNews{batchOut: map[string]string{"https://a.com/1": "Summary A"}}
	h := newTestServer(t, news, &mockModerator{})

	w := doRequest(t, h, http.MethodPost, "/summarize_batch",
		`{"items":[{"title":"A","link":"https://a.com/1","snippet":"s","source":null,"published_at":null}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"summaries":{"https://a.com/1":"Summary A"}}`, w.Body.String())
	require.Len(t, news.batchIn, 1)
	assert.Equal(t, "A", news.batchIn[0].Title)
}

func TestSummarizeBatchEndpoint_EmptyResult(t *testing.T) {
	h := newTestServer(t, &mockNews{}, &mockModerator{})

	w := doRequest(t, h, http.MethodPost, "/summarize_batch", `{"items":[]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"summaries":{}}`, w.Body.String())
}

func TestSummarizeBatchEndpoint_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"items": [`},
		{"missing items", `{}`},
		{"item without link", `{"items":[{"title":"A"}]}`},
		{"wrong type", `{"items":[{"title":1,"link":"https://a.com"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			news := &mockNews{}
			h := newTestServer(t, news, &mockModerator{})

			w := doRequest(t, h, http.MethodPost, "/summarize_batch", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Nil(t, news.batchIn)
		})
	}
}

func TestModerateEndpoint(t *testing.T) {
	mod := &mockModerator{result: safety.Result{
		Safe:   true,
		Scores: map[string]float64{"toxicity": 0.1},
		Flags:  map[string]bool{"adult": false, "hate": false, "violence": false},
	}}
	h := newTestServer(t, &mockNews{}, mod)

	w := doRequest(t, h, http.MethodPost, "/moderate", `{"text":"hello world"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["safe"])
	assert.Equal(t, "hello world", resp["redacted"])
	assert.Contains(t, resp, "scores")
	assert.Contains(t, resp, "flags")
}

func TestModerateEndpoint_BadBody(t *testing.T) {
	h := newTestServer(t, &mockNews{}, &mockModerator{})

	w := doRequest(t, h, http.MethodPost, "/moderate", `not json`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, &mockNews{}, &mockModerator{})

	w := doRequest(t, h, http.MethodOptions, "/news", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit_NewsTier(t *testing.T) {
	s := New(Config{RateLimit: &ratelimit.Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{{Path: "/news", Method: "GET", Limit: 2, Window: time.Hour, Burst: 2}},
	}}, &mockNews{resp: sampleResponse()}, &mockModerator{})
	t.Cleanup(s.Close)
	h := s.Routes()

	var codes []int
	for range 3 {
		codes = append(codes, doRequest(t, h, http.MethodGet, "/news?query=x", "").Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	w := doRequest(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unsafe", &safety.UnsafeContentError{}, http.StatusBadRequest},
		{"request validation", &ErrValidation{Field: "q"}, http.StatusBadRequest},
		{"article validation", &types.ValidationError{Field: "link"}, http.StatusBadRequest},
		{"wrapped unsafe", fmt.Errorf("fetch: %w", &safety.UnsafeContentError{}), http.StatusBadRequest},
		{"generation down", &llm.GenerationUnavailableError{Cause: errors.New("x")}, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestSSEWriter_Format(t *testing.T) {
	w := httptest.NewRecorder()
	sse, err := NewSSEWriter(w)
	require.NoError(t, err)

	require.NoError(t, sse.WriteEvent("progress", map[string]int{"count": 2}))

	assert.Equal(t, "event: progress\ndata: {\"count\":2}\n\n", w.Body.String())
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
}
