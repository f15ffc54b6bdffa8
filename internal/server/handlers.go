package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/jonathan/newsbrief/internal/pipeline"
	"github.com/jonathan/newsbrief/internal/safety"
	"github.com/jonathan/newsbrief/internal/schemas"
	"github.com/jonathan/newsbrief/internal/types"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

// SummarizeBatchRequest is the body of POST /summarize_batch
type SummarizeBatchRequest struct {
	Items []types.Article `json:"items"`
}

// SummarizeBatchResponse maps each item link to its summary
type SummarizeBatchResponse struct {
	Summaries map[string]string `json:"summaries"`
}

// ModerateRequest is the body of POST /moderate
type ModerateRequest struct {
	Text string `json:"text"`
}

// ModerateResponse is the moderation verdict plus the redacted text
type ModerateResponse struct {
	safety.Result
	Redacted string `json:"redacted"`
}

// parseNewsRequest reads the /news query parameters.
func parseNewsRequest(r *http.Request) (pipeline.NewsRequest, error) {
	q := r.URL.Query()

	req := pipeline.NewsRequest{
		FetchOptions: pipeline.FetchOptions{
			Query:     strings.TrimSpace(q.Get("query")),
			Lang:      q.Get("lang"),
			Region:    q.Get("region"),
			Timeframe: q.Get("timeframe"),
			Sort:      q.Get("sort"),
		},
		Prefs:     q.Get("prefs"),
		Summarize: true,
	}
	if req.Query == "" {
		return req, &ErrValidation{Field: "query", Message: "is required"}
	}

	if v := q.Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 0 {
			return req, &ErrValidation{Field: "user_id", Message: "must be a non-negative integer"}
		}
		req.UserID = id
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return req, &ErrValidation{Field: "limit", Message: "must be a positive integer"}
		}
		req.Limit = n
	}
	if v := q.Get("summarize"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, &ErrValidation{Field: "summarize", Message: "must be a boolean"}
		}
		req.Summarize = b
	}
	return req, nil
}

// handleNews returns ranked articles and a briefing
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	req, err := parseNewsRequest(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	resp, err := s.news.GetNews(r.Context(), req)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if resp.Articles == nil {
		resp.Articles = []types.Article{}
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

// handleNewsStream is handleNews with progress events streamed over SSE
func (s *Server) handleNewsStream(w http.ResponseWriter, r *http.Request) {
	req, err := parseNewsRequest(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	req.OnProgress = func(event pipeline.ProgressEvent) {
		sse.WriteEvent("progress", event) //nolint:errcheck
	}

	resp, err := s.news.GetNews(r.Context(), req)
	if err != nil {
		sse.WriteError(err)
		return
	}
	if resp.Articles == nil {
		resp.Articles = []types.Article{}
	}
	sse.WriteEvent("complete", resp) //nolint:errcheck
}

// handleSummarizeBatch summarizes each linked item
func (s *Server) handleSummarizeBatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.errorResponse(w, &ErrValidation{Field: "body", Message: err.Error()})
		return
	}

	var req SummarizeBatchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.errorResponse(w, &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()})
		return
	}
	if err := schemas.ValidateArticleBatch(body); err != nil {
		s.errorResponse(w, err)
		return
	}

	summaries := s.news.SummarizeBatch(r.Context(), req.Items)
	if summaries == nil {
		summaries = map[string]string{}
	}
	s.jsonResponse(w, http.StatusOK, SummarizeBatchResponse{Summaries: summaries})
}

// handleModerate classifies text and returns it redacted
func (s *Server) handleModerate(w http.ResponseWriter, r *http.Request) {
	var req ModerateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.errorResponse(w, &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()})
		return
	}

	res := s.moderator.Moderate(r.Context(), req.Text)
	s.jsonResponse(w, http.StatusOK, ModerateResponse{
		Result:   res,
		Redacted: safety.Redact(req.Text),
	})
}
