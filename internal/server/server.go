// Package server provides the HTTP API for news search, briefings and moderation.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jonathan/newsbrief/internal/pipeline"
	"github.com/jonathan/newsbrief/internal/safety"
	"github.com/jonathan/newsbrief/internal/server/middleware"
	"github.com/jonathan/newsbrief/internal/server/ratelimit"
	"github.com/jonathan/newsbrief/internal/types"
)

// NewsService answers news and batch summary requests.
type NewsService interface {
	GetNews(ctx context.Context, req pipeline.NewsRequest) (*pipeline.NewsResponse, error)
	SummarizeBatch(ctx context.Context, items []types.Article) map[string]string
}

// Moderator classifies free text.
type Moderator interface {
	Moderate(ctx context.Context, text string) safety.Result
}

// Config holds server configuration
type Config struct {
	Port int
	// RateLimit nil loads the RATE_LIMIT_* environment configuration
	RateLimit *ratelimit.Config
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	news        NewsService
	moderator   Moderator
	rateLimiter *ratelimit.Limiter
}

// New creates a new server instance
func New(cfg Config, news NewsService, moderator Moderator) *Server {
	rlConfig := cfg.RateLimit
	if rlConfig == nil {
		rlConfig = ratelimit.LoadConfig()
	}

	s := &Server{
		news:        news,
		moderator:   moderator,
		rateLimiter: ratelimit.NewLimiter(rlConfig),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // briefings wait on generation
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Routes builds the router with its middleware chain.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS)
	r.Use(middleware.RateLimit(s.rateLimiter, s.rateLimitResponse))

	r.Get("/health", s.handleHealth)
	r.Get("/news", s.handleNews)
	r.Get("/get_news", s.handleNews)
	r.Get("/news/stream", s.handleNewsStream)
	r.Post("/summarize_batch", s.handleSummarizeBatch)
	r.Post("/moderate", s.handleModerate)

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.rateLimiter.Stop()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// Close releases background resources without serving.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding JSON response", "err", err)
	}
}

// errorResponse writes err with the status HTTPStatus maps it to
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "err", err)
	}
	s.jsonResponse(w, status, errorBody(err))
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}
	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds() + 0.999)
	}
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
