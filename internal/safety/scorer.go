package safety

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Scorer returns per-label toxicity scores for a text.
type Scorer interface {
	Score(ctx context.Context, text string) (map[string]float64, error)
}

// ScorerFactory builds a Scorer. It is called at most once per LazyScorer.
type ScorerFactory func() (Scorer, error)

// LazyScorer initializes a Scorer on first use. An initialization failure is
// cached for the lifetime of the LazyScorer and never retried.
type LazyScorer struct {
	once    sync.Once
	factory ScorerFactory
	scorer  Scorer
	err     error
}

// NewLazyScorer wraps factory in a once-only initializer.
func NewLazyScorer(factory ScorerFactory) *LazyScorer {
	return &LazyScorer{factory: factory}
}

// Get returns the scorer, initializing it on the first call.
func (l *LazyScorer) Get() (Scorer, error) {
	l.once.Do(func() {
		if l.factory == nil {
			l.err = ErrScorerNotConfigured
			return
		}
		l.scorer, l.err = l.factory()
		if l.err == nil && l.scorer == nil {
			l.err = ErrScorerNotConfigured
		}
	})
	return l.scorer, l.err
}

// DefaultScorerTimeout bounds a single scoring request.
const DefaultScorerTimeout = 10 * time.Second

// HTTPScorer calls a scoring service that accepts {"text": "..."} and
// answers with a flat JSON object of label scores.
type HTTPScorer struct {
	endpoint string
	client   *http.Client
}

// NewHTTPScorer creates a scorer for endpoint.
func NewHTTPScorer(endpoint string, timeout time.Duration) (*HTTPScorer, error) {
	if endpoint == "" {
		return nil, ErrScorerNotConfigured
	}
	if timeout <= 0 {
		timeout = DefaultScorerTimeout
	}
	return &HTTPScorer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// HTTPScorerFactory returns a factory suitable for NewLazyScorer.
func HTTPScorerFactory(endpoint string, timeout time.Duration) ScorerFactory {
	return func() (Scorer, error) {
		return NewHTTPScorer(endpoint, timeout)
	}
}

// Score implements Scorer.
func (s *HTTPScorer) Score(ctx context.Context, text string) (map[string]float64, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, &ScorerError{Message: "failed to encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ScorerError{Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &ScorerError{Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ScorerError{Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	var scores map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		return nil, &ScorerError{Message: "failed to decode scores", Cause: err}
	}
	return scores, nil
}
