// Package ingestion turns article URLs into clean full text and detects its language.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonathan/newsbrief/internal/fetch"
	"github.com/jonathan/newsbrief/internal/normalize"
)

var (
	// ErrHTTPRequestFailed is returned when the page could not be fetched
	ErrHTTPRequestFailed = errors.New("HTTP request failed")
	// ErrContentExtractionFailed is returned when no text could be extracted
	ErrContentExtractionFailed = errors.New("content extraction failed")
)

// Extractor returns the main text of an article page. It never fails; an
// unreachable or empty page yields "".
type Extractor interface {
	ExtractFullText(ctx context.Context, url string) string
}

// DefaultCacheTTL is how long an extraction stays cached.
const DefaultCacheTTL = time.Hour

// RenderFunc renders a page and returns its HTML.
type RenderFunc func(ctx context.Context, url string, timeout time.Duration) (string, error)

// Options configures an HTTPExtractor.
type Options struct {
	Fetch          *fetch.Options
	UseBrowser     bool
	BrowserTimeout time.Duration
	// CacheTTL of zero disables caching
	CacheTTL time.Duration
}

// DefaultOptions returns extraction defaults: 15s fetch, no browser, one hour cache.
func DefaultOptions() Options {
	return Options{
		Fetch:          fetch.DefaultOptions(),
		BrowserTimeout: fetch.DefaultBrowserTimeout,
		CacheTTL:       DefaultCacheTTL,
	}
}

// Extraction is the result of a successful Extract.
type Extraction struct {
	Text     string
	Metadata *Metadata
}

type cacheEntry struct {
	text    string
	expires time.Time
}

// HTTPExtractor fetches pages over HTTP with an optional headless-browser fallback.
type HTTPExtractor struct {
	opts   Options
	render RenderFunc
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewHTTPExtractor creates an extractor.
func NewHTTPExtractor(opts Options) *HTTPExtractor {
	if opts.Fetch == nil {
		opts.Fetch = fetch.DefaultOptions()
	}
	if opts.BrowserTimeout <= 0 {
		opts.BrowserTimeout = fetch.DefaultBrowserTimeout
	}
	return &HTTPExtractor{
		opts:   opts,
		render: fetch.WithBrowser,
		now:    time.Now,
		cache:  make(map[string]cacheEntry),
	}
}

// ExtractFullText implements Extractor.
func (e *HTTPExtractor) ExtractFullText(ctx context.Context, url string) string {
	key := normalize.Key(url)
	if text, ok := e.cached(key); ok {
		return text
	}

	result, err := e.Extract(ctx, url)
	if err != nil {
		slog.Debug("full text extraction failed", "url", url, "err", err)
		return ""
	}

	e.store(key, result.Text)
	return result.Text
}

// Extract fetches url and returns its cleaned main text with metadata.
func (e *HTTPExtractor) Extract(ctx context.Context, url string) (*Extraction, error) {
	publisher := fetch.DetectPublisher(url)
	contentSelectors := fetch.PublisherContentSelectors(publisher)
	noiseSelectors := fetch.PublisherNoiseSelectors(publisher)

	result, err := fetch.URL(ctx, url, e.opts.Fetch)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHTTPRequestFailed, err)
	}

	text, err := fetch.ExtractMainText(result.HTML, contentSelectors, noiseSelectors...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContentExtractionFailed, err)
	}

	usedBrowser := false
	if e.opts.UseBrowser && fetch.ShouldUseBrowser(text) {
		slog.Debug("content too short, rendering with browser", "url", url, "chars", len(text))
		html, renderErr := e.render(ctx, url, e.opts.BrowserTimeout)
		if renderErr != nil {
			slog.Debug("browser rendering failed, keeping HTTP content", "url", url, "err", renderErr)
		} else if rendered, extractErr := fetch.ExtractMainText(html, contentSelectors, noiseSelectors...); extractErr == nil {
			text = rendered
			usedBrowser = true
		}
	}

	cleaned := CleanText(text)
	meta := NewMetadata(cleaned, url)
	meta.Publisher = string(publisher)
	meta.UsedBrowser = usedBrowser

	return &Extraction{Text: cleaned, Metadata: meta}, nil
}

func (e *HTTPExtractor) cached(key string) (string, bool) {
	if e.opts.CacheTTL <= 0 {
		return "", false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.cache[key]
	if !ok {
		return "", false
	}
	if e.now().After(entry.expires) {
		delete(e.cache, key)
		return "", false
	}
	return entry.text, true
}

// store caches non-empty text only so transient failures are retried.
func (e *HTTPExtractor) store(key, text string) {
	if e.opts.CacheTTL <= 0 || text == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache[key] = cacheEntry{text: text, expires: e.now().Add(e.opts.CacheTTL)}
}
