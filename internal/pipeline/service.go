// Package pipeline orchestrates news retrieval, ranking and briefing generation.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonathan/newsbrief/internal/providers"
	"github.com/jonathan/newsbrief/internal/safety"
	"github.com/jonathan/newsbrief/internal/types"
)

// Progress steps reported to a ProgressCallback.
const (
	StepSafety    = "safety"
	StepFetch     = "fetch"
	StepRank      = "rank"
	StepSummarize = "summarize"
)

// Request defaults.
const (
	DefaultLimit     = 50
	DefaultTimeframe = "7d"
	DefaultSort      = "date"
	highlightCount   = 5
)

// ProgressEvent represents a progress update during a request
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Fetcher returns raw articles for a query.
type Fetcher interface {
	Fetch(ctx context.Context, q providers.Query) []types.Article
}

// Ranker orders articles by relevance.
type Ranker interface {
	Rank(ctx context.Context, query string, articles []types.Article, useEmbeddings bool) []types.Article
}

// Briefer produces briefings and per-article summaries.
type Briefer interface {
	Generate(ctx context.Context, articles []types.Article, prefs, query string, userID int64) types.Briefing
	SummarizeBatch(ctx context.Context, items []types.Article) map[string]string
}

// FetchOptions are the parameters of a news search.
type FetchOptions struct {
	Query     string
	Lang      string
	Region    string
	Timeframe string
	Sort      string
	Limit     int

	// OnProgress, when set, receives an event after each stage
	OnProgress ProgressCallback
}

// NewsRequest is a search plus briefing request.
type NewsRequest struct {
	FetchOptions
	UserID    int64
	Prefs     string
	Summarize bool
}

// NewsResponse holds ranked articles and their briefing.
type NewsResponse struct {
	Articles []types.Article `json:"articles"`
	Summary  types.Briefing  `json:"summary"`
}

// Config holds service defaults.
type Config struct {
	DefaultRegion string
	DefaultLang   string
}

// Service answers news requests.
type Service struct {
	gate    *safety.Gate
	fetcher Fetcher
	ranker  Ranker
	briefer Briefer
	config  Config
}

// NewService wires a service. A nil briefer disables summarization.
func NewService(gate *safety.Gate, fetcher Fetcher, ranker Ranker, briefer Briefer, config Config) *Service {
	if config.DefaultRegion == "" {
		config.DefaultRegion = providers.DefaultRegion
	}
	if config.DefaultLang == "" {
		config.DefaultLang = "en"
	}
	return &Service{
		gate:    gate,
		fetcher: fetcher,
		ranker:  ranker,
		briefer: briefer,
		config:  config,
	}
}

func emit(cb ProgressCallback, step, message string, count int, content any) {
	if cb != nil {
		cb(ProgressEvent{Step: step, Message: message, Count: count, Content: content})
	}
}

// withDefaults fills unset request fields.
func (s *Service) withDefaults(opts FetchOptions) FetchOptions {
	opts.Query = strings.TrimSpace(opts.Query)
	if opts.Region == "" {
		opts.Region = s.config.DefaultRegion
	}
	if opts.Lang == "" {
		opts.Lang = s.config.DefaultLang
	}
	if opts.Timeframe == "" {
		opts.Timeframe = DefaultTimeframe
	}
	if opts.Sort == "" {
		opts.Sort = DefaultSort
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	return opts
}

// FetchNews checks the query for safety, gathers articles from all providers,
// deduplicates and ranks them, and returns at most Limit articles.
// An unsafe query returns *safety.UnsafeContentError.
func (s *Service) FetchNews(ctx context.Context, opts FetchOptions) ([]types.Article, error) {
	opts = s.withDefaults(opts)

	if s.gate != nil {
		if err := s.gate.CheckQuery(ctx, opts.Query); err != nil {
			return nil, err
		}
	}
	emit(opts.OnProgress, StepSafety, "query passed content safety", 0, nil)

	q := providers.Query{
		Text:      opts.Query,
		Lang:      opts.Lang,
		Region:    opts.Region,
		Timeframe: opts.Timeframe,
		Sort:      opts.Sort,
	}
	articles := s.fetcher.Fetch(ctx, q)
	emit(opts.OnProgress, StepFetch, fmt.Sprintf("fetched %d articles", len(articles)), len(articles), nil)

	ranked := s.ranker.Rank(ctx, opts.Query, articles, true)
	if len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}
	emit(opts.OnProgress, StepRank, fmt.Sprintf("ranked %d articles", len(ranked)), len(ranked), nil)

	return ranked, nil
}

// GetNews runs FetchNews and attaches a briefing. Without a briefer, or when no
// articles were found, the briefing lists the top headlines.
func (s *Service) GetNews(ctx context.Context, req NewsRequest) (*NewsResponse, error) {
	opts := s.withDefaults(req.FetchOptions)

	articles, err := s.FetchNews(ctx, opts)
	if err != nil {
		return nil, err
	}

	fallback := DefaultBriefing(opts.Query, articles)
	briefing := fallback
	if req.Summarize && s.briefer != nil && len(articles) > 0 {
		briefing = fillBriefing(s.briefer.Generate(ctx, articles, req.Prefs, opts.Query, req.UserID), fallback)
		emit(opts.OnProgress, StepSummarize, "generated briefing", len(briefing.Top), briefing)
	}

	briefing.Summary += fmt.Sprintf(" (region=%s, lang=%s, timeframe=%s, sort=%s)",
		opts.Region, opts.Lang, opts.Timeframe, opts.Sort)

	return &NewsResponse{Articles: articles, Summary: briefing}, nil
}

// SummarizeBatch summarizes items that carry a link. Without a briefer each
// summary is the item's snippet or title.
func (s *Service) SummarizeBatch(ctx context.Context, items []types.Article) map[string]string {
	var linked []types.Article
	for _, it := range items {
		if strings.TrimSpace(it.Link) != "" {
			linked = append(linked, it)
		}
	}
	if len(linked) == 0 {
		return map[string]string{}
	}

	if s.briefer == nil {
		slog.Debug("no summarizer configured, using snippets")
		out := make(map[string]string, len(linked))
		for _, it := range linked {
			out[it.Link] = firstNonEmpty(it.Snippet, it.Title)
		}
		return out
	}
	return s.briefer.SummarizeBatch(ctx, linked)
}

// DefaultBriefing lists the first headlines of articles.
func DefaultBriefing(query string, articles []types.Article) types.Briefing {
	n := min(len(articles), highlightCount)
	b := types.Briefing{
		Summary:    fmt.Sprintf("%d articles found for '%s'.", len(articles), query),
		Highlights: make([]string, n),
		Top:        make([]types.TopItem, n),
	}
	for i := range n {
		b.Highlights[i] = articles[i].Title
		b.Top[i] = types.TopItem{Title: articles[i].Title, Link: articles[i].Link}
	}
	return b
}

// fillBriefing gives b the default summary when it has none. Empty highlight
// and top lists are kept as they are.
func fillBriefing(b, def types.Briefing) types.Briefing {
	if strings.TrimSpace(b.Summary) == "" {
		b.Summary = def.Summary
	}
	b.Normalize()
	return b
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
