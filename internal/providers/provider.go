// Package providers fetches raw news articles from search APIs and RSS feeds.
package providers

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/newsbrief/internal/normalize"
	"github.com/jonathan/newsbrief/internal/types"
)

// Query carries the search parameters shared by every provider.
type Query struct {
	Text      string
	Lang      string
	Region    string
	Timeframe string // e.g. "7d", "24h"; empty means no recency filter
	Sort      string // "date" or "relevance"
}

// Normalized lower-cases the region and language, filling defaults.
func (q Query) Normalized(defaultRegion, defaultLang string) Query {
	q.Region = strings.ToLower(strings.TrimSpace(q.Region))
	if q.Region == "" {
		q.Region = defaultRegion
	}
	q.Lang = strings.ToLower(strings.TrimSpace(q.Lang))
	if q.Lang == "" {
		q.Lang = defaultLang
	}
	return q
}

// Provider is a source of raw articles.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]types.Article, error)
}

// Aggregator fans a query out to several providers.
type Aggregator struct {
	providers []Provider
}

// NewAggregator creates an aggregator over providers, queried in the given order.
func NewAggregator(providers ...Provider) *Aggregator {
	return &Aggregator{providers: providers}
}

// Fetch queries every provider in parallel. A failing provider contributes no
// articles. Results are concatenated in provider order and deduplicated.
func (a *Aggregator) Fetch(ctx context.Context, q Query) []types.Article {
	results := make([][]types.Article, len(a.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range a.providers {
		g.Go(func() error {
			articles, err := p.Fetch(gctx, q)
			if err != nil {
				slog.Warn("provider fetch failed", "provider", p.Name(), "query", q.Text, "err", err)
				return nil
			}
			slog.Debug("provider fetched", "provider", p.Name(), "count", len(articles))
			results[i] = articles
			return nil
		})
	}
	_ = g.Wait()

	var combined []types.Article
	for _, r := range results {
		combined = append(combined, r...)
	}
	return normalize.Dedupe(combined)
}

// keepComplete drops articles missing a title or link.
func keepComplete(articles []types.Article) []types.Article {
	out := articles[:0]
	for _, a := range articles {
		if strings.TrimSpace(a.Title) != "" && strings.TrimSpace(a.Link) != "" {
			out = append(out, a)
		}
	}
	return out
}
