package providers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/newsbrief/internal/fetch"
	"github.com/jonathan/newsbrief/internal/normalize"
	"github.com/jonathan/newsbrief/internal/types"
)

// DefaultFeedTimeout bounds the fetch of a single feed.
const DefaultFeedTimeout = 20 * time.Second

// maxParallelFeeds limits concurrent feed downloads.
const maxParallelFeeds = 8

// RSSProvider matches a query against the entries of regional RSS feeds.
type RSSProvider struct {
	catalog *Catalog
	client  *http.Client
	timeout time.Duration
}

// NewRSSProvider creates a provider over catalog. A nil catalog uses the built-in list.
func NewRSSProvider(catalog *Catalog, timeout time.Duration) *RSSProvider {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if timeout <= 0 {
		timeout = DefaultFeedTimeout
	}
	return &RSSProvider{
		catalog: catalog,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Name implements Provider.
func (p *RSSProvider) Name() string { return "rss" }

// Fetch implements Provider. A feed that fails to download or parse is skipped.
func (p *RSSProvider) Fetch(ctx context.Context, q Query) ([]types.Article, error) {
	feeds := p.catalog.FeedsFor(q.Region)
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	results := make([][]types.Article, len(feeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFeeds)
	for i, feedURL := range feeds {
		g.Go(func() error {
			articles, err := p.fetchFeed(gctx, feedURL, needle)
			if err != nil {
				slog.Warn("failed to fetch feed", "feed", feedURL, "err", err)
				return nil
			}
			results[i] = articles
			return nil
		})
	}
	_ = g.Wait()

	var out []types.Article
	for _, r := range results {
		out = append(out, r...)
	}
	return normalize.Dedupe(out), nil
}

func (p *RSSProvider) fetchFeed(ctx context.Context, feedURL, needle string) ([]types.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// gofeed parsers carry per-parse state; use one per feed
	parser := gofeed.NewParser()
	parser.Client = p.client
	parser.UserAgent = fetch.DefaultUserAgent

	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	var out []types.Article
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		summary := item.Description
		if needle != "" &&
			!strings.Contains(strings.ToLower(item.Title), needle) &&
			!strings.Contains(strings.ToLower(summary), needle) {
			continue
		}

		var published *string
		if item.PublishedParsed != nil {
			published = types.StringPtr(normalize.FormatISO(*item.PublishedParsed))
		} else if item.UpdatedParsed != nil {
			published = types.StringPtr(normalize.FormatISO(*item.UpdatedParsed))
		}

		out = append(out, types.Article{
			Title:       strings.TrimSpace(item.Title),
			Link:        strings.TrimSpace(item.Link),
			Snippet:     plainText(summary),
			Source:      feed.Title,
			PublishedAt: published,
		})
	}
	return out, nil
}

// plainText strips markup from a feed summary.
func plainText(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
