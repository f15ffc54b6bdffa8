package summarize

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/newsbrief/internal/llm"
	"github.com/jonathan/newsbrief/internal/prompts"
	"github.com/jonathan/newsbrief/internal/types"
)

// SummarizeBatch writes a short neutral summary per item, keyed by link. Items
// without a link are skipped. A failed generation falls back to the snippet or title.
func (s *Summarizer) SummarizeBatch(ctx context.Context, items []types.Article) map[string]string {
	out := make(map[string]string, len(items))
	var mu sync.Mutex
	template := prompts.MustGet(promptFile, "summarize-item")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, it := range items {
		if strings.TrimSpace(it.Link) == "" {
			continue
		}
		g.Go(func() error {
			summary := s.summarizeItem(gctx, template, it)
			mu.Lock()
			out[it.Link] = summary
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Summarizer) summarizeItem(ctx context.Context, template string, it types.Article) string {
	fallback := it.Snippet
	if strings.TrimSpace(fallback) == "" {
		fallback = it.Title
	}

	body := s.extractor.ExtractFullText(ctx, it.Link)
	if strings.TrimSpace(body) == "" {
		body = fallback
	}
	if strings.TrimSpace(body) == "" {
		return ""
	}

	prompt := prompts.Format(template, map[string]string{
		"Title": it.Title,
		"Body":  llm.Truncate(body, s.opts.BatchBodyMax),
	})
	text, err := s.client.GenerateContent(ctx, prompt, s.opts.BatchTier)
	if err != nil {
		slog.Warn("batch summary failed", "link", it.Link, "err", err)
		return fallback
	}
	if text = strings.TrimSpace(text); text == "" {
		return fallback
	}
	return text
}
