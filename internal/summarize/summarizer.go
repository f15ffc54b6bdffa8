// Package summarize produces briefings with retrieval-augmented map-reduce summarization.
//
// Generate indexes the given articles for a user, retrieves the chunks most relevant to
// the query, summarizes each source article into bullets (map) and synthesizes the bullets
// into one briefing (reduce). Every stage has a fallback, so Generate always returns a
// briefing.
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/newsbrief/internal/chunking"
	"github.com/jonathan/newsbrief/internal/ingestion"
	"github.com/jonathan/newsbrief/internal/llm"
	"github.com/jonathan/newsbrief/internal/prompts"
	"github.com/jonathan/newsbrief/internal/schemas"
	"github.com/jonathan/newsbrief/internal/types"
)

const promptFile = "summarize.json"

// Index is the per-user chunk index used for retrieval.
type Index interface {
	AddChunks(ctx context.Context, userID int64, title, link string, chunks []string, snippet string) (int, error)
	Query(ctx context.Context, userID int64, text string, k int) ([]types.RetrievalHit, error)
}

// Options tunes the summarizer.
type Options struct {
	TopK         int // chunks retrieved per briefing
	MapTexts     int // retrieved texts kept per article
	MapBodyMax   int // characters of article body sent to the map prompt
	BatchBodyMax int // characters of article body sent to the batch prompt
	FallbackTop  int // articles listed in a fallback briefing
	Concurrency  int
	Chunking     chunking.Options
	MapTier      llm.ModelTier
	ReduceTier   llm.ModelTier
	BatchTier    llm.ModelTier
}

// DefaultOptions returns the standard summarization parameters.
func DefaultOptions() Options {
	return Options{
		TopK:         10,
		MapTexts:     2,
		MapBodyMax:   10000,
		BatchBodyMax: 3000,
		FallbackTop:  5,
		Concurrency:  4,
		Chunking:     chunking.DefaultOptions(),
		MapTier:      llm.TierStandard,
		ReduceTier:   llm.TierAdvanced,
		BatchTier:    llm.TierLite,
	}
}

// Summarizer runs ingest, retrieval, map and reduce.
type Summarizer struct {
	client    llm.Client
	index     Index
	extractor ingestion.Extractor
	detector  ingestion.LanguageDetector
	opts      Options
}

// New creates a summarizer. A nil detector keeps every article.
func New(client llm.Client, index Index, extractor ingestion.Extractor, detector ingestion.LanguageDetector, opts Options) *Summarizer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Summarizer{
		client:    client,
		index:     index,
		extractor: extractor,
		detector:  detector,
		opts:      opts,
	}
}

// mapped is one article's map output.
type mapped struct {
	Title   string
	Link    string
	Bullets string
}

// Generate builds a briefing for query from articles. It never fails.
func (s *Summarizer) Generate(ctx context.Context, articles []types.Article, prefs, query string, userID int64) types.Briefing {
	s.Ingest(ctx, userID, articles)

	hits, err := s.index.Query(ctx, userID, query, s.opts.TopK)
	if err != nil {
		slog.Warn("retrieval failed", "user_id", userID, "err", err)
		return types.EmptyBriefing()
	}
	if len(hits) == 0 {
		return types.EmptyBriefing()
	}

	results := s.mapArticles(ctx, groupHits(hits, s.opts.MapTexts))
	return s.reduce(ctx, results, prefs, query)
}

// Ingest extracts, chunks and indexes articles for userID and returns the number
// of chunks written. Failures are logged per article.
func (s *Summarizer) Ingest(ctx context.Context, userID int64, articles []types.Article) int {
	counts := make([]int, len(articles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i := range articles {
		a := articles[i]
		g.Go(func() error {
			n, err := s.ingestOne(gctx, userID, a)
			if err != nil {
				slog.Warn("skipping article", "link", a.Link, "err", err)
				return nil
			}
			counts[i] = n
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

func (s *Summarizer) ingestOne(ctx context.Context, userID int64, a types.Article) (int, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}

	body := s.extractor.ExtractFullText(ctx, a.Link)
	if strings.TrimSpace(body) == "" {
		body = a.Snippet
	}

	if s.detector != nil && !ingestion.IsEnglish(s.detector, body) {
		slog.Debug("skipping non-English article", "link", a.Link)
		return 0, nil
	}

	return s.index.AddChunks(ctx, userID, a.Title, a.Link, s.opts.Chunking.Split(body), a.Snippet)
}

// group collects retrieved texts of one article.
type group struct {
	Title string
	Link  string
	Texts []string
}

// groupHits groups hits by link in first-seen order, keeping at most maxTexts texts each.
func groupHits(hits []types.RetrievalHit, maxTexts int) []group {
	index := make(map[string]int)
	var groups []group
	for _, h := range hits {
		i, ok := index[h.Link]
		if !ok {
			i = len(groups)
			index[h.Link] = i
			groups = append(groups, group{Title: h.Title, Link: h.Link})
		}
		if len(groups[i].Texts) < maxTexts {
			groups[i].Texts = append(groups[i].Texts, h.Text)
		}
	}
	return groups
}

// mapArticles summarizes each group into bullets, in parallel, preserving group order.
// A failed call leaves that article's bullets empty.
func (s *Summarizer) mapArticles(ctx context.Context, groups []group) []mapped {
	results := make([]mapped, len(groups))
	template := prompts.MustGet(promptFile, "map-article")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, gr := range groups {
		results[i] = mapped{Title: gr.Title, Link: gr.Link}
		g.Go(func() error {
			body := llm.Truncate(strings.Join(gr.Texts, "\n\n"), s.opts.MapBodyMax)
			prompt := prompts.Format(template, map[string]string{
				"Title": gr.Title,
				"Link":  gr.Link,
				"Body":  body,
			})
			bullets, err := s.client.GenerateContent(gctx, prompt, s.opts.MapTier)
			if err != nil {
				slog.Warn("map step failed", "link", gr.Link, "err", err)
				return nil
			}
			results[i].Bullets = strings.TrimSpace(bullets)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// reduce synthesizes mapped bullets into a briefing, falling back to the raw text.
func (s *Summarizer) reduce(ctx context.Context, results []mapped, prefs, query string) types.Briefing {
	blocks := make([]string, len(results))
	for i, m := range results {
		blocks[i] = fmt.Sprintf("TITLE: %s\nURL: %s\nBULLETS:\n%s", m.Title, m.Link, m.Bullets)
	}

	prompt := prompts.Format(prompts.MustGet(promptFile, "reduce-briefing"), map[string]string{
		"Prefs":   prefs,
		"Query":   query,
		"Bullets": strings.Join(blocks, "\n\n"),
	})

	raw, err := s.client.GenerateJSON(ctx, prompt, s.opts.ReduceTier)
	if err != nil {
		slog.Warn("reduce step failed", "err", err)
		return s.fallback("", results)
	}

	briefing, err := ParseBriefing(raw)
	if err != nil {
		slog.Warn("reduce output is not a valid briefing", "err", err)
		return s.fallback(raw, results)
	}
	return briefing
}

func (s *Summarizer) fallback(raw string, results []mapped) types.Briefing {
	n := min(len(results), s.opts.FallbackTop)
	top := make([]types.TopItem, n)
	for i := range n {
		top[i] = types.TopItem{Title: results[i].Title, Link: results[i].Link}
	}
	return types.Briefing{Summary: raw, Highlights: []string{}, Top: top}
}

// ParseBriefing decodes and validates reduce output. Markdown code fences are stripped first.
func ParseBriefing(raw string) (types.Briefing, error) {
	cleaned := []byte(llm.CleanJSONBlock(raw))

	var b types.Briefing
	if err := json.Unmarshal(cleaned, &b); err != nil {
		return types.Briefing{}, &ParseError{Raw: raw, Cause: err}
	}
	if err := schemas.ValidateBriefing(cleaned); err != nil {
		return types.Briefing{}, &ParseError{Raw: raw, Cause: err}
	}

	b.Normalize()
	return b, nil
}
