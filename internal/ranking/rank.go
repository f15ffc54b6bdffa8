// Package ranking orders articles for a query by combining semantic similarity,
// recency decay and keyword overlap into one hybrid score.
package ranking

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jonathan/newsbrief/internal/llm"
	"github.com/jonathan/newsbrief/internal/types"
)

// MaxScoringTextLength bounds the text embedded and tokenized per article.
const MaxScoringTextLength = 4000

// Weights holds the linear weights of one scoring formula.
type Weights struct {
	Semantic float64
	Recency  float64
	Keyword  float64
}

// Options configures the ranker.
type Options struct {
	HalfLife time.Duration
	// WithEmbeddings applies when semantic scores are available
	WithEmbeddings Weights
	// WithoutEmbeddings applies when they are not
	WithoutEmbeddings Weights
	// Now is the clock used for recency; defaults to time.Now
	Now func() time.Time
}

// DefaultOptions returns the standard weights and a 72 hour half-life.
func DefaultOptions() Options {
	return Options{
		HalfLife:          72 * time.Hour,
		WithEmbeddings:    Weights{Semantic: 0.7, Recency: 0.2, Keyword: 0.1},
		WithoutEmbeddings: Weights{Semantic: 0, Recency: 0.3, Keyword: 0.7},
		Now:               time.Now,
	}
}

// Ranker scores and orders articles. The embedder may be nil.
type Ranker struct {
	embedder llm.Embedder
	opts     Options
}

// NewRanker creates a ranker.
func NewRanker(embedder llm.Embedder, opts Options) *Ranker {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Ranker{embedder: embedder, opts: opts}
}

// Rank returns copies of articles with Score set, sorted by descending score.
// Ties keep their input order. When useEmbeddings is set but any embedding call
// fails, every article is scored with the keyword and recency formula instead.
func (r *Ranker) Rank(ctx context.Context, query string, articles []types.Article, useEmbeddings bool) []types.Article {
	texts := make([]string, len(articles))
	for i, a := range articles {
		texts[i] = scoringText(a)
	}

	var semantic []float64
	if useEmbeddings && r.embedder != nil && len(articles) > 0 {
		scores, err := r.semanticScores(ctx, query, texts)
		if err != nil {
			slog.Warn("embedding unavailable, ranking by keyword and recency", "err", err)
		} else {
			semantic = scores
		}
	}

	weights := r.opts.WithoutEmbeddings
	if semantic != nil {
		weights = r.opts.WithEmbeddings
	}

	now := r.opts.Now().UTC()
	out := make([]types.Article, len(articles))
	for i, a := range articles {
		var sem float64
		if semantic != nil {
			sem = semantic[i]
		}
		score := weights.Semantic*sem +
			weights.Recency*recency(a.PublishedAt, now, r.opts.HalfLife) +
			weights.Keyword*keywordOverlap(query, texts[i])
		score = round6(score)

		ranked := a.Clone()
		ranked.Score = &score
		out[i] = ranked
	}

	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].Score > *out[j].Score
	})
	return out
}

// semanticScores embeds the query once and every text; the first failure aborts.
func (r *Ranker) semanticScores(ctx context.Context, query string, texts []string) ([]float64, error) {
	qvec, err := r.embedder.Embed(ctx, llmTruncate(query))
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(texts))
	for i, text := range texts {
		vec, err := r.embedder.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		scores[i] = cosine(qvec, vec)
	}
	return scores, nil
}

func scoringText(a types.Article) string {
	return llmTruncate(strings.TrimSpace(a.Title + "\n\n" + a.Snippet))
}

func llmTruncate(s string) string {
	return llm.Truncate(s, MaxScoringTextLength)
}
