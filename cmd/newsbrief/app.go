package main

import (
	"context"
	"fmt"

	"github.com/jonathan/newsbrief/internal/chunking"
	"github.com/jonathan/newsbrief/internal/config"
	"github.com/jonathan/newsbrief/internal/db"
	"github.com/jonathan/newsbrief/internal/ingestion"
	"github.com/jonathan/newsbrief/internal/llm"
	"github.com/jonathan/newsbrief/internal/logger"
	"github.com/jonathan/newsbrief/internal/pipeline"
	"github.com/jonathan/newsbrief/internal/providers"
	"github.com/jonathan/newsbrief/internal/ranking"
	"github.com/jonathan/newsbrief/internal/safety"
	"github.com/jonathan/newsbrief/internal/summarize"
	"github.com/jonathan/newsbrief/internal/vectorstore"
)

// app holds the components built from the configuration.
type app struct {
	gate    *safety.Gate
	store   *vectorstore.Store
	service *pipeline.Service

	database *db.DB
	client   llm.Client
	embedder llm.Embedder
}

// llmConfig maps the configuration onto the llm package.
func llmConfig(c *config.Config) *llm.Config {
	var out *llm.Config
	if c.LLM.Provider == string(llm.ProviderGemini) {
		out = llm.DefaultGeminiConfig()
	} else {
		out = llm.DefaultOllamaConfig()
		out.BaseURL = c.LLM.OllamaBaseURL
		out = out.WithAllModels(c.LLM.Model)
		out.EmbedModel = c.LLM.EmbedModel
	}
	out.Temperature = float32(c.LLM.Temperature)
	return out
}

func safetyConfig(c *config.Config) safety.Config {
	return safety.Config{
		Enabled:           c.Safety.Enabled,
		ToxicityThreshold: c.Safety.ToxicityThreshold,
		BlockAdult:        c.Safety.BlockAdult,
		BlockHate:         c.Safety.BlockHate,
		BlockViolence:     c.Safety.BlockViolence,
	}
}

func newGate(c *config.Config) *safety.Gate {
	var scorer *safety.LazyScorer
	if c.Safety.ScorerURL != "" {
		scorer = safety.NewLazyScorer(safety.HTTPScorerFactory(c.Safety.ScorerURL, safety.DefaultScorerTimeout))
	}
	return safety.NewGate(safetyConfig(c), scorer)
}

// newLedger returns the PostgreSQL ledger when a database is configured.
func newLedger(ctx context.Context, c *config.Config) (vectorstore.Ledger, *db.DB, error) {
	if c.DatabaseURL == "" {
		return vectorstore.NewMemoryLedger(), nil, nil
	}
	database, err := db.Connect(ctx, c.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, nil, err
	}
	return db.NewChunkLedger(database), database, nil
}

func newStore(ctx context.Context, c *config.Config, embedder llm.Embedder) (*vectorstore.Store, *db.DB, error) {
	ledger, database, err := newLedger(ctx, c)
	if err != nil {
		return nil, nil, err
	}

	opts := vectorstore.DefaultOptions()
	opts.Dir = c.Vector.Dir
	opts.Prefix = c.Vector.CollectionPrefix
	opts.BatchSize = c.Vector.BatchSize
	opts.Retention = vectorstore.Retention{
		MaxAge:           c.Vector.RetentionMaxAge,
		MaxChunksPerUser: c.Vector.RetentionMaxChunk,
	}

	store, err := vectorstore.New(embedder, ledger, opts)
	if err != nil {
		if database != nil {
			database.Close()
		}
		return nil, nil, err
	}
	return store, database, nil
}

// buildApp wires providers, ranking, the vector index and the summarizer.
// When the generation backend cannot be created, briefings fall back to headline lists.
func buildApp(ctx context.Context, c *config.Config) (*app, error) {
	a := &app{gate: newGate(c)}

	catalog, err := providers.LoadCatalog(c.Providers.FeedsFile)
	if err != nil {
		return nil, err
	}
	aggregator := providers.NewAggregator(
		providers.NewSerpAPIProvider(c.Providers.SerpAPIKey, providers.DefaultSerpAPITimeout),
		providers.NewRSSProvider(catalog, providers.DefaultFeedTimeout),
	)

	lc := llmConfig(c)
	embedder, err := llm.NewEmbedder(ctx, lc, c.LLM.GeminiAPIKey)
	if err != nil {
		logger.Warn("embeddings unavailable, ranking without semantic scores", "err", err)
		embedder = nil
	}
	a.embedder = embedder

	rankOpts := ranking.DefaultOptions()
	rankOpts.HalfLife = c.HalfLife()
	ranker := ranking.NewRanker(embedder, rankOpts)

	var briefer pipeline.Briefer
	if embedder != nil {
		client, err := llm.NewClient(ctx, lc, c.LLM.GeminiAPIKey)
		if err != nil {
			logger.Warn("generation unavailable, using default briefings", "err", err)
		} else {
			store, database, err := newStore(ctx, c, embedder)
			if err != nil {
				_ = client.Close()
				return nil, fmt.Errorf("failed to open vector store: %w", err)
			}
			a.client, a.store, a.database = client, store, database

			sumOpts := summarize.DefaultOptions()
			sumOpts.Chunking = chunking.Options{Size: c.Chunking.Size, Overlap: c.Chunking.Overlap}

			extractOpts := ingestion.DefaultOptions()
			extractOpts.UseBrowser = c.Extraction.UseBrowser

			briefer = summarize.New(client, store, ingestion.NewHTTPExtractor(extractOpts), ingestion.NewWhatlangDetector(), sumOpts)
		}
	}

	a.service = pipeline.NewService(a.gate, aggregator, ranker, briefer, pipeline.Config{
		DefaultRegion: c.Providers.DefaultRegion,
		DefaultLang:   c.Providers.DefaultLang,
	})
	return a, nil
}

// Close releases the generation client, the embedder and the database pool.
func (a *app) Close() {
	if a.embedder != nil {
		if err := llm.CloseEmbedder(a.embedder); err != nil {
			logger.Warn("closing embedder", "err", err)
		}
	}
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			logger.Warn("closing llm client", "err", err)
		}
	}
	if a.database != nil {
		a.database.Close()
	}
}
