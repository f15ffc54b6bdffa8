package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonathan/newsbrief/internal/observability"
	"github.com/jonathan/newsbrief/internal/pipeline"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Search providers and print ranked articles",
	Long:  "Checks the query against content safety, gathers articles from SerpAPI and RSS feeds, deduplicates and ranks them.",
	RunE:  runFetch,
}

// searchFlags are shared by fetch and brief.
type searchFlags struct {
	query     string
	lang      string
	region    string
	timeframe string
	sort      string
	limit     int
}

var fetchFlags searchFlags

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "Search query (required)")
	cmd.Flags().StringVar(&f.lang, "lang", "", "Language code (default from config)")
	cmd.Flags().StringVar(&f.region, "region", "", "Region code such as us, gb, de (default from config)")
	cmd.Flags().StringVar(&f.timeframe, "timeframe", pipeline.DefaultTimeframe, "Recency window such as 24h, 7d, 1m")
	cmd.Flags().StringVar(&f.sort, "sort", pipeline.DefaultSort, "Sort order: date or relevance")
	cmd.Flags().IntVar(&f.limit, "limit", pipeline.DefaultLimit, "Maximum number of articles")

	if err := cmd.MarkFlagRequired("query"); err != nil {
		panic(fmt.Sprintf("failed to mark query flag as required: %v", err))
	}
}

func (f *searchFlags) options() pipeline.FetchOptions {
	return pipeline.FetchOptions{
		Query:     f.query,
		Lang:      f.lang,
		Region:    f.region,
		Timeframe: f.timeframe,
		Sort:      f.sort,
		Limit:     f.limit,
	}
}

func init() {
	fetchFlags.register(fetchCmd)
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	articles, err := a.service.FetchNews(cmd.Context(), fetchFlags.options())
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), articles)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintArticles(articles)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
