package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/newsbrief/internal/observability"
	"github.com/jonathan/newsbrief/internal/pipeline"
)

var briefCmd = &cobra.Command{
	Use:   "brief",
	Short: "Search, rank and summarize into a briefing",
	Long: "Runs fetch, then indexes the articles for the user, retrieves the most relevant chunks " +
		"and produces a briefing with map-reduce summarization.",
	RunE: runBrief,
}

var (
	briefFlags       searchFlags
	briefUserID      int64
	briefPrefs       string
	briefNoSummarize bool
)

func init() {
	briefFlags.register(briefCmd)
	briefCmd.Flags().Int64Var(&briefUserID, "user-id", 0, "User whose index receives the articles")
	briefCmd.Flags().StringVar(&briefPrefs, "prefs", "", "Free-text reader preferences for the briefing")
	briefCmd.Flags().BoolVar(&briefNoSummarize, "no-summarize", false, "Skip summarization and list headlines only")
	rootCmd.AddCommand(briefCmd)
}

func runBrief(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := briefFlags.options()
	if verbose && !jsonOutput {
		opts.OnProgress = func(e pipeline.ProgressEvent) {
			cmd.PrintErrf("[%s] %s\n", e.Step, e.Message)
		}
	}

	resp, err := a.service.GetNews(cmd.Context(), pipeline.NewsRequest{
		FetchOptions: opts,
		UserID:       briefUserID,
		Prefs:        briefPrefs,
		Summarize:    !briefNoSummarize,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	p := observability.NewPrinter(cmd.OutOrStdout())
	p.PrintArticles(resp.Articles)
	p.PrintBriefing(resp.Summary)
	return nil
}
