package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/newsbrief/internal/observability"
	"github.com/jonathan/newsbrief/internal/schemas"
	"github.com/jonathan/newsbrief/internal/types"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize a batch of articles from a JSON file",
	Long: `Reads {"items": [article, ...]} (or a bare array of articles) and prints a short summary per link. ` +
		"Use - to read from stdin.",
	RunE: runSummarize,
}

var summarizeInput string

func init() {
	summarizeCmd.Flags().StringVarP(&summarizeInput, "in", "i", "", "Path to the article batch JSON file, or - for stdin (required)")
	if err := summarizeCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}
	rootCmd.AddCommand(summarizeCmd)
}

// readBatch loads and validates an article batch.
func readBatch(r io.Reader) ([]types.Article, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		data = append(append([]byte(`{"items":`), trimmed...), '}')
	}

	if err := schemas.ValidateArticleBatch(data); err != nil {
		return nil, err
	}

	var batch struct {
		Items []types.Article `json:"items"`
	}
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to parse batch JSON: %w", err)
	}
	return batch.Items, nil
}

func runSummarize(cmd *cobra.Command, _ []string) error {
	var in io.Reader = cmd.InOrStdin()
	if summarizeInput != "-" {
		f, err := os.Open(summarizeInput)
		if err != nil {
			return fmt.Errorf("failed to open batch file %s: %w", summarizeInput, err)
		}
		defer f.Close() //nolint:errcheck
		in = f
	}

	items, err := readBatch(in)
	if err != nil {
		return err
	}

	a, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	summaries := a.service.SummarizeBatch(cmd.Context(), items)
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), map[string]any{"summaries": summaries})
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintSummaries(summaries)
	return nil
}
