package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/newsbrief/internal/llm"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the vector index retention policy",
	Long: "Deletes chunks older than vector.retention_max_age and trims each user to " +
		"vector.retention_max_chunks. Needs a persistent index (vector.dir) and a database ledger (database_url).",
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, _ []string) error {
	if cfg.Vector.Dir == "" || cfg.DatabaseURL == "" {
		return fmt.Errorf("prune requires vector.dir (VECTOR_DB_DIR) and database_url (DATABASE_URL)")
	}
	if cfg.Vector.RetentionMaxAge == 0 && cfg.Vector.RetentionMaxChunk == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No retention policy configured; nothing to prune.")
		return nil
	}

	// Pruning deletes by id, so the embedder is never called.
	embedder, err := llm.NewEmbedder(cmd.Context(), llmConfig(cfg), cfg.LLM.GeminiAPIKey)
	if err != nil {
		return err
	}
	defer func() { _ = llm.CloseEmbedder(embedder) }()

	store, database, err := newStore(cmd.Context(), cfg, embedder)
	if err != nil {
		return fmt.Errorf("failed to open vector store: %w", err)
	}
	defer database.Close()

	removed, err := store.ApplyRetention(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to apply retention: %w", err)
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), map[string]int{"removed": removed})
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d chunks.\n", removed)
	return err
}
