package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/newsbrief/internal/observability"
	"github.com/jonathan/newsbrief/internal/safety"
)

var moderateCmd = &cobra.Command{
	Use:   "moderate [text...]",
	Short: "Classify text with the content safety gate",
	Long:  "Applies the regex blocklists and, when configured, the toxicity scorer. Prints the verdict and the profanity-redacted text.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runModerate,
}

func init() {
	rootCmd.AddCommand(moderateCmd)
}

func runModerate(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	res := newGate(cfg).Moderate(cmd.Context(), text)
	redacted := safety.Redact(text)

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), struct {
			safety.Result
			Redacted string `json:"redacted"`
		}{res, redacted})
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintModeration(res, redacted)
	return nil
}
