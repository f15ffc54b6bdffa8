package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/newsbrief/internal/prompts"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts [key]",
	Short: "List the built-in prompt templates or print one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPrompts,
}

func init() {
	rootCmd.AddCommand(promptsCmd)
}

type promptEntry struct {
	File string `json:"file"`
	Key  string `json:"key"`
}

func runPrompts(cmd *cobra.Command, args []string) error {
	files, err := prompts.Files()
	if err != nil {
		return fmt.Errorf("failed to list prompt files: %w", err)
	}

	var entries []promptEntry
	for _, file := range files {
		keys, err := prompts.List(file)
		if err != nil {
			return err
		}
		for _, key := range keys {
			entries = append(entries, promptEntry{File: file, Key: key})
		}
	}

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		if jsonOutput {
			return writeJSON(out, entries)
		}
		for _, e := range entries {
			_, _ = fmt.Fprintf(out, "%s\t%s\n", e.File, e.Key)
		}
		return nil
	}

	for _, e := range entries {
		if e.Key != args[0] {
			continue
		}
		template, err := prompts.Get(e.File, e.Key)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(out, map[string]string{"file": e.File, "key": e.Key, "template": template})
		}
		_, err = fmt.Fprintln(out, template)
		return err
	}
	return fmt.Errorf("unknown prompt %q", args[0])
}
