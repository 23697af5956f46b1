/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/toothbrush/confluence-export/localdump"
)

var combineUsage = strings.TrimSpace(`
Merge the Markdown files below DIR (an earlier export, or part of one) into DIR/` + localdump.CombinedFileName + `.
The metrics report and earlier combined files are left out.
`)

var combineCmd = &cobra.Command{
	Use:   "combine DIR",
	Short: "Merge exported files into one document",
	Long:  combineUsage,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		paths, err := localdump.ListMarkdownFiles(dir, localdump.MetricsFileName, localdump.CombinedFileName)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("confluence-export: no Markdown files below %s", dir)
		}

		writer := localdump.NewWriter(dir, false)
		combiner, err := newCombiner(cmd.Context(), CombineBackend, writer)
		if err != nil {
			return err
		}
		policy, err := parseCombinePolicy(CombineOverwrite)
		if err != nil {
			return err
		}

		logger.Info("combining files", "dir", dir, "files", len(paths), "backend", CombineBackend)
		doc, err := combiner.Combine(cmd.Context(), paths, localdump.CombinedFileName, policy)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Combined %d files into %s (%s)\n", len(doc.SourcePaths), filepath.Clean(doc.OutputPath), styled(doc.Status, doc.Status))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(combineCmd)

	combineCmd.Flags().StringVar(&CombineBackend, "combine-backend", "gemini", "how to merge: gemini, ollama or consolidate (no LLM)")
	combineCmd.Flags().StringVar(&CombineModel, "combine-model", "", "model for the combine backend")
	combineCmd.Flags().StringVar(&CombineOverwrite, "combine-overwrite", "overwrite", "when a combined file exists: overwrite or increment")
	combineCmd.Flags().StringVar(&OllamaURL, "ollama-url", "", "Ollama server (default: $OLLAMA_URL or http://localhost:11434)")
}
