/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/toothbrush/confluence-export/config"
)

var searchUsage = strings.TrimSpace(`
Find pages by title without exporting anything.  Useful for finding the page ID to pass to
'export --mode subtree --parent ID'.
`)

var searchCmd = &cobra.Command{
	Use:   "search TITLE",
	Short: "Search pages by title",
	Long:  searchUsage,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(config.Config{}, newPrompter(), false)
		if err != nil {
			return err
		}
		api, _, err := newAPI(cfg, "", 0)
		if err != nil {
			return err
		}

		pages, err := api.SearchByTitle(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("confluence-export: search failed: %w", err)
		}
		if len(pages) == 0 {
			fmt.Printf("No pages match %q.\n", args[0])
			return nil
		}

		fmt.Printf("%d pages match %q:\n", len(pages), args[0])
		printCandidates(os.Stdout, pages)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
