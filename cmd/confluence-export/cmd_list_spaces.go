/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/toothbrush/confluence-export/config"
	"golang.org/x/exp/maps"
)

var listSpacesUsage = strings.TrimSpace(`
If you want to find out what spaces your Confluence wiki has, use this command.  The keys it prints
are what 'export --space' expects.
`)

var IncludePersonal bool

var listSpacesCmd = &cobra.Command{
	Use:   "spaces",
	Short: "Print list of spaces",
	Long:  listSpacesUsage,
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		cfg, err := resolveConfig(config.Config{}, newPrompter(), false)
		if err != nil {
			return err
		}
		api, _, err := newAPI(cfg, "", 0)
		if err != nil {
			return err
		}

		user, err := api.CurrentUser(ctx)
		if err != nil {
			return fmt.Errorf("confluence-export: couldn't query current user: %w", err)
		}
		logger.Info("logged in", "user", user.DisplayName, "account", user.AccountID)

		logger.Info("listing Confluence spaces", "instance", api.BaseURI.Host)
		spacesRemote, err := api.ListAllSpaces(ctx, IncludePersonal)
		if err != nil {
			return fmt.Errorf("confluence-export: couldn't list Confluence spaces: %w", err)
		}

		spaceKeys := maps.Keys(spacesRemote)
		sort.Strings(spaceKeys)

		fmt.Printf("spaces:\n")
		for _, spaceKey := range spaceKeys {
			fmt.Printf("  - %s: %s\n", spaceKey, spacesRemote[spaceKey].Name)
		}

		return nil
	},
}

func init() {
	listCmd.AddCommand(listSpacesCmd)

	listSpacesCmd.Flags().BoolVar(&IncludePersonal, "include-personal-spaces", false, "list individuals' personal spaces")
}
