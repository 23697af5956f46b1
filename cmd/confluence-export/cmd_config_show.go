/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/toothbrush/confluence-export/config"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Output current config",
	Long: `
Is something not working for you?  Have a look whether your config is as you expect.  Secrets are
masked, and nothing is prompted for.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Note, you can only talk about persistent flags here.  Command-specific ones won't be
		// visible.
		cfg := config.Config{
			BaseURL:   BaseURL,
			Username:  AuthUsername,
			OutputDir: OutputDir,
		}
		env, err := config.LoadEnv(EnvFile)
		if err != nil {
			return err
		}
		env.Apply(&cfg)

		fmt.Printf("Dump current config state:\n\n")
		fmt.Printf("  Config file: %s\n", ConfigActual)
		fmt.Printf("  Env file: %s\n", EnvFile)
		fmt.Printf("  Debug: %v\n", Debug)
		fmt.Printf("  AuthTokenCmd: %v\n", AuthTokenCmd)
		fmt.Println()
		fmt.Print(cfg.String())
		fmt.Println()
		fmt.Printf("  Parsed YAML:\n%#v\n", ParsedConfig)

		if err := cfg.ValidateConnection(); err != nil && len(AuthTokenCmd) == 0 {
			fmt.Printf("\n  Incomplete: %v\n", err)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(showCmd)
}
