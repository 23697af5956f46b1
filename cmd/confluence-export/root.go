/*
Copyright © 2024 paul <paul@denknerd.org>
*/

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strconv"

	"github.com/fatih/structs"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

const defaultConfigPath = "~/.config/confluence-export.yaml"

var (
	// Store the result of binding cobra flags
	Config       string
	ConfigActual string
	Debug        bool
	EnvFile      string

	// Command to run to retrieve API Personal Access Token
	AuthTokenCmd []string

	AuthUsername string
	BaseURL      string
	OutputDir    string

	ParsedConfig YamlConfig

	logger = slog.Default()
)

// Build the cobra command that handles our command line tool.
var rootCmd = &cobra.Command{
	Use:   "confluence-export",
	Short: "Export Confluence pages to local Markdown",
	Long: `
Export a Confluence space, a page and everything below it, or a handful of search results to a tree
of Markdown files that mirrors the page hierarchy.  Optionally merge each subtree into a single
document with an LLM.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(Debug)

		if err := initializeConfig(cmd); err != nil {
			return fmt.Errorf("confluence-export: failed to initialise config: %w", err)
		}
		return nil
	},
}

func init() {
	// Define cobra flags, the default value has the lowest (least significant) precedence
	rootCmd.PersistentFlags().StringVar(&Config, "config", "", "config file location (default: "+defaultConfigPath+", respects CONFLUENCE_EXPORT_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&EnvFile, "env-file", ".env", "dotenv file with CONFLUENCE_* settings")
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "display debug output")
	rootCmd.PersistentFlags().StringSliceVar(&AuthTokenCmd, "auth-token-cmd", []string{}, "shell command to retrieve Atlassian auth token")
	rootCmd.PersistentFlags().StringVar(&AuthUsername, "auth-username", "", "your Atlassian username")
	rootCmd.PersistentFlags().StringVar(&BaseURL, "base-url", "", "Confluence base URL, e.g. https://ORG.atlassian.net/wiki")
	rootCmd.PersistentFlags().StringVar(&OutputDir, "output-dir", "", "where to write exported pages (default: confluence_pages)")
}

func initializeConfig(cmd *cobra.Command) error {
	explicit := true
	if Config == "" {
		// Did the user provide an ENV?
		if envConfig := os.Getenv("CONFLUENCE_EXPORT_CONFIG"); envConfig != "" {
			Config = envConfig
		} else {
			// As fallback, search for config in home XDG-ish directory
			Config = defaultConfigPath
			explicit = false
		}
	}
	config, err := homedir.Expand(Config)
	if err != nil {
		return fmt.Errorf("confluence-export: unable to expand homedir: %w", err)
	}
	ConfigActual = config

	if _, err := os.Stat(ConfigActual); errors.Is(err, os.ErrNotExist) {
		if !explicit {
			logger.Debug("no config file, using flags and environment", "path", ConfigActual)
			ConfigActual = ""
			return nil
		}
		fmt.Fprintf(os.Stderr, "Couldn't read config file %s, does it exist?  Override with --config.\n", ConfigActual)
		return fmt.Errorf("confluence-export: specified config file does not exist: %w", err)
	}

	yamlFile, err := os.ReadFile(ConfigActual)
	if err != nil {
		return fmt.Errorf("confluence-export: error reading config file: %w", err)
	}

	// I'd like to bark if a user sets a flag we don't recognise:
	if err := yaml.UnmarshalStrict(yamlFile, &ParsedConfig); err != nil {
		return fmt.Errorf("confluence-export: issue parsing config file: %w", err)
	}

	if err := bindFlags(cmd, ParsedConfig); err != nil {
		return fmt.Errorf("confluence-export: failed to bind flags: %w", err)
	}

	return nil
}

type YamlConfig struct {
	DryRun          *bool `yaml:"dry-run"`
	MetricsOnly     *bool `yaml:"metrics-only"`
	NoMetrics       *bool `yaml:"no-metrics"`
	NoFrontMatter   *bool `yaml:"no-front-matter"`
	OnlyChanged     *bool `yaml:"only-changed"`
	Prune           *bool `yaml:"prune"`
	Combine         *bool `yaml:"combine"`
	WithVCR         *bool `yaml:"with-vcr"`
	IncludePersonal *bool `yaml:"include-personal-spaces"`

	BaseURL      string   `yaml:"base-url"`
	AuthUsername string   `yaml:"auth-username"`
	AuthTokenCmd []string `yaml:"auth-token-cmd"`
	OutputDir    string   `yaml:"output-dir"`
	EnvFile      string   `yaml:"env-file"`

	Mode      string `yaml:"mode"`
	Space     string `yaml:"space"`
	Parent    string `yaml:"parent"`
	Search    string `yaml:"search"`
	Overwrite string `yaml:"overwrite"`

	CombineBackend   string `yaml:"combine-backend"`
	CombineModel     string `yaml:"combine-model"`
	CombineOverwrite string `yaml:"combine-overwrite"`
	OllamaURL        string `yaml:"ollama-url"`

	Ledger string `yaml:"ledger"`

	Concurrency       int     `yaml:"concurrency"`
	RequestsPerSecond float64 `yaml:"rps"`
}

// Copy config file values onto flags the user didn't set on the command line.
func bindFlags(cmd *cobra.Command, v YamlConfig) error {
	for _, field := range structs.Fields(v) {
		key := field.Tag("yaml")
		if key == "" {
			return fmt.Errorf("confluence-export: could not retrieve struct tag 'yaml'")
		}
		if flag := cmd.Flag(key); flag == nil {
			// The flag belongs to another subcommand, e.g. `list spaces` has no `overwrite`.
			continue
		}
		if cmd.Flags().Changed(key) {
			continue
		}

		var err error
		switch field.Kind() {
		case reflect.Ptr:
			// YamlConfig only uses pointers for bools.
			b, ok := field.Value().(*bool)
			if !ok {
				return fmt.Errorf("confluence-export: found unrecognised field: %+v", field)
			}
			if b != nil {
				err = cmd.Flags().Set(key, strconv.FormatBool(*b))
			}

		case reflect.String:
			s, ok := field.Value().(string)
			if !ok {
				return fmt.Errorf("confluence-export: found unrecognised field: %+v", field)
			}
			if s != "" {
				err = cmd.Flags().Set(key, s)
			}

		case reflect.Int:
			if n := field.Value().(int); n != 0 {
				err = cmd.Flags().Set(key, strconv.Itoa(n))
			}

		case reflect.Float64:
			if f := field.Value().(float64); f != 0 {
				err = cmd.Flags().Set(key, strconv.FormatFloat(f, 'f', -1, 64))
			}

		case reflect.Slice:
			ss, ok := field.Value().([]string)
			if !ok {
				return fmt.Errorf("confluence-export: found unrecognised field: %+v", field)
			}
			for _, s := range ss {
				// yes, repeatedly calling Set() appends to the slice...
				if err = cmd.Flags().Set(key, s); err != nil {
					break
				}
			}

		default:
			return fmt.Errorf("confluence-export: found unrecognised field: %+v", field)
		}
		if err != nil {
			return fmt.Errorf("confluence-export: config value for %s: %w", key, err)
		}
	}

	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("confluence-export: execution error: %w", err)
	}

	return nil
}
