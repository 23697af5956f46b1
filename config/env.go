package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
)

const (
	EnvBaseURL   = "CONFLUENCE_BASE_URL"
	EnvUsername  = "CONFLUENCE_USERNAME"
	EnvAPIToken  = "CONFLUENCE_API_TOKEN"
	EnvOutputDir = "OUTPUT_DIR"
)

var envKeys = []string{EnvBaseURL, EnvUsername, EnvAPIToken, EnvOutputDir}

// Env is the environment layer: a .env file overlaid by the process environment.
type Env map[string]string

// LoadEnv reads the .env file at path, if there is one, and overlays the process environment.
func LoadEnv(path string) (Env, error) {
	env := Env{}

	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("config: unable to expand homedir: %w", err)
		}

		file, err := godotenv.Read(expanded)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: couldn't read %s: %w", expanded, err)
		default:
			for _, k := range envKeys {
				if v, ok := file[k]; ok {
					env[k] = strings.TrimSpace(v)
				}
			}
		}
	}

	for _, k := range envKeys {
		if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
			env[k] = strings.TrimSpace(v)
		}
	}
	return env, nil
}

// Apply fills settings that higher-precedence layers left unset.
func (env Env) Apply(c *Config) {
	fill := func(dst *string, key string) {
		if IsUnset(*dst) && !IsUnset(env[key]) {
			*dst = env[key]
		}
	}
	fill(&c.BaseURL, EnvBaseURL)
	fill(&c.Username, EnvUsername)
	fill(&c.APIToken, EnvAPIToken)
	fill(&c.OutputDir, EnvOutputDir)
}
