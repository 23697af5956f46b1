package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/toothbrush/confluence-export/config"
	"github.com/toothbrush/confluence-export/confluence"
	"gopkg.in/dnaeon/go-vcr.v3/recorder"
)

const cassetteName = "fixtures/confluence-export"

// resolveConfig merges flags (already overlaid with the config file), the environment and, on a
// terminal, prompts for whatever is still missing.
func resolveConfig(base config.Config, p *prompter, full bool) (config.Config, error) {
	cfg := base
	cfg.BaseURL = BaseURL
	cfg.Username = AuthUsername
	cfg.OutputDir = OutputDir

	if len(AuthTokenCmd) > 0 {
		token, err := runTokenCmd(AuthTokenCmd)
		if err != nil {
			return cfg, err
		}
		cfg.APIToken = token
	}

	env, err := config.LoadEnv(EnvFile)
	if err != nil {
		return cfg, err
	}
	env.Apply(&cfg)

	if p.Interactive() {
		if err := p.FillMissing(&cfg, full); err != nil {
			return cfg, err
		}
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = config.DefaultOutputDir
	}
	if cfg.OutputDir, err = homedir.Expand(cfg.OutputDir); err != nil {
		return cfg, fmt.Errorf("confluence-export: unable to expand homedir: %w", err)
	}

	if full {
		return cfg, cfg.Validate()
	}
	return cfg, cfg.ValidateConnection()
}

func runTokenCmd(command []string) (string, error) {
	output, err := exec.Command(command[0], command[1:]...).Output()
	if err != nil {
		return "", fmt.Errorf("confluence-export: couldn't execute auth-token-cmd '%v': %w", command, err)
	}
	return strings.Split(string(output), "\n")[0], nil
}

// newAPI builds a client.  With a cassette name the traffic is recorded to (and replayed from) that
// cassette, except in a dry run, which leaves no cassette behind.
func newAPI(cfg config.Config, cassette string, rps float64) (*confluence.API, func() error, error) {
	api, err := confluence.NewAPI(cfg.BaseURL, cfg.Username, cfg.APIToken)
	if err != nil {
		return nil, nil, fmt.Errorf("confluence-export: couldn't instantiate Confluence API: %w", err)
	}
	api.Logger = logger
	api.SetRateLimit(rps)

	stop := func() error { return nil }
	switch {
	case cassette == "":
	case cfg.DryRun:
		logger.Info("dry run, not recording Confluence traffic", "cassette", cassette)
	default:
		if stop, err = api.Recording(cassette, recorder.ModeReplayWithNewEpisodes); err != nil {
			return nil, nil, err
		}
		fmt.Fprintf(os.Stderr, "Recording Confluence traffic to %s.yaml\n", cassette)
	}
	return api, stop, nil
}
