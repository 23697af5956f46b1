// Package config holds the resolved settings of an export run.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/toothbrush/confluence-export/localdump"
)

const (
	DefaultOutputDir       = "confluence_pages"
	DefaultOverwritePolicy = "overwrite"
)

// Placeholder values shipped in example .env files.  They count as unset.
var stubValues = map[string]bool{
	"your.email@example.com": true,
	"your-api-token-here":    true,
}

// Config is the merged result of flags, config file, environment and prompts.
type Config struct {
	BaseURL  string
	Username string
	APIToken string

	Mode          localdump.Mode
	SpaceKey      string
	ParentPageRef string
	SearchTitle   string

	OutputDir       string
	OverwritePolicy string
	DryRun          bool
	Concurrency     int
}

// FatalConfigError lists everything that stops a run from starting.
type FatalConfigError struct {
	Missing  []string
	Problems []string
}

func (e *FatalConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	parts = append(parts, e.Problems...)
	return "config: " + strings.Join(parts, "; ")
}

// ValidateConnection checks only what is needed to talk to Confluence.
func (c Config) ValidateConnection() error {
	e := &FatalConfigError{}
	c.checkConnection(e)
	return e.orNil()
}

// Validate returns a *FatalConfigError when required settings are absent or invalid.
func (c Config) Validate() error {
	e := &FatalConfigError{}
	c.checkConnection(e)

	switch c.Mode {
	case localdump.ModeSpace:
		if IsUnset(c.SpaceKey) {
			e.Missing = append(e.Missing, "space key")
		}
	case localdump.ModeSubtree:
		if IsUnset(c.ParentPageRef) {
			e.Missing = append(e.Missing, "parent page")
		}
	case localdump.ModeSearch:
		if IsUnset(c.SearchTitle) {
			e.Missing = append(e.Missing, "search title")
		}
	case "":
		e.Missing = append(e.Missing, "mode")
	default:
		e.Problems = append(e.Problems, fmt.Sprintf("unknown mode %q", c.Mode))
	}

	switch c.OverwritePolicy {
	case "overwrite", "skip", "increment", "ask":
	default:
		e.Problems = append(e.Problems, fmt.Sprintf("unknown overwrite policy %q", c.OverwritePolicy))
	}

	if c.Concurrency < 1 {
		e.Problems = append(e.Problems, fmt.Sprintf("concurrency must be at least 1, got %d", c.Concurrency))
	}

	return e.orNil()
}

func (c Config) checkConnection(e *FatalConfigError) {
	if IsUnset(c.BaseURL) {
		e.Missing = append(e.Missing, "base URL")
	}
	if IsUnset(c.APIToken) {
		e.Missing = append(e.Missing, "API token")
	}
}

func (e *FatalConfigError) orNil() error {
	if len(e.Missing) == 0 && len(e.Problems) == 0 {
		return nil
	}
	return e
}

// IsUnset reports whether v is empty or a placeholder.
func IsUnset(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || stubValues[v]
}

// ParseMode accepts a mode name or the menu numbers 1 (space), 2 (parent page) and 3 (search).
func ParseMode(s string) (localdump.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "space":
		return localdump.ModeSpace, nil
	case "2", "subtree", "parent":
		return localdump.ModeSubtree, nil
	case "3", "search":
		return localdump.ModeSearch, nil
	}
	return "", fmt.Errorf("config: unknown mode %q (want space, subtree or search)", s)
}

// MaskToken hides all but the last four characters of a secret.
func MaskToken(token string) string {
	if token == "" {
		return "(unset)"
	}
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", 8) + token[len(token)-4:]
}

// String renders the config for `config show`, with the token masked.
func (c Config) String() string {
	var sb strings.Builder
	row := func(k, v string) { fmt.Fprintf(&sb, "  %-18s %s\n", k+":", v) }
	row("BaseURL", c.BaseURL)
	row("Username", c.Username)
	row("APIToken", MaskToken(c.APIToken))
	row("Mode", string(c.Mode))
	row("SpaceKey", c.SpaceKey)
	row("ParentPageRef", c.ParentPageRef)
	row("SearchTitle", c.SearchTitle)
	row("OutputDir", c.OutputDir)
	row("OverwritePolicy", c.OverwritePolicy)
	row("DryRun", strconv.FormatBool(c.DryRun))
	row("Concurrency", strconv.Itoa(c.Concurrency))
	return sb.String()
}
