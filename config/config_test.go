package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toothbrush/confluence-export/config"
	"github.com/toothbrush/confluence-export/localdump"
)

func valid() config.Config {
	return config.Config{
		BaseURL:         "https://example.atlassian.net/wiki",
		Username:        "me@example.com",
		APIToken:        "secret-token",
		Mode:            localdump.ModeSpace,
		SpaceKey:        "DEV",
		OutputDir:       config.DefaultOutputDir,
		OverwritePolicy: config.DefaultOverwritePolicy,
		Concurrency:     10,
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, valid().Validate())
	})

	t.Run("lists every missing field", func(t *testing.T) {
		t.Parallel()

		c := valid()
		c.BaseURL = ""
		c.APIToken = "your-api-token-here"
		c.SpaceKey = " "

		err := c.Validate()
		var fatal *config.FatalConfigError
		require.True(t, errors.As(err, &fatal))
		assert.Equal(t, []string{"base URL", "API token", "space key"}, fatal.Missing)
		assert.Empty(t, fatal.Problems)
		assert.Equal(t, "config: missing base URL, API token, space key", err.Error())
	})

	t.Run("mode specific requirements", func(t *testing.T) {
		t.Parallel()

		c := valid()
		c.Mode = localdump.ModeSubtree
		var fatal *config.FatalConfigError
		require.ErrorAs(t, c.Validate(), &fatal)
		assert.Equal(t, []string{"parent page"}, fatal.Missing)

		c.ParentPageRef = "12345"
		assert.NoError(t, c.Validate())

		c.Mode = localdump.ModeSearch
		require.ErrorAs(t, c.Validate(), &fatal)
		assert.Equal(t, []string{"search title"}, fatal.Missing)
	})

	t.Run("a username is optional", func(t *testing.T) {
		t.Parallel()

		c := valid()
		c.Username = ""
		assert.NoError(t, c.Validate())
	})

	t.Run("invalid values", func(t *testing.T) {
		t.Parallel()

		c := valid()
		c.OverwritePolicy = "clobber"
		c.Concurrency = 0
		c.Mode = "everything"

		var fatal *config.FatalConfigError
		require.ErrorAs(t, c.Validate(), &fatal)
		assert.Len(t, fatal.Problems, 3)
	})
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want localdump.Mode
	}{
		{"1", localdump.ModeSpace},
		{"space", localdump.ModeSpace},
		{"2", localdump.ModeSubtree},
		{"Parent", localdump.ModeSubtree},
		{"subtree", localdump.ModeSubtree},
		{" 3 ", localdump.ModeSearch},
		{"search", localdump.ModeSearch},
	}
	for _, tt := range tests {
		got, err := config.ParseMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := config.ParseMode("4")
	assert.Error(t, err)
}

func TestMaskToken(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "(unset)", config.MaskToken(""))
	assert.Equal(t, "***", config.MaskToken("abc"))
	assert.Equal(t, "********wxyz", config.MaskToken("abcdefghijklmnopqrstuvwxyz"))
	assert.NotContains(t, valid().String(), "secret-token")
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.EnvBaseURL, config.EnvUsername, config.EnvAPIToken, config.EnvOutputDir} {
		t.Setenv(k, "")
	}
}

func TestLoadEnv(t *testing.T) {
	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte(
		"CONFLUENCE_BASE_URL=https://file.atlassian.net/wiki\n"+
			"CONFLUENCE_API_TOKEN=from-file\n"+
			"UNRELATED=ignored\n"), 0o600))

	t.Run("file values", func(t *testing.T) {
		clearEnv(t)

		env, err := config.LoadEnv(dotenv)
		require.NoError(t, err)
		assert.Equal(t, config.Env{
			config.EnvBaseURL:  "https://file.atlassian.net/wiki",
			config.EnvAPIToken: "from-file",
		}, env)
	})

	t.Run("process environment wins", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(config.EnvAPIToken, "from-process")
		t.Setenv(config.EnvOutputDir, "/tmp/out")

		env, err := config.LoadEnv(dotenv)
		require.NoError(t, err)
		assert.Equal(t, "from-process", env[config.EnvAPIToken])
		assert.Equal(t, "/tmp/out", env[config.EnvOutputDir])
		assert.Equal(t, "https://file.atlassian.net/wiki", env[config.EnvBaseURL])
	})

	t.Run("missing file is fine", func(t *testing.T) {
		clearEnv(t)

		env, err := config.LoadEnv(filepath.Join(t.TempDir(), "nope.env"))
		require.NoError(t, err)
		assert.Empty(t, env)
	})
}

func TestEnv_Apply(t *testing.T) {
	t.Parallel()

	env := config.Env{
		config.EnvBaseURL:   "https://env.atlassian.net/wiki",
		config.EnvUsername:  "your.email@example.com",
		config.EnvAPIToken:  "env-token",
		config.EnvOutputDir: "env-out",
	}

	c := config.Config{BaseURL: "https://flag.atlassian.net/wiki", APIToken: "your-api-token-here"}
	env.Apply(&c)

	assert.Equal(t, "https://flag.atlassian.net/wiki", c.BaseURL, "higher layers win")
	assert.Equal(t, "env-token", c.APIToken, "placeholders are replaced")
	assert.Equal(t, "", c.Username, "placeholders are never applied")
	assert.Equal(t, "env-out", c.OutputDir)
}

func TestConfig_ValidateConnection(t *testing.T) {
	t.Parallel()

	c := config.Config{BaseURL: "https://example.atlassian.net/wiki", APIToken: "t"}
	assert.NoError(t, c.ValidateConnection(), "mode and output settings aren't needed")

	c.APIToken = ""
	var fatal *config.FatalConfigError
	require.ErrorAs(t, c.ValidateConnection(), &fatal)
	assert.Equal(t, []string{"API token"}, fatal.Missing)
}
