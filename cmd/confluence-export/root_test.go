package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindFlags(t *testing.T) {
	t.Parallel()

	var (
		space   string
		dryRun  bool
		workers int
		rps     float64
		token   []string
	)
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&space, "space", "", "")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "")
	cmd.Flags().IntVar(&workers, "concurrency", 10, "")
	cmd.Flags().Float64Var(&rps, "rps", 0, "")
	cmd.Flags().StringSliceVar(&token, "auth-token-cmd", nil, "")

	require.NoError(t, cmd.Flags().Parse([]string{"--space", "FROMFLAG"}))

	yes := true
	err := bindFlags(cmd, YamlConfig{
		Space:             "FROMFILE",
		DryRun:            &yes,
		Concurrency:       4,
		RequestsPerSecond: 2.5,
		AuthTokenCmd:      []string{"pass", "show", "atlassian"},
		Overwrite:         "skip", // no such flag on this command
	})
	require.NoError(t, err)

	assert.Equal(t, "FROMFLAG", space, "command line wins over the config file")
	assert.True(t, dryRun)
	assert.Equal(t, 4, workers)
	assert.Equal(t, 2.5, rps)
	assert.Equal(t, []string{"pass", "show", "atlassian"}, token)
}
