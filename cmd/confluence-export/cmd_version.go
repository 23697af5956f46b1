/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var versionUsage = strings.TrimSpace(`
Show version information
`)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: versionUsage,
	Long:  versionUsage,
	RunE:  versionRun,
	Args:  cobra.ExactArgs(0),
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Version is set at build time with -ldflags "-X main.Version=...".  Otherwise the module version
// from "go install url/tool@version" is used.
var Version = "unknown"

type buildVersion struct {
	Version    string
	Revision   string
	LastCommit time.Time
	Dirty      bool
	GoVersion  string
}

func readBuildVersion() (buildVersion, error) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return buildVersion{}, fmt.Errorf("cmd_version: could not read build info")
	}

	v := buildVersion{Version: Version, GoVersion: info.GoVersion}
	if v.Version == "unknown" {
		v.Version = info.Main.Version
	}
	for _, kv := range info.Settings {
		switch kv.Key {
		case "vcs.revision":
			v.Revision = kv.Value
		case "vcs.time":
			v.LastCommit, _ = time.Parse(time.RFC3339, kv.Value)
		case "vcs.modified":
			v.Dirty = kv.Value == "true"
		}
	}
	return v, nil
}

// String joins the known parts, e.g. "v1.2.0-rev-abc123-dirty", or "devel" when there are none.
func (v buildVersion) String() string {
	parts := make([]string, 0, 4)
	if v.Version != "" && v.Version != "unknown" && v.Version != "(devel)" {
		parts = append(parts, v.Version)
	}
	if v.Revision != "" {
		parts = append(parts, "rev", v.Revision)
		if v.Dirty {
			parts = append(parts, "dirty")
		}
	}
	if len(parts) == 0 {
		return "devel"
	}
	return strings.Join(parts, "-")
}

func versionRun(cmd *cobra.Command, args []string) error {
	v, err := readBuildVersion()
	if err != nil {
		return err
	}

	fmt.Printf("confluence-export version %s (%s)\n", v, v.GoVersion)
	if !v.LastCommit.IsZero() {
		fmt.Printf("last commit %s\n", v.LastCommit.Format(time.DateTime))
	}
	return nil
}
