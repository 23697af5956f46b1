package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/toothbrush/confluence-export/confluence"
	"github.com/toothbrush/confluence-export/localdump"
)

func TestPrintSummary(t *testing.T) {
	colour = false

	run := func(edit func(s *localdump.RunSummary)) string {
		s := localdump.NewRunSummary("run-1", localdump.ModeSpace)
		s.Scope = "space DEV"
		s.Elapsed = 1200 * time.Millisecond
		s.Collected = 3
		s.Add(localdump.FetchOutcome{Ref: confluence.PageRef{ID: "1", Title: "Parent"}, Status: localdump.StatusWritten, Path: "/out/DEV/Parent.md"})
		edit(s)
		s.Finalize()

		var buf bytes.Buffer
		printSummary(&buf, s)
		return buf.String()
	}

	t.Run("finished", func(t *testing.T) {
		out := run(func(s *localdump.RunSummary) {
			s.Pruned = []string{"/out/DEV/Gone.md"}
		})
		assert.Contains(t, out, "Export finished (space DEV, 1.2s, run run-1)")
		assert.Contains(t, out, "written: 1")
		assert.Contains(t, out, "pruned /out/DEV/Gone.md")
		assert.NotContains(t, out, "not dispatched")
	})

	t.Run("interrupted", func(t *testing.T) {
		out := run(func(s *localdump.RunSummary) {
			s.Partial = true
			s.NotDispatched = 2
		})
		assert.Contains(t, out, "Export interrupted")
		assert.Contains(t, out, "not dispatched: 2")
	})

	t.Run("aborted", func(t *testing.T) {
		out := run(func(s *localdump.RunSummary) {
			s.Partial = true
			s.NotDispatched = 2
			s.Aborted = "localdump: run aborted: confluence: authentication failed (401)"
		})
		assert.Contains(t, out, "Export aborted")
		assert.Contains(t, out, "authentication failed (401)")
		assert.NotContains(t, out, "Export interrupted")
	})
}
