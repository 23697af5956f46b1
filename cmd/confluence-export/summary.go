package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/toothbrush/confluence-export/internal/termfmt"
	"github.com/toothbrush/confluence-export/localdump"
	"golang.org/x/term"
)

// Only colour output that goes to a terminal.
var colour = term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("NO_COLOR") == ""

func init() {
	termfmt.SetDepth(termfmt.DetectDepth(os.Getenv))
}

var statusStyles = map[localdump.Status]termfmt.Style{
	localdump.StatusWritten:    termfmt.Fg(0x4e, 0xc9, 0x4e, termfmt.Green),
	localdump.StatusWouldWrite: termfmt.Fg(0x4e, 0xc9, 0x4e, termfmt.Green).Italic(),
	localdump.StatusSkipped:    termfmt.Fg(0xe5, 0xc0, 0x7b, termfmt.Yellow),
	localdump.StatusWouldSkip:  termfmt.Fg(0xe5, 0xc0, 0x7b, termfmt.Yellow).Italic(),
	localdump.StatusFailed:     termfmt.Fg(0xe0, 0x6c, 0x75, termfmt.Red).Bold(),
}

func styled(s localdump.Status, v any) any {
	if !colour {
		return v
	}
	return statusStyles[s].V(v)
}

func printSummary(w io.Writer, s *localdump.RunSummary) {
	title := "Export finished"
	switch {
	case s.Aborted != "":
		title = "Export aborted"
	case s.Partial:
		title = "Export interrupted"
	}
	if colour {
		fmt.Fprintf(w, "\n%s", termfmt.Bold().V(title))
	} else {
		fmt.Fprintf(w, "\n%s", title)
	}
	fmt.Fprintf(w, " (%s, %s, run %s)\n", s.Scope, s.Elapsed.Round(time.Millisecond), s.RunID)

	if s.Aborted != "" {
		fmt.Fprintf(w, "  %s\n", styled(localdump.StatusFailed, s.Aborted))
	}
	fmt.Fprintf(w, "  collected: %d\n", s.Collected)
	for _, status := range localdump.Statuses {
		if n := s.Counts[status]; n > 0 {
			fmt.Fprintf(w, "  %s: %d\n", styled(status, status), n)
		}
	}
	if s.Partial {
		fmt.Fprintf(w, "  not dispatched: %d\n", s.NotDispatched)
	}

	if len(s.Failures) > 0 {
		fmt.Fprintf(w, "\n%s\n", styled(localdump.StatusFailed, "Failed pages:"))
		for _, f := range s.Failures {
			fmt.Fprintf(w, "  - %s (%s): %s\n", f.Title, f.PageID, f.Error)
		}
	}

	for _, c := range s.Combined {
		if c.Err != nil {
			fmt.Fprintf(w, "  combine %s: %s\n", c.OutputPath, styled(localdump.StatusFailed, c.Err.Error()))
			continue
		}
		fmt.Fprintf(w, "  combined %d files into %s (%s)\n", len(c.SourcePaths), c.OutputPath, styled(c.Status, c.Status))
	}

	for _, path := range s.Pruned {
		fmt.Fprintf(w, "  pruned %s\n", path)
	}

	if s.MetricsPath != "" {
		fmt.Fprintf(w, "  metrics: %s\n", s.MetricsPath)
	}
}
