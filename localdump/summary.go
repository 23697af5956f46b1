package localdump

import (
	"sort"
	"time"

	"github.com/toothbrush/confluence-export/confluence"
)

// Status is the fate of one page (or document) in a run.
type Status string

const (
	StatusWritten    Status = "written"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
	StatusWouldWrite Status = "would-write"
	StatusWouldSkip  Status = "would-skip"
)

// Statuses lists every status in report order.
var Statuses = []Status{StatusWritten, StatusSkipped, StatusFailed, StatusWouldWrite, StatusWouldSkip}

// FetchOutcome is produced once per dispatched page.
type FetchOutcome struct {
	Ref    confluence.PageRef
	Status Status

	// Final path when written, the colliding path when skipped.
	Path string
	Err  error

	ContentHash  uint64
	Degradations []string
}

// Failure is a failed page as shown in reports.
type Failure struct {
	PageID string
	Title  string
	Error  string
}

// CombinedDocument is the result of merging one batch of exported files.
type CombinedDocument struct {
	SourcePaths []string
	MergedText  string
	OutputPath  string
	Status      Status
	Err         error
}

// RunSummary aggregates the outcomes of a run.  Add may be called in any order; after Finalize
// the summary doesn't depend on that order.
type RunSummary struct {
	RunID string
	Mode  Mode
	Scope string

	// Pages the selection produced, before dispatch.
	Collected int

	Counts   map[Status]int
	Written  []string
	Failures []Failure
	Outcomes []FetchOutcome

	Started time.Time
	Elapsed time.Duration

	// Set when dispatch stopped early.  NotDispatched pages never ran.
	Partial       bool
	NotDispatched int

	// Why dispatch was abandoned, e.g. rejected credentials.  Empty for runs that weren't.
	Aborted string

	Combined    []CombinedDocument
	MetricsPath string

	// Files of pages that no longer exist remotely, removed (or, in a dry run, to be removed).
	Pruned []string
}

func NewRunSummary(runID string, mode Mode) *RunSummary {
	return &RunSummary{
		RunID:  runID,
		Mode:   mode,
		Counts: map[Status]int{},
	}
}

// Add records one outcome.  It is not safe for concurrent use; the exporter funnels outcomes
// through a single goroutine.
func (s *RunSummary) Add(o FetchOutcome) {
	if s.Counts == nil {
		s.Counts = map[Status]int{}
	}
	s.Counts[o.Status]++
	s.Outcomes = append(s.Outcomes, o)

	switch o.Status {
	case StatusWritten:
		s.Written = append(s.Written, o.Path)
	case StatusFailed:
		msg := "unknown error"
		if o.Err != nil {
			msg = o.Err.Error()
		}
		s.Failures = append(s.Failures, Failure{PageID: o.Ref.ID, Title: o.Ref.Title, Error: msg})
	}
}

// Finalize sorts everything so the summary reads the same regardless of completion order.
func (s *RunSummary) Finalize() {
	sort.SliceStable(s.Outcomes, func(i, j int) bool {
		a, b := s.Outcomes[i], s.Outcomes[j]
		if a.Ref.ID != b.Ref.ID {
			return a.Ref.ID < b.Ref.ID
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Status < b.Status
	})

	sort.Strings(s.Written)
	s.Written = dedupe(s.Written)

	sort.SliceStable(s.Failures, func(i, j int) bool {
		a, b := s.Failures[i], s.Failures[j]
		if a.PageID != b.PageID {
			return a.PageID < b.PageID
		}
		return a.Error < b.Error
	})

	sort.SliceStable(s.Combined, func(i, j int) bool {
		return s.Combined[i].OutputPath < s.Combined[j].OutputPath
	})
}

// Total is the number of outcomes recorded.
func (s *RunSummary) Total() int {
	return len(s.Outcomes)
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}
