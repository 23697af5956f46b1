package localdump

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/toothbrush/confluence-export/confluence"
	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers = 10

	// CombinedFileName is written inside each combined subtree.
	CombinedFileName = "LLM_Combined.md"
)

// Mode selects which pages a run exports.
type Mode string

const (
	ModeSpace   Mode = "space"
	ModeSubtree Mode = "subtree"
	ModeSearch  Mode = "search"
)

// Phase is where a run is in its lifecycle.
type Phase int32

const (
	Collecting Phase = iota
	Dispatching
	Draining
	Summarizing
	Done
)

func (p Phase) String() string {
	switch p {
	case Collecting:
		return "collecting"
	case Dispatching:
		return "dispatching"
	case Draining:
		return "draining"
	case Summarizing:
		return "summarizing"
	case Done:
		return "done"
	}
	return fmt.Sprintf("phase(%d)", int32(p))
}

// ErrNothingSelected is returned when a search selection picks no pages.
var ErrNothingSelected = errors.New("localdump: no pages selected")

// PageSource is the remote side of an export.  *confluence.API implements it.
type PageSource interface {
	ListSpacePages(ctx context.Context, spaceKey string) ([]confluence.PageRef, error)
	ListDescendants(ctx context.Context, pageID string) ([]confluence.PageRef, error)
	SearchByTitle(ctx context.Context, title string) ([]confluence.PageRef, error)
	FetchContent(ctx context.Context, pageID string) (*confluence.PageContent, error)
}

// Combiner merges a batch of exported files into one document at outputPath (relative to the
// export root).
type Combiner interface {
	Combine(ctx context.Context, paths []string, outputPath string, policy Policy) (CombinedDocument, error)
}

// RunRecorder persists a finished run.
type RunRecorder interface {
	RecordRun(ctx context.Context, summary *RunSummary) error
}

// Progress receives run progress.  Calls come from a single goroutine.
type Progress interface {
	Start(total int)
	PageDone(outcome FetchOutcome)
	Finish()
}

// Selection describes which pages to export.
type Selection struct {
	Mode Mode

	SpaceKey    string
	ParentRef   string // page ID or URL, for ModeSubtree
	SearchTitle string

	// Choose picks from search candidates.  Nil selects all of them.
	Choose func(candidates []confluence.PageRef) ([]confluence.PageRef, error)
}

// Scope describes the selection for reports.
func (s Selection) Scope() string {
	switch s.Mode {
	case ModeSpace:
		return "space " + s.SpaceKey
	case ModeSubtree:
		return "parent page " + s.ParentRef
	case ModeSearch:
		return fmt.Sprintf("search results for %q", s.SearchTitle)
	}
	return ""
}

// Exporter runs the collect, dispatch, drain and summarize cycle.
type Exporter struct {
	Source    PageSource
	Converter *Converter
	Writer    *Writer
	Policy    Policy
	Workers   int

	// Write only the metrics report.
	MetricsOnly bool
	NoMetrics   bool

	// Skip pages whose earlier export has the same version and place in the tree.
	OnlyChanged bool

	// Remove earlier exports of pages that are gone.  Space mode only.
	Prune bool

	// Optional collaborators.
	Combiner      Combiner
	CombinePolicy Policy
	Recorder      RunRecorder
	Progress      Progress

	// Turns a page's webui link into a browser URL for front matter.
	PageURL func(webui string) string

	Logger *slog.Logger

	phase atomic.Int32
	now   func() time.Time
}

// Phase reports the current phase.  Safe to call from any goroutine.
func (e *Exporter) Phase() Phase {
	return Phase(e.phase.Load())
}

func (e *Exporter) setPhase(p Phase) {
	e.phase.Store(int32(p))
	e.logger().Debug("export phase", "phase", p)
}

func (e *Exporter) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Exporter) clock() time.Time {
	if e.now == nil {
		return time.Now()
	}
	return e.now()
}

// Export runs one export.  Cancelling ctx stops dispatch; pages already handed to a worker finish
// and are reported, and the summary is marked partial.
//
// A nil summary with an error means the run failed before anything was dispatched (bad selection,
// rejected credentials).  An authentication failure during dispatch stops the run: the partial
// summary is returned together with the error.
func (e *Exporter) Export(ctx context.Context, sel Selection) (*RunSummary, error) {
	started := e.clock()
	summary := NewRunSummary(uuid.NewString(), sel.Mode)
	summary.Started = started
	summary.Scope = sel.Scope()
	log := e.logger().With("run", summary.RunID)

	e.setPhase(Collecting)
	refs, err := e.collect(ctx, sel)
	if err != nil {
		e.setPhase(Done)
		return nil, err
	}
	summary.Collected = len(refs)
	log.Info("collected pages", "mode", sel.Mode, "count", len(refs))

	var index LocalIndex
	if !e.MetricsOnly && (e.OnlyChanged || e.Prune) {
		dir := e.Writer.Root
		if sel.Mode == ModeSpace {
			dir = filepath.Join(dir, Sanitize(sel.SpaceKey))
		}
		if index, err = LoadLocalIndex(dir); err != nil {
			log.Warn("couldn't index earlier export", "error", err)
			index = nil
		}
	}

	var fatal error
	if !e.MetricsOnly && len(refs) > 0 {
		fatal = e.dispatch(ctx, refs, runPages{index: index, links: NewPageLinks(refs)}, summary, log)
	}
	if fatal != nil {
		summary.Aborted = fatal.Error()
	}

	e.setPhase(Summarizing)
	summary.Finalize()

	switch {
	case !e.Prune || index == nil:
	case sel.Mode != ModeSpace:
		log.Warn("pruning needs a whole space, not pruning", "mode", sel.Mode)
	case summary.Partial || fatal != nil:
		log.Warn("run was interrupted, not pruning")
	default:
		keep := make(map[string]bool, len(refs))
		for _, r := range refs {
			keep[r.ID] = true
		}
		pruned, err := e.Writer.prune(index.Stale(keep))
		if err != nil {
			log.Error("couldn't prune", "error", err)
		}
		summary.Pruned = pruned
		for _, path := range pruned {
			log.Info("pruned page that no longer exists", "path", path, "dry_run", e.Writer.DryRun)
		}
	}

	if !e.NoMetrics && !e.Writer.DryRun {
		report := MetricsReport(summary, refs, sel.Scope(), e.clock())
		status, path, err := e.Writer.WriteDocument(MetricsFileName, report, Overwrite{})
		if err != nil {
			log.Error("couldn't write metrics report", "error", err)
		} else if status == StatusWritten {
			summary.MetricsPath = path
		}
	}

	switch {
	case e.Combiner == nil:
	case e.Writer.DryRun:
		log.Info("dry run, not combining")
	case summary.Partial || fatal != nil:
		log.Warn("run was interrupted, not combining")
	default:
		e.combine(context.WithoutCancel(ctx), summary, log)
	}

	summary.Elapsed = e.clock().Sub(started)

	switch {
	case e.Recorder == nil:
	case e.Writer.DryRun:
		log.Info("dry run, not recording the run")
	default:
		if err := e.Recorder.RecordRun(context.WithoutCancel(ctx), summary); err != nil {
			log.Error("couldn't record run", "error", err)
		}
	}

	e.setPhase(Done)
	log.Info("export finished",
		"written", summary.Counts[StatusWritten],
		"skipped", summary.Counts[StatusSkipped],
		"failed", summary.Counts[StatusFailed],
		"partial", summary.Partial,
		"elapsed", summary.Elapsed.Round(time.Millisecond))

	return summary, fatal
}

func (e *Exporter) collect(ctx context.Context, sel Selection) ([]confluence.PageRef, error) {
	var (
		refs []confluence.PageRef
		err  error
	)

	switch sel.Mode {
	case ModeSpace:
		if sel.SpaceKey == "" {
			return nil, fmt.Errorf("localdump: space mode needs a space key")
		}
		refs, err = e.Source.ListSpacePages(ctx, sel.SpaceKey)

	case ModeSubtree:
		id, perr := confluence.ParsePageID(sel.ParentRef)
		if perr != nil {
			return nil, fmt.Errorf("localdump: invalid parent page: %w", perr)
		}
		refs, err = e.Source.ListDescendants(ctx, id)

	case ModeSearch:
		refs, err = e.Source.SearchByTitle(ctx, sel.SearchTitle)
		if err == nil && len(refs) > 0 && sel.Choose != nil {
			refs, err = sel.Choose(refs)
			if err == nil && len(refs) == 0 {
				err = ErrNothingSelected
			}
		}

	default:
		return nil, fmt.Errorf("localdump: unknown mode %q", sel.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("localdump: couldn't collect pages: %w", err)
	}

	// The same page can turn up twice across pagination boundaries.
	seen := map[string]bool{}
	unique := refs[:0:0]
	for _, r := range refs {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		unique = append(unique, r)
	}
	return unique, nil
}

// runPages is what every page of a run can see of the others.
type runPages struct {
	index LocalIndex
	links PageLinks
}

// dispatch feeds refs to a fixed pool of workers and aggregates their outcomes into summary.  It
// returns an error only for an authentication failure, which stops further dispatch.
func (e *Exporter) dispatch(ctx context.Context, refs []confluence.PageRef, pages runPages, summary *RunSummary, log *slog.Logger) error {
	e.setPhase(Dispatching)

	workers := e.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}

	if e.Progress != nil {
		e.Progress.Start(len(refs))
		defer e.Progress.Finish()
	}

	// Interrupts and auth failures both stop dispatch.  Work already started runs on a context
	// that neither can cancel.
	stop, stopDispatch := context.WithCancelCause(ctx)
	defer stopDispatch(nil)
	work := context.WithoutCancel(ctx)

	jobs := make(chan confluence.PageRef)
	results := make(chan FetchOutcome)
	var notDispatched atomic.Int64

	var grp errgroup.Group

	grp.Go(func() error {
		defer close(jobs)
		defer e.setPhase(Draining)

		for i, ref := range refs {
			if stop.Err() != nil {
				notDispatched.Add(int64(len(refs) - i))
				return nil
			}
			select {
			case jobs <- ref:
			case <-stop.Done():
				notDispatched.Add(int64(len(refs) - i))
				return nil
			}
		}
		return nil
	})

	remaining := int32(workers)
	for i := 0; i < workers; i++ {
		grp.Go(func() error {
			defer func() {
				// Last one out closes the shop
				if atomic.AddInt32(&remaining, -1) == 0 {
					close(results)
				}
			}()
			for ref := range jobs {
				// The dispatcher may have raced a stop signal while handing this over.
				if stop.Err() != nil {
					notDispatched.Add(1)
					continue
				}
				results <- e.exportPage(work, ref, pages)
			}
			return nil
		})
	}

	var authErr error
	for outcome := range results {
		summary.Add(outcome)
		if e.Progress != nil {
			e.Progress.PageDone(outcome)
		}

		switch {
		case outcome.Status == StatusFailed && confluence.IsAuthError(outcome.Err):
			if authErr == nil {
				authErr = outcome.Err
				log.Error("authentication failed, stopping", "page", outcome.Ref.ID, "error", outcome.Err)
				stopDispatch(authErr)
			}
		case outcome.Status == StatusFailed:
			log.Warn("page failed", "page", outcome.Ref.ID, "title", outcome.Ref.Title, "error", outcome.Err)
		default:
			log.Debug("page done", "page", outcome.Ref.ID, "status", outcome.Status, "path", outcome.Path)
		}
	}

	if err := grp.Wait(); err != nil {
		return fmt.Errorf("localdump: worker pool failed: %w", err)
	}

	summary.NotDispatched = int(notDispatched.Load())
	if summary.NotDispatched > 0 || ctx.Err() != nil {
		summary.Partial = true
		log.Warn("dispatch stopped early", "not_dispatched", summary.NotDispatched)
	}

	if authErr != nil {
		return fmt.Errorf("localdump: run aborted: %w", authErr)
	}
	return nil
}

// exportPage runs fetch, convert, resolve and write for one page.
func (e *Exporter) exportPage(ctx context.Context, ref confluence.PageRef, pages runPages) FetchOutcome {
	if e.OnlyChanged && pages.index != nil {
		path := filepath.Join(e.Writer.Root, Resolve(ref).RelativePath())
		if md, ok := pages.index.Unchanged(ref, path); ok {
			status := StatusSkipped
			if e.Writer.DryRun {
				status = StatusWouldSkip
			}
			return FetchOutcome{Ref: ref, Status: status, Path: md.Path}
		}
	}

	content, err := e.Source.FetchContent(ctx, ref.ID)
	if err != nil {
		return FetchOutcome{Ref: ref, Status: StatusFailed, Err: err}
	}

	// Listing metadata fills gaps in the single-page response.
	page := *content
	if page.SpaceKey == "" {
		page.SpaceKey = ref.SpaceKey
	}
	if page.AncestorTitles == nil {
		page.AncestorTitles = ref.AncestorTitles
		page.AncestorIDs = ref.AncestorIDs
	}
	if page.LastViewed.IsZero() {
		page.LastViewed = ref.LastViewed
	}

	webURL := ""
	if e.PageURL != nil {
		webURL = e.PageURL(page.WebUI)
	}
	markdown, conv := e.Converter.Render(page, webURL, pages.links)

	target := Resolve(page.PageRef)
	outcome := e.Writer.Write(target, markdown, e.Policy)
	outcome.ContentHash = xxhash.Sum64String(markdown)
	outcome.Degradations = conv.Degradations
	return outcome
}

// combine merges written files per subtree.  Batches of one are left alone.
func (e *Exporter) combine(ctx context.Context, summary *RunSummary, log *slog.Logger) {
	batches := map[string][]string{}
	for _, o := range summary.Outcomes {
		if o.Status != StatusWritten {
			continue
		}
		key := SubtreeKey(Resolve(o.Ref))
		batches[key] = append(batches[key], o.Path)
	}

	keys := maps.Keys(batches)
	sort.Strings(keys)

	policy := e.CombinePolicy
	if policy == nil {
		policy = Overwrite{}
	}

	for _, key := range keys {
		paths := batches[key]
		if len(paths) < 2 {
			log.Debug("not combining single-file batch", "subtree", key)
			continue
		}
		sort.Strings(paths)

		out := filepath.Join(key, CombinedFileName)
		log.Info("combining subtree", "subtree", key, "files", len(paths))
		doc, err := e.Combiner.Combine(ctx, paths, out, policy)
		if err != nil {
			log.Error("couldn't combine subtree", "subtree", key, "error", err)
			doc = CombinedDocument{SourcePaths: paths, OutputPath: out, Status: StatusFailed, Err: err}
		}
		summary.Combined = append(summary.Combined, doc)
	}
	sort.SliceStable(summary.Combined, func(i, j int) bool {
		return summary.Combined[i].OutputPath < summary.Combined[j].OutputPath
	})
}
