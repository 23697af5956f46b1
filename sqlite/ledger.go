package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/toothbrush/confluence-export/localdump"
)

var _ localdump.RunRecorder = (*Ledger)(nil)

// Fixed width so that started_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Ledger records export runs and their page outcomes.
type Ledger struct {
	db *DB
}

func NewLedger(db *DB) *Ledger {
	return &Ledger{db: db}
}

// Run is one recorded export run.
type Run struct {
	ID            string
	Mode          string
	Scope         string
	Started       time.Time
	Elapsed       time.Duration
	Collected     int
	Written       int
	Skipped       int
	Failed        int
	Partial       bool
	NotDispatched int
}

// PageRecord is the outcome of one page in a recorded run.
type PageRecord struct {
	RunID       string
	PageID      string
	Title       string
	Status      localdump.Status
	Path        string
	ContentHash string
	Error       string
}

// RecordRun stores a finished run in one transaction.
func (l *Ledger) RecordRun(ctx context.Context, s *localdump.RunSummary) error {
	tx, err := l.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: couldn't begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	written := s.Counts[localdump.StatusWritten] + s.Counts[localdump.StatusWouldWrite]
	skipped := s.Counts[localdump.StatusSkipped] + s.Counts[localdump.StatusWouldSkip]

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, mode, scope, started_at, elapsed_ms, collected, written, skipped, failed, partial, not_dispatched)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.RunID, string(s.Mode), s.Scope, s.Started.UTC().Format(timeLayout), s.Elapsed.Milliseconds(),
		s.Collected, written, skipped, s.Counts[localdump.StatusFailed], s.Partial, s.NotDispatched)
	if err != nil {
		return fmt.Errorf("sqlite: couldn't insert run %s: %w", s.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO page_outcomes (run_id, page_id, title, status, path, content_hash, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("sqlite: couldn't prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range s.Outcomes {
		hash := ""
		if o.ContentHash != 0 {
			// uint64 doesn't fit an INTEGER column.
			hash = fmt.Sprintf("%016x", o.ContentHash)
		}
		errText := ""
		if o.Err != nil {
			errText = o.Err.Error()
		}
		if _, err := stmt.ExecContext(ctx, s.RunID, o.Ref.ID, o.Ref.Title, string(o.Status), o.Path, hash, errText); err != nil {
			return fmt.Errorf("sqlite: couldn't insert outcome for page %s: %w", o.Ref.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: couldn't commit run %s: %w", s.RunID, err)
	}
	return nil
}

// Runs lists recorded runs, newest first.  A limit of 0 lists all of them.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	var query strings.Builder
	query.WriteString(`
		SELECT id, mode, scope, started_at, elapsed_ms, collected, written, skipped, failed, partial, not_dispatched
		FROM runs
		ORDER BY started_at DESC, id`)
	var args []any
	appendPagination(&query, &args, limit, 0)

	rows, err := l.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: couldn't list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r         Run
			started   string
			elapsedMS int64
		)
		if err := rows.Scan(&r.ID, &r.Mode, &r.Scope, &started, &elapsedMS, &r.Collected,
			&r.Written, &r.Skipped, &r.Failed, &r.Partial, &r.NotDispatched); err != nil {
			return nil, fmt.Errorf("sqlite: couldn't scan run: %w", err)
		}
		if r.Started, err = parseRFC3339(started, "started_at"); err != nil {
			return nil, err
		}
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Pages lists the page outcomes of one run, ordered by page id.
func (l *Ledger) Pages(ctx context.Context, runID string) ([]PageRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT run_id, page_id, title, status, path, content_hash, error
		FROM page_outcomes
		WHERE run_id = ?
		ORDER BY page_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: couldn't list pages of run %s: %w", runID, err)
	}
	defer rows.Close()

	pages := []PageRecord{}
	for rows.Next() {
		var p PageRecord
		if err := rows.Scan(&p.RunID, &p.PageID, &p.Title, &p.Status, &p.Path, &p.ContentHash, &p.Error); err != nil {
			return nil, fmt.Errorf("sqlite: couldn't scan page outcome: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}
