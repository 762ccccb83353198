// Package recorder keeps the run ledger: an append-only record of every
// publish attempt, backed by sqlite. It implements the pipeline's RunLogger
// port and serves the cross-run skip-published filter and CSV export.
package recorder

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/propline/promopost/internal/types"
)

// Store handles all ledger database operations.
type Store struct {
	db *sql.DB
}

// New creates a Store with SQLite backend
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		published INTEGER,
		failed INTEGER,
		unconfirmed INTEGER,
		not_attempted INTEGER,
		cancelled INTEGER
	);

	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT REFERENCES runs(id),
		item_id TEXT NOT NULL,
		address TEXT,
		stage TEXT NOT NULL,
		succeeded BOOLEAN NOT NULL,
		unconfirmed BOOLEAN,
		fatal BOOLEAN,
		detail TEXT,
		post_ref TEXT,
		recorded_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_item ON outcomes(item_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RunRecorder binds the store to one run so outcomes are attributed to it.
type RunRecorder struct {
	store *Store
	runID string
}

// ForRun returns a RunLogger-shaped recorder for a run.
func (s *Store) ForRun(runID string) *RunRecorder {
	return &RunRecorder{store: s, runID: runID}
}

// Record appends the publish outcome of one item to the ledger.
func (r *RunRecorder) Record(ctx context.Context, item types.ListingItem, outcome types.StageOutcome) error {
	return r.store.appendOutcome(ctx, r.runID, item, outcome)
}

func (s *Store) appendOutcome(ctx context.Context, runID string, item types.ListingItem, o types.StageOutcome) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outcomes (run_id, item_id, address, stage, succeeded,
			unconfirmed, fatal, detail, post_ref, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, item.ID, item.Address, string(o.Stage), o.Succeeded,
		o.Unconfirmed, o.Fatal, o.Detail, o.PostRef, o.RecordedAt)
	return err
}

// SaveReport persists the run header and every stage outcome of a finished run.
func (s *Store) SaveReport(ctx context.Context, report *types.RunReport) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, published, failed,
			unconfirmed, not_attempted, cancelled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			published = excluded.published,
			failed = excluded.failed,
			unconfirmed = excluded.unconfirmed,
			not_attempted = excluded.not_attempted,
			cancelled = excluded.cancelled
	`, report.RunID, report.StartedAt, report.FinishedAt, report.Published,
		report.Failed, report.Unconfirmed, report.NotAttempted, report.Cancelled)
	if err != nil {
		return err
	}

	for _, item := range report.Items {
		for _, outcome := range item.Stages {
			// Publish outcomes were already appended live by Record.
			if outcome.Stage == types.StagePublish {
				continue
			}
			if err := s.appendOutcome(ctx, report.RunID, item.Item, outcome); err != nil {
				return err
			}
		}
	}
	return nil
}

// PublishedItemIDs returns the IDs of items with a confirmed publish in any
// prior run. Unconfirmed submissions are deliberately excluded: they are not
// safely known to be published.
func (s *Store) PublishedItemIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT item_id FROM outcomes
		WHERE stage = ? AND succeeded = 1
	`, string(types.StagePublish))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// ExportCSV writes the full ledger to a CSV file for the back-office
// spreadsheet.
func (s *Store) ExportCSV(ctx context.Context, path string) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, item_id, address, stage, succeeded, unconfirmed,
			fatal, detail, post_ref, recorded_at
		FROM outcomes ORDER BY recorded_at
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"run_id", "item_id", "address", "stage",
		"succeeded", "unconfirmed", "fatal", "detail", "post_ref", "recorded_at"}); err != nil {
		return err
	}

	for rows.Next() {
		var runID, itemID, address, stage, detail, postRef string
		var succeeded, unconfirmed, fatal bool
		var recordedAt time.Time
		if err := rows.Scan(&runID, &itemID, &address, &stage, &succeeded,
			&unconfirmed, &fatal, &detail, &postRef, &recordedAt); err != nil {
			return err
		}
		record := []string{
			runID, itemID, address, stage,
			fmt.Sprintf("%t", succeeded),
			fmt.Sprintf("%t", unconfirmed),
			fmt.Sprintf("%t", fatal),
			detail, postRef,
			recordedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
