// Package store persists run state to a SQLite database under the
// project's .courseforge/state directory: one row per run, one per
// completed iteration, one per terminal section.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/courseforge/courseforge/internal/review"
	"github.com/courseforge/courseforge/internal/revision"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	week        INTEGER NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	status      TEXT NOT NULL DEFAULT 'running'
);
CREATE TABLE IF NOT EXISTS iterations (
	run_id            TEXT NOT NULL REFERENCES runs(id),
	section_id        TEXT NOT NULL,
	iteration         INTEGER NOT NULL,
	max_iterations    INTEGER NOT NULL,
	editor_score      REAL NOT NULL,
	student_score     REAL NOT NULL,
	combined_score    REAL NOT NULL,
	feedback_accepted INTEGER NOT NULL,
	feedback_rejected INTEGER NOT NULL,
	gate_decision     TEXT NOT NULL,
	recorded_at       TEXT NOT NULL,
	PRIMARY KEY (run_id, section_id, iteration)
);
CREATE TABLE IF NOT EXISTS sections (
	run_id        TEXT NOT NULL REFERENCES runs(id),
	section_id    TEXT NOT NULL,
	ordinal       INTEGER NOT NULL,
	title         TEXT NOT NULL,
	content       TEXT NOT NULL,
	word_count    INTEGER NOT NULL,
	iterations    INTEGER NOT NULL,
	editor_score  REAL NOT NULL,
	student_score REAL NOT NULL,
	outcome       TEXT NOT NULL,
	rolled_back   INTEGER NOT NULL,
	recorded_at   TEXT NOT NULL,
	PRIMARY KEY (run_id, section_id)
);
`

// RunStore records one run's progress. It implements revision.Recorder.
type RunStore struct {
	db    *sql.DB
	runID string
	now   func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*RunStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "store: open %s", path)
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrapf(err, "store: ping %s", path)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return nil, errors.Wrap(err, "store: set pragma")
		}
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "store: apply schema")
	}
	return &RunStore{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// RunID returns the identifier of the active run.
func (s *RunStore) RunID() string { return s.runID }

// BeginRun registers a new run and makes it the store's active run.
func (s *RunStore) BeginRun(ctx context.Context, week int) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, week, started_at, status) VALUES (?, ?, ?, 'running')`,
		id, week, s.timestamp())
	if err != nil {
		return "", errors.Wrap(err, "store: begin run")
	}
	s.runID = id
	return id, nil
}

// FinishRun marks the active run with its final status.
func (s *RunStore) FinishRun(ctx context.Context, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ? WHERE id = ?`,
		s.timestamp(), status, s.runID)
	return errors.Wrap(err, "store: finish run")
}

// RecordIteration stores one iteration's structured log row.
func (s *RunStore) RecordIteration(ctx context.Context, rec revision.IterationRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO iterations (
			run_id, section_id, iteration, max_iterations,
			editor_score, student_score, combined_score,
			feedback_accepted, feedback_rejected, gate_decision, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, rec.SectionID, rec.Iteration, rec.MaxIterations,
		rec.EditorScore, rec.StudentScore, rec.CombinedScore,
		rec.AcceptedFeedback, rec.RejectedFeedback, rec.GateDecision, s.timestamp())
	return errors.Wrapf(err, "store: record iteration %d of %s", rec.Iteration, rec.SectionID)
}

// RecordSection stores a section's terminal state and accepted content.
func (s *RunStore) RecordSection(ctx context.Context, res revision.SectionResult) error {
	rolledBack := 0
	if res.RolledBack {
		rolledBack = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sections (
			run_id, section_id, ordinal, title, content, word_count,
			iterations, editor_score, student_score, outcome, rolled_back, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, res.Spec.ID, res.Spec.Ordinal, res.Spec.Title,
		res.Draft.Content, res.Draft.WordCount, res.Iterations,
		res.FinalScores[review.RoleEditor], res.FinalScores[review.RoleStudent],
		string(res.Outcome), rolledBack, s.timestamp())
	return errors.Wrapf(err, "store: record section %s", res.Spec.ID)
}

// FlaggedSection is a section that ended without both approvals.
type FlaggedSection struct {
	SectionID string
	Title     string
	Outcome   string
}

// FlaggedSections lists the active run's force-approved and rolled-back
// sections for human audit.
func (s *RunStore) FlaggedSections(ctx context.Context) ([]FlaggedSection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT section_id, title, outcome FROM sections
		WHERE run_id = ? AND outcome != ? ORDER BY ordinal`,
		s.runID, string(revision.OutcomeApproved))
	if err != nil {
		return nil, errors.Wrap(err, "store: list flagged sections")
	}
	defer rows.Close()

	var flagged []FlaggedSection
	for rows.Next() {
		var f FlaggedSection
		if err := rows.Scan(&f.SectionID, &f.Title, &f.Outcome); err != nil {
			return nil, errors.Wrap(err, "store: scan flagged section")
		}
		flagged = append(flagged, f)
	}
	return flagged, errors.Wrap(rows.Err(), "store: iterate flagged sections")
}

func (s *RunStore) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}
