package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("audit: run not found")

// timeLayout is fixed-width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// Repository stores run records.
type Repository interface {
	Create(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, filter Filter) ([]Run, error)
}

// SQLiteRepository stores runs in the runs table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts run. An empty ID is filled with a new UUID and a zero
// StartedAt with the current time.
func (r *SQLiteRepository) Create(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.CompletedAt.IsZero() {
		run.CompletedAt = run.StartedAt
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, status, failure_stage, failure_kind, reason,
			steps_total, steps_completed, description, before_snapshot, after_snapshot,
			started_at, completed_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Source), string(run.Status),
		nullableString(run.FailureStage), nullableString(run.FailureKind), nullableString(run.Reason),
		run.StepsTotal, run.StepsCompleted,
		nullableString(run.Description),
		nullableString(run.BeforeSnapshot), nullableString(run.AfterSnapshot),
		run.StartedAt.UTC().Format(timeLayout),
		run.CompletedAt.UTC().Format(timeLayout),
		run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}
	return nil
}

// nullableString maps "" to SQL NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

const runColumns = `id, source, status, failure_stage, failure_kind, reason,
	steps_total, steps_completed, description, before_snapshot, after_snapshot,
	started_at, completed_at, duration_ms`

// Get returns the run with id, or ErrRunNotFound.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns runs matching filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]Run, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	var conditions []string
	var args []any
	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, string(filter.Source))
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := "SELECT " + runColumns + " FROM runs " + where + " ORDER BY started_at DESC LIMIT ?" //nolint:gosec // WHERE built from fixed, parameterised conditions
	args = append(args, filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run                       Run
		source, status            string
		stage, kind, reason, desc sql.NullString
		before, after             sql.NullString
		startedAt, completedAt    string
		durationMS                int64
	)
	if err := row.Scan(&run.ID, &source, &status, &stage, &kind, &reason,
		&run.StepsTotal, &run.StepsCompleted, &desc, &before, &after,
		&startedAt, &completedAt, &durationMS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	run.Source = Source(source)
	run.Status = Status(status)
	run.FailureStage = stage.String
	run.FailureKind = kind.String
	run.Reason = reason.String
	run.Description = desc.String
	run.BeforeSnapshot = before.String
	run.AfterSnapshot = after.String
	run.Duration = time.Duration(durationMS) * time.Millisecond

	var err error
	if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("parsing run start %q: %w", startedAt, err)
	}
	if run.CompletedAt, err = time.Parse(timeLayout, completedAt); err != nil {
		return nil, fmt.Errorf("parsing run completion %q: %w", completedAt, err)
	}
	return &run, nil
}
