// File: internal/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pwscript/api/schemas"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Schema creates the run report tables.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          UUID PRIMARY KEY,
    script      TEXT NOT NULL,
    tab_id      TEXT NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    passed      INTEGER NOT NULL,
    failed      INTEGER NOT NULL,
    cancelled   BOOLEAN NOT NULL
);
CREATE TABLE IF NOT EXISTS run_lines (
    run_id      UUID NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
    line_index  INTEGER NOT NULL,
    line        TEXT NOT NULL,
    outcome     TEXT NOT NULL,
    result_kind TEXT NOT NULL,
    result_data TEXT NOT NULL,
    PRIMARY KEY (run_id, line_index)
);
`

const (
	sqlUpsertRun = `
        INSERT INTO runs (id, script, tab_id, started_at, finished_at, passed, failed, cancelled)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO UPDATE SET
            finished_at = EXCLUDED.finished_at,
            passed = EXCLUDED.passed,
            failed = EXCLUDED.failed,
            cancelled = EXCLUDED.cancelled;
    `
	sqlDeleteLines = `DELETE FROM run_lines WHERE run_id = $1;`
	sqlGetRun      = `
        SELECT id, script, tab_id, started_at, finished_at, passed, failed, cancelled
        FROM runs
        WHERE id = $1;
    `
	sqlGetLines = `
        SELECT line_index, line, outcome, result_kind, result_data
        FROM run_lines
        WHERE run_id = $1
        ORDER BY line_index ASC;
    `
	sqlListRuns = `
        SELECT id, script, tab_id, started_at, finished_at, passed, failed, cancelled
        FROM runs
        ORDER BY started_at DESC
        LIMIT $1;
    `
)

var lineColumns = []string{"run_id", "line_index", "line", "outcome", "result_kind", "result_data"}

// ErrRunNotFound is returned by GetRun for unknown ids.
var ErrRunNotFound = errors.New("run not found")

// Store persists run reports in PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Open connects to url and returns a store together with a close function
// for the underlying pool.
func Open(ctx context.Context, url string, logger *zap.Logger) (*Store, func(), error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	s, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool.Close, nil
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// SaveRun stores a report and its lines in one transaction. Saving the same
// run id again replaces its lines.
func (s *Store) SaveRun(ctx context.Context, report *schemas.RunReport) error {
	if report == nil || report.ID == "" {
		return errors.New("run report has no id")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if _, err := tx.Exec(ctx, sqlUpsertRun,
		report.ID, report.Script, report.TabID,
		report.StartedAt.UTC(), report.FinishedAt.UTC(),
		report.Passed, report.Failed, report.Cancelled,
	); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", report.ID, err)
	}
	if _, err := tx.Exec(ctx, sqlDeleteLines, report.ID); err != nil {
		return fmt.Errorf("failed to clear lines of run %s: %w", report.ID, err)
	}

	if len(report.Lines) > 0 {
		rows := make([][]any, len(report.Lines))
		for i, l := range report.Lines {
			kind, data := "", ""
			if l.Result != nil {
				kind, data = string(l.Result.Kind), l.Result.Data
			}
			rows[i] = []any{report.ID, l.Index, l.Line, string(l.Outcome), kind, data}
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"run_lines"}, lineColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy run lines: %w", err)
		}
		if int(n) != len(rows) {
			return fmt.Errorf("mismatch in copied line count: expected %d, got %d", len(rows), n)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Saved run.", zap.String("run_id", report.ID), zap.Int("lines", len(report.Lines)))
	return nil
}

func scanRun(rows pgx.Rows) (schemas.RunReport, error) {
	var r schemas.RunReport
	err := rows.Scan(&r.ID, &r.Script, &r.TabID, &r.StartedAt, &r.FinishedAt, &r.Passed, &r.Failed, &r.Cancelled)
	return r, err
}

// GetRun loads a report with its lines.
func (s *Store) GetRun(ctx context.Context, id string) (*schemas.RunReport, error) {
	rows, err := s.pool.Query(ctx, sqlGetRun, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	var report *schemas.RunReport
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		report = &r
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	if report == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	lines, err := s.pool.Query(ctx, sqlGetLines, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run lines: %w", err)
	}
	defer lines.Close()
	for lines.Next() {
		var (
			l          schemas.LineReport
			outcome    string
			kind, data string
		)
		if err := lines.Scan(&l.Index, &l.Line, &outcome, &kind, &data); err != nil {
			return nil, fmt.Errorf("failed to scan line row: %w", err)
		}
		l.Outcome = schemas.LineOutcome(outcome)
		if kind != "" {
			l.Result = &schemas.Result{
				Success: kind != string(schemas.KindError),
				Kind:    schemas.ResultKind(kind),
				Data:    data,
			}
		}
		report.Lines = append(report.Lines, l)
	}
	if err := lines.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return report, nil
}

// ListRuns returns the most recent runs without their lines.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]schemas.RunReport, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, sqlListRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []schemas.RunReport
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return runs, nil
}
