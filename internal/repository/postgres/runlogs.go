package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository"
)

const runLogColumns = `id, scraper_name, status, started_at, completed_at, duration_ms,
	events_found, events_imported, duplicates_skipped, errors, triggered_by,
	trigger_source, cancel_requested`

// RunLogRepository implements repository.RunLogRepository for PostgreSQL
type RunLogRepository struct {
	client *Client
	log    *zap.Logger
}

// NewRunLogRepository creates a new PostgreSQL run log repository
func NewRunLogRepository(client *Client, log *zap.Logger) *RunLogRepository {
	return &RunLogRepository{client: client, log: log}
}

// Create inserts a run log in running state
func (r *RunLogRepository) Create(ctx context.Context, run *domain.RunLog) error {
	_, err := r.client.db.ExecContext(ctx, `
		INSERT INTO scraper_logs (id, scraper_name, status, started_at, triggered_by, trigger_source)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.SourceName, string(run.Status), run.StartedAt,
		nullString(run.TriggeredBy), run.TriggerSource,
	)
	if err != nil {
		return fmt.Errorf("failed to create run log: %w", err)
	}
	return nil
}

// Finalize performs the single terminal transition of a running log
func (r *RunLogRepository) Finalize(ctx context.Context, id string, fin repository.RunFinalization) (*domain.RunLog, error) {
	errs := fin.Errors
	if errs == nil {
		errs = []string{}
	}
	completedAt := time.Now().UTC()

	row := r.client.db.QueryRowContext(ctx, `
		UPDATE scraper_logs SET
			status = $2,
			completed_at = $3,
			duration_ms = GREATEST(0, (EXTRACT(EPOCH FROM ($3::timestamptz - started_at)) * 1000)::BIGINT),
			events_found = $4,
			events_imported = $5,
			duplicates_skipped = $6,
			errors = $7
		WHERE id = $1 AND status = 'running'
		RETURNING `+runLogColumns,
		id, string(fin.Status), completedAt, fin.Counters.Found, fin.Counters.Imported,
		fin.Counters.Duplicates, pq.Array(errs),
	)

	run, err := scanRunLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to finalize run log: %w", err)
	}
	return run, nil
}

// Get returns a run log by id
func (r *RunLogRepository) Get(ctx context.Context, id string) (*domain.RunLog, error) {
	row := r.client.db.QueryRowContext(ctx,
		`SELECT `+runLogColumns+` FROM scraper_logs WHERE id = $1`, id)

	run, err := scanRunLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run log: %w", err)
	}
	return run, nil
}

// ListRunning returns every log still in running state, oldest first
func (r *RunLogRepository) ListRunning(ctx context.Context) ([]*domain.RunLog, error) {
	rows, err := r.client.db.QueryContext(ctx, `
		SELECT `+runLogColumns+`
		FROM scraper_logs
		WHERE status = 'running'
		ORDER BY started_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list running logs: %w", err)
	}
	return r.collect(rows)
}

// RequestCancel flags every running log for cancellation
func (r *RunLogRepository) RequestCancel(ctx context.Context) ([]*domain.RunLog, error) {
	rows, err := r.client.db.QueryContext(ctx, `
		UPDATE scraper_logs SET cancel_requested = TRUE
		WHERE status = 'running'
		RETURNING `+runLogColumns)
	if err != nil {
		return nil, fmt.Errorf("failed to request cancellation: %w", err)
	}
	return r.collect(rows)
}

// IsCancelRequested reports the cancellation flag of a log
func (r *RunLogRepository) IsCancelRequested(ctx context.Context, id string) (bool, error) {
	var requested bool
	err := r.client.db.QueryRowContext(ctx,
		`SELECT cancel_requested FROM scraper_logs WHERE id = $1`, id).Scan(&requested)
	if errors.Is(err, sql.ErrNoRows) {
		return false, repository.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cancel flag: %w", err)
	}
	return requested, nil
}

// Ping checks if the database connection is alive
func (r *RunLogRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

func (r *RunLogRepository) collect(rows *sql.Rows) ([]*domain.RunLog, error) {
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.log.Error("Failed to close run log rows", zap.Error(err))
		}
	}(rows)

	var runs []*domain.RunLog
	for rows.Next() {
		run, err := scanRunLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run log row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run log rows: %w", err)
	}
	return runs, nil
}

func scanRunLog(row rowScanner) (*domain.RunLog, error) {
	var (
		run         domain.RunLog
		status      string
		completedAt sql.NullTime
		durationMs  sql.NullInt64
		triggeredBy sql.NullString
	)
	err := row.Scan(
		&run.ID, &run.SourceName, &status, &run.StartedAt, &completedAt, &durationMs,
		&run.EventsFound, &run.EventsImported, &run.DuplicatesSkipped, pq.Array(&run.Errors),
		&triggeredBy, &run.TriggerSource, &run.CancelRequested,
	)
	if err != nil {
		return nil, err
	}

	run.Status = domain.RunStatus(status)
	run.TriggeredBy = triggeredBy.String
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	if durationMs.Valid {
		d := durationMs.Int64
		run.DurationMs = &d
	}
	if run.Errors == nil {
		run.Errors = []string{}
	}
	return &run, nil
}
