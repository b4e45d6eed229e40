package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
)

// ProgressRepository implements repository.ProgressRepository for PostgreSQL
type ProgressRepository struct {
	client *Client
	log    *zap.Logger
}

// NewProgressRepository creates a new PostgreSQL progress repository
func NewProgressRepository(client *Client, log *zap.Logger) *ProgressRepository {
	return &ProgressRepository{client: client, log: log}
}

// Append inserts the entry and fills its id and creation time
func (r *ProgressRepository) Append(ctx context.Context, entry *domain.ProgressEntry) error {
	var metadata []byte
	if len(entry.Metadata) > 0 {
		b, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal progress metadata: %w", err)
		}
		metadata = b
	}

	err := r.client.db.QueryRowContext(ctx, `
		INSERT INTO scraper_progress_logs (
			scraper_log_id, step, message, current, total, estimated_time_remaining, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		entry.RunLogID, string(entry.Step), entry.Message, entry.Current, entry.Total,
		entry.EstimatedTimeRemaining, metadata,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append progress entry: %w", err)
	}
	return nil
}

// ListByRun returns the entries of a run in insertion order
func (r *ProgressRepository) ListByRun(ctx context.Context, runLogID string) ([]*domain.ProgressEntry, error) {
	rows, err := r.client.db.QueryContext(ctx, `
		SELECT id, scraper_log_id, step, message, current, total, estimated_time_remaining,
		       metadata, created_at
		FROM scraper_progress_logs
		WHERE scraper_log_id = $1
		ORDER BY id ASC`, runLogID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress entries: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.log.Error("Failed to close progress rows", zap.Error(err))
		}
	}(rows)

	entries := []*domain.ProgressEntry{}
	for rows.Next() {
		var (
			entry                   domain.ProgressEntry
			step                    string
			current, total, etaSecs sql.NullInt64
			metadata                []byte
		)
		if err := rows.Scan(&entry.ID, &entry.RunLogID, &step, &entry.Message, &current, &total,
			&etaSecs, &metadata, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		entry.Step = domain.ProgressStep(step)
		entry.Current = intPtr(current)
		entry.Total = intPtr(total)
		entry.EstimatedTimeRemaining = intPtr(etaSecs)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode progress metadata: %w", err)
			}
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating progress rows: %w", err)
	}
	return entries, nil
}
