package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository"
)

const (
	uniqueViolation  = "23505"
	eventsPrimaryKey = "events_pkey"
)

// EventRepository implements repository.EventRepository for PostgreSQL
type EventRepository struct {
	client *Client
	log    *zap.Logger
}

// NewEventRepository creates a new PostgreSQL event repository
func NewEventRepository(client *Client, log *zap.Logger) *EventRepository {
	return &EventRepository{client: client, log: log}
}

// ExistsByDedupKey reports whether an event with the dedup key is persisted
func (r *EventRepository) ExistsByDedupKey(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.client.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM events WHERE dedup_key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check dedup key: %w", err)
	}
	return exists, nil
}

// ExistsByExternalURL reports whether the source already imported the URL for
// an event on the same UTC day as startsAt
func (r *EventRepository) ExistsByExternalURL(ctx context.Context, source, url string, startsAt time.Time) (bool, error) {
	if url == "" {
		return false, nil
	}
	day := startsAt.UTC().Truncate(24 * time.Hour)
	var exists bool
	err := r.client.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM events
			WHERE source = $1 AND external_url = $2 AND starts_at >= $3 AND starts_at < $4
		)`,
		source, url, day, day.Add(24*time.Hour)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check external url: %w", err)
	}
	return exists, nil
}

// IDExists reports whether an event id is taken
func (r *EventRepository) IDExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.client.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check event id: %w", err)
	}
	return exists, nil
}

// Insert persists the event. A dedup key conflict is skipped; an id conflict
// returns repository.ErrIDTaken so the caller can pick another id.
func (r *EventRepository) Insert(ctx context.Context, event *domain.CanonicalEvent) (bool, error) {
	scores, err := json.Marshal(event.CategoryScores)
	if err != nil {
		return false, fmt.Errorf("failed to marshal category scores: %w", err)
	}

	issues := event.QualityIssues
	if issues == nil {
		issues = []string{}
	}

	res, err := r.client.db.ExecContext(ctx, `
		INSERT INTO events (
			id, name, description, starts_at, location, venue_name, image_url, external_url,
			organizer_id, categories, category_scores, quality_score, quality_issues,
			status, auto_published, source, dedup_key, scraper_log_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (dedup_key) DO NOTHING`,
		event.ID, event.Name, event.Description, event.StartsAt, event.Location, event.VenueName,
		event.ImageURL, event.ExternalURL, event.OrganizerID, pq.Array(event.Categories), scores,
		event.QualityScore, pq.Array(issues), string(event.Status), event.AutoPublished,
		event.Source, event.DedupKey, nullString(event.RunLogID), event.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == eventsPrimaryKey {
		return false, repository.ErrIDTaken
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert event: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		r.log.Debug("Event insert skipped on dedup key conflict",
			zap.String("event_id", event.ID),
			zap.String("source", event.Source))
	}
	return affected == 1, nil
}

// CountBySource returns the number of persisted events for a source
func (r *EventRepository) CountBySource(ctx context.Context, source string) (int, error) {
	var count int
	err := r.client.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE source = $1`, source).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}
