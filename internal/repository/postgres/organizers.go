package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository"
)

const organizerColumns = `id, name, normalized_name, alternative_names, status,
	created_from_scraper, scraper_source, needs_review, created_at`

// OrganizerRepository implements repository.OrganizerRepository for PostgreSQL
type OrganizerRepository struct {
	client *Client
	log    *zap.Logger
}

// NewOrganizerRepository creates a new PostgreSQL organizer repository
func NewOrganizerRepository(client *Client, log *zap.Logger) *OrganizerRepository {
	return &OrganizerRepository{client: client, log: log}
}

// FindByNormalizedName matches against the name and every alternative name.
// The keys are maintained by the organizers_name_keys trigger.
func (r *OrganizerRepository) FindByNormalizedName(ctx context.Context, normalized string) (*domain.Organizer, error) {
	row := r.client.db.QueryRowContext(ctx, `
		SELECT `+organizerColumns+`
		FROM organizers
		WHERE normalized_name = organizer_name_key($1)
			OR organizer_name_key($1) = ANY(normalized_alternatives)
		ORDER BY (normalized_name = organizer_name_key($1)) DESC, created_at ASC
		LIMIT 1`, normalized)

	org, err := scanOrganizer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find organizer: %w", err)
	}
	return org, nil
}

// Create inserts the organizer or returns the row already holding its normalized name
func (r *OrganizerRepository) Create(ctx context.Context, organizer *domain.Organizer) (*domain.Organizer, bool, error) {
	alternatives := organizer.AlternativeNames
	if alternatives == nil {
		alternatives = []string{}
	}

	row := r.client.db.QueryRowContext(ctx, `
		INSERT INTO organizers (
			id, name, alternative_names, status,
			created_from_scraper, scraper_source, needs_review, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (normalized_name) DO NOTHING
		RETURNING `+organizerColumns,
		organizer.ID, organizer.Name, pq.Array(alternatives), string(organizer.Status),
		organizer.CreatedFromScraper, nullString(organizer.ScraperSource), organizer.NeedsReview,
		organizer.CreatedAt,
	)

	created, err := scanOrganizer(row)
	if err == nil {
		r.log.Info("Organizer created",
			zap.String("organizer_id", created.ID),
			zap.String("name", created.Name),
			zap.String("scraper_source", created.ScraperSource))
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create organizer: %w", err)
	}

	existing, err := r.FindByNormalizedName(ctx, organizer.Name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load conflicting organizer: %w", err)
	}
	return existing, false, nil
}

// Get returns an organizer by id
func (r *OrganizerRepository) Get(ctx context.Context, id string) (*domain.Organizer, error) {
	row := r.client.db.QueryRowContext(ctx,
		`SELECT `+organizerColumns+` FROM organizers WHERE id = $1`, id)

	org, err := scanOrganizer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organizer: %w", err)
	}
	return org, nil
}

func scanOrganizer(row rowScanner) (*domain.Organizer, error) {
	var (
		org           domain.Organizer
		status        string
		scraperSource sql.NullString
	)
	err := row.Scan(
		&org.ID, &org.Name, &org.NormalizedName, pq.Array(&org.AlternativeNames), &status,
		&org.CreatedFromScraper, &scraperSource, &org.NeedsReview, &org.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	org.Status = domain.OrganizerStatus(status)
	org.ScraperSource = scraperSource.String
	return &org, nil
}
