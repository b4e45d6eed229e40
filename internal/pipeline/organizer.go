package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/normalize"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository"
)

// OrganizerResolver maps raw organizer text to organizer ids, creating
// review-pending organizers for unseen names
type OrganizerResolver struct {
	repo repository.OrganizerRepository
	log  *zap.Logger

	// cache maps a normalized name to an organizer id. Review state is
	// reloaded on every hit since administrators edit it out of band.
	mu    sync.RWMutex
	cache map[string]string
}

// NewOrganizerResolver creates a resolver with an empty process cache
func NewOrganizerResolver(repo repository.OrganizerRepository, log *zap.Logger) *OrganizerResolver {
	return &OrganizerResolver{
		repo:  repo,
		log:   log,
		cache: make(map[string]string),
	}
}

// Resolve returns the organizer for raw. A bound organizer id wins over the
// organizer name, which wins over the venue name.
func (r *OrganizerResolver) Resolve(ctx context.Context, raw domain.RawEvent, source, boundID string) (domain.OrganizerMatch, error) {
	if boundID != "" {
		org, err := r.repo.Get(ctx, boundID)
		switch {
		case err == nil:
			return match(org.ID, false, org.NeedsReview), nil
		case errors.Is(err, repository.ErrNotFound):
			r.log.Warn("Bound organizer does not exist, falling back to name lookup",
				zap.String("source", source),
				zap.String("organizer_id", boundID))
		default:
			return domain.OrganizerMatch{}, fmt.Errorf("failed to load bound organizer: %w", err)
		}
	}

	name := raw.OrganizerName
	if normalize.Name(name) == "" {
		name = raw.VenueName
	}
	key := normalize.Name(name)
	if key == "" {
		return domain.OrganizerMatch{}, nil
	}

	r.mu.RLock()
	cachedID, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		org, err := r.repo.Get(ctx, cachedID)
		switch {
		case err == nil:
			return match(org.ID, false, org.NeedsReview), nil
		case errors.Is(err, repository.ErrNotFound):
			r.forget(key, cachedID)
		default:
			return domain.OrganizerMatch{}, fmt.Errorf("failed to load cached organizer: %w", err)
		}
	}

	org, err := r.repo.FindByNormalizedName(ctx, key)
	if err == nil {
		r.remember(key, org)
		return match(org.ID, false, org.NeedsReview), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.OrganizerMatch{}, fmt.Errorf("failed to find organizer: %w", err)
	}

	org, created, err := r.repo.Create(ctx, &domain.Organizer{
		ID:                 uuid.NewString(),
		Name:               normalizeDisplay(name),
		NormalizedName:     key,
		AlternativeNames:   []string{},
		Status:             domain.OrganizerStatusPending,
		CreatedFromScraper: true,
		ScraperSource:      source,
		NeedsReview:        true,
		CreatedAt:          time.Now().UTC(),
	})
	if err != nil {
		return domain.OrganizerMatch{}, fmt.Errorf("failed to create organizer: %w", err)
	}

	if created {
		r.log.Info("Created organizer pending review",
			zap.String("organizer_id", org.ID),
			zap.String("name", org.Name),
			zap.String("source", source))
	}
	r.remember(key, org)
	return match(org.ID, created, org.NeedsReview), nil
}

func (r *OrganizerResolver) remember(key string, org *domain.Organizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = org.ID
}

func (r *OrganizerResolver) forget(key, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cache[key] == id {
		delete(r.cache, key)
	}
}

func match(id string, created, needsReview bool) domain.OrganizerMatch {
	return domain.OrganizerMatch{OrganizerID: &id, Created: created, NeedsReview: needsReview}
}

// normalizeDisplay collapses whitespace but keeps the original casing
func normalizeDisplay(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
