package repository

import (
	"context"
	"errors"
	"time"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// ErrIDTaken is returned by EventRepository.Insert when another event holds the id
var ErrIDTaken = errors.New("event id taken")

// RunFinalization carries the terminal values written to a run log exactly once
type RunFinalization struct {
	Status   domain.RunStatus
	Counters domain.RunCounters
	Errors   []string
}

// EventRepository defines storage operations for canonical events
type EventRepository interface {
	// ExistsByDedupKey reports whether an event with the given dedup key is persisted
	ExistsByDedupKey(ctx context.Context, key string) (bool, error)

	// ExistsByExternalURL reports whether the source already imported the URL for
	// an event on the same UTC day as startsAt
	ExistsByExternalURL(ctx context.Context, source, url string, startsAt time.Time) (bool, error)

	// IDExists reports whether an event id is taken
	IDExists(ctx context.Context, id string) (bool, error)

	// Insert persists the event; inserted is false when an event with the same
	// dedup key exists and err is ErrIDTaken when only the id collides
	Insert(ctx context.Context, event *domain.CanonicalEvent) (inserted bool, err error)

	// CountBySource returns the number of persisted events for a source
	CountBySource(ctx context.Context, source string) (int, error)
}

// OrganizerRepository defines storage operations for organizers
type OrganizerRepository interface {
	// FindByNormalizedName matches the normalized name against names and alternative names
	FindByNormalizedName(ctx context.Context, normalized string) (*domain.Organizer, error)

	// Create inserts the organizer, or returns the existing row with the same normalized name
	Create(ctx context.Context, organizer *domain.Organizer) (*domain.Organizer, bool, error)

	Get(ctx context.Context, id string) (*domain.Organizer, error)
}

// RunLogRepository defines storage operations for run logs
type RunLogRepository interface {
	Create(ctx context.Context, run *domain.RunLog) error

	// Finalize moves a running log to a terminal status; it returns ErrNotFound
	// when the log does not exist or is no longer running
	Finalize(ctx context.Context, id string, fin RunFinalization) (*domain.RunLog, error)

	Get(ctx context.Context, id string) (*domain.RunLog, error)

	ListRunning(ctx context.Context) ([]*domain.RunLog, error)

	// RequestCancel flags every running log and returns the flagged logs
	RequestCancel(ctx context.Context) ([]*domain.RunLog, error)

	IsCancelRequested(ctx context.Context, id string) (bool, error)

	Ping(ctx context.Context) error
}

// ProgressRepository defines storage operations for progress entries
type ProgressRepository interface {
	Append(ctx context.Context, entry *domain.ProgressEntry) error

	// ListByRun returns the entries of a run ordered by creation
	ListByRun(ctx context.Context, runLogID string) ([]*domain.ProgressEntry, error)
}

// DecisionRepository defines storage operations for the publish decision audit trail
type DecisionRepository interface {
	// InsertBatch inserts a batch of decisions into the storage
	InsertBatch(ctx context.Context, decisions []*domain.PublishDecision) (int, error)

	// InitSchema initializes the database schema (creates tables if they don't exist)
	InitSchema(ctx context.Context) error

	// Ping checks if the database connection is alive
	Ping(ctx context.Context) error

	// Close closes the repository and releases resources
	Close() error
}

// Store bundles the transactional repositories used by the engine
type Store struct {
	Events     EventRepository
	Organizers OrganizerRepository
	Runs       RunLogRepository
	Progress   ProgressRepository
}
