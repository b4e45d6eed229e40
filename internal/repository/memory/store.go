// Package memory provides in-process repositories for local development and tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/normalize"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository"
)

// Store implements every engine repository on guarded maps
type Store struct {
	mu sync.RWMutex

	events     map[string]*domain.CanonicalEvent
	dedupKeys  map[string]string
	organizers map[string]*domain.Organizer
	orgOrder   []string
	runs       map[string]*domain.RunLog
	progress   map[string][]*domain.ProgressEntry
	progressID int64

	// FailInsert, when set, is consulted before every event insert
	FailInsert func(event *domain.CanonicalEvent) error
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		events:     make(map[string]*domain.CanonicalEvent),
		dedupKeys:  make(map[string]string),
		organizers: make(map[string]*domain.Organizer),
		runs:       make(map[string]*domain.RunLog),
		progress:   make(map[string][]*domain.ProgressEntry),
	}
}

// Repositories exposes the store through the repository interfaces
func (s *Store) Repositories() repository.Store {
	return repository.Store{
		Events:     (*eventRepo)(s),
		Organizers: (*organizerRepo)(s),
		Runs:       (*runLogRepo)(s),
		Progress:   (*progressRepo)(s),
	}
}

// Events returns a snapshot of every persisted event
func (s *Store) Events() []domain.CanonicalEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CanonicalEvent, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b domain.CanonicalEvent) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

// Organizers returns a snapshot of every organizer in creation order
func (s *Store) Organizers() []domain.Organizer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Organizer, 0, len(s.orgOrder))
	for _, id := range s.orgOrder {
		out = append(out, *s.organizers[id])
	}
	return out
}

// PutOrganizer creates or replaces an organizer as an administrator would.
// The normalized name is always derived from Name, like the database trigger.
func (s *Store) PutOrganizer(org domain.Organizer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	org.NormalizedName = normalize.Name(org.Name)
	if _, ok := s.organizers[org.ID]; !ok {
		s.orgOrder = append(s.orgOrder, org.ID)
	}
	s.organizers[org.ID] = &org
}

// DeleteOrganizer removes an organizer as an administrator would
func (s *Store) DeleteOrganizer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.organizers, id)
	s.orgOrder = slices.DeleteFunc(s.orgOrder, func(o string) bool { return o == id })
}

type eventRepo Store

func (r *eventRepo) ExistsByDedupKey(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.dedupKeys[key]
	return ok, nil
}

func (r *eventRepo) ExistsByExternalURL(ctx context.Context, source, url string, startsAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if url == "" {
		return false, nil
	}
	day := utcDay(startsAt)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.events {
		if e.Source == source && e.ExternalURL == url && utcDay(e.StartsAt).Equal(day) {
			return true, nil
		}
	}
	return false, nil
}

func utcDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

func (r *eventRepo) IDExists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.events[id]
	return ok, nil
}

func (r *eventRepo) Insert(ctx context.Context, event *domain.CanonicalEvent) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if r.FailInsert != nil {
		if err := r.FailInsert(event); err != nil {
			return false, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.dedupKeys[event.DedupKey]; ok {
		return false, nil
	}
	if _, ok := r.events[event.ID]; ok {
		return false, repository.ErrIDTaken
	}
	stored := *event
	stored.Categories = slices.Clone(event.Categories)
	r.events[event.ID] = &stored
	r.dedupKeys[event.DedupKey] = event.ID
	return true, nil
}

func (r *eventRepo) CountBySource(ctx context.Context, source string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, e := range r.events {
		if e.Source == source {
			count++
		}
	}
	return count, nil
}

type organizerRepo Store

func (r *organizerRepo) FindByNormalizedName(ctx context.Context, normalized string) (*domain.Organizer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return (*Store)(r).findLocked(normalized)
}

func (s *Store) findLocked(normalized string) (*domain.Organizer, error) {
	for _, id := range s.orgOrder {
		if s.organizers[id].NormalizedName == normalized {
			org := *s.organizers[id]
			return &org, nil
		}
	}
	for _, id := range s.orgOrder {
		org := s.organizers[id]
		if slices.Contains(normalize.Names(org.AlternativeNames), normalized) {
			found := *org
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *organizerRepo) Create(ctx context.Context, organizer *domain.Organizer) (*domain.Organizer, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalize.Name(organizer.Name)
	for _, id := range r.orgOrder {
		if r.organizers[id].NormalizedName == key {
			existing := *r.organizers[id]
			return &existing, false, nil
		}
	}

	stored := *organizer
	stored.NormalizedName = key
	r.organizers[stored.ID] = &stored
	r.orgOrder = append(r.orgOrder, stored.ID)
	created := stored
	return &created, true, nil
}

func (r *organizerRepo) Get(ctx context.Context, id string) (*domain.Organizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	org, ok := r.organizers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := *org
	return &found, nil
}

type runLogRepo Store

func (r *runLogRepo) Create(ctx context.Context, run *domain.RunLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *run
	if stored.Errors == nil {
		stored.Errors = []string{}
	}
	r.runs[run.ID] = &stored
	return nil
}

func (r *runLogRepo) Finalize(ctx context.Context, id string, fin repository.RunFinalization) (*domain.RunLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok || run.Status != domain.RunStatusRunning {
		return nil, repository.ErrNotFound
	}

	completed := time.Now().UTC()
	duration := max(completed.Sub(run.StartedAt).Milliseconds(), 0)
	run.Status = fin.Status
	run.CompletedAt = &completed
	run.DurationMs = &duration
	run.EventsFound = fin.Counters.Found
	run.EventsImported = fin.Counters.Imported
	run.DuplicatesSkipped = fin.Counters.Duplicates
	run.Errors = slices.Clone(fin.Errors)
	if run.Errors == nil {
		run.Errors = []string{}
	}

	out := *run
	return &out, nil
}

func (r *runLogRepo) Get(ctx context.Context, id string) (*domain.RunLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *run
	out.Errors = slices.Clone(run.Errors)
	return &out, nil
}

func (r *runLogRepo) ListRunning(ctx context.Context) ([]*domain.RunLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return (*Store)(r).runningLocked(), nil
}

func (s *Store) runningLocked() []*domain.RunLog {
	var out []*domain.RunLog
	for _, run := range s.runs {
		if run.Status == domain.RunStatusRunning {
			cp := *run
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *domain.RunLog) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	return out
}

func (r *runLogRepo) RequestCancel(ctx context.Context) ([]*domain.RunLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, run := range r.runs {
		if run.Status == domain.RunStatusRunning {
			run.CancelRequested = true
		}
	}
	return (*Store)(r).runningLocked(), nil
}

func (r *runLogRepo) IsCancelRequested(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	return run.CancelRequested, nil
}

func (r *runLogRepo) Ping(ctx context.Context) error {
	return nil
}

type progressRepo Store

func (r *progressRepo) Append(ctx context.Context, entry *domain.ProgressEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.progressID++
	entry.ID = r.progressID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	stored := *entry
	r.progress[entry.RunLogID] = append(r.progress[entry.RunLogID], &stored)
	return nil
}

func (r *progressRepo) ListByRun(ctx context.Context, runLogID string) ([]*domain.ProgressEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.progress[runLogID]
	out := make([]*domain.ProgressEntry, 0, len(entries))
	for _, e := range entries {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}
