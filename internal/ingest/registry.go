package ingest

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
)

// ActiveRun is a run owned by this process
type ActiveRun struct {
	ID        string
	Source    string
	StartedAt time.Time

	cancel     context.CancelCauseFunc
	found      atomic.Int64
	imported   atomic.Int64
	duplicates atomic.Int64
}

// Counters returns the live counts of the run
func (r *ActiveRun) Counters() domain.RunCounters {
	return domain.RunCounters{
		Found:      int(r.found.Load()),
		Imported:   int(r.imported.Load()),
		Duplicates: int(r.duplicates.Load()),
	}
}

// Cancel stops the run with the given cause
func (r *ActiveRun) Cancel(cause error) {
	r.cancel(cause)
}

// Registry tracks the runs owned by this process
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*ActiveRun
}

// NewRegistry creates an empty run registry
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*ActiveRun)}
}

func (r *Registry) add(run *ActiveRun) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, id)
}

// Get returns the active run with the id
func (r *Registry) Get(id string) (*ActiveRun, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	return run, ok
}

// List returns the active runs, oldest first
func (r *Registry) List() []*ActiveRun {
	r.mu.RLock()
	out := make([]*ActiveRun, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, run)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *ActiveRun) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	return out
}

// CancelAll cancels every active run and returns them
func (r *Registry) CancelAll(cause error) []*ActiveRun {
	runs := r.List()
	for _, run := range runs {
		run.Cancel(cause)
	}
	return runs
}
