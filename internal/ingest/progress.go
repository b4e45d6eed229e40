package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository"
)

const (
	defaultWatchInterval = time.Second
	minWatchInterval     = 10 * time.Millisecond
	maxWatchInterval     = 30 * time.Second
)

// Update is one progress report
type Update struct {
	Step     domain.ProgressStep
	Message  string
	Current  *int
	Total    *int
	Metadata map[string]any
}

// Reporter appends progress entries for one run. Steps only move forward;
// after a terminal entry the reporter is closed.
type Reporter struct {
	repo    repository.ProgressRepository
	runID   string
	started time.Time
	now     func() time.Time
	log     *zap.Logger

	mu      sync.Mutex
	step    domain.ProgressStep
	current *int
	total   *int
	closed  bool
}

// NewReporter creates a reporter for the run started at started
func NewReporter(repo repository.ProgressRepository, runID string, started time.Time, log *zap.Logger) *Reporter {
	return &Reporter{
		repo:    repo,
		runID:   runID,
		started: started,
		now:     time.Now,
		log:     log,
	}
}

// Report writes u unless it moves backwards or repeats the current step
// without new counters. Reports after a terminal entry fail with ErrReporterClosed.
func (r *Reporter) Report(ctx context.Context, u Update) error {
	if u.Step.Rank() < 0 {
		return fmt.Errorf("unknown progress step %q", u.Step)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrReporterClosed
	}

	switch cur := r.step.Rank(); {
	case r.step == "":
	case u.Step == domain.StepFailed:
	case u.Step.Rank() < cur:
		return nil
	case u.Step == r.step:
		if !r.advances(u) {
			return nil
		}
	}

	entry := &domain.ProgressEntry{
		RunLogID:               r.runID,
		Step:                   u.Step,
		Message:                u.Message,
		Current:                u.Current,
		Total:                  u.Total,
		EstimatedTimeRemaining: r.eta(u.Current, u.Total),
		Metadata:               u.Metadata,
	}

	if u.Step.IsTerminal() {
		r.closed = true
	}
	if err := r.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append progress: %w", err)
	}

	r.step = u.Step
	r.current = u.Current
	r.total = u.Total
	return nil
}

// advances reports whether u carries counters beyond the last written ones
func (r *Reporter) advances(u Update) bool {
	if u.Current == nil && u.Total == nil {
		return false
	}
	if u.Current != nil && r.current != nil && *u.Current < *r.current {
		return false
	}
	return !equalPtr(u.Current, r.current) || !equalPtr(u.Total, r.total)
}

func (r *Reporter) eta(current, total *int) *int {
	if current == nil || total == nil || *current <= 0 {
		return nil
	}
	remaining := max(*total-*current, 0)
	elapsed := r.now().Sub(r.started).Seconds()
	secs := int(elapsed * float64(remaining) / float64(*current))
	return &secs
}

// Closed reports whether a terminal entry has been written
func (r *Reporter) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Step reports entering step without counters
func (r *Reporter) Step(ctx context.Context, step domain.ProgressStep, message string) error {
	return r.Report(ctx, Update{Step: step, Message: message})
}

// Progress reports counters within step
func (r *Reporter) Progress(ctx context.Context, step domain.ProgressStep, message string, current, total int) error {
	return r.Report(ctx, Update{Step: step, Message: message, Current: &current, Total: &total})
}

func equalPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Snapshot is the state of a run observed by Watch
type Snapshot struct {
	Run     *domain.RunLog
	Entries []*domain.ProgressEntry
}

// Watch polls the run and its progress entries every interval and calls fn
// whenever something changed. It returns nil after delivering the snapshot
// with a terminal run status.
func Watch(ctx context.Context, runs repository.RunLogRepository, progress repository.ProgressRepository, runID string, interval time.Duration, fn func(Snapshot) error) error {
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	interval = min(max(interval, minWatchInterval), maxWatchInterval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastEntries int
	var lastStatus domain.RunStatus
	first := true

	for {
		run, err := runs.Get(ctx, runID)
		if err != nil {
			return fmt.Errorf("failed to load run: %w", err)
		}
		entries, err := progress.ListByRun(ctx, runID)
		if err != nil {
			return fmt.Errorf("failed to load progress: %w", err)
		}

		if first || len(entries) != lastEntries || run.Status != lastStatus {
			if err := fn(Snapshot{Run: run, Entries: entries}); err != nil {
				return err
			}
			first = false
			lastEntries = len(entries)
			lastStatus = run.Status
		}

		if run.Status.IsTerminal() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
