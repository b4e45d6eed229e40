// Package ingest runs source adapters through the ingestion pipeline and
// tracks each run from its log entry to its terminal status.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/audit"
	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/metrics"
	"github.com/BarkinBalci/event-ingestion-service/internal/pipeline"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository"
	"github.com/BarkinBalci/event-ingestion-service/internal/source"
)

const (
	finalizeTimeout = 10 * time.Second
	maxIDAttempts   = 5
)

// Config holds the run budget and polling settings
type Config struct {
	RunTimeout         time.Duration
	CancelPollInterval time.Duration
}

// Stages are the per-record pipeline stages
type Stages struct {
	Dedup       *pipeline.Deduplicator
	Categorizer *pipeline.Categorizer
	Organizers  *pipeline.OrganizerResolver
	Scorer      *pipeline.QualityScorer
}

// Orchestrator runs sources concurrently, one goroutine per source
type Orchestrator struct {
	sources  source.Registry
	store    repository.Store
	stages   Stages
	recorder audit.Recorder
	metrics  *metrics.Metrics
	runs     *Registry
	cfg      Config
	log      *zap.Logger
}

// NewOrchestrator wires the orchestrator
func NewOrchestrator(sources source.Registry, store repository.Store, stages Stages, recorder audit.Recorder, m *metrics.Metrics, cfg Config, log *zap.Logger) *Orchestrator {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 5 * time.Minute
	}
	if cfg.CancelPollInterval <= 0 {
		cfg.CancelPollInterval = time.Second
	}
	return &Orchestrator{
		sources:  sources,
		store:    store,
		stages:   stages,
		recorder: recorder,
		metrics:  m,
		runs:     NewRegistry(),
		cfg:      cfg,
		log:      log,
	}
}

// Runs returns the registry of runs owned by this orchestrator
func (o *Orchestrator) Runs() *Registry {
	return o.runs
}

// RunAll runs the enabled sources, or the named subset, and waits for all of them
func (o *Orchestrator) RunAll(ctx context.Context, filter []string, trigger domain.Trigger) (*domain.RunSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	selected, unknown := o.sources.Select(filter)
	results := make([]domain.RunResult, len(selected)+len(unknown))

	o.log.Info("Starting ingestion",
		zap.Int("sources", len(selected)),
		zap.Strings("unknown", unknown),
		zap.String("trigger", trigger.Source),
		zap.String("user", trigger.UserEmail))

	var wg sync.WaitGroup
	for i, src := range selected {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = o.runSource(ctx, src, trigger)
		}()
	}
	wg.Wait()

	for i, name := range unknown {
		results[len(selected)+i] = domain.RunResult{
			Source: name,
			Status: domain.RunStatusFailed,
			Errors: []string{ErrUnknownSource.Error()},
		}
	}

	summary := &domain.RunSummary{
		Timestamp:    time.Now().UTC(),
		TotalSources: len(results),
		Results:      results,
	}
	for _, r := range results {
		summary.TotalFound += r.EventsFound
		summary.TotalImported += r.EventsImported
		summary.TotalDuplicates += r.DuplicatesSkipped
	}

	o.log.Info("Ingestion finished",
		zap.Int("sources", summary.TotalSources),
		zap.Int("found", summary.TotalFound),
		zap.Int("imported", summary.TotalImported),
		zap.Int("duplicates", summary.TotalDuplicates))

	return summary, nil
}

// CancelRunning flags every running run log for cancellation and cancels the
// runs owned by this process. It returns the runs that were running.
func (o *Orchestrator) CancelRunning(ctx context.Context) ([]*domain.RunLog, error) {
	flagged, err := o.store.Runs.RequestCancel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to request cancellation: %w", err)
	}
	local := o.runs.CancelAll(ErrRunCancelled)

	o.log.Info("Cancellation requested",
		zap.Int("running", len(flagged)),
		zap.Int("local", len(local)))
	return flagged, nil
}

// RunningRun is a running run log with counters
type RunningRun struct {
	Run      *domain.RunLog
	Counters domain.RunCounters
	Local    bool
}

// ListRunning returns running run logs, with live counters for local runs
func (o *Orchestrator) ListRunning(ctx context.Context) ([]RunningRun, error) {
	logs, err := o.store.Runs.ListRunning(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list running runs: %w", err)
	}

	out := make([]RunningRun, 0, len(logs))
	for _, l := range logs {
		rr := RunningRun{Run: l, Counters: domain.RunCounters{
			Found:      l.EventsFound,
			Imported:   l.EventsImported,
			Duplicates: l.DuplicatesSkipped,
		}}
		if active, ok := o.runs.Get(l.ID); ok {
			rr.Counters = active.Counters()
			rr.Local = true
		}
		out = append(out, rr)
	}
	return out, nil
}

// run is the state of one source run
type run struct {
	active    *ActiveRun
	src       source.Registered
	reporter  *Reporter
	dedup     *pipeline.DedupBatch
	ids       *pipeline.IDAllocator
	errors    []string
	processed int
	total     int
}

func (o *Orchestrator) runSource(ctx context.Context, src source.Registered, trigger domain.Trigger) domain.RunResult {
	name := src.Name()
	log := o.log.With(zap.String("source", name))
	started := time.Now().UTC()

	runLog := &domain.RunLog{
		ID:            uuid.NewString(),
		SourceName:    name,
		Status:        domain.RunStatusRunning,
		StartedAt:     started,
		TriggeredBy:   trigger.UserEmail,
		TriggerSource: trigger.Source,
	}
	if err := o.store.Runs.Create(ctx, runLog); err != nil {
		log.Error("Failed to create run log", zap.Error(err))
		return domain.RunResult{
			Source: name,
			Status: domain.RunStatusFailed,
			Errors: []string{fmt.Sprintf("failed to create run log: %v", err)},
		}
	}
	log = log.With(zap.String("run_id", runLog.ID))

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	runCtx, cancelTimeout := context.WithTimeoutCause(runCtx, o.cfg.RunTimeout, ErrRunTimeout)
	defer cancelTimeout()

	r := &run{
		active: &ActiveRun{
			ID:        runLog.ID,
			Source:    name,
			StartedAt: started,
			cancel:    cancel,
		},
		src:      src,
		reporter: NewReporter(o.store.Progress, runLog.ID, started, log),
		dedup:    o.stages.Dedup.NewBatch(name),
		ids:      pipeline.NewIDAllocator(o.store.Events),
	}

	o.runs.add(r.active)
	defer o.runs.remove(runLog.ID)
	o.metrics.RunStarted()

	watchCtx, stopWatch := context.WithCancel(runCtx)
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		o.watchCancelFlag(watchCtx, runLog.ID, cancel, log)
	}()

	log.Info("Run started")
	o.report(runCtx, r, Update{Step: domain.StepStarting, Message: "Starting " + name})

	adapterErr := o.consume(runCtx, r, log)

	stopWatch()
	<-watchDone

	status := o.status(runCtx, r, adapterErr)
	return o.finalize(ctx, r, runLog, status, log)
}

// consume fetches the batch and runs every record through the pipeline. It
// returns the adapter error, if any.
func (o *Orchestrator) consume(ctx context.Context, r *run, log *zap.Logger) error {
	name := r.src.Name()
	o.report(ctx, r, Update{Step: domain.StepScraping, Message: "Fetching events from " + name})

	batch, err := r.src.Adapter.Fetch(ctx)
	if err != nil {
		if context.Cause(ctx) != nil {
			return nil
		}
		log.Error("Source fetch failed", zap.Error(err))
		return err
	}

	r.total = batch.Total
	total := batch.Total
	o.report(ctx, r, Update{
		Step:    domain.StepScraping,
		Message: fmt.Sprintf("Found %d events", total),
		Current: new(int),
		Total:   &total,
	})

	for raw, err := range batch.Records {
		if context.Cause(ctx) != nil {
			break
		}
		if err != nil {
			if context.Cause(ctx) != nil {
				break
			}
			log.Error("Source failed mid-stream", zap.Error(err))
			return err
		}

		r.active.found.Add(1)
		outcome, err := o.process(ctx, r, raw)
		if err != nil {
			if context.Cause(ctx) != nil {
				break
			}
			r.errors = append(r.errors, fmt.Sprintf("%s: %v", displayName(raw), err))
			log.Warn("Failed to process event", zap.String("name", raw.Name), zap.Error(err))
			outcome = metrics.OutcomeFailed
		}
		o.metrics.Record(name, outcome)

		r.processed++
		o.report(ctx, r, Update{
			Step:    domain.StepImporting,
			Message: fmt.Sprintf("Processed %d of %d events", r.processed, max(r.total, r.processed)),
			Current: intPtr(r.processed),
			Total:   intPtr(max(r.total, r.processed)),
		})
	}
	return nil
}

// process routes one raw event through the pipeline and persists it
func (o *Orchestrator) process(ctx context.Context, r *run, raw domain.RawEvent) (string, error) {
	if strings.TrimSpace(raw.Name) == "" {
		return "", errors.New("missing event name")
	}

	o.report(ctx, r, Update{Step: domain.StepDeduplicating, Message: "Checking for duplicates"})
	dedup, err := r.dedup.Check(ctx, raw)
	if err != nil {
		return "", err
	}
	if dedup.Duplicate {
		r.active.duplicates.Add(1)
		return metrics.OutcomeDuplicate, nil
	}

	o.report(ctx, r, Update{Step: domain.StepCategorizing, Message: "Categorizing events"})
	cat := o.stages.Categorizer.Categorize(ctx, raw)

	o.report(ctx, r, Update{Step: domain.StepMatchingOrganizers, Message: "Matching organizers"})
	org, err := o.stages.Organizers.Resolve(ctx, raw, r.src.Name(), r.src.OrganizerID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve organizer: %w", err)
	}

	event := &domain.CanonicalEvent{
		Name:           strings.TrimSpace(raw.Name),
		Description:    strings.TrimSpace(raw.Description),
		StartsAt:       dedup.StartsAt,
		Location:       strings.TrimSpace(raw.Location),
		VenueName:      strings.TrimSpace(raw.VenueName),
		ImageURL:       strings.TrimSpace(raw.ImageURL),
		ExternalURL:    strings.TrimSpace(raw.ExternalURL),
		OrganizerID:    org.OrganizerID,
		Categories:     cat.Categories,
		CategoryScores: cat.Scores,
		Source:         r.src.Name(),
		DedupKey:       dedup.Key,
		RunLogID:       r.active.ID,
		CreatedAt:      time.Now().UTC(),
	}

	quality := o.stages.Scorer.Score(event, org)
	event.QualityScore = quality.Score
	event.QualityIssues = quality.Issues
	event.Status = quality.Decision
	event.AutoPublished = quality.Decision == domain.EventStatusPublished

	o.report(ctx, r, Update{Step: domain.StepImporting, Message: "Importing events"})
	inserted, err := o.insert(ctx, r, event, pipeline.Slugify(raw.Name, dedup.StartsAt))
	if err != nil {
		return "", err
	}
	if !inserted {
		r.active.duplicates.Add(1)
		return metrics.OutcomeDuplicate, nil
	}
	r.dedup.Remember(dedup, event.ExternalURL)
	r.active.imported.Add(1)

	o.log.Info("Publish decision",
		zap.String("event_id", event.ID),
		zap.String("source", event.Source),
		zap.Int("score", quality.Score),
		zap.Strings("issues", quality.Issues),
		zap.String("decision", string(quality.Decision)))

	decision := &domain.PublishDecision{
		EventID:       event.ID,
		RunLogID:      event.RunLogID,
		Source:        event.Source,
		Score:         quality.Score,
		Issues:        quality.Issues,
		Decision:      quality.Decision,
		AutoPublished: event.AutoPublished,
		DecidedAt:     event.CreatedAt,
	}
	if event.OrganizerID != nil {
		decision.OrganizerID = *event.OrganizerID
	}
	o.recorder.Record(ctx, decision)
	o.metrics.Decision(string(quality.Decision))

	return metrics.OutcomeImported, nil
}

// insert allocates an id from base and stores the event. Runs for other
// sources allocate independently, so an id taken between allocation and insert
// moves the event to the next free suffix.
func (o *Orchestrator) insert(ctx context.Context, r *run, event *domain.CanonicalEvent, base string) (bool, error) {
	for attempt := 1; ; attempt++ {
		id, err := r.ids.Allocate(ctx, base)
		if err != nil {
			return false, err
		}
		event.ID = id

		inserted, err := o.store.Events.Insert(ctx, event)
		if errors.Is(err, repository.ErrIDTaken) && attempt < maxIDAttempts {
			o.log.Debug("Event id taken concurrently, retrying",
				zap.String("event_id", id),
				zap.String("source", event.Source))
			continue
		}
		if err != nil {
			return false, fmt.Errorf("failed to store event: %w", err)
		}
		return inserted, nil
	}
}

// status derives the terminal status and appends the terminal error, if any
func (o *Orchestrator) status(ctx context.Context, r *run, adapterErr error) domain.RunStatus {
	imported := r.active.imported.Load()

	switch cause := context.Cause(ctx); {
	case errors.Is(cause, ErrRunTimeout):
		r.errors = append(r.errors, fmt.Sprintf("run exceeded time budget of %s", o.cfg.RunTimeout))
		return domain.RunStatusFailed
	case cause != nil:
		r.errors = append(r.errors, ErrRunCancelled.Error())
		return domain.RunStatusCancelled
	case adapterErr != nil:
		r.errors = append(r.errors, adapterErr.Error())
		if imported > 0 {
			return domain.RunStatusPartial
		}
		return domain.RunStatusFailed
	case len(r.errors) == 0:
		return domain.RunStatusSuccess
	case imported > 0:
		return domain.RunStatusPartial
	default:
		return domain.RunStatusFailed
	}
}

// finalize writes the terminal progress entry and the run log with a
// context that survives cancellation of the run
func (o *Orchestrator) finalize(parent context.Context, r *run, runLog *domain.RunLog, status domain.RunStatus, log *zap.Logger) domain.RunResult {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), finalizeTimeout)
	defer cancel()

	counters := r.active.Counters()
	meta := map[string]any{
		"events_found":       counters.Found,
		"events_imported":    counters.Imported,
		"duplicates_skipped": counters.Duplicates,
	}

	switch status {
	case domain.RunStatusSuccess, domain.RunStatusPartial:
		o.report(ctx, r, Update{
			Step:     domain.StepCompleted,
			Message:  fmt.Sprintf("Imported %d events, skipped %d duplicates", counters.Imported, counters.Duplicates),
			Metadata: meta,
		})
	default:
		meta["errors"] = len(r.errors)
		msg := "Run failed"
		if status == domain.RunStatusCancelled {
			msg = "Run cancelled"
		}
		if len(r.errors) > 0 {
			msg += ": " + r.errors[len(r.errors)-1]
		}
		o.report(ctx, r, Update{Step: domain.StepFailed, Message: msg, Metadata: meta})
	}

	errs := r.errors
	if errs == nil {
		errs = []string{}
	}
	if _, err := o.store.Runs.Finalize(ctx, runLog.ID, repository.RunFinalization{
		Status:   status,
		Counters: counters,
		Errors:   errs,
	}); err != nil {
		log.Error("Failed to finalize run log", zap.Error(err))
	}

	took := time.Since(r.active.StartedAt)
	o.metrics.RunFinished(r.src.Name(), string(status), took)

	log.Info("Run finished",
		zap.String("status", string(status)),
		zap.Int("found", counters.Found),
		zap.Int("imported", counters.Imported),
		zap.Int("duplicates", counters.Duplicates),
		zap.Int("errors", len(errs)),
		zap.Duration("took", took))

	return domain.RunResult{
		LogID:             runLog.ID,
		Source:            r.src.Name(),
		Status:            status,
		Success:           status == domain.RunStatusSuccess || status == domain.RunStatusPartial,
		EventsFound:       counters.Found,
		EventsImported:    counters.Imported,
		DuplicatesSkipped: counters.Duplicates,
		Errors:            errs,
	}
}

// watchCancelFlag cancels the run once its log is flagged for cancellation
func (o *Orchestrator) watchCancelFlag(ctx context.Context, runID string, cancel context.CancelCauseFunc, log *zap.Logger) {
	ticker := time.NewTicker(o.cfg.CancelPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			requested, err := o.store.Runs.IsCancelRequested(ctx, runID)
			if err != nil {
				log.Debug("Failed to poll cancel flag", zap.Error(err))
				continue
			}
			if requested {
				log.Info("Cancellation flag observed")
				cancel(ErrRunCancelled)
				return
			}
		}
	}
}

func (o *Orchestrator) report(ctx context.Context, r *run, u Update) {
	if err := r.reporter.Report(ctx, u); err != nil && context.Cause(ctx) == nil {
		o.log.Warn("Failed to report progress",
			zap.String("run_id", r.active.ID),
			zap.String("step", string(u.Step)),
			zap.Error(err))
	}
}

func displayName(raw domain.RawEvent) string {
	if name := strings.TrimSpace(raw.Name); name != "" {
		return name
	}
	return "(unnamed)"
}

func intPtr(v int) *int {
	return &v
}
