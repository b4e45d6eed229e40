package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/dto"
	"github.com/BarkinBalci/event-ingestion-service/internal/ingest"
	"github.com/BarkinBalci/event-ingestion-service/internal/queue"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository"
)

// ScrapeService backs the control API
type ScrapeService struct {
	engine       Engine
	runs         repository.RunLogRepository
	progress     repository.ProgressRepository
	publisher    queue.TriggerPublisher
	pollInterval time.Duration
	log          *zap.Logger
}

// NewScrapeService creates a new scrape service. publisher may be nil when
// no trigger queue is configured.
func NewScrapeService(engine Engine, runs repository.RunLogRepository, progress repository.ProgressRepository, publisher queue.TriggerPublisher, pollInterval time.Duration, log *zap.Logger) *ScrapeService {
	return &ScrapeService{
		engine:       engine,
		runs:         runs,
		progress:     progress,
		publisher:    publisher,
		pollInterval: pollInterval,
		log:          log,
	}
}

// RunScrape runs the requested sources and waits for the summary. The runs
// outlive the request; they are stopped through CancelRunning.
func (s *ScrapeService) RunScrape(ctx context.Context, req *dto.ScrapeRequest) (*dto.ScrapeResponse, error) {
	names := cleanNames(req.ScraperNames)

	s.log.Info("Synchronous scrape requested",
		zap.Strings("scrapers", names),
		zap.String("user", req.UserEmail))

	summary, err := s.engine.RunAll(context.WithoutCancel(ctx), names, domain.Trigger{
		UserEmail: req.UserEmail,
		Source:    domain.TriggerSourceAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run scrapers: %w", err)
	}
	return summary, nil
}

// EnqueueScrape publishes a trigger for the queue worker
func (s *ScrapeService) EnqueueScrape(ctx context.Context, req *dto.ScrapeRequest) (*dto.EnqueueScrapeResponse, error) {
	if s.publisher == nil {
		return nil, ErrQueueUnavailable
	}

	trigger := &dto.ScrapeTrigger{
		ScraperNames: cleanNames(req.ScraperNames),
		UserEmail:    req.UserEmail,
		RequestedAt:  time.Now().UTC(),
	}

	messageID, err := s.publisher.PublishTrigger(ctx, trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to publish trigger to queue: %w", err)
	}

	return &dto.EnqueueScrapeResponse{MessageID: messageID, Status: "queued"}, nil
}

// CancelRunning asks every running run to stop
func (s *ScrapeService) CancelRunning(ctx context.Context) (*dto.CancelResponse, error) {
	runs, err := s.engine.CancelRunning(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.CancelResponse{
		CancelledCount:     len(runs),
		CancelledProcesses: make([]dto.ProcessRef, 0, len(runs)),
	}
	for _, r := range runs {
		resp.CancelledProcesses = append(resp.CancelledProcesses, processRef(r))
	}
	return resp, nil
}

// ListRunning returns the running runs with their counters
func (s *ScrapeService) ListRunning(ctx context.Context) (*dto.RunningResponse, error) {
	runs, err := s.engine.ListRunning(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.RunningResponse{
		RunningCount: len(runs),
		Processes:    make([]dto.RunningProcess, 0, len(runs)),
	}
	for _, r := range runs {
		resp.Processes = append(resp.Processes, dto.RunningProcess{
			ProcessRef:     processRef(r.Run),
			EventsFound:    r.Counters.Found,
			EventsImported: r.Counters.Imported,
		})
	}
	return resp, nil
}

// GetProgress returns the run log and its progress entries
func (s *ScrapeService) GetProgress(ctx context.Context, logID string) (*dto.ProgressResponse, error) {
	if err := validateLogID(logID); err != nil {
		return nil, err
	}

	run, err := s.runs.Get(ctx, logID)
	if err != nil {
		return nil, notFound(err)
	}
	entries, err := s.progress.ListByRun(ctx, logID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return buildProgress(run, entries), nil
}

// WatchProgress calls fn with every change of the run until it finishes
func (s *ScrapeService) WatchProgress(ctx context.Context, logID string, fn func(*dto.ProgressResponse) error) error {
	if err := validateLogID(logID); err != nil {
		return err
	}

	err := ingest.Watch(ctx, s.runs, s.progress, logID, s.pollInterval, func(snap ingest.Snapshot) error {
		return fn(buildProgress(snap.Run, snap.Entries))
	})
	return notFound(err)
}

// Health checks the run log store
func (s *ScrapeService) Health(ctx context.Context) error {
	return s.runs.Ping(ctx)
}

func buildProgress(run *domain.RunLog, entries []*domain.ProgressEntry) *dto.ProgressResponse {
	if entries == nil {
		entries = []*domain.ProgressEntry{}
	}
	resp := &dto.ProgressResponse{
		ScraperLog:   run,
		ProgressLogs: entries,
		IsRunning:    run.Status == domain.RunStatusRunning,
	}

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Current == nil || e.Total == nil || *e.Total <= 0 {
			continue
		}
		resp.TotalProgress = &dto.TotalProgress{
			Current:    *e.Current,
			Total:      *e.Total,
			Percentage: min(*e.Current*100 / *e.Total, 100),
		}
		if resp.IsRunning {
			resp.EstimatedTimeRemaining = e.EstimatedTimeRemaining
		}
		break
	}
	return resp
}

func processRef(r *domain.RunLog) dto.ProcessRef {
	return dto.ProcessRef{ID: r.ID, ScraperName: r.SourceName, StartedAt: r.StartedAt}
}

func validateLogID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidLogID
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrRunNotFound, err)
	}
	return err
}

func cleanNames(names []string) []string {
	var out []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
