package service

import (
	"context"
	"errors"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/dto"
	"github.com/BarkinBalci/event-ingestion-service/internal/ingest"
)

var (
	ErrQueueUnavailable = errors.New("no trigger queue is configured")
	ErrInvalidLogID     = errors.New("log id must be a UUID")
	ErrRunNotFound      = errors.New("scraper log not found")
)

// Engine is the run orchestrator as seen by the control API
type Engine interface {
	RunAll(ctx context.Context, filter []string, trigger domain.Trigger) (*domain.RunSummary, error)
	CancelRunning(ctx context.Context) ([]*domain.RunLog, error)
	ListRunning(ctx context.Context) ([]ingest.RunningRun, error)
}

// ScrapeServicer defines the interface for scrape control operations
type ScrapeServicer interface {
	RunScrape(ctx context.Context, req *dto.ScrapeRequest) (*dto.ScrapeResponse, error)
	EnqueueScrape(ctx context.Context, req *dto.ScrapeRequest) (*dto.EnqueueScrapeResponse, error)
	CancelRunning(ctx context.Context) (*dto.CancelResponse, error)
	ListRunning(ctx context.Context) (*dto.RunningResponse, error)
	GetProgress(ctx context.Context, logID string) (*dto.ProgressResponse, error)
	WatchProgress(ctx context.Context, logID string, fn func(*dto.ProgressResponse) error) error
	Health(ctx context.Context) error
}
