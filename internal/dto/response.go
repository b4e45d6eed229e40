package dto

import (
	"time"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"validation_error"`
	Message string `json:"message,omitempty" example:"scraperNames must not contain empty names"`
}

// Error codes
const (
	ErrValidation       = "validation_error"
	ErrNotFound         = "not_found"
	ErrInternal         = "internal_error"
	ErrQueueUnavailable = "queue_unavailable"
)

// ScrapeResponse is the summary of a synchronous scrape
type ScrapeResponse = domain.RunSummary

// EnqueueScrapeResponse represents an accepted asynchronous scrape
type EnqueueScrapeResponse struct {
	MessageID string `json:"messageId" example:"5fea7756-0ea4-451a-a703-a558b933e274"`
	Status    string `json:"status" example:"queued"`
}

// ProcessRef identifies a running run
type ProcessRef struct {
	ID          string    `json:"id" example:"0b8f1c2e-4d7a-4a7e-9c51-3f2d6a1b9e10"`
	ScraperName string    `json:"scraperName" example:"konserthuset"`
	StartedAt   time.Time `json:"startedAt"`
}

// CancelResponse lists the runs that were asked to stop
type CancelResponse struct {
	CancelledCount     int          `json:"cancelledCount" example:"1"`
	CancelledProcesses []ProcessRef `json:"cancelledProcesses"`
}

// RunningProcess is a running run with its counters
type RunningProcess struct {
	ProcessRef
	EventsFound    int `json:"eventsFound" example:"42"`
	EventsImported int `json:"eventsImported" example:"17"`
}

// RunningResponse lists running runs
type RunningResponse struct {
	RunningCount int              `json:"runningCount" example:"1"`
	Processes    []RunningProcess `json:"processes"`
}

// TotalProgress is the latest counted checkpoint of a run
type TotalProgress struct {
	Current    int `json:"current" example:"17"`
	Total      int `json:"total" example:"42"`
	Percentage int `json:"percentage" example:"40"`
}

// ProgressResponse is the state of a run and its checkpoints
type ProgressResponse struct {
	ScraperLog             *domain.RunLog          `json:"scraperLog"`
	ProgressLogs           []*domain.ProgressEntry `json:"progressLogs"`
	TotalProgress          *TotalProgress          `json:"totalProgress"`
	IsRunning              bool                    `json:"isRunning" example:"true"`
	EstimatedTimeRemaining *int                    `json:"estimatedTimeRemaining" example:"12"`
}
