package worker

import (
	"context"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/dto"
)

// TriggerParser defines the interface for parsing raw message bytes into scrape triggers
type TriggerParser interface {
	Parse(body []byte) (*dto.ScrapeTrigger, error)
}

// Runner runs sources for a trigger
type Runner interface {
	RunAll(ctx context.Context, filter []string, trigger domain.Trigger) (*domain.RunSummary, error)
}
