package source

import (
	"context"
	"slices"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
)

// Static serves events declared inline in the sources file
type Static struct {
	name   string
	events []domain.RawEvent
}

// NewStatic creates a static adapter
func NewStatic(name string, events []domain.RawEvent) *Static {
	return &Static{name: name, events: slices.Clone(events)}
}

func (s *Static) Name() string { return s.name }

// Fetch returns the configured events
func (s *Static) Fetch(ctx context.Context) (*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return SliceBatch(s.events), nil
}
