package audit

import (
	"context"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
)

// Recorder receives publish decisions for the audit trail. Implementations
// must not block the pipeline and never report failures to the caller.
type Recorder interface {
	Record(ctx context.Context, decision *domain.PublishDecision)
}
