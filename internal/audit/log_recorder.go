package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
)

// LogRecorder writes decisions to the structured log only
type LogRecorder struct {
	log *zap.Logger
}

// NewLogRecorder creates a recorder used when no audit store is configured
func NewLogRecorder(log *zap.Logger) *LogRecorder {
	return &LogRecorder{log: log}
}

// Record logs the decision
func (r *LogRecorder) Record(_ context.Context, d *domain.PublishDecision) {
	r.log.Info("Publish decision",
		zap.String("event_id", d.EventID),
		zap.String("run_log_id", d.RunLogID),
		zap.String("source", d.Source),
		zap.Int("score", d.Score),
		zap.Strings("issues", d.Issues),
		zap.String("decision", string(d.Decision)),
		zap.Bool("auto_published", d.AutoPublished))
}
