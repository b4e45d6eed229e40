package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
)

const settleTimeout = 10 * time.Second

// RunnerConfig configures the runner stage
type RunnerConfig struct {
	// VisibilityTimeout is how long, in seconds, each heartbeat hides the message
	VisibilityTimeout int32
	Heartbeat         time.Duration
}

// RunnerStage runs one trigger at a time and settles its message afterwards
type RunnerStage struct {
	runner Runner
	config RunnerConfig
	log    *zap.Logger
}

// NewRunnerStage creates a new runner stage
func NewRunnerStage(runner Runner, config RunnerConfig, log *zap.Logger) *RunnerStage {
	if config.VisibilityTimeout <= 0 {
		config.VisibilityTimeout = 300
	}
	if config.Heartbeat <= 0 {
		config.Heartbeat = time.Duration(config.VisibilityTimeout) * time.Second / 3
	}
	return &RunnerStage{
		runner: runner,
		config: config,
		log:    log,
	}
}

// Start handles envelopes until in is closed or ctx is done
func (s *RunnerStage) Start(ctx context.Context, in <-chan *Envelope) {
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Runner stage shutting down")
			return
		case env, ok := <-in:
			if !ok {
				s.log.Info("Runner stage input channel closed")
				return
			}
			s.handle(ctx, env)
		}
	}
}

// handle deletes the message once the run summary exists. A message whose
// run failed or was interrupted by shutdown is released for redelivery.
func (s *RunnerStage) handle(ctx context.Context, env *Envelope) {
	log := s.log.With(zap.String("message_id", env.MessageID))
	log.Info("Running queued scrape",
		zap.Strings("scrapers", env.Trigger.ScraperNames),
		zap.String("user", env.Trigger.UserEmail),
		zap.Int("receive_count", env.ReceiveCount))

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	hbDone := make(chan struct{})
	go func() {
		defer close(hbDone)
		s.heartbeat(hbCtx, env, log)
	}()

	summary, err := s.runner.RunAll(ctx, env.Trigger.ScraperNames, domain.Trigger{
		UserEmail: env.Trigger.UserEmail,
		Source:    domain.TriggerSourceQueue,
	})

	stopHeartbeat()
	<-hbDone

	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	if err != nil || ctx.Err() != nil {
		log.Warn("Queued scrape did not complete, releasing message", zap.Error(err))
		if err := env.Nack(settleCtx); err != nil {
			log.Error("Failed to release message", zap.Error(err))
		}
		return
	}

	if err := env.Ack(settleCtx); err != nil {
		log.Error("Failed to acknowledge message", zap.Error(err))
		return
	}

	log.Info("Queued scrape finished",
		zap.Int("sources", summary.TotalSources),
		zap.Int("imported", summary.TotalImported),
		zap.Int("duplicates", summary.TotalDuplicates))
}

func (s *RunnerStage) heartbeat(ctx context.Context, env *Envelope, log *zap.Logger) {
	ticker := time.NewTicker(s.config.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := env.Extend(ctx, s.config.VisibilityTimeout); err != nil && ctx.Err() == nil {
				log.Warn("Failed to extend message visibility", zap.Error(err))
			}
		}
	}
}
