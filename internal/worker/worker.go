// Package worker consumes scrape triggers from SQS and runs them through the
// orchestrator one at a time.
package worker

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/config"
	"github.com/BarkinBalci/event-ingestion-service/internal/queue"
)

// Worker is a receive, parse, run pipeline
type Worker struct {
	receiver *Receiver
	parser   *ParserStage
	runner   *RunnerStage
}

// NewWorker creates a new worker
func NewWorker(cfg config.Worker, queueConsumer queue.QueueConsumer, runner Runner, log *zap.Logger) *Worker {
	return &Worker{
		receiver: NewReceiver(queueConsumer, ReceiverConfig{
			MaxMessages:       cfg.MaxMessages,
			WaitTimeSeconds:   cfg.WaitTimeSeconds,
			VisibilityTimeout: cfg.VisibilityTimeout,
		}, log),
		parser: NewParserStage(queueConsumer, NewJSONTriggerParser(), log),
		runner: NewRunnerStage(runner, RunnerConfig{VisibilityTimeout: cfg.VisibilityTimeout}, log),
	}
}

// Start runs the pipeline until ctx is done
func (w *Worker) Start(ctx context.Context) error {
	messageChan := make(chan types.Message)
	envelopeChan := make(chan *Envelope)

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		w.receiver.Start(ctx, messageChan)
	}()

	go func() {
		defer wg.Done()
		w.parser.Start(ctx, messageChan, envelopeChan)
	}()

	go func() {
		defer wg.Done()
		w.runner.Start(ctx, envelopeChan)
	}()

	wg.Wait()
	return nil
}
