package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository"
)

// BatchWriterConfig configures the batch writer
type BatchWriterConfig struct {
	MaxBatchSize int
	FlushTimeout time.Duration
	// BufferSize bounds queued decisions; Record drops when the buffer is full
	BufferSize int
}

// BatchWriter buffers publish decisions and writes them to the repository
// when the batch is full or the flush timeout elapses
type BatchWriter struct {
	repository repository.DecisionRepository
	config     BatchWriterConfig
	log        *zap.Logger

	mu     sync.RWMutex
	closed bool
	in     chan *domain.PublishDecision
	done   chan struct{}
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(repo repository.DecisionRepository, config BatchWriterConfig, log *zap.Logger) *BatchWriter {
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = 200
	}
	if config.FlushTimeout <= 0 {
		config.FlushTimeout = 5 * time.Second
	}
	if config.BufferSize < config.MaxBatchSize {
		config.BufferSize = config.MaxBatchSize * 4
	}

	return &BatchWriter{
		repository: repo,
		config:     config,
		log:        log,
		in:         make(chan *domain.PublishDecision, config.BufferSize),
		done:       make(chan struct{}),
	}
}

// Record queues a decision without blocking
func (w *BatchWriter) Record(_ context.Context, decision *domain.PublishDecision) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.log.Warn("Audit writer closed, dropping publish decision", zap.String("event_id", decision.EventID))
		return
	}

	select {
	case w.in <- decision:
	default:
		w.log.Warn("Audit buffer full, dropping publish decision",
			zap.String("event_id", decision.EventID),
			zap.String("decision", string(decision.Decision)))
	}
}

// Start consumes queued decisions until ctx is done or Close is called
func (w *BatchWriter) Start(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.config.FlushTimeout)
	defer ticker.Stop()

	batch := make([]*domain.PublishDecision, 0, w.config.MaxBatchSize)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Audit writer shutting down")
			w.drain(&batch)
			w.flushFinal(ctx, batch)
			return

		case decision, ok := <-w.in:
			if !ok {
				w.log.Info("Audit writer input closed")
				w.flushFinal(ctx, batch)
				return
			}

			batch = append(batch, decision)

			if len(batch) >= w.config.MaxBatchSize {
				w.log.Debug("Audit batch size threshold reached", zap.Int("batch_size", len(batch)))
				w.writeBatch(ctx, batch)
				batch = make([]*domain.PublishDecision, 0, w.config.MaxBatchSize)
				ticker.Reset(w.config.FlushTimeout)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.log.Debug("Audit batch timeout reached", zap.Int("decision_count", len(batch)))
				w.writeBatch(ctx, batch)
				batch = make([]*domain.PublishDecision, 0, w.config.MaxBatchSize)
			}
		}
	}
}

// Close stops accepting decisions and waits for Start to flush and return
func (w *BatchWriter) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.in)
	}
	w.mu.Unlock()
	<-w.done
}

func (w *BatchWriter) drain(batch *[]*domain.PublishDecision) {
	for {
		select {
		case decision, ok := <-w.in:
			if !ok {
				return
			}
			*batch = append(*batch, decision)
		default:
			return
		}
	}
}

func (w *BatchWriter) flushFinal(ctx context.Context, batch []*domain.PublishDecision) {
	if len(batch) == 0 {
		return
	}
	w.log.Info("Flushing final audit batch", zap.Int("decision_count", len(batch)))

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	w.writeBatch(flushCtx, batch)
}

// writeBatch inserts the batch; failures are logged and the batch is dropped
func (w *BatchWriter) writeBatch(ctx context.Context, batch []*domain.PublishDecision) {
	insertedCount, err := w.repository.InsertBatch(ctx, batch)
	if err != nil {
		w.log.Error("Failed to insert audit batch",
			zap.Error(err),
			zap.Int("decision_count", len(batch)))
		return
	}

	if insertedCount != len(batch) {
		w.log.Warn("Partial audit insert",
			zap.Int("inserted", insertedCount),
			zap.Int("expected", len(batch)))
		return
	}

	w.log.Debug("Inserted publish decisions", zap.Int("count", insertedCount))
}
