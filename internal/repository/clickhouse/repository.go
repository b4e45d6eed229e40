package clickhouse

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
)

// Repository implements repository.DecisionRepository for ClickHouse
type Repository struct {
	client *Client
	log    *zap.Logger
}

// NewRepository creates a new ClickHouse decision repository
func NewRepository(client *Client, log *zap.Logger) *Repository {
	return &Repository{
		client: client,
		log:    log,
	}
}

// InitSchema creates the publish_decisions table. Re-sent batches collapse on
// (event_id, decided_at) through ReplacingMergeTree.
func (r *Repository) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS publish_decisions (
		event_id String,
		run_log_id String,
		source LowCardinality(String),
		score UInt8,
		issues Array(String),
		decision LowCardinality(String),
		auto_published Bool,
		organizer_id String,
		decided_at DateTime64(3, 'UTC'),
		version UInt64
	) ENGINE = ReplacingMergeTree(version)
	PRIMARY KEY (event_id)
	ORDER BY (event_id, decided_at)
	PARTITION BY toYYYYMM(decided_at)
	SETTINGS index_granularity = 8192
	`

	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create publish_decisions table: %w", err)
	}

	r.log.Info("ClickHouse schema initialized successfully")
	return nil
}

// InsertBatch inserts a batch of publish decisions into ClickHouse
func (r *Repository) InsertBatch(ctx context.Context, decisions []*domain.PublishDecision) (int, error) {
	if len(decisions) == 0 {
		return 0, nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO publish_decisions")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch: %w", err)
	}

	insertedCount := 0
	for _, d := range decisions {
		issues := d.Issues
		if issues == nil {
			issues = []string{}
		}

		score := min(max(d.Score, 0), 100)

		err := batch.Append(
			d.EventID,
			d.RunLogID,
			d.Source,
			uint8(score),
			issues,
			string(d.Decision),
			d.AutoPublished,
			d.OrganizerID,
			d.DecidedAt,
			uint64(d.DecidedAt.UnixNano()),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to append decision to batch: %w", err)
		}
		insertedCount++
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send batch: %w", err)
	}

	return insertedCount, nil
}

// Ping checks if the ClickHouse connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the ClickHouse connection
func (r *Repository) Close() error {
	return r.client.Close()
}
