package config

import (
	"fmt"
	"time"

	"github.com/BarkinBalci/envconfig"
)

type Config struct {
	Service    Service
	Storage    Storage
	Postgres   Postgres
	ClickHouse ClickHouse
	SQS        SQS
	Engine     Engine
	Sources    Sources
	Classifier Classifier
	Worker     Worker
}

type Service struct {
	Environment string `envconfig:"SERVICE_ENVIRONMENT" required:"true"`
	APIPort     string `envconfig:"SERVICE_API_PORT" default:"8080"`
	Host        string `envconfig:"SERVICE_HOST" default:"localhost:8080"`
}

type Storage struct {
	// Driver is either "postgres" or "memory"
	Driver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
}

type Postgres struct {
	URL            string `envconfig:"POSTGRES_URL"`
	MaxOpenConns   int    `envconfig:"POSTGRES_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns   int    `envconfig:"POSTGRES_MAX_IDLE_CONNS" default:"5"`
	MigrateOnStart bool   `envconfig:"POSTGRES_MIGRATE_ON_START" default:"true"`
}

type ClickHouse struct {
	Enabled         bool   `envconfig:"CLICKHOUSE_ENABLED" default:"false"`
	Host            string `envconfig:"CLICKHOUSE_HOST"`
	Port            string `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	Database        string `envconfig:"CLICKHOUSE_DB" default:"default"`
	User            string `envconfig:"CLICKHOUSE_USER" default:""`
	Password        string `envconfig:"CLICKHOUSE_PASSWORD" default:""`
	UseTLS          bool   `envconfig:"CLICKHOUSE_USE_TLS" default:"false"`
	MaxOpenConns    int    `envconfig:"CLICKHOUSE_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int    `envconfig:"CLICKHOUSE_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime int    `envconfig:"CLICKHOUSE_CONN_MAX_LIFETIME_SEC" default:"3600"`
}

type SQS struct {
	Endpoint string `envconfig:"SQS_ENDPOINT"`
	QueueURL string `envconfig:"SQS_QUEUE_URL"`
	Region   string `envconfig:"SQS_REGION" default:"eu-north-1"`
}

// Enabled reports whether a trigger queue is configured
func (s SQS) Enabled() bool {
	return s.QueueURL != ""
}

type Engine struct {
	RunTimeout           time.Duration `envconfig:"ENGINE_RUN_TIMEOUT" default:"5m"`
	PublishThreshold     int           `envconfig:"ENGINE_PUBLISH_THRESHOLD" default:"80"`
	DraftThreshold       int           `envconfig:"ENGINE_DRAFT_THRESHOLD" default:"40"`
	CategoryConfidence   float64       `envconfig:"ENGINE_CATEGORY_CONFIDENCE" default:"0.5"`
	CancelPollInterval   time.Duration `envconfig:"ENGINE_CANCEL_POLL_INTERVAL" default:"1s"`
	AuditBatchSize       int           `envconfig:"ENGINE_AUDIT_BATCH_SIZE" default:"200"`
	AuditFlushTimeout    time.Duration `envconfig:"ENGINE_AUDIT_FLUSH_TIMEOUT" default:"5s"`
	ProgressPollInterval time.Duration `envconfig:"ENGINE_PROGRESS_POLL_INTERVAL" default:"1s"`
}

type Sources struct {
	File         string `envconfig:"SOURCES_FILE" default:"sources.yaml"`
	TaxonomyFile string `envconfig:"TAXONOMY_FILE"`
}

type Classifier struct {
	URL           string        `envconfig:"CLASSIFIER_URL"`
	Timeout       time.Duration `envconfig:"CLASSIFIER_TIMEOUT" default:"10s"`
	RatePerSecond float64       `envconfig:"CLASSIFIER_RATE_PER_SECOND" default:"2"`
	APIKey        string        `envconfig:"CLASSIFIER_API_KEY"`
}

type Worker struct {
	HealthCheckPort   string `envconfig:"WORKER_HEALTH_CHECK_PORT" default:"8081"`
	WaitTimeSeconds   int32  `envconfig:"WORKER_WAIT_TIME_SECONDS" default:"20"`
	MaxMessages       int32  `envconfig:"WORKER_MAX_MESSAGES" default:"1"`
	VisibilityTimeout int32  `envconfig:"WORKER_VISIBILITY_TIMEOUT_SECONDS" default:"300"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres":
		if c.Postgres.URL == "" {
			return fmt.Errorf("POSTGRES_URL is required when STORAGE_DRIVER=postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER: %s (supported: postgres, memory)", c.Storage.Driver)
	}

	if c.Engine.DraftThreshold > c.Engine.PublishThreshold {
		return fmt.Errorf("ENGINE_DRAFT_THRESHOLD (%d) must not exceed ENGINE_PUBLISH_THRESHOLD (%d)",
			c.Engine.DraftThreshold, c.Engine.PublishThreshold)
	}

	if c.Engine.RunTimeout <= 0 {
		return fmt.Errorf("ENGINE_RUN_TIMEOUT must be positive")
	}

	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("CLICKHOUSE_HOST is required when CLICKHOUSE_ENABLED=true")
	}

	return nil
}
