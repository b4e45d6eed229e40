package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/config"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Client wraps the PostgreSQL connection pool
type Client struct {
	db  *sql.DB
	log *zap.Logger
}

// NewClient opens and verifies a PostgreSQL connection pool
func NewClient(ctx context.Context, cfg *config.Postgres, log *zap.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("POSTGRES_URL is required")
	}

	log.Info("Connecting to PostgreSQL",
		zap.Int("maxOpenConns", cfg.MaxOpenConns),
		zap.Int("maxIdleConns", cfg.MaxIdleConns))

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		log.Error("Failed to ping PostgreSQL", zap.Error(err))
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("PostgreSQL connection established successfully")

	return &Client{db: db, log: log}, nil
}

// DB returns the underlying *sql.DB
func (c *Client) DB() *sql.DB {
	return c.db
}

// Migrate applies the embedded schema migrations
func (c *Client) Migrate() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := migratepg.WithInstance(c.db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, _ := m.Version()
	c.log.Info("PostgreSQL schema migrated", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Ping checks if the database connection is alive
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the connection pool
func (c *Client) Close() error {
	c.log.Info("Closing PostgreSQL connection")
	if err := c.db.Close(); err != nil {
		c.log.Error("Error closing PostgreSQL connection", zap.Error(err))
		return err
	}
	return nil
}

// NewStore builds the PostgreSQL backed repositories
func NewStore(client *Client, log *zap.Logger) repository.Store {
	return repository.Store{
		Events:     NewEventRepository(client, log),
		Organizers: NewOrganizerRepository(client, log),
		Runs:       NewRunLogRepository(client, log),
		Progress:   NewProgressRepository(client, log),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
