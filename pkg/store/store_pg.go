package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/cluso-tara/pkg/metrics"
)

// PGStoreConfig configures a PGStore.
type PGStoreConfig struct {
	DatabaseURL string
	MaxConns    int32
	MinConns    int32
	// Registry receives store metrics when set.
	Registry *metrics.Registry
}

// DefaultPGStoreConfig returns the default Postgres store configuration
func DefaultPGStoreConfig(databaseURL string) PGStoreConfig {
	return PGStoreConfig{
		DatabaseURL: databaseURL,
		MaxConns:    25,
		MinConns:    5,
	}
}

// PGStore handles project persistence using PostgreSQL
type PGStore struct {
	pool *pgxpool.Pool
	reg  *metrics.Registry
}

// NewPGStore creates a new PostgreSQL-backed project store
func NewPGStore(ctx context.Context, config PGStoreConfig) (*PGStore, error) {
	poolConfig, err := pgxpool.ParseConfig(config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pooling configuration
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &PGStore{pool: pool, reg: config.Registry}

	// Create tables if they don't exist
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return s, nil
}

// Ping checks database connectivity
func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}
