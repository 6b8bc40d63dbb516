package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/stockfeed/internal/config"
	"github.com/rickgao/stockfeed/internal/model"
)

// PostgresSnapshotter stores the directory snapshot in a single table,
// rewritten in full on every save to match the flat-file contract.
type PostgresSnapshotter struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresSnapshotter connects, verifies the connection, and ensures
// the snapshot table exists.
func NewPostgresSnapshotter(ctx context.Context, cfg config.PostgresConfig, logger *slog.Logger) (*PostgresSnapshotter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS user_snapshots (
			id            TEXT PRIMARY KEY,
			email         TEXT UNIQUE NOT NULL,
			subscriptions TEXT[] NOT NULL DEFAULT '{}'
		)
	`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure snapshot table: %w", err)
	}

	return &PostgresSnapshotter{pool: pool, logger: logger}, nil
}

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.PostgresConfig) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}

// Load reads every user record, ordered by email like the file backend.
func (p *PostgresSnapshotter) Load(ctx context.Context) ([]model.UserRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, email, subscriptions FROM user_snapshots ORDER BY email
	`)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	var records []model.UserRecord
	for rows.Next() {
		var rec model.UserRecord
		if err := rows.Scan(&rec.ID, &rec.Email, &rec.Subscriptions); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read snapshot rows: %w", err)
	}

	return records, nil
}

// Save replaces the table contents with the given records in one
// transaction, batching the inserts.
func (p *PostgresSnapshotter) Save(ctx context.Context, records []model.UserRecord) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM user_snapshots`)
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO user_snapshots (id, email, subscriptions)
			VALUES ($1, $2, $3)
		`, rec.ID, rec.Email, rec.Subscriptions)
	}

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("write snapshot batch: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close snapshot batch: %w", err)
	}

	return tx.Commit(ctx)
}

// Close releases the connection pool.
func (p *PostgresSnapshotter) Close() {
	p.pool.Close()
}
