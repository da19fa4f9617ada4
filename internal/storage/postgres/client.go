package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/baseplate/console/config"
)

type Client struct {
	DB *sql.DB
}

func NewClient(cfg *config.DatabaseConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	return &Client{DB: db}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// Migrate creates the tables the server needs. Every statement is
// idempotent so it runs on each start.
func (c *Client) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS records (
		id         UUID PRIMARY KEY,
		resource   TEXT NOT NULL,
		data       JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_records_resource_created ON records (resource, created_at)`,
	`CREATE TABLE IF NOT EXISTS admins (
		id             UUID PRIMARY KEY,
		email          TEXT NOT NULL UNIQUE,
		password_hash  TEXT NOT NULL,
		contact        TEXT NOT NULL DEFAULT '',
		is_super_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}
