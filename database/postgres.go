package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"erpsite/api/config"
	"erpsite/api/logger"
)

type DBClient struct {
	DB *sql.DB
}

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id              SERIAL PRIMARY KEY,
	email           TEXT NOT NULL,
	name            TEXT NOT NULL DEFAULT '',
	role            TEXT NOT NULL DEFAULT 'marketer',
	hashed_password BYTEA NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (email);
`

// NewPostgresDB opens the dashboard user database and makes sure the users table exists.
func NewPostgresDB(cfg config.PostgresConfig) (*DBClient, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("error opening database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database (ping failed): %w", err)
	}

	if _, err = db.ExecContext(ctx, usersSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating users schema: %w", err)
	}

	logger.Info("Successfully connected to PostgreSQL database")
	return &DBClient{DB: db}, nil
}

func (c *DBClient) Close() {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logger.Error("Error closing database connection", "error", err)
		} else {
			logger.Info("PostgreSQL database connection closed")
		}
	}
}
