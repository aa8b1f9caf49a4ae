package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DB wraps the sql connection pool shared by all repositories
type DB struct {
	*sql.DB
}

// NewDB opens a Postgres connection and verifies it
func NewDB(url string) (*DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{DB: db}, nil
}

// Migrate creates the schema. Workflow logs and articles cascade on request
// deletion.
func (db *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS research_requests (
			id UUID PRIMARY KEY,
			topic VARCHAR(500) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			task_id VARCHAR(100),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ,
			results JSONB,
			error_message TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_research_requests_status ON research_requests (status)`,
		`CREATE INDEX IF NOT EXISTS idx_research_requests_created_at ON research_requests (created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS workflow_logs (
			id BIGSERIAL PRIMARY KEY,
			request_id UUID NOT NULL REFERENCES research_requests(id) ON DELETE CASCADE,
			step VARCHAR(30) NOT NULL,
			status VARCHAR(20) NOT NULL,
			message TEXT,
			details JSONB,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ,
			duration_ms BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_workflow_logs_request_id ON workflow_logs (request_id, started_at)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id UUID PRIMARY KEY,
			request_id UUID NOT NULL REFERENCES research_requests(id) ON DELETE CASCADE,
			title VARCHAR(500) NOT NULL,
			url TEXT,
			source VARCHAR(100) NOT NULL,
			content TEXT,
			summary TEXT,
			keywords JSONB,
			published_at TIMESTAMPTZ,
			extracted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			relevance_score INT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_request_id ON articles (request_id, relevance_score DESC)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
