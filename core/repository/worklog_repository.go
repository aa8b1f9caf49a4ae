package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"research-agent/core/models"
)

// WorklogRepository handles database operations for workflow log entries
type WorklogRepository struct {
	db *DB
}

var _ WorklogStore = (*WorklogRepository)(nil)

// NewWorklogRepository creates a new worklog repository
func NewWorklogRepository(db *DB) *WorklogRepository {
	return &WorklogRepository{db: db}
}

// CreateLog appends a log entry for a workflow stage
func (r *WorklogRepository) CreateLog(ctx context.Context, requestID string, step models.WorkflowStep, status, message string, details map[string]interface{}) (int64, error) {
	detailsJSON, err := encodeDetails(details)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO workflow_logs (request_id, step, status, message, details, started_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, requestID, step, status, message, detailsJSON).Scan(&id); err != nil {
		return 0, fmt.Errorf("create workflow log: %w", err)
	}
	return id, nil
}

// UpdateLog updates an existing entry. The completed transition stamps
// completed_at and computes duration_ms from the entry's own start time.
func (r *WorklogRepository) UpdateLog(ctx context.Context, logID int64, status, message string, details map[string]interface{}) error {
	detailsJSON, err := encodeDetails(details)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflow_logs
		SET status = $1,
			message = COALESCE(NULLIF($2, ''), message),
			details = COALESCE($3, details),
			completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
			duration_ms = CASE WHEN $1 = 'completed'
				THEN (EXTRACT(EPOCH FROM (NOW() - started_at)) * 1000)::BIGINT
				ELSE duration_ms END
		WHERE id = $4
	`
	res, err := r.db.ExecContext(ctx, query, status, message, detailsJSON, logID)
	if err != nil {
		return fmt.Errorf("update workflow log: %w", err)
	}
	return requireRow(res)
}

// ListLogs returns a request's log entries ordered by start time
func (r *WorklogRepository) ListLogs(ctx context.Context, requestID string) ([]models.WorkflowLog, error) {
	query := `
		SELECT id, request_id, step, status, message, details, started_at, completed_at, duration_ms
		FROM workflow_logs
		WHERE request_id = $1
		ORDER BY started_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("list workflow logs: %w", err)
	}
	defer rows.Close()

	var logs []models.WorkflowLog
	for rows.Next() {
		var entry models.WorkflowLog
		var message sql.NullString
		var details []byte
		var completedAt sql.NullTime
		var durationMs sql.NullInt64

		if err := rows.Scan(&entry.ID, &entry.RequestID, &entry.Step, &entry.Status, &message, &details, &entry.StartedAt, &completedAt, &durationMs); err != nil {
			return nil, fmt.Errorf("scan workflow log: %w", err)
		}
		if message.Valid {
			entry.Message = message.String
		}
		if completedAt.Valid {
			entry.CompletedAt = &completedAt.Time
		}
		if durationMs.Valid {
			entry.DurationMs = &durationMs.Int64
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("decode log details: %w", err)
			}
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflow logs: %w", err)
	}

	return logs, nil
}

func encodeDetails(details map[string]interface{}) ([]byte, error) {
	if details == nil {
		return nil, nil
	}
	b, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("encode log details: %w", err)
	}
	return b, nil
}
