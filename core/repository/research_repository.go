package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"research-agent/core/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ResearchRepository handles database operations for research requests
type ResearchRepository struct {
	db *DB
}

var _ RequestStore = (*ResearchRepository)(nil)

// NewResearchRepository creates a new research repository
func NewResearchRepository(db *DB) *ResearchRepository {
	return &ResearchRepository{db: db}
}

// CreateRequest inserts a new pending research request
func (r *ResearchRepository) CreateRequest(ctx context.Context, topic string) (*models.ResearchRequest, error) {
	now := time.Now().UTC()
	req := &models.ResearchRequest{
		ID:        uuid.New().String(),
		Topic:     topic,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO research_requests (id, topic, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, req.ID, req.Topic, req.Status, req.CreatedAt, req.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create research request: %w", err)
	}
	return req, nil
}

// GetRequest retrieves a research request by ID
func (r *ResearchRepository) GetRequest(ctx context.Context, id string) (*models.ResearchRequest, error) {
	query := `
		SELECT id, topic, status, task_id, created_at, updated_at, completed_at, results, error_message
		FROM research_requests
		WHERE id = $1
	`

	var req models.ResearchRequest
	var taskID sql.NullString
	var completedAt sql.NullTime
	var results []byte
	var errorMessage sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&req.ID,
		&req.Topic,
		&req.Status,
		&taskID,
		&req.CreatedAt,
		&req.UpdatedAt,
		&completedAt,
		&results,
		&errorMessage,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get research request: %w", err)
	}

	if taskID.Valid {
		req.TaskID = taskID.String
	}
	if completedAt.Valid {
		req.CompletedAt = &completedAt.Time
	}
	if errorMessage.Valid {
		req.ErrorMessage = errorMessage.String
	}
	if len(results) > 0 {
		var res models.ResearchResults
		if err := json.Unmarshal(results, &res); err != nil {
			return nil, fmt.Errorf("decode results payload: %w", err)
		}
		req.Results = &res
	}

	return &req, nil
}

// ListRequests returns requests newest-first with optional status filtering
func (r *ResearchRepository) ListRequests(ctx context.Context, status *models.ResearchStatus, offset, limit int) ([]*models.ResearchRequest, error) {
	builder := psql.
		Select("id", "topic", "status", "task_id", "created_at", "updated_at", "completed_at", "results", "error_message").
		From("research_requests").
		OrderBy("created_at DESC").
		Offset(uint64(offset)).
		Limit(uint64(limit))

	if status != nil {
		builder = builder.Where(sq.Eq{"status": *status})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list research requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.ResearchRequest
	for rows.Next() {
		var req models.ResearchRequest
		var taskID sql.NullString
		var completedAt sql.NullTime
		var results []byte
		var errorMessage sql.NullString

		if err := rows.Scan(&req.ID, &req.Topic, &req.Status, &taskID, &req.CreatedAt, &req.UpdatedAt, &completedAt, &results, &errorMessage); err != nil {
			return nil, fmt.Errorf("scan research request: %w", err)
		}
		if taskID.Valid {
			req.TaskID = taskID.String
		}
		if completedAt.Valid {
			req.CompletedAt = &completedAt.Time
		}
		if errorMessage.Valid {
			req.ErrorMessage = errorMessage.String
		}
		if len(results) > 0 {
			var res models.ResearchResults
			if err := json.Unmarshal(results, &res); err != nil {
				return nil, fmt.Errorf("decode results payload: %w", err)
			}
			req.Results = &res
		}
		requests = append(requests, &req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate research requests: %w", err)
	}

	return requests, nil
}

// CountRequests returns the total number of requests matching the filter
func (r *ResearchRepository) CountRequests(ctx context.Context, status *models.ResearchStatus) (int, error) {
	builder := psql.Select("COUNT(*)").From("research_requests")
	if status != nil {
		builder = builder.Where(sq.Eq{"status": *status})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count research requests: %w", err)
	}
	return count, nil
}

// SetTaskID records the background execution handle on the request
func (r *ResearchRepository) SetTaskID(ctx context.Context, id, taskID string) error {
	query := `UPDATE research_requests SET task_id = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, taskID, id)
	if err != nil {
		return fmt.Errorf("set task id: %w", err)
	}
	return requireRow(res)
}

// UpdateStatus transitions the request status. The completed timestamp is set
// only on the completed transition; results and error message are written
// when provided.
func (r *ResearchRepository) UpdateStatus(ctx context.Context, id string, status models.ResearchStatus, results *models.ResearchResults, errorMessage string) error {
	var resultsJSON []byte
	if results != nil {
		var err error
		resultsJSON, err = json.Marshal(results)
		if err != nil {
			return fmt.Errorf("encode results payload: %w", err)
		}
	}

	query := `
		UPDATE research_requests
		SET status = $1,
			updated_at = NOW(),
			results = COALESCE($2, results),
			error_message = COALESCE(NULLIF($3, ''), error_message),
			completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END
		WHERE id = $4
	`
	res, err := r.db.ExecContext(ctx, query, status, resultsJSON, errorMessage, id)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	return requireRow(res)
}

// DeleteRequest removes the request; logs and articles cascade
func (r *ResearchRepository) DeleteRequest(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM research_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete research request: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
