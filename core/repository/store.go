package repository

import (
	"context"
	"errors"

	"research-agent/core/models"
)

// ErrNotFound signals that the addressed record does not exist.
var ErrNotFound = errors.New("record not found")

// RequestStore is the persistence surface for research requests
type RequestStore interface {
	CreateRequest(ctx context.Context, topic string) (*models.ResearchRequest, error)
	GetRequest(ctx context.Context, id string) (*models.ResearchRequest, error)
	ListRequests(ctx context.Context, status *models.ResearchStatus, offset, limit int) ([]*models.ResearchRequest, error)
	CountRequests(ctx context.Context, status *models.ResearchStatus) (int, error)
	SetTaskID(ctx context.Context, id, taskID string) error
	UpdateStatus(ctx context.Context, id string, status models.ResearchStatus, results *models.ResearchResults, errorMessage string) error
	DeleteRequest(ctx context.Context, id string) error
}

// WorklogStore is the persistence surface for workflow log entries
type WorklogStore interface {
	CreateLog(ctx context.Context, requestID string, step models.WorkflowStep, status, message string, details map[string]interface{}) (int64, error)
	UpdateLog(ctx context.Context, logID int64, status, message string, details map[string]interface{}) error
	ListLogs(ctx context.Context, requestID string) ([]models.WorkflowLog, error)
}

// ArticleStore is the persistence surface for extracted articles
type ArticleStore interface {
	CreateArticle(ctx context.Context, article *models.Article) error
	ListArticles(ctx context.Context, requestID string, limit int) ([]models.Article, error)
}
