package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"research-agent/core/models"
)

// ArticleRepository handles database operations for extracted articles
type ArticleRepository struct {
	db *DB
}

var _ ArticleStore = (*ArticleRepository)(nil)

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// CreateArticle persists an article under its research request
func (r *ArticleRepository) CreateArticle(ctx context.Context, article *models.Article) error {
	if article.ID == "" {
		article.ID = uuid.New().String()
	}
	if article.ExtractedAt.IsZero() {
		article.ExtractedAt = time.Now().UTC()
	}

	keywordsJSON, err := json.Marshal(article.Keywords)
	if err != nil {
		return fmt.Errorf("encode keywords: %w", err)
	}

	query := `
		INSERT INTO articles (id, request_id, title, url, source, content, summary, keywords, published_at, extracted_at, relevance_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.db.ExecContext(ctx, query,
		article.ID,
		article.RequestID,
		article.Title,
		article.URL,
		article.Source,
		article.Content,
		article.Summary,
		keywordsJSON,
		article.PublishedAt,
		article.ExtractedAt,
		article.RelevanceScore,
	)
	if err != nil {
		return fmt.Errorf("create article: %w", err)
	}
	return nil
}

// ListArticles returns a request's articles ranked by relevance, then by
// extraction order. limit <= 0 means no limit.
func (r *ArticleRepository) ListArticles(ctx context.Context, requestID string, limit int) ([]models.Article, error) {
	query := `
		SELECT id, request_id, title, url, source, content, summary, keywords, published_at, extracted_at, relevance_score
		FROM articles
		WHERE request_id = $1
		ORDER BY relevance_score DESC, extracted_at
	`
	args := []interface{}{requestID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var articles []models.Article
	for rows.Next() {
		var a models.Article
		var url, content, summary sql.NullString
		var keywordsJSON []byte
		var publishedAt sql.NullTime

		if err := rows.Scan(&a.ID, &a.RequestID, &a.Title, &url, &a.Source, &content, &summary, &keywordsJSON, &publishedAt, &a.ExtractedAt, &a.RelevanceScore); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if url.Valid {
			a.URL = url.String
		}
		if content.Valid {
			a.Content = content.String
		}
		if summary.Valid {
			a.Summary = summary.String
		}
		if publishedAt.Valid {
			a.PublishedAt = &publishedAt.Time
		}
		if len(keywordsJSON) > 0 {
			if err := json.Unmarshal(keywordsJSON, &a.Keywords); err != nil {
				return nil, fmt.Errorf("decode keywords: %w", err)
			}
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}

	return articles, nil
}
