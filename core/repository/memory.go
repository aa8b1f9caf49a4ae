package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"research-agent/core/models"
)

// MemoryStore is an in-process implementation of the store interfaces used by
// tests. Semantics mirror the Postgres repositories, including cascade
// deletion and list ordering.
type MemoryStore struct {
	mu        sync.Mutex
	requests  map[string]*models.ResearchRequest
	order     []string // request ids, insertion order
	logs      map[string][]*models.WorkflowLog
	logByID   map[int64]*models.WorkflowLog
	articles  map[string][]*models.Article
	nextLogID int64
}

var (
	_ RequestStore = (*MemoryStore)(nil)
	_ WorklogStore = (*MemoryStore)(nil)
	_ ArticleStore = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: make(map[string]*models.ResearchRequest),
		logs:     make(map[string][]*models.WorkflowLog),
		logByID:  make(map[int64]*models.WorkflowLog),
		articles: make(map[string][]*models.Article),
	}
}

func (s *MemoryStore) CreateRequest(_ context.Context, topic string) (*models.ResearchRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	req := &models.ResearchRequest{
		ID:        uuid.New().String(),
		Topic:     topic,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.requests[req.ID] = req
	s.order = append(s.order, req.ID)

	clone := *req
	return &clone, nil
}

func (s *MemoryStore) GetRequest(_ context.Context, id string) (*models.ResearchRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *req
	return &clone, nil
}

func (s *MemoryStore) ListRequests(_ context.Context, status *models.ResearchStatus, offset, limit int) ([]*models.ResearchRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*models.ResearchRequest
	// Newest first: walk insertion order backwards.
	for i := len(s.order) - 1; i >= 0; i-- {
		req := s.requests[s.order[i]]
		if status != nil && req.Status != *status {
			continue
		}
		clone := *req
		matched = append(matched, &clone)
	}

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemoryStore) CountRequests(_ context.Context, status *models.ResearchStatus) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, req := range s.requests {
		if status == nil || req.Status == *status {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) SetTaskID(_ context.Context, id, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return ErrNotFound
	}
	req.TaskID = taskID
	req.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status models.ResearchStatus, results *models.ResearchResults, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	req.Status = status
	req.UpdatedAt = now
	if results != nil {
		req.Results = results
	}
	if errorMessage != "" {
		req.ErrorMessage = errorMessage
	}
	if status == models.StatusCompleted {
		req.CompletedAt = &now
	}
	return nil
}

func (s *MemoryStore) DeleteRequest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[id]; !ok {
		return ErrNotFound
	}
	delete(s.requests, id)
	for i, reqID := range s.order {
		if reqID == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	for _, entry := range s.logs[id] {
		delete(s.logByID, entry.ID)
	}
	delete(s.logs, id)
	delete(s.articles, id)
	return nil
}

func (s *MemoryStore) CreateLog(_ context.Context, requestID string, step models.WorkflowStep, status, message string, details map[string]interface{}) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[requestID]; !ok {
		return 0, ErrNotFound
	}

	s.nextLogID++
	entry := &models.WorkflowLog{
		ID:        s.nextLogID,
		RequestID: requestID,
		Step:      step,
		Status:    status,
		Message:   message,
		Details:   details,
		StartedAt: time.Now().UTC(),
	}
	s.logs[requestID] = append(s.logs[requestID], entry)
	s.logByID[entry.ID] = entry
	return entry.ID, nil
}

func (s *MemoryStore) UpdateLog(_ context.Context, logID int64, status, message string, details map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.logByID[logID]
	if !ok {
		return ErrNotFound
	}
	entry.Status = status
	if message != "" {
		entry.Message = message
	}
	if details != nil {
		entry.Details = details
	}
	if status == models.LogStatusCompleted {
		now := time.Now().UTC()
		entry.CompletedAt = &now
		duration := now.Sub(entry.StartedAt).Milliseconds()
		entry.DurationMs = &duration
	}
	return nil
}

func (s *MemoryStore) ListLogs(_ context.Context, requestID string) ([]models.WorkflowLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.logs[requestID]
	out := make([]models.WorkflowLog, 0, len(entries))
	for _, entry := range entries {
		out = append(out, *entry)
	}
	// Entries are appended in start order; ids break timestamp ties.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

func (s *MemoryStore) CreateArticle(_ context.Context, article *models.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[article.RequestID]; !ok {
		return ErrNotFound
	}
	if article.ID == "" {
		article.ID = uuid.New().String()
	}
	if article.ExtractedAt.IsZero() {
		article.ExtractedAt = time.Now().UTC()
	}
	clone := *article
	s.articles[article.RequestID] = append(s.articles[article.RequestID], &clone)
	return nil
}

func (s *MemoryStore) ListArticles(_ context.Context, requestID string, limit int) ([]models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.articles[requestID]
	out := make([]models.Article, 0, len(stored))
	for _, a := range stored {
		out = append(out, *a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RelevanceScore != out[j].RelevanceScore {
			return out[i].RelevanceScore > out[j].RelevanceScore
		}
		return out[i].ExtractedAt.Before(out[j].ExtractedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
