package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"research-agent/core/models"
	"research-agent/core/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ScheduleFunc submits a research workflow for background execution and
// returns its task handle.
type ScheduleFunc func(requestID string) (string, error)

// ResearchHandler handles research-related HTTP requests
type ResearchHandler struct {
	requests repository.RequestStore
	logs     repository.WorklogStore
	articles repository.ArticleStore
	schedule ScheduleFunc
	logger   *slog.Logger
}

// NewResearchHandler creates a new research handler
func NewResearchHandler(
	requests repository.RequestStore,
	logs repository.WorklogStore,
	articles repository.ArticleStore,
	schedule ScheduleFunc,
	logger *slog.Logger,
) *ResearchHandler {
	return &ResearchHandler{
		requests: requests,
		logs:     logs,
		articles: articles,
		schedule: schedule,
		logger:   logger,
	}
}

// CreateResearchRequest represents the request to submit a topic
type CreateResearchRequest struct {
	Topic string `json:"topic"`
}

// ListResearchResponse is the paginated listing payload
type ListResearchResponse struct {
	Items []*models.ResearchRequest `json:"items"`
	Total int                       `json:"total"`
	Page  int                       `json:"page"`
	Size  int                       `json:"size"`
	Pages int                       `json:"pages"`
}

// ResearchDetailResponse is a request with its logs and articles
type ResearchDetailResponse struct {
	*models.ResearchRequest
	Logs     []models.WorkflowLog `json:"logs"`
	Articles []models.Article     `json:"articles"`
}

// CreateResearch handles POST /v1/research. Topic length rules are enforced
// by the workflow's first stage, so a too-short topic still creates a
// request that then fails; only an empty topic is rejected here.
func (h *ResearchHandler) CreateResearch(w http.ResponseWriter, r *http.Request) {
	var req CreateResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		http.Error(w, "Topic is required", http.StatusBadRequest)
		return
	}

	research, err := h.requests.CreateRequest(r.Context(), req.Topic)
	if err != nil {
		http.Error(w, "Failed to create research request: "+err.Error(), http.StatusInternalServerError)
		return
	}

	taskID, err := h.schedule(research.ID)
	if err != nil {
		// Do not leave the record stuck in pending: no worker will ever
		// pick it up.
		failMsg := "failed to schedule workflow: " + err.Error()
		if updErr := h.requests.UpdateStatus(r.Context(), research.ID, models.StatusFailed, nil, failMsg); updErr != nil {
			h.logger.Warn("failed to mark unscheduled request failed", "request_id", research.ID, "error", updErr)
		}
		http.Error(w, "Failed to schedule research workflow: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.requests.SetTaskID(r.Context(), research.ID, taskID); err != nil {
		h.logger.Warn("failed to record task id", "request_id", research.ID, "error", err)
	}
	research.TaskID = taskID

	writeJSON(w, http.StatusCreated, research)
}

// ListResearch handles GET /v1/research
func (h *ResearchHandler) ListResearch(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	size := queryInt(r, "size", defaultPageSize)
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	var status *models.ResearchStatus
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		s := models.ResearchStatus(statusParam)
		status = &s
	}

	total, err := h.requests.CountRequests(r.Context(), status)
	if err != nil {
		http.Error(w, "Failed to list research requests: "+err.Error(), http.StatusInternalServerError)
		return
	}

	items, err := h.requests.ListRequests(r.Context(), status, (page-1)*size, size)
	if err != nil {
		http.Error(w, "Failed to list research requests: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []*models.ResearchRequest{}
	}

	writeJSON(w, http.StatusOK, ListResearchResponse{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
		Pages: int(math.Ceil(float64(total) / float64(size))),
	})
}

// GetResearch handles GET /v1/research/{id}
func (h *ResearchHandler) GetResearch(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["id"]

	research, err := h.requests.GetRequest(r.Context(), requestID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	logs, err := h.logs.ListLogs(r.Context(), requestID)
	if err != nil {
		http.Error(w, "Failed to fetch workflow logs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	articles, err := h.articles.ListArticles(r.Context(), requestID, 0)
	if err != nil {
		http.Error(w, "Failed to fetch articles: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []models.WorkflowLog{}
	}
	if articles == nil {
		articles = []models.Article{}
	}

	writeJSON(w, http.StatusOK, ResearchDetailResponse{
		ResearchRequest: research,
		Logs:            logs,
		Articles:        articles,
	})
}

// GetResearchLogs handles GET /v1/research/{id}/logs
func (h *ResearchHandler) GetResearchLogs(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["id"]

	if _, err := h.requests.GetRequest(r.Context(), requestID); err != nil {
		respondStoreError(w, err)
		return
	}

	logs, err := h.logs.ListLogs(r.Context(), requestID)
	if err != nil {
		http.Error(w, "Failed to fetch workflow logs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []models.WorkflowLog{}
	}

	writeJSON(w, http.StatusOK, logs)
}

// DeleteResearch handles DELETE /v1/research/{id}. Deletion cascades to logs
// and articles; it does not cancel an in-flight workflow.
func (h *ResearchHandler) DeleteResearch(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["id"]

	if err := h.requests.DeleteRequest(r.Context(), requestID); err != nil {
		respondStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Research request deleted successfully",
	})
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "Research request not found", http.StatusNotFound)
		return
	}
	http.Error(w, "Storage error: "+err.Error(), http.StatusInternalServerError)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
