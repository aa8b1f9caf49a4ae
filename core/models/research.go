package models

import "time"

// ResearchRequest represents one submitted topic and its workflow state
type ResearchRequest struct {
	ID           string           `json:"id"`
	Topic        string           `json:"topic"`
	Status       ResearchStatus   `json:"status"`
	TaskID       string           `json:"task_id,omitempty"` // Background task handle
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	Results      *ResearchResults `json:"results,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// ResearchStatus represents the current status of a research request
type ResearchStatus string

const (
	StatusPending    ResearchStatus = "pending"
	StatusProcessing ResearchStatus = "processing"
	StatusCompleted  ResearchStatus = "completed"
	StatusFailed     ResearchStatus = "failed"
)

// WorkflowStep identifies one of the five fixed workflow stages
type WorkflowStep string

const (
	StepInputParsing      WorkflowStep = "input_parsing"
	StepDataGathering     WorkflowStep = "data_gathering"
	StepProcessing        WorkflowStep = "processing"
	StepResultPersistence WorkflowStep = "result_persistence"
	StepReturnResults     WorkflowStep = "return_results"
)

// WorkflowSteps lists the stages in execution order.
var WorkflowSteps = []WorkflowStep{
	StepInputParsing,
	StepDataGathering,
	StepProcessing,
	StepResultPersistence,
	StepReturnResults,
}

// ResearchResults is the final payload assembled by the last workflow stage
type ResearchResults struct {
	Topic             string          `json:"topic"`
	Summary           string          `json:"summary"`
	TopArticles       []ArticleResult `json:"top_articles"`
	Keywords          []string        `json:"keywords"`
	Sources           []string        `json:"sources"`
	TotalArticles     int             `json:"total_articles_found"`
	ProcessingTimeMs  int64           `json:"processing_time_ms"`
	CompletedAt       time.Time       `json:"completed_at"`
}

// ArticleResult is the per-article slice of the final payload
type ArticleResult struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	URL            string   `json:"url,omitempty"`
	Source         string   `json:"source"`
	Summary        string   `json:"summary,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	RelevanceScore int      `json:"relevance_score"`
}
