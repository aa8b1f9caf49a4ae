package models

import "time"

// WorkflowLog is a durable audit record of one stage's start/end/outcome
type WorkflowLog struct {
	ID          int64                  `json:"id"`
	RequestID   string                 `json:"request_id"`
	Step        WorkflowStep           `json:"step"`
	Status      string                 `json:"status"` // started, completed, failed
	Message     string                 `json:"message,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	DurationMs  *int64                 `json:"duration_ms,omitempty"`
}

// Workflow log statuses
const (
	LogStatusStarted   = "started"
	LogStatusCompleted = "completed"
	LogStatusFailed    = "failed"
)
