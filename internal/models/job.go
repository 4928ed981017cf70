package models

import "time"

type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// WorkflowJob is a point-in-time view of an analysis job.
type WorkflowJob struct {
	ID              string          `json:"workflow_id"`
	Ticker          string          `json:"ticker"`
	Status          JobStatus       `json:"status"`
	CurrentStep     string          `json:"current_step"`
	ProgressMessage string          `json:"progress_message"`
	StartedAt       time.Time       `json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	Result          *AnalysisRecord `json:"result,omitempty"`
	Error           string          `json:"error,omitempty"`
}
