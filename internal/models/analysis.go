package models

import "time"

// Workflow steps recorded on jobs and persisted analyses.
const (
	StepInitializing          = "initializing"
	StepCollectingNews        = "collecting_news"
	StepAnalyzingSignificance = "analyzing_significance"
	StepGeneratingSummary     = "generating_summary"
	StepSavingAnalysis        = "saving_analysis"
	StepCompleted             = "completed"
	StepError                 = "error"
)

const AnalysisStatusCompleted = "completed"

// AnalysisRecord is the persisted per-ticker result. One row per ticker,
// overwritten on every run.
type AnalysisRecord struct {
	Ticker          string    `json:"ticker"`
	AnalysisText    string    `json:"analysis_text"`
	NewsSummary     string    `json:"news_summary"`
	CurrentStep     string    `json:"current_step"`
	ProgressMessage string    `json:"progress_message"`
	Status          string    `json:"status"`
	UpdatedAt       time.Time `json:"updated_at"`
}
