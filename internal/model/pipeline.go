package model

import "time"

// Pipeline run states.
const (
	RunStatusIdle    = "idle"
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
	RunStatusTimeout = "timeout"
)

// StageStatus is the single mutable progress record for the pipeline,
// overwritten stage by stage and polled by external readers.
type StageStatus struct {
	RunID              string  `json:"run_id,omitempty"`
	Status             string  `json:"status"`
	CurrentStage       string  `json:"current_stage,omitempty"`
	StageName          string  `json:"stage_name,omitempty"`
	Timestamp          string  `json:"timestamp"`
	Progress           float64 `json:"progress"`
	EstimatedRemaining float64 `json:"estimated_seconds_remaining"`
	Error              string  `json:"error,omitempty"`
}

// IdleStageStatus is the well-defined default returned when no status
// document exists yet.
func IdleStageStatus() StageStatus {
	return StageStatus{
		Status:    RunStatusIdle,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Progress:  0,
	}
}

// RunResult is what a pipeline invocation reports back to its caller.
// A stage failure is a reportable outcome, not an error.
type RunResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
