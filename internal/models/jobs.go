package models

import "time"

// UpdateTargetResult is the outcome of refreshing one scheduled target.
type UpdateTargetResult struct {
	Target string `json:"target"`
	Events int    `json:"events"`
	Error  string `json:"error,omitempty"`
}

// UpdateReport summarizes one refresh run (scheduled or manual).
type UpdateReport struct {
	RunID      string               `json:"run_id"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Manual     bool                 `json:"manual"`
	Targets    []UpdateTargetResult `json:"targets"`
	Succeeded  int                  `json:"succeeded"`
	Failed     int                  `json:"failed"`
}
