package model

import "time"

// RunStatus represents the current state of a scrape run.
type RunStatus string

const (
	RunStatusRunning     RunStatus = "running"
	RunStatusComplete    RunStatus = "complete"
	RunStatusInterrupted RunStatus = "interrupted"
	RunStatusFailed      RunStatus = "failed"
)

// Run records one invocation of the scrape workflow.
type Run struct {
	ID         string    `json:"id"`
	Source     Source    `json:"source"`
	Categories []string  `json:"categories"`
	Cities     []string  `json:"cities"`
	Status     RunStatus `json:"status"`
	LeadCount  int       `json:"lead_count"`
	TotalCost  float64   `json:"total_cost"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
