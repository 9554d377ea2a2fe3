// Package store persists runs and their collected leads.
package store

import (
	"context"

	"github.com/handwerk-leads/leads-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Source model.Source    `json:"source,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the lead collector.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, source model.Source, categories, cities []string) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, leadCount int, totalCost float64, runErr string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Leads
	InsertLeads(ctx context.Context, runID string, leads []model.Lead) (int, error)
	ListLeads(ctx context.Context, runID string) ([]model.Lead, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
