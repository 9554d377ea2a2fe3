// Package source defines where candidate businesses come from. Each
// source turns a (category, city) pair into candidates; the expensive
// per-candidate contact lookup is split out so the pipeline can decide
// per candidate whether it is worth paying for.
package source

import (
	"context"

	"github.com/handwerk-leads/leads-cli/internal/config"
	"github.com/handwerk-leads/leads-cli/internal/model"
)

// Source discovers candidate businesses.
type Source interface {
	// Name identifies the source, e.g. "places" or "directory".
	Name() string

	// Search returns the candidates for one category in one city. An
	// empty result is not an error.
	Search(ctx context.Context, category config.Category, city string) ([]model.Candidate, error)

	// Details fills in the contact fields of a candidate. Sources whose
	// search results already carry contacts return the candidate
	// unchanged.
	Details(ctx context.Context, c model.Candidate) (model.Candidate, error)
}

// Meter observes billable source activity. The pipeline wires it to
// the checkpoint stats and the cost calculator; sources only report.
type Meter func(call string)

func noopMeter(string) {}
