// Package sink pushes finished leads into the sales tools: a Notion
// lead database and Salesforce Lead records. Pushes are per-lead
// best-effort; one rejected record never aborts the batch.
package sink

import (
	"context"

	"github.com/handwerk-leads/leads-cli/internal/model"
)

// Sink delivers leads to an external system. Push returns how many
// leads were accepted; an error is returned only when the sink is
// unusable as a whole (bad credentials, unreachable host).
type Sink interface {
	Name() string
	Push(ctx context.Context, leads []model.Lead) (int, error)
}
