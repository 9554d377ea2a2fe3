// Package pipeline orchestrates a collection run: search every
// category-city pair, fetch contact details across the worker pool,
// enrich, checkpoint, and deduplicate the combined result.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/handwerk-leads/leads-cli/internal/checkpoint"
	"github.com/handwerk-leads/leads-cli/internal/config"
	"github.com/handwerk-leads/leads-cli/internal/cost"
	"github.com/handwerk-leads/leads-cli/internal/dedupe"
	"github.com/handwerk-leads/leads-cli/internal/dispatch"
	"github.com/handwerk-leads/leads-cli/internal/enrich"
	"github.com/handwerk-leads/leads-cli/internal/model"
	"github.com/handwerk-leads/leads-cli/internal/source"
)

// LeadFilter screens a lead batch, e.g. through a language model. It
// must be best-effort: a failing filter returns its input unchanged.
type LeadFilter interface {
	Leads(ctx context.Context, category string, leads []model.Lead) []model.Lead
}

// Options configures a Pipeline.
type Options struct {
	Workers            int
	MaxLeads           int // 0 means unlimited
	CheckpointInterval int
	RequestDelay       time.Duration // pause between city searches
	Resume             bool
	Filter             LeadFilter // optional
}

// Result is the outcome of one collection run.
type Result struct {
	Leads       []model.Lead
	Duplicates  int
	TotalCost   float64
	Interrupted bool
}

// Pipeline runs the collection workflow for one source.
type Pipeline struct {
	src      source.Source
	enricher *enrich.Enricher
	cp       *checkpoint.Store
	calc     *cost.Calculator
	opts     Options
	log      *zap.Logger
}

// New creates a Pipeline.
func New(src source.Source, enricher *enrich.Enricher, cp *checkpoint.Store, calc *cost.Calculator, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = 25
	}
	return &Pipeline{
		src:      src,
		enricher: enricher,
		cp:       cp,
		calc:     calc,
		opts:     opts,
		log:      zap.L().With(zap.String("component", "pipeline")),
	}
}

// Meter returns the billing observer sources should report through: it
// feeds both the api_calls counters and the running cost total.
func Meter(cp *checkpoint.Store, calc *cost.Calculator) source.Meter {
	return func(call string) {
		cp.UpdateAPICall(call)
		cp.UpdateCost(calc.Call(call))
	}
}

// Run collects leads for every category in every city. The returned
// leads are deduplicated; Interrupted is set when ctx was cancelled
// before the run finished, with everything collected so far intact.
func (p *Pipeline) Run(ctx context.Context, categories []config.Category, cities []string) (*Result, error) {
	limiter := dispatch.NewSlotLimiter(p.opts.MaxLeads)
	if p.opts.Resume && p.cp.Load() {
		limiter.Seed(p.cp.LeadsCollected())
		p.log.Info("resuming run",
			zap.Int("already_processed", p.cp.ProcessedCount()),
			zap.Int("leads_counted", p.cp.LeadsCollected()),
		)
	} else {
		p.cp.Clear()
	}
	p.cp.MarkStarted()

	p.log.Info("starting collection",
		zap.String("source", p.src.Name()),
		zap.Int("categories", len(categories)),
		zap.Int("cities", len(cities)),
		zap.Int("workers", p.opts.Workers),
		zap.Int("max_leads", p.opts.MaxLeads),
		zap.Float64("estimated_cost_usd", p.calc.EstimateRun(len(categories), len(cities))),
	)

	d := dispatch.New(p.opts.Workers, limiter)
	var all []model.Lead

search:
	for _, cat := range categories {
		for i, city := range cities {
			if limiter.Full() || ctx.Err() != nil {
				break search
			}
			if i > 0 {
				if err := sleepCtx(ctx, p.opts.RequestDelay); err != nil {
					break search
				}
			}

			batch := p.collect(ctx, d, cat, city)
			if p.opts.Filter != nil && len(batch) > 0 {
				batch = p.opts.Filter.Leads(ctx, cat.Name, batch)
			}
			all = append(all, batch...)
		}
	}

	p.cp.Save()

	deduped := dedupe.Leads(all)
	result := &Result{
		Leads:       deduped,
		Duplicates:  len(all) - len(deduped),
		TotalCost:   p.cp.Stats().TotalCost,
		Interrupted: ctx.Err() != nil,
	}

	p.log.Info("collection finished",
		zap.Int("leads", len(result.Leads)),
		zap.Int("duplicates_removed", result.Duplicates),
		zap.Float64("total_cost_usd", result.TotalCost),
		zap.Bool("interrupted", result.Interrupted),
	)
	return result, nil
}

// collect searches one category-city pair and runs detail fetches on
// the pool. Search failures cost the pair, not the run.
func (p *Pipeline) collect(ctx context.Context, d *dispatch.Dispatcher, cat config.Category, city string) []model.Lead {
	candidates, err := p.src.Search(ctx, cat, city)
	if err != nil {
		p.log.Warn("search failed",
			zap.String("category", cat.Slug),
			zap.String("city", city),
			zap.Error(err),
		)
		return nil
	}

	srcKind := sourceKind(p.src.Name())
	work := func(ctx context.Context, c model.Candidate) (*model.Lead, error) {
		detailed, err := p.src.Details(ctx, c)
		if err != nil {
			return nil, err
		}
		lead := p.enricher.Enrich(detailed, srcKind, cat.Name)
		p.cp.MarkProcessed(c.ID)
		// Acceptance-time count: records dropped by the end-of-run
		// dedup stay counted, so the resume seed reflects work done,
		// not unique output.
		p.cp.UpdateCategoryCount(cat.Name)
		return &lead, nil
	}

	return d.Run(ctx, candidates, work, dispatch.Options{
		Skip: func(c model.Candidate) bool {
			return p.cp.IsProcessed(c.ID)
		},
		OnRejected: func(model.Candidate) {
			p.cp.UpdateAPICall(cost.CallPlaceDetailsSkipped)
		},
		OnAccepted: func(collected int) {
			if collected%p.opts.CheckpointInterval == 0 {
				p.cp.Save()
				p.log.Info("progress",
					zap.Int("collected", collected),
					zap.Int("processed", p.cp.ProcessedCount()),
					zap.Float64("cost_usd", p.cp.Stats().TotalCost),
				)
			}
		},
		OnInterrupt: func() {
			p.cp.Save()
		},
	})
}

func sourceKind(name string) model.Source {
	switch name {
	case "places":
		return model.SourcePlaces
	case "directory":
		return model.SourceDirectory
	default:
		return model.SourceOther
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
