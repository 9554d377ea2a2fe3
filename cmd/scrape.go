package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/handwerk-leads/leads-cli/internal/aifilter"
	"github.com/handwerk-leads/leads-cli/internal/checkpoint"
	"github.com/handwerk-leads/leads-cli/internal/config"
	"github.com/handwerk-leads/leads-cli/internal/cost"
	"github.com/handwerk-leads/leads-cli/internal/enrich"
	"github.com/handwerk-leads/leads-cli/internal/export"
	"github.com/handwerk-leads/leads-cli/internal/model"
	"github.com/handwerk-leads/leads-cli/internal/pipeline"
	"github.com/handwerk-leads/leads-cli/internal/source"
	"github.com/handwerk-leads/leads-cli/internal/store"
	"github.com/handwerk-leads/leads-cli/pkg/places"
)

// scrapeParams resolves a scrape request, whether it came from CLI
// flags or the HTTP API.
type scrapeParams struct {
	Source     string   `json:"source"`
	Categories []string `json:"categories"`
	Cities     []string `json:"cities"`
	MaxLeads   int      `json:"max_leads"`
	Workers    int      `json:"workers"`
	MicroTest  bool     `json:"micro_test"`
	Resume     bool     `json:"resume"`
	AIFilter   bool     `json:"ai_filter"`
}

var scrapeFlags scrapeParams

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Collect leads from the configured source",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		runID, err := runScrape(ctx, st, scrapeFlags)
		if err != nil {
			return err
		}
		zap.L().Info("run stored", zap.String("run_id", runID))
		return nil
	},
}

// runScrape executes one full collection run and persists the result.
func runScrape(ctx context.Context, st store.Store, params scrapeParams) (string, error) {
	categories, err := config.LoadCategories(cfg.Scrape.CategoriesFile)
	if err != nil {
		return "", err
	}
	categories, err = config.SelectCategories(categories, params.Categories)
	if err != nil {
		return "", err
	}

	cities := params.Cities
	if len(cities) == 0 {
		cities = config.DefaultCities
	}

	workers := params.Workers
	if workers <= 0 {
		workers = cfg.Scrape.Workers
	}
	maxLeads := params.MaxLeads
	if params.MicroTest {
		// A cheap smoke run: one category, one city, few leads.
		maxLeads = cfg.Scrape.MicroTestMaxLeads
		categories = categories[:1]
		cities = cities[:1]
		zap.L().Info("micro-test mode",
			zap.String("category", categories[0].Slug),
			zap.String("city", cities[0]),
			zap.Int("max_leads", maxLeads),
		)
	}

	cp := checkpoint.New(cfg.Scrape.CheckpointFile)
	calc := cost.NewCalculator(cfg.Pricing)
	enricher := enrich.New(enrich.WithSkipDomains(cfg.Scrape.SkipDomains))

	opts := pipeline.Options{
		Workers:            workers,
		MaxLeads:           maxLeads,
		CheckpointInterval: cfg.Scrape.CheckpointInterval,
		RequestDelay:       time.Duration(cfg.Scrape.RequestDelay * float64(time.Second)),
		Resume:             params.Resume,
	}
	if params.AIFilter {
		if cfg.Anthropic.Key == "" {
			return "", eris.New("ai filter requires an Anthropic API key (LEADS_ANTHROPIC_KEY)")
		}
		opts.Filter = aifilter.New(cfg.Anthropic.Key, cfg.Anthropic.Model)
	}

	p, src, err := buildPipeline(params.Source, cp, calc, enricher, opts)
	if err != nil {
		return "", err
	}

	catSlugs := make([]string, len(categories))
	for i, c := range categories {
		catSlugs[i] = c.Slug
	}
	run, err := st.CreateRun(ctx, sourceKind(src.Name()), catSlugs, cities)
	if err != nil {
		return "", err
	}

	// Persist even on interrupt so partial results are not lost.
	storeCtx := context.WithoutCancel(ctx)

	result, err := p.Run(ctx, categories, cities)
	if err != nil {
		if finishErr := st.FinishRun(storeCtx, run.ID, model.RunStatusFailed, 0, 0, err.Error()); finishErr != nil {
			zap.L().Error("finish run failed", zap.Error(finishErr))
		}
		return run.ID, err
	}

	if _, err := st.InsertLeads(storeCtx, run.ID, result.Leads); err != nil {
		return run.ID, err
	}
	status := model.RunStatusComplete
	if result.Interrupted {
		status = model.RunStatusInterrupted
	}
	if err := st.FinishRun(storeCtx, run.ID, status, len(result.Leads), result.TotalCost, ""); err != nil {
		return run.ID, err
	}

	export.Summarize(result.Leads).Log()
	stats := cp.Stats()
	for call, n := range stats.APICalls {
		zap.L().Info("api calls", zap.String("call", call), zap.Int("count", n))
	}
	perLead := 0.0
	if len(result.Leads) > 0 {
		perLead = result.TotalCost / float64(len(result.Leads))
	}
	zap.L().Info("run cost",
		zap.Float64("total_usd", result.TotalCost),
		zap.Float64("per_lead_usd", perLead),
	)

	return run.ID, nil
}

// buildPipeline wires the selected source into a pipeline.
func buildPipeline(sourceName string, cp *checkpoint.Store, calc *cost.Calculator, enricher *enrich.Enricher, opts pipeline.Options) (*pipeline.Pipeline, source.Source, error) {
	switch sourceName {
	case "places":
		if cfg.Google.Key == "" {
			return nil, nil, eris.New("google API key is required (LEADS_GOOGLE_KEY)")
		}
		client := places.NewClient(cfg.Google.Key, places.WithRateLimit(cfg.Google.RateLimit))
		src := source.NewPlacesSource(client, cfg.Google, source.WithMeter(pipeline.Meter(cp, calc)))
		return pipeline.New(src, enricher, cp, calc, opts), src, nil
	case "directory":
		src := source.NewDirectorySource(cfg.Directory)
		return pipeline.New(src, enricher, cp, calc, opts), src, nil
	default:
		return nil, nil, eris.Errorf("unknown source %q (want places or directory)", sourceName)
	}
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

func init() {
	scrapeCmd.Flags().StringVar(&scrapeFlags.Source, "source", "places", "lead source: places or directory")
	scrapeCmd.Flags().StringSliceVar(&scrapeFlags.Categories, "categories", nil, "category slugs to collect (default all)")
	scrapeCmd.Flags().StringSliceVar(&scrapeFlags.Cities, "cities", nil, "cities or 5-digit zip codes (default major German cities)")
	scrapeCmd.Flags().IntVar(&scrapeFlags.MaxLeads, "max-leads", 0, "stop after this many leads (0 = unlimited)")
	scrapeCmd.Flags().IntVar(&scrapeFlags.Workers, "workers", 0, "concurrent detail workers (default from config)")
	scrapeCmd.Flags().BoolVar(&scrapeFlags.MicroTest, "micro-test", false, "small validation run: first category, first city, few leads")
	scrapeCmd.Flags().BoolVar(&scrapeFlags.Resume, "resume", false, "resume from the checkpoint file")
	scrapeCmd.Flags().BoolVar(&scrapeFlags.AIFilter, "ai-filter", false, "screen leads through the Anthropic API")
	rootCmd.AddCommand(scrapeCmd)
}
