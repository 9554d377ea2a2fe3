package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/handwerk-leads/leads-cli/internal/checkpoint"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect or reset the resume checkpoint",
}

var checkpointStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show checkpoint progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		cp := checkpoint.New(cfg.Scrape.CheckpointFile)
		if !cp.Load() {
			zap.L().Info("no checkpoint found", zap.String("path", cfg.Scrape.CheckpointFile))
			return nil
		}

		stats := cp.Stats()
		zap.L().Info("checkpoint status",
			zap.String("path", cfg.Scrape.CheckpointFile),
			zap.Time("started", stats.StartTime),
			zap.Time("last_checkpoint", stats.LastCheckpoint),
			zap.Int("processed", cp.ProcessedCount()),
			zap.Int("leads_collected", cp.LeadsCollected()),
			zap.Float64("total_cost_usd", stats.TotalCost),
		)
		for call, n := range stats.APICalls {
			zap.L().Info("api calls", zap.String("call", call), zap.Int("count", n))
		}
		for category, n := range stats.LeadsByCategory {
			zap.L().Info("leads by category", zap.String("category", category), zap.Int("count", n))
		}
		return nil
	},
}

var checkpointClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the checkpoint so the next run starts fresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		cp := checkpoint.New(cfg.Scrape.CheckpointFile)
		cp.Clear()
		zap.L().Info("checkpoint cleared", zap.String("path", cfg.Scrape.CheckpointFile))
		return nil
	},
}

func init() {
	checkpointCmd.AddCommand(checkpointStatusCmd, checkpointClearCmd)
	rootCmd.AddCommand(checkpointCmd)
}
