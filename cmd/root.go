package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/handwerk-leads/leads-cli/internal/config"
	"github.com/handwerk-leads/leads-cli/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "leads-cli",
	Short: "German trade-business lead collector",
	Long:  "Collects contact data for German trade businesses from the Google Places API and the 11880.com directory, deduplicates it, and exports or pushes the resulting leads.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openStore opens the configured database backend.
func openStore(cmd *cobra.Command) (store.Store, error) {
	var s store.Store
	var err error
	switch cfg.Store.Driver {
	case "postgres":
		s, err = store.NewPostgres(cmd.Context(), cfg.Store.DatabaseURL, nil)
	default:
		s, err = store.NewSQLite(cfg.Store.DatabaseURL)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(cmd.Context()); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
