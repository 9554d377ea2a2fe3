package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/handwerk-leads/leads-cli/internal/model"
	"github.com/handwerk-leads/leads-cli/internal/sink"
	"github.com/handwerk-leads/leads-cli/internal/store"
)

var pushRunID string

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push a run's leads into a sales tool",
}

var pushNotionCmd = &cobra.Command{
	Use:   "notion",
	Short: "Push leads into the Notion lead database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Notion.Token == "" || cfg.Notion.LeadDB == "" {
			return eris.New("notion token and lead database ID are required (LEADS_NOTION_TOKEN, LEADS_NOTION_LEAD_DB)")
		}
		return push(cmd, sink.NewNotionSink(cfg.Notion.Token, cfg.Notion.LeadDB))
	},
}

var pushSalesforceCmd = &cobra.Command{
	Use:   "salesforce",
	Short: "Push leads as Salesforce Lead records",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := sink.NewSalesforceSink(cfg.Salesforce)
		if err != nil {
			return err
		}
		return push(cmd, s)
	},
}

func push(cmd *cobra.Command, s sink.Sink) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	leads, err := loadRunLeads(cmd, st)
	if err != nil {
		return err
	}

	pushed, err := s.Push(cmd.Context(), leads)
	if err != nil {
		return err
	}
	zap.L().Info("push finished",
		zap.String("sink", s.Name()),
		zap.Int("pushed", pushed),
		zap.Int("total", len(leads)),
	)
	return nil
}

func loadRunLeads(cmd *cobra.Command, st store.Store) ([]model.Lead, error) {
	runID := pushRunID
	if runID == "" {
		runs, err := st.ListRuns(cmd.Context(), store.RunFilter{Limit: 1})
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, eris.New("no runs to push")
		}
		runID = runs[0].ID
	}

	leads, err := st.ListLeads(cmd.Context(), runID)
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return nil, eris.Errorf("run %s has no leads", runID)
	}
	return leads, nil
}

func init() {
	pushCmd.PersistentFlags().StringVar(&pushRunID, "run", "", "run ID to push (default most recent)")
	pushCmd.AddCommand(pushNotionCmd, pushSalesforceCmd)
	rootCmd.AddCommand(pushCmd)
}
