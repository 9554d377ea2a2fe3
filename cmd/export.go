package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/handwerk-leads/leads-cli/internal/delivery"
	"github.com/handwerk-leads/leads-cli/internal/export"
	"github.com/handwerk-leads/leads-cli/internal/store"
)

var exportFlags struct {
	runID  string
	format string
	output string
	upload bool
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a run's leads to CSV or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		runID := exportFlags.runID
		if runID == "" {
			// Default to the most recent run.
			runs, err := st.ListRuns(cmd.Context(), store.RunFilter{Limit: 1})
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				return eris.New("no runs to export")
			}
			runID = runs[0].ID
		}

		leads, err := st.ListLeads(cmd.Context(), runID)
		if err != nil {
			return err
		}
		if len(leads) == 0 {
			return eris.Errorf("run %s has no leads", runID)
		}

		format := exportFlags.format
		if format == "" {
			format = cfg.Export.Format
		}
		outputDir := exportFlags.output
		if outputDir == "" {
			outputDir = cfg.Export.OutputDir
		}
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return eris.Wrap(err, "create output directory")
		}

		path := export.Filename(outputDir, format, time.Now())
		switch format {
		case "csv":
			err = export.WriteCSV(path, leads)
		case "xlsx":
			err = export.WriteXLSX(path, leads)
		default:
			return eris.Errorf("unknown format %q (want csv or xlsx)", format)
		}
		if err != nil {
			return err
		}

		zap.L().Info("export written",
			zap.String("run_id", runID),
			zap.String("path", path),
			zap.Int("leads", len(leads)),
		)
		export.Summarize(leads).Log()

		if exportFlags.upload {
			if cfg.Export.FTPURL == "" {
				return eris.New("--upload requires an FTP URL (LEADS_EXPORT_FTP_URL)")
			}
			uploader := delivery.NewFTPUploader(delivery.FTPOptions{
				Username: cfg.Export.FTPUser,
				Password: cfg.Export.FTPPass,
			})
			if err := uploader.Upload(cmd.Context(), cfg.Export.FTPURL, path); err != nil {
				return err
			}
		}

		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFlags.runID, "run", "", "run ID to export (default most recent)")
	exportCmd.Flags().StringVar(&exportFlags.format, "format", "", "csv or xlsx (default from config)")
	exportCmd.Flags().StringVar(&exportFlags.output, "output", "", "output directory (default from config)")
	exportCmd.Flags().BoolVar(&exportFlags.upload, "upload", false, "upload the file to the configured FTP drop")
	rootCmd.AddCommand(exportCmd)
}
