package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/handwerk-leads/leads-cli/internal/checkpoint"
	"github.com/handwerk-leads/leads-cli/internal/model"
	"github.com/handwerk-leads/leads-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API for triggering and inspecting runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              ":" + strconv.Itoa(port),
			Handler:           newRouter(st),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("http server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return eris.Wrap(err, "serve: listen")
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "serve: shutdown")
		}
		zap.L().Info("http server stopped")
		return nil
	},
}

// scrapeRunning guards against overlapping runs: the checkpoint file
// is shared state, so only one collection may be active at a time.
var scrapeRunning atomic.Bool

func newRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/progress", handleProgress)
	r.Post("/scrape", handleScrape(st))
	r.Get("/runs", handleListRuns(st))
	r.Get("/runs/{id}", handleGetRun(st))
	r.Get("/runs/{id}/leads", handleRunLeads(st))

	return r
}

func handleProgress(w http.ResponseWriter, _ *http.Request) {
	cp := checkpoint.New(cfg.Scrape.CheckpointFile)
	if !cp.Load() {
		writeJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}
	stats := cp.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"active":            scrapeRunning.Load(),
		"started":           stats.StartTime,
		"last_checkpoint":   stats.LastCheckpoint,
		"processed":         cp.ProcessedCount(),
		"leads_collected":   cp.LeadsCollected(),
		"total_cost_usd":    stats.TotalCost,
		"api_calls":         stats.APICalls,
		"leads_by_category": stats.LeadsByCategory,
	})
}

func handleScrape(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params scrapeParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, http.StatusBadRequest, eris.Wrap(err, "decode request"))
			return
		}
		if params.Source == "" {
			params.Source = "places"
		}
		if !scrapeRunning.CompareAndSwap(false, true) {
			writeError(w, http.StatusConflict, eris.New("a run is already in progress"))
			return
		}

		go func() {
			defer scrapeRunning.Store(false)
			runID, err := runScrape(context.Background(), st, params)
			if err != nil {
				zap.L().Error("background run failed", zap.String("run_id", runID), zap.Error(err))
				return
			}
			zap.L().Info("background run finished", zap.String("run_id", runID))
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}

func handleListRuns(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.RunFilter{
			Status: model.RunStatus(r.URL.Query().Get("status")),
			Source: model.Source(r.URL.Query().Get("source")),
			Limit:  50,
		}
		runs, err := st.ListRuns(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

func handleGetRun(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := st.GetRun(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func handleRunLeads(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		leads, err := st.ListLeads(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, leads)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
