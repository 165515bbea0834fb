package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearcheck/verify-cli/internal/media"
	"github.com/clearcheck/verify-cli/internal/model"
	"github.com/clearcheck/verify-cli/internal/pipeline"
	"github.com/clearcheck/verify-cli/internal/store"
	anthropicpkg "github.com/clearcheck/verify-cli/pkg/anthropic"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		frames := media.NewFFmpeg(cfg.Media.FFmpegPath, cfg.Media.FFprobePath)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(st, client, frames),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("serve: listening", zap.Int("port", port))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		}
	},
}

func newRouter(st store.Store, client anthropicpkg.Client, frames media.FrameExtractor) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/analyze", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL  string `json:"url"`
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		sub := model.Submission{URL: req.URL, Text: req.Text}
		if sub.Empty() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url or text is required"})
			return
		}

		orch := pipeline.New(cfg, st, client, frames, nil)
		outcome, err := orch.Run(r.Context(), sub, nil)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"error": pipeline.Translate(err),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"run_id":  outcome.Item.ID,
			"report":  outcome.Report,
			"warning": outcome.Warning,
			"state":   outcome.State,
			"results": outcome.Results,
		})
	})

	r.Get("/api/history", func(w http.ResponseWriter, r *http.Request) {
		items, err := st.ListHistory(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list history"})
			return
		}
		writeJSON(w, http.StatusOK, items)
	})

	r.Get("/api/history/{id}", func(w http.ResponseWriter, r *http.Request) {
		item, err := st.GetHistory(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load history item"})
			return
		}
		if item == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "history item not found"})
			return
		}
		writeJSON(w, http.StatusOK, item)
	})

	r.Delete("/api/history", func(w http.ResponseWriter, r *http.Request) {
		if err := st.ClearHistory(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to clear history"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	})

	r.Get("/api/memory", func(w http.ResponseWriter, r *http.Request) {
		recs, err := st.ListRecords(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list records"})
			return
		}
		writeJSON(w, http.StatusOK, recs)
	})

	r.Get("/api/memory/{domain}", func(w http.ResponseWriter, r *http.Request) {
		rec, err := st.GetRecord(r.Context(), chi.URLParam(r, "domain"))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to look up domain"})
			return
		}
		if rec == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "domain not flagged"})
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("serve: write response", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override configured port")
	rootCmd.AddCommand(serveCmd)
}
