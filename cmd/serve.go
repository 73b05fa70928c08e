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
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lifelink-health/donormatch/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the match API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the HTTP API around an initialized engine.
func newRouter(env *engineEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/matches", handleMatch(env))
		r.Post("/recalibrate", handleRecalibrate(env))
		r.Get("/model", handleModel(env))
		r.Post("/donors", handleUpsertDonor(env))
		r.Patch("/outcomes/{id}", handleUpdateOutcome(env))
	})

	return r
}

func handleMatch(env *engineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.MatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := env.Matcher.FindMatches(r.Context(), req)
		if err != nil {
			if eris.Is(err, model.ErrBloodTypeRequired) {
				writeError(w, http.StatusBadRequest, "blood_type is required")
				return
			}
			zap.L().Error("match request failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "match failed")
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleRecalibrate(env *engineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := env.Model.Recalibrate(r.Context(), env.Store)
		if err != nil {
			zap.L().Error("recalibration failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "recalibration failed")
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func handleModel(env *engineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, env.Model.Current())
	}
}

func handleUpsertDonor(env *engineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var donor model.Donor
		if err := json.NewDecoder(r.Body).Decode(&donor); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if donor.Name == "" || model.NormalizeBloodType(donor.BloodType) == "" {
			writeError(w, http.StatusBadRequest, "name and blood_type are required")
			return
		}

		if err := env.Store.UpsertDonor(r.Context(), donor); err != nil {
			zap.L().Error("donor upsert failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "donor upsert failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleUpdateOutcome(env *engineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Status           model.OutcomeStatus `json:"status"`
			ResponseTimeSecs *int                `json:"response_time_secs,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		switch req.Status {
		case model.OutcomeAccepted, model.OutcomeRejected, model.OutcomeCompleted, model.OutcomeTimedOut:
		default:
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}

		id := chi.URLParam(r, "id")
		if err := env.Store.UpdateOutcomeStatus(r.Context(), id, req.Status, req.ResponseTimeSecs); err != nil {
			writeError(w, http.StatusNotFound, "outcome not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
