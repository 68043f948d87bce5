package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/engine"
	"github.com/sells-group/dealflow-cli/internal/enrich"
	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP analysis API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      newRouter(env),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// newRouter builds the HTTP route tree for the analysis API.
func newRouter(env *runEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/analyze", handleAnalyze(env))
		api.Get("/analyses/{propertyID}", handleGetAnalysis(env))
		api.Get("/buyers", handleListBuyers(env))
	})

	return r
}

func handleAnalyze(env *runEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var p model.PropertyRecord
		if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := p.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		ctx := req.Context()
		market, err := env.Store.GetMarket(ctx, p.ZIP)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "market lookup failed")
			return
		}
		buyers, err := env.Store.ListActiveBuyers(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "buyer lookup failed")
			return
		}

		out, err := engine.AnalyzeAndMatch(p, market, buyers, cfg.Engine)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		narrative := enrich.Fallback(p, out.Analysis)
		if env.Narrator != nil {
			narrative = env.Narrator.Narrate(ctx, p, out.Analysis)
		}

		writeJSON(w, http.StatusOK, struct {
			Analysis  *model.AnalysisResult `json:"analysis"`
			Matches   model.MatchResult     `json:"matches"`
			Narrative enrich.Narrative      `json:"narrative"`
		}{out.Analysis, out.Matches, narrative})
	}
}

func handleGetAnalysis(env *runEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		propertyID := chi.URLParam(req, "propertyID")
		sa, err := env.Store.GetAnalysis(req.Context(), propertyID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "no analysis for property")
				return
			}
			writeError(w, http.StatusInternalServerError, "analysis lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, sa)
	}
}

func handleListBuyers(env *runEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		buyers, err := env.Store.ListActiveBuyers(req.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "buyer lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, buyers)
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
