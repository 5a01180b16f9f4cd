// Package server exposes the pipeline control surface over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aim-group/evidence-cli/internal/config"
	"github.com/aim-group/evidence-cli/internal/pipeline"
	"github.com/aim-group/evidence-cli/internal/store"
	"github.com/aim-group/evidence-cli/internal/workflow"
)

// Server is the HTTP control surface over the orchestrator and the
// analyst state store.
type Server struct {
	cfg        *config.Config
	orch       *pipeline.Orchestrator
	state      *workflow.StateStore
	runLimiter *rate.Limiter
	router     chi.Router
	log        *zap.Logger
}

// New builds the server with routing, CORS and the run rate limit.
func New(cfg *config.Config, orch *pipeline.Orchestrator, state *workflow.StateStore) *Server {
	perMin := cfg.Server.RunRatePerMin
	if perMin <= 0 {
		perMin = 6
	}
	s := &Server{
		cfg:        cfg,
		orch:       orch,
		state:      state,
		runLimiter: rate.NewLimiter(rate.Every(time.Duration(float64(time.Minute)/perMin)), 1),
		log:        zap.L().With(zap.String("component", "server")),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)

	r.Route("/pipeline", func(r chi.Router) {
		r.Post("/run", s.handlePipelineRun)
		r.Get("/status", s.handlePipelineStatus)
		r.Post("/clean", s.handlePipelineClean)
	})
	r.Route("/pairs", func(r chi.Router) {
		r.Get("/merged", s.handleMergedPairs)
		r.Get("/accepted", s.handleAcceptedPairs)
		r.Get("/status", s.handlePairStatuses)
		r.Patch("/status", s.handleUpdatePairStatus)
	})
	r.Route("/scores", func(r chi.Router) {
		r.Get("/summary", s.handleScoreSummary)
		r.Post("/recompute", s.handleRecomputeScores)
		r.Post("/calibrate", s.handleCalibrate)
		r.Get("/calibrated", s.handleCalibratedScores)
		r.Post("/calibrated/override", s.handleOverrideCalibration)
	})
	r.Route("/strategy", func(r chi.Router) {
		r.Get("/distribution", s.handleDistribution)
		r.Post("/distribution/run", s.handleRunDistribution)
		r.Get("/parsed", s.handleParsedStrategy)
		r.Get("/selected", s.handleSelectedStrategy)
		r.Post("/selected", s.handleSaveSelectedStrategy)
	})
	r.Get("/human-factors", s.handleHumanFactors)
	r.Post("/human-factors", s.handleSaveHumanFactors)
	r.Get("/matrix-adjustments", s.handleMatrixAdjustments)
	r.Post("/matrix-adjustments", s.handleSaveMatrixAdjustments)
	return r
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe runs the HTTP server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.Int("port", s.cfg.Server.Port))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

func respond(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

type errorBody struct {
	Detail string `json:"detail"`
}

func respondError(w http.ResponseWriter, code int, detail string) {
	respond(w, code, errorBody{Detail: detail})
}

// respondServiceError maps the error taxonomy onto HTTP codes: absent
// documents are 404, caller mistakes 400, stage timeouts 504 and
// everything else 500.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	var timeout *pipeline.TimeoutError
	switch {
	case store.IsNotFound(err):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, pipeline.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &timeout):
		respondError(w, http.StatusGatewayTimeout, err.Error())
	default:
		s.log.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
