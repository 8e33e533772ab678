package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/pai/internal/processor"
)

// Options configure the HTTP surface.
type Options struct {
	Port       int
	APIToken   string
	CORSOrigin string
	RateLimit  float64
	RateBurst  int

	// APIKeyConfigured is reported by /health.
	APIKeyConfigured bool
}

type Server struct {
	router *chi.Mux
	proc   *processor.Processor
	opts   Options
	logger *slog.Logger
	srv    *http.Server
}

func NewServer(proc *processor.Processor, opts Options, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(CORSMiddleware(opts.CORSOrigin))
	router.Use(RateLimitMiddleware(opts.RateLimit, opts.RateBurst))
	router.Use(BearerAuthMiddleware(opts.APIToken))

	s := &Server{
		router: router,
		proc:   proc,
		opts:   opts,
		logger: logger,
	}

	router.Get("/health", s.health)

	router.Route("/api", func(r chi.Router) {
		r.Get("/status", s.status)

		r.Post("/interview", s.interview)
		r.Post("/interview/{action}", s.interview)
		r.Get("/interview/{sessionID}", s.getSession)

		r.Get("/profiles", s.listProfiles)
		r.Post("/profiles/extract", s.extractProfile)
		r.Get("/profiles/{profileID}", s.getProfile)

		r.Get("/surveys", s.listSurveys)
		r.Post("/surveys", s.createSurvey)
		r.Delete("/surveys", s.deleteSurvey)

		r.Get("/questionnaires", s.listQuestionnaires)
		r.Post("/questionnaires", s.createQuestionnaire)
		r.Get("/questionnaires/{questionnaireID}", s.getQuestionnaire)

		r.Get("/validation", s.validationSurvey)
		r.Post("/validation/compare", s.compare)
		r.Post("/validation/run", s.runValidation)
		r.Get("/validation/history", s.validationHistory)
		r.Get("/validation/results/{runID}", s.downloadResults)
	})

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.opts.Port)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"api_key_configured": s.opts.APIKeyConfigured,
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	st, err := s.proc.Status(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
