// Package server sets up the HTTP server, router and route definitions on top
// of an app.App.
//
// ROUTES:
//
//	GET    /healthz                      → load state of every collection
//	GET    /metrics                      → Prometheus metrics
//	GET    /api/{domain}                 → filtered, sorted, paginated list
//	GET    /api/{domain}/stats           → whole-collection counts
//	GET    /api/{domain}/status          → sync state (does not wait for load)
//	GET    /api/{domain}/collections     → curated tag collections
//	GET    /api/{domain}/export          → transfer document download
//	GET    /api/{domain}/{id}            → one entity
//	POST   /api/{domain}                 → add            [token]
//	POST   /api/{domain}/import          → import         [token]
//	PATCH  /api/{domain}/{id}            → update         [token]
//	DELETE /api/{domain}/{id}            → delete         [token]
//	POST   /api/{domain}/{id}/favorite   → toggle favorite
//	POST   /api/{domain}/{id}/use        → increment use count
//	POST   /api/{domain}/{id}/view       → increment view count
//
// {domain} is "snippets" or "cheat_sheets" ("cheat-sheets" also works).
// Routes marked [token] require a bearer token when auth is enabled; the
// counter and favorite routes stay open so a read-only client can still
// record usage.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/snippetbase/internal/app"
	"github.com/sakif/snippetbase/internal/auth"
	"github.com/sakif/snippetbase/internal/collection"
	"github.com/sakif/snippetbase/internal/handler"
	"github.com/sakif/snippetbase/internal/metrics"
	"github.com/sakif/snippetbase/internal/middleware"
	"github.com/sakif/snippetbase/internal/model"
)

type Server struct {
	router *chi.Mux
	app    *app.App
	logger *slog.Logger
}

// New builds the router. The app must already be started, or be started
// before Start is called; reads wait for each collection to load.
func New(a *app.App) *Server {
	s := &Server{
		router: chi.NewRouter(),
		app:    a,
		logger: a.Logger,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// setupRoutes configures middleware and routes.
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique ID to each request
// 2. RealIP: extracts the client IP from proxy headers
// 3. Recoverer: turns panics into 500s
// 4. Logger: logs and records metrics for each request
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	reg := metrics.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s.router.Get("/healthz", s.handleHealth)

	entities := handler.NewEntityHandler(s.app, s.app.Facade, s.logger)
	protect := auth.RequireToken(s.app.Tokens)

	s.router.Route("/api/{domain}", func(r chi.Router) {
		r.Get("/", entities.HandleList)
		r.Get("/stats", entities.HandleStats)
		r.Get("/status", entities.HandleStatus)
		r.Get("/collections", entities.HandleCollections)
		r.Get("/export", entities.HandleExport)
		r.Get("/{id}", entities.HandleGet)

		r.Post("/{id}/favorite", entities.HandleFavorite)
		r.Post("/{id}/use", entities.HandleUse)
		r.Post("/{id}/view", entities.HandleView)

		r.Group(func(r chi.Router) {
			r.Use(protect)
			r.Post("/", entities.HandleCreate)
			r.Post("/import", entities.HandleImport)
			r.Patch("/{id}", entities.HandleUpdate)
			r.Delete("/{id}", entities.HandleDelete)
		})
	})
}

type healthResponse struct {
	Status      string            `json:"status"`
	Storage     bool              `json:"durableStorage"`
	Collections map[string]string `json:"collections"`
}

// handleHealth is always 200; "loading" means at least one collection has
// not reached synced yet.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	res := healthResponse{
		Status:      "ok",
		Storage:     s.app.Store.Available(),
		Collections: make(map[string]string, len(model.Domains)),
	}
	for _, d := range model.Domains {
		state := s.app.Collection(d).State()
		res.Collections[string(d)] = state.String()
		if state != collection.Synced {
			res.Status = "loading"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.logger.Error("failed to encode health response", slog.String("error", err.Error()))
	}
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests and
// closes the app, flushing every collection.
func (s *Server) Start() error {
	cfg := s.app.Config.Server
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", cfg.Addr()),
			slog.String("url", fmt.Sprintf("http://%s", cfg.Addr())),
			slog.String("storage", s.app.Config.Storage.Engine),
			slog.Bool("auth", s.app.Tokens != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server error: %w", err)
		}
	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			runErr = fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := s.app.Close(ctx); err != nil && runErr == nil {
		runErr = err
	}
	if runErr == nil {
		s.logger.Info("server stopped gracefully")
	}
	return runErr
}
