// Package server wires the stores, services, and handlers together and owns
// the HTTP listener lifecycle. This is the composition root: every
// dependency is assembled here and nowhere else.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gofrs/flock"

	"github.com/sakif/piano-library/internal/config"
	"github.com/sakif/piano-library/internal/handler"
	"github.com/sakif/piano-library/internal/imslp"
	"github.com/sakif/piano-library/internal/middleware"
	"github.com/sakif/piano-library/internal/repository/jsonfile"
	"github.com/sakif/piano-library/internal/service"
)

// Server holds the router and everything the routes depend on.
type Server struct {
	router *chi.Mux
	cfg    config.Config
	logger *slog.Logger
	lock   *flock.Flock
}

// New creates a Server: acquires the single-instance lock, loads the three
// JSON stores, and wires services and routes.
//
// The lock matters because the stores rewrite whole files on every mutation.
// Two processes doing that against the same data directory would silently
// clobber each other, so the second one must refuse to start.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Data.Dir, "piano-library.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring data lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another piano-library instance is already running against this data directory")
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		lock:   lock,
	}
	if err := s.setupRoutes(); err != nil {
		lock.Unlock()
		return nil, err
	}
	return s, nil
}

func (s *Server) setupRoutes() error {
	cfg := s.cfg

	// Stores. The catalog tolerates a missing pieces file (built-in
	// defaults); corrupt user or discussion data refuses to start.
	catalog := jsonfile.NewCatalog(cfg.PiecesPath(), s.logger)
	users, err := jsonfile.NewUserStore(cfg.UsersPath(), s.logger)
	if err != nil {
		return err
	}
	discussions, err := jsonfile.NewDiscussionStore(cfg.DiscussionsPath(), s.logger)
	if err != nil {
		return err
	}

	external := imslp.New(imslp.Config{
		BaseURL:     cfg.IMSLP.BaseURL,
		UserAgent:   cfg.IMSLP.UserAgent,
		Timeout:     cfg.IMSLP.RequestTimeout(),
		SearchLimit: cfg.IMSLP.SearchLimit,
	}, s.logger)

	// Services and handlers.
	catalogSvc := service.NewCatalogService(catalog, users, external, s.logger)
	librarySvc := service.NewLibraryService(users, catalog, s.logger)
	discussionSvc := service.NewDiscussionService(discussions, s.logger)

	pieces := handler.NewPieceHandler(catalogSvc, s.logger)
	library := handler.NewLibraryHandler(librarySvc, s.logger)
	discussion := handler.NewDiscussionHandler(discussionSvc, s.logger)

	// Global middleware, in order.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/pieces", pieces.HandleList)
		r.Get("/pieces/search", pieces.HandleSearch)
		r.Post("/pieces/refresh", pieces.HandleRefresh)
		r.Get("/pieces/{pieceID}", pieces.HandleGet)
		r.Get("/piece-statuses", pieces.HandleStatuses)

		r.Get("/pieces/{pieceID}/discussion", discussion.HandleGet)
		r.Post("/pieces/{pieceID}/discussion", discussion.HandleAddMessage)
		r.Post("/pieces/{pieceID}/discussion/{messageID}/reply", discussion.HandleAddReply)
		r.Post("/pieces/{pieceID}/discussion/{messageID}/like", discussion.HandleToggleLike)

		r.Post("/users", library.HandleCreateUser)
		r.Get("/users/{userID}/library", library.HandleLibrary)
		r.Post("/users/{userID}/library", library.HandleAddToLibrary)
		r.Get("/users/{userID}/library/{pieceID}/status", library.HandleEntryStatus)
		r.Patch("/users/{userID}/library/{pieceID}", library.HandleUpdateEntry)
		r.Delete("/users/{userID}/library/{pieceID}", library.HandleRemoveFromLibrary)
		r.Get("/users/{userID}/library/{pieceID}/ratings", library.HandleRatings)
		r.Delete("/users/{userID}/library/{pieceID}/ratings/{ratingType}", library.HandleRemoveRating)
	})

	return nil
}

// Handler exposes the fully wired router, mainly for tests that drive the
// API through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the data lock without starting the listener. Start releases
// it itself; Close is for callers that never reach Start.
func (s *Server) Close() error {
	return s.lock.Unlock()
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully and releases the data lock.
func (s *Server) Start() error {
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release data lock", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.cfg.Server.Port)),
			slog.String("data", s.cfg.Data.Dir),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
