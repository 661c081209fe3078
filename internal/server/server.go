// Package server is the composition root: it opens the database, image
// store and rate limiter, builds the services and handlers, and mounts
// them on a chi router.
//
// DEPENDENCY FLOW:
//
//	config.Config → Server.New()
//	  sqlite.DB, storage.ImageStore, ratelimit.Limiter
//	    → services → handlers → routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/game-marketplace/internal/auth"
	"github.com/sakif/game-marketplace/internal/config"
	"github.com/sakif/game-marketplace/internal/handler"
	"github.com/sakif/game-marketplace/internal/middleware"
	"github.com/sakif/game-marketplace/internal/ratelimit"
	sqliteRepo "github.com/sakif/game-marketplace/internal/repository/sqlite"
	"github.com/sakif/game-marketplace/internal/service"
	"github.com/sakif/game-marketplace/internal/storage"
)

// Server owns the long-lived resources; Close releases them.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter ratelimit.Limiter
	images  *storage.ImageStore
}

func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	images, err := storage.NewImageStore(cfg.ImageDir, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening image store: %w", err)
	}

	limiter, err := newLimiter(cfg, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting rate limiter: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		limiter: limiter,
		images:  images,
	}
	s.setupRoutes()
	return s, nil
}

func newLimiter(cfg config.Config, logger *slog.Logger) (ratelimit.Limiter, error) {
	if cfg.RedisAddr == "" {
		return ratelimit.NewNoOp(logger), nil
	}
	return ratelimit.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, ratelimit.Options{
		MaxAttempts: cfg.LoginMaxAttempts,
		Window:      cfg.LoginWindow,
	}, logger)
}

// setupRoutes builds the middleware chain and the route table.
//
// MIDDLEWARE ORDER:
// RequestID → RealIP → Recoverer → Logger → OptionalAuth → handler.
// OptionalAuth only attaches the user; each service decides whether an
// anonymous caller is allowed, after validating its input.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(auth.OptionalAuth(s.db.Users(), s.logger))

	passwords := auth.NewPasswordServiceWithCost(s.config.BcryptCost)

	users := handler.NewUserHandler(service.NewUserService(s.db, passwords, s.limiter, s.logger), s.logger)
	games := handler.NewGameHandler(service.NewGameService(s.db, s.images, s.logger), s.logger)
	actions := handler.NewActionHandler(service.NewActionService(s.db, s.logger), s.logger)
	reviews := handler.NewReviewHandler(service.NewReviewService(s.db, s.logger), s.logger)
	images := handler.NewImageHandler(service.NewImageService(s.db, s.images, s.logger), s.config.MaxImageBytes, s.logger)

	s.router.Route("/users", func(r chi.Router) {
		r.Post("/", users.HandleRegister)
		r.Post("/login", users.HandleLogin)
		r.With(auth.RequireAuth).Post("/logout", users.HandleLogout)

		r.Get("/{id}", users.HandleView)
		r.Patch("/{id}", users.HandleUpdate)

		r.Get("/{id}/image", images.HandleGetUserImage())
		r.Put("/{id}/image", images.HandlePutUserImage())
		r.Delete("/{id}/image", images.HandleDeleteUserImage)
	})

	s.router.Route("/games", func(r chi.Router) {
		r.Get("/", games.HandleSearch)
		r.Post("/", games.HandleCreate)

		// Static segments win over {id} in chi, so these never reach
		// the id routes.
		r.Get("/genres", games.HandleGenres)
		r.Get("/platforms", games.HandlePlatforms)

		r.Get("/{id}", games.HandleGet)
		r.Patch("/{id}", games.HandleEdit)
		r.Delete("/{id}", games.HandleDelete)

		r.Get("/{id}/reviews", reviews.HandleList)
		r.Post("/{id}/reviews", reviews.HandlePost)

		r.Post("/{id}/wishlist", actions.HandleWishlist())
		r.Delete("/{id}/wishlist", actions.HandleUnwishlist())
		r.Post("/{id}/owned", actions.HandleOwn())
		r.Delete("/{id}/owned", actions.HandleUnown())

		r.Get("/{id}/image", images.HandleGetGameImage())
		r.Put("/{id}/image", images.HandlePutGameImage())
	})
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and the rate limiter.
func (s *Server) Close() error {
	return errors.Join(s.limiter.Close(), s.db.Close())
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests
// for up to 30 seconds.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
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
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.String("images", s.config.ImageDir),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
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
