// Package server is the composition root: it builds the stores, services
// and handlers from a config.Config, mounts them on a chi router and runs
// the HTTP server until it receives SIGINT or SIGTERM.
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
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sakif/bookstore/internal/aggregator"
	"github.com/sakif/bookstore/internal/auth"
	"github.com/sakif/bookstore/internal/config"
	"github.com/sakif/bookstore/internal/handler"
	"github.com/sakif/bookstore/internal/middleware"
	"github.com/sakif/bookstore/internal/repository"
	"github.com/sakif/bookstore/internal/repository/sqldb"
	"github.com/sakif/bookstore/internal/service"
	"github.com/sakif/bookstore/internal/session"
	"github.com/sakif/bookstore/internal/session/redisstore"
	"github.com/sakif/bookstore/web"
)

const (
	sessionPurgeInterval = 15 * time.Minute
	limiterCleanup       = 10 * time.Minute
)

// Server owns the database and, when configured, the Redis connection. Both
// are closed by Close, which Start calls on the way out.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger

	db      *sqldb.DB
	redis   *redisstore.Store // nil unless REDIS_URL is set
	limiter *middleware.RateLimiter
	metrics *middleware.Metrics

	passwords *auth.PasswordService
	ratings   service.RatingsLookup
}

type Option func(*Server)

// WithPasswordService replaces the default bcrypt cost. Tests use a low
// cost to keep sign-up fast.
func WithPasswordService(p *auth.PasswordService) Option {
	return func(s *Server) { s.passwords = p }
}

// WithRatings replaces the aggregator client.
func WithRatings(r service.RatingsLookup) Option {
	return func(s *Server) { s.ratings = r }
}

// New opens the stores named by cfg and wires every route.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	db, err := sqldb.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		limiter: middleware.NewRateLimiter(cfg.LoginRatePerMin, logger),
		metrics: middleware.NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.passwords == nil {
		s.passwords = auth.NewPasswordService()
	}
	if s.ratings == nil {
		s.ratings = aggregator.New(cfg.ReviewsAPIURL, cfg.ReviewsAPIKey, cfg.ReviewsTimeout, logger)
	}

	var store repository.SessionRepository = db
	if cfg.RedisURL != "" {
		rs, err := redisstore.New(ctx, cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		s.redis = rs
		store = rs
	}

	if err := s.setupRoutes(store); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes(store repository.SessionRepository) error {
	tokens, err := auth.NewTokenService(s.config.SessionSecret, s.config.SessionTTL)
	if err != nil {
		return err
	}
	sessions := session.NewManager(store, tokens, s.logger)
	sessions.SetSecureCookie(s.config.SecureCookies)

	render, err := handler.NewRenderer(web.Templates(), s.logger)
	if err != nil {
		return err
	}

	if err := s.metrics.Registerer().Register(collectors.NewDBStatsCollector(s.db.SQL(), "bookstore")); err != nil {
		return fmt.Errorf("registering db metrics: %w", err)
	}

	accounts := service.NewAccountService(s.db, s.passwords, s.logger)
	catalog := service.NewCatalogService(s.db, s.db, s.ratings, s.logger)

	accountHandler := handler.NewAccountHandler(accounts, sessions, render, s.logger, s.config.GitHubEnabled())
	catalogHandler := handler.NewCatalogHandler(catalog, render, s.logger)
	apiHandler := handler.NewAPIHandler(catalog, s.logger)

	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(s.metrics.Middleware)

	r.NotFound(render.NotFound)
	r.MethodNotAllowed(render.MethodNotAllowed)

	r.Handle("/metrics", s.metrics.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))

	r.Get("/api/{isbn}", apiHandler.HandleBook)

	r.Group(func(r chi.Router) {
		r.Use(sessions.Load)

		r.Get("/", accountHandler.HandleIndex)
		r.Get("/signup", accountHandler.HandleSignupForm)
		r.With(s.limiter.Handler).Post("/signup", accountHandler.HandleSignup)
		r.Get("/login", accountHandler.HandleLoginForm)
		r.With(s.limiter.Handler).Post("/login", accountHandler.HandleLogin)
		r.Get("/logout", accountHandler.HandleLogout)
		r.Get("/user/{username}", accountHandler.HandleUser)

		r.Group(func(r chi.Router) {
			r.Use(session.RequireSession)

			r.Get("/search", catalogHandler.HandleSearchForm)
			r.Post("/search", catalogHandler.HandleSearch)
			r.Get("/book/{isbn}", catalogHandler.HandleBook)
			r.Post("/book/{isbn}/review", catalogHandler.HandleReview)
		})

		if s.config.GitHubEnabled() {
			github := auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
			githubHandler := handler.NewGitHubHandler(github, accounts, sessions, render, s.logger)
			r.Get("/auth/github/login", githubHandler.HandleLogin)
			r.Get("/auth/github/callback", githubHandler.HandleCallback)
			s.logger.Info("github sign-in enabled")
		}
	})

	return nil
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and Redis connections.
func (s *Server) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// Start serves HTTP until SIGINT/SIGTERM, then drains in-flight requests
// for up to 30 seconds and closes the stores.
func (s *Server) Start() error {
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.limiter.StartCleanup(ctx, limiterCleanup)
	if s.redis == nil {
		go s.purgeSessions(ctx, sessionPurgeInterval)
	}

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
			slog.String("database", s.db.Driver()),
			slog.Bool("redisSessions", s.redis != nil),
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

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// purgeSessions removes expired rows from the sessions table every
// interval. Reads already ignore expired rows; this only reclaims space.
func (s *Server) purgeSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.db.PurgeExpiredSessions(ctx, now)
			if err != nil {
				s.logger.Warn("purging sessions", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				s.logger.Debug("purged expired sessions", slog.Int64("count", n))
			}
		}
	}
}
