// Package server exposes the contest engine over HTTP/JSON. Routes are
// versioned under /api/v1; user identity arrives via the X-User-ID
// header set by the edge gateway.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Raman-Maurya/mystartup-sub001/internal/engine"
	"github.com/Raman-Maurya/mystartup-sub001/internal/observability"
	"github.com/Raman-Maurya/mystartup-sub001/internal/wallet"
)

// Server owns the HTTP surface: routing, auth, rate limiting, and the
// operational endpoints (health, metrics).
type Server struct {
	engine  *engine.Engine
	wallets *wallet.Service
	health  *observability.HealthChecker
	metrics *observability.Metrics
	limiter *userLimiter
	log     zerolog.Logger

	httpServer *http.Server
}

// Config bounds the server's listener and per-user throughput.
type Config struct {
	Addr         string
	RateLimitRPS float64
	RateBurst    int
}

func New(cfg Config, eng *engine.Engine, wallets *wallet.Service, health *observability.HealthChecker, metrics *observability.Metrics, log zerolog.Logger) *Server {
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 10
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 20
	}

	s := &Server{
		engine:  eng,
		wallets: wallets,
		health:  health,
		metrics: metrics,
		limiter: newUserLimiter(cfg.RateLimitRPS, cfg.RateBurst, metrics),
		log:     log.With().Str("component", "http").Logger(),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Router assembles the chi route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(instrument(s.metrics))

	r.Get("/healthz", s.health.LivenessHandler)
	r.Get("/readyz", s.health.ReadinessHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public reads.
		r.Get("/contests", s.listContests)
		r.Get("/contests/{contestID}", s.getContest)
		r.Get("/contests/{contestID}/leaderboard", s.getLeaderboard)
		r.Get("/contests/{contestID}/stats", s.getStats)

		// Admin lifecycle operations.
		r.Post("/contests", s.createContest)
		r.Post("/contests/{contestID}/publish", s.publishContest)
		r.Post("/contests/{contestID}/cancel", s.cancelContest)
		r.Post("/contests/{contestID}/settle", s.settleContest)

		// Authenticated participant operations.
		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Use(s.limiter.middleware)

			r.Post("/contests/{contestID}/join", s.joinContest)
			r.Post("/contests/{contestID}/leave", s.leaveContest)
			r.Post("/contests/{contestID}/trades", s.placeTrade)
			r.Post("/contests/{contestID}/trades/{tradeID}/close", s.closeTrade)
			r.Get("/contests/{contestID}/trades", s.listMyTrades)
			r.Get("/wallet", s.getWallet)
		})
	})

	return r
}

// Start begins serving. Blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.close()
	return s.httpServer.Shutdown(ctx)
}
