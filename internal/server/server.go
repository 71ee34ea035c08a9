// Package server exposes the adjudication pipeline over HTTP: claim
// submission, decision lookup, the reviewer workflow and a websocket feed
// of the review backlog.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/opdclaims/adjudicator/internal/auth"
	"github.com/opdclaims/adjudicator/internal/decisions"
	"github.com/opdclaims/adjudicator/internal/engine"
	"github.com/opdclaims/adjudicator/internal/policyterms"
	"github.com/opdclaims/adjudicator/internal/review"
	"github.com/rs/zerolog/log"
)

type Server struct {
	echo   *echo.Echo
	config Config
	wsHub  *Hub
}

// Deps are the collaborators the HTTP layer routes between.
type Deps struct {
	Engine *engine.Engine
	Store  decisions.Store
	Ledger *decisions.Ledger
	Terms  policyterms.Source
	Inbox  review.Inbox
	Auth   *auth.Manager
}

func New(cfg Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		config: cfg,
	}

	s.setupMiddleware()
	s.setupRoutes(deps)

	return s
}

// Handler exposes the routing tree for tests that serve over httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Info().Int("port", s.config.Port).Msg("starting HTTP server")

	s.echo.Server.ReadTimeout = time.Duration(s.config.ReadTimeout) * time.Second
	s.echo.Server.WriteTimeout = time.Duration(s.config.WriteTimeout) * time.Second

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down server")

	if s.wsHub != nil {
		s.wsHub.Shutdown()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(s.config.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	s.echo.Use(middleware.Recover())

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
}

func (s *Server) setupRoutes(deps Deps) {
	wsHandler := NewWSHandler(deps.Inbox, deps.Auth)
	s.wsHub = wsHandler.GetHub()

	claimsHandler := NewClaimsHandler(deps.Engine, deps.Store, deps.Ledger, deps.Terms, deps.Inbox, s.wsHub, s.config.PendingReviewLimit)
	authHandler := auth.NewHandler(deps.Auth)

	// Public endpoints
	s.echo.GET("/health", s.handleHealth)
	s.echo.POST("/login", authHandler.Login)

	protected := s.echo.Group("")
	protected.Use(deps.Auth.Middleware())

	protected.GET("/me", authHandler.Me)

	// Adjudication is called by upstream claim-intake services
	protected.POST("/claims/:id/adjudicate", claimsHandler.Adjudicate)
	protected.GET("/claims/:id/decision", claimsHandler.GetDecision)
	protected.GET("/stats/decisions", claimsHandler.Stats)

	// Reviewer workflow
	protected.GET("/claims/pending-review", claimsHandler.PendingReview)
	protected.POST("/claims/:id/decision/override", claimsHandler.Override, deps.Auth.RequireRole(auth.RoleReviewer))
	protected.GET("/ws", wsHandler.HandleWebSocket)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
