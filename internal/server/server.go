// Package server exposes the HTTP surface: the websocket endpoint, the
// polling API, and the observability routes.
package server

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prismspecs/pi-captive/internal/config"
	"github.com/prismspecs/pi-captive/internal/domain"
	"github.com/prismspecs/pi-captive/internal/hub"
)

type Server struct {
	echo   *echo.Echo
	config *config.Config
	store  domain.StateStore
	hub    *hub.Hub

	// connCountCheck overrides the hub as connection counter in tests.
	connCountCheck connectionCounter
}

func NewServer(cfg *config.Config, store domain.StateStore, h *hub.Hub) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit: fmt.Sprintf("%dB", cfg.MaxBodyBytes),
	}))
	e.Use(newRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	e.Use(errorHandlingMiddleware())

	srv := &Server{
		echo:   e,
		config: cfg,
		store:  store,
		hub:    h,
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(s.config.ListenAddr())
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
