package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Polling fallback for clients without a live connection
	s.echo.GET("/api/messages", s.handleGetMessages)
	s.echo.GET("/api/sounds", s.handleGetSounds)
	s.echo.GET("/api/canvas", s.handleGetCanvas)

	// Live connection
	s.echo.GET("/ws", s.handleWebSocket)
}
