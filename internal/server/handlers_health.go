package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prismspecs/pi-captive/internal/version"
)

// connectionCounter is a minimal interface for reading the hub's live
// connection count.
type connectionCounter interface {
	ClientCount() int
}

func (s *Server) handleHealth(c echo.Context) error {
	messages, sounds, hasCanvas := s.store.Counts()

	connections := s.getConnectionCounter().ClientCount()
	if connections < 0 {
		// The hub did not answer in time; report degraded instead of a
		// bogus negative count.
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status":      "degraded",
			"connections": 0,
			"messages":    messages,
			"sounds":      sounds,
			"hasCanvas":   hasCanvas,
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": connections,
		"messages":    messages,
		"sounds":      sounds,
		"hasCanvas":   hasCanvas,
	})
}

func (s *Server) getConnectionCounter() connectionCounter {
	if s.connCountCheck != nil {
		return s.connCountCheck
	}
	return s.hub
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, version.Get())
}
