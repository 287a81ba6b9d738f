package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // captive-portal clients arrive from arbitrary origins
	},
}

func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("Failed to upgrade WebSocket", "error", err)
		return nil
	}

	// Oversized frames fail the read instead of growing memory.
	conn.SetReadLimit(s.config.MaxBodyBytes)

	clientID, err := s.hub.Register(conn)
	if err != nil {
		slog.Warn("Failed to register with hub", "error", err)
		// Connection already closed by the hub on rejection.
		return nil
	}

	// Read pump (blocks until disconnect)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.hub.Dispatch(clientID, raw)
	}

	s.hub.Unregister(clientID)
	return nil
}

func (s *Server) handleGetMessages(c echo.Context) error {
	snap := s.store.Snapshot()
	return c.JSON(http.StatusOK, snap.Messages)
}

func (s *Server) handleGetSounds(c echo.Context) error {
	snap := s.store.Snapshot()
	return c.JSON(http.StatusOK, snap.Sounds)
}

func (s *Server) handleGetCanvas(c echo.Context) error {
	snap := s.store.Snapshot()
	return c.JSON(http.StatusOK, map[string]any{"data": snap.Canvas})
}
