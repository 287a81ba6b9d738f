package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prismspecs/pi-captive/internal/config"
	"github.com/prismspecs/pi-captive/internal/hub"
	"github.com/prismspecs/pi-captive/internal/logging"
	"github.com/prismspecs/pi-captive/internal/server"
	"github.com/prismspecs/pi-captive/internal/state"
	"github.com/prismspecs/pi-captive/internal/version"
)

func runGracefulShutdown(srv *server.Server, h *hub.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		h.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "addr", cfg.ListenAddr(), "version", version.Get().Version)

	store := state.NewStore(cfg.MaxClipBytes)
	h := hub.NewHub(store, cfg.MaxConnections, clock)
	srv := server.NewServer(cfg, store, h)

	done := runGracefulShutdown(srv, h)

	slog.Info("Server starting", "addr", cfg.ListenAddr())
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
