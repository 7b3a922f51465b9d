package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	router "github.com/dkeye/roomcast/internal/adapters/http"
	"github.com/dkeye/roomcast/internal/app"
	"github.com/dkeye/roomcast/internal/config"
	"github.com/dkeye/roomcast/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Setup(cfg.Log)

	rooms := app.NewRoomManager()
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           router.NewHandler(cfg, rooms),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("janus", cfg.JanusURL).Msg("room allocator started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Int("recent_rooms", rooms.Recent()).Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
