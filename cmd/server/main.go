package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"epicdash/internal/api"
	"epicdash/internal/config"
	"epicdash/internal/dashboard"
	"epicdash/internal/data"

	log "github.com/sirupsen/logrus"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()
	cfg.SetupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	vault, err := cfg.Vault(ctx)
	if err != nil {
		log.Fatalf("Failed to open artifacts: %v", err)
	}

	handler := api.NewHandler(dashboard.New(data.NewService(vault)),
		cfg.CORSAllowedOrigins, cfg.RateLimitPerSec, cfg.RateLimitBurst)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("[Server] Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("[Server] Shutdown: %v", err)
		}
	}()

	log.Printf("[Server] Listening on http://localhost:%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("[Server] %v", err)
	}
}
