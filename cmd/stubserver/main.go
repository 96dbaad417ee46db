package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alkime/drumtone/internal/config"
	"github.com/alkime/drumtone/internal/logger"
	"github.com/alkime/drumtone/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging
	slogger := logger.SetupLogger(cfg)

	// Log startup information
	slogger.Info("Starting drumtone stub backend",
		"env", cfg.Env,
		"port", cfg.Port,
		"model_loaded", cfg.ModelLoaded,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, server.New(cfg, slogger)); err != nil {
		slogger.Error("Server stopped", "error", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop already ran
	}

	slogger.Info("Server stopped")
}
