package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexus-finance/platform/internal/market/server"
	"github.com/nexus-finance/platform/pkg/core/config"
	"github.com/nexus-finance/platform/pkg/core/logging"
)

func main() {
	logger := logging.New("marketd")
	logger.Info("Starting Nexus Market Service")

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Create server
	srv, err := server.New(cfg)
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	// Start server
	srv.StartAsync()
	logger.Info("Market service started", "address", srv.Address())

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutdown signal received, stopping server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		logger.Error("Error during shutdown", "error", err)
	}

	logger.Info("Market service stopped")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		cfg = config.Default()
	}

	// Override from environment
	if host := os.Getenv("MARKET_HOST"); host != "" {
		cfg.Market.Host = host
	}
	if port := os.Getenv("MARKET_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &cfg.Market.Port)
	}
	if provider := os.Getenv("MARKET_PROVIDER"); provider != "" {
		cfg.Market.Provider = provider
	}
	if apiKey := os.Getenv("MARKET_API_KEY"); apiKey != "" {
		cfg.Market.APIKey = apiKey
	}

	return cfg, nil
}
