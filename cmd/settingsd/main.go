package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexus-finance/platform/internal/settings/server"
	"github.com/nexus-finance/platform/pkg/core/config"
	"github.com/nexus-finance/platform/pkg/core/logging"
)

func main() {
	logger := logging.New("settingsd")
	logger.Info("Starting Nexus Settings Service")

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
	logger.Info("Settings service started", "address", srv.Address())

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

	logger.Info("Settings service stopped")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		cfg = config.Default()
	}

	// Override from environment
	if host := os.Getenv("SETTINGS_HOST"); host != "" {
		cfg.Settings.Host = host
	}
	if port := os.Getenv("SETTINGS_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &cfg.Settings.Port)
	}
	if dbPath := os.Getenv("SETTINGS_DB_PATH"); dbPath != "" {
		cfg.Settings.DatabasePath = dbPath
	}
	if secret := os.Getenv("NEXUS_MASTER_SECRET"); secret != "" {
		cfg.Settings.MasterSecret = secret
	}

	return cfg, nil
}
