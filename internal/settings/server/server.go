// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     server
// Description: Standalone HTTP server for the settings service
// ============================================================================

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nexus-finance/platform/internal/settings/handler"
	"github.com/nexus-finance/platform/internal/settings/store"
	"github.com/nexus-finance/platform/pkg/core/config"
	"github.com/nexus-finance/platform/pkg/core/crypto"
	"github.com/nexus-finance/platform/pkg/core/health"
	"github.com/nexus-finance/platform/pkg/core/logging"
	"github.com/nexus-finance/platform/pkg/core/version"
)

const cryptoSalt = "nexus-settings-v1"

// Server hosts the settings endpoints without the full gateway
type Server struct {
	httpServer *http.Server
	store      *store.Store
	health     *health.Registry
	logger     *logging.Logger
	addr       string
}

// New assembles the settings service from configuration
func New(cfg *config.Config) (*Server, error) {
	logger := logging.New("settings")

	masterSecret := cfg.Settings.MasterSecret
	if masterSecret == "" {
		generated, err := crypto.GenerateSecret(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate master secret: %w", err)
		}
		masterSecret = generated
		logger.Warn("No master secret configured, using an ephemeral one; " +
			"stored API keys will not survive a restart")
	}
	box, err := crypto.New(masterSecret, cryptoSalt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize crypto: %w", err)
	}

	st, err := store.Open(cfg.Settings.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}

	h := handler.NewHandler(st, box)

	registry := health.NewRegistry("settings", version.Settings)
	registry.Register(health.DatabaseCheck("settings-db", st.DB()))
	registry.RegisterFunc("encryption", func(ctx context.Context) health.CheckResult {
		return health.CheckResult{
			Name:    "encryption",
			Status:  health.StatusHealthy,
			Message: "Secrets sealed with AES-256-GCM",
		}
	})

	mux := http.NewServeMux()
	mux.Handle("/api/settings", h)
	mux.Handle("/api/settings/", h)
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		report := registry.Check(r.Context())
		status := http.StatusOK
		if report.Status == health.StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(report)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Settings.Host, cfg.Settings.Port)
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  cfg.Gateway.ReadTimeout.Duration,
			WriteTimeout: cfg.Gateway.WriteTimeout.Duration,
		},
		store:  st,
		health: registry,
		logger: logger,
		addr:   addr,
	}, nil
}

// Start runs the server until it is shut down
func (s *Server) Start() error {
	s.logger.Info("Starting settings service", "address", s.addr)
	return s.httpServer.ListenAndServe()
}

// StartAsync starts the server without blocking
func (s *Server) StartAsync() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()
}

// Stop gracefully shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping settings service")
	err := s.httpServer.Shutdown(ctx)
	if closeErr := s.store.Close(); closeErr != nil {
		s.logger.Warn("Error closing settings store", "error", closeErr)
	}
	return err
}

// Address returns the listen address
func (s *Server) Address() string {
	return s.addr
}
