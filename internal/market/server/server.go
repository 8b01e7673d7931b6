// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     server
// Description: Standalone HTTP server for the market data service
// ============================================================================

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nexus-finance/platform/internal/market/engine"
	"github.com/nexus-finance/platform/internal/market/handler"
	"github.com/nexus-finance/platform/internal/market/provider"
	"github.com/nexus-finance/platform/pkg/core/cache"
	"github.com/nexus-finance/platform/pkg/core/config"
	"github.com/nexus-finance/platform/pkg/core/health"
	"github.com/nexus-finance/platform/pkg/core/logging"
	"github.com/nexus-finance/platform/pkg/core/version"
)

// Server hosts the market endpoints without the full gateway
type Server struct {
	httpServer *http.Server
	cache      *cache.Cache
	engine     *engine.Engine
	health     *health.Registry
	logger     *logging.Logger
	addr       string
}

// New assembles the market service from configuration
func New(cfg *config.Config) (*Server, error) {
	logger := logging.New("market")

	c := cache.New(cache.DefaultConfig())

	var p provider.Provider
	if cfg.Market.Provider == "mock" {
		p = provider.NewMockProvider()
	} else {
		p = provider.NewHTTPProvider(provider.HTTPConfig{
			BaseURL: cfg.Market.BaseURL,
			APIKey:  cfg.Market.APIKey,
			Timeout: cfg.Market.RequestTimeout.Duration,
		})
	}

	engineCfg := engine.DefaultConfig()
	if cfg.Market.QuoteTTL.Duration > 0 {
		engineCfg.QuoteTTL = cfg.Market.QuoteTTL.Duration
	}
	if cfg.Market.PriceTTL.Duration > 0 {
		engineCfg.PriceTTL = cfg.Market.PriceTTL.Duration
	}
	if cfg.Market.IndicesTTL.Duration > 0 {
		engineCfg.IndicesTTL = cfg.Market.IndicesTTL.Duration
	}
	if cfg.Market.CandlesTTL.Duration > 0 {
		engineCfg.CandlesTTL = cfg.Market.CandlesTTL.Duration
	}
	if cfg.Market.BatchConcurrency > 0 {
		engineCfg.BatchConcurrency = cfg.Market.BatchConcurrency
	}
	e := engine.New(p, c, engineCfg)
	e.Initialize()

	registry := health.NewRegistry("market", version.Market)
	registry.RegisterFunc("market-engine", func(ctx context.Context) health.CheckResult {
		if !e.Initialized() {
			return health.CheckResult{
				Name:    "market-engine",
				Status:  health.StatusUnhealthy,
				Message: "Market engine not initialized",
			}
		}
		return health.CheckResult{
			Name:    "market-engine",
			Status:  health.StatusHealthy,
			Message: "Market engine ready",
			Details: map[string]interface{}{"provider": e.Provider().Name()},
		}
	})
	registry.RegisterFunc("cache", func(ctx context.Context) health.CheckResult {
		return health.CheckResult{
			Name:    "cache",
			Status:  health.StatusHealthy,
			Message: "In-memory cache operational",
			Details: c.Stats(),
		}
	})

	mux := http.NewServeMux()
	mux.Handle("/api/market/stream", handler.NewStreamHandler(e, cfg.Market.StreamInterval.Duration))
	mux.Handle("/api/market/", handler.NewHandler(e))
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

	addr := fmt.Sprintf("%s:%d", cfg.Market.Host, cfg.Market.Port)
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  cfg.Gateway.ReadTimeout.Duration,
			WriteTimeout: cfg.Gateway.WriteTimeout.Duration,
		},
		cache:  c,
		engine: e,
		health: registry,
		logger: logger,
		addr:   addr,
	}, nil
}

// Start runs the server until it is shut down
func (s *Server) Start() error {
	s.logger.Info("Starting market service", "address", s.addr)
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
	s.logger.Info("Stopping market service")
	err := s.httpServer.Shutdown(ctx)
	s.engine.Shutdown()
	s.cache.Close()
	return err
}

// Address returns the listen address
func (s *Server) Address() string {
	return s.addr
}
