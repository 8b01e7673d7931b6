// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     gateway
// Description: API gateway wiring the ledger, market, advisor, and
//              settings services behind one HTTP server
// ============================================================================

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	advisorengine "github.com/nexus-finance/platform/internal/advisor/engine"
	advisorhandler "github.com/nexus-finance/platform/internal/advisor/handler"
	ledgerhandler "github.com/nexus-finance/platform/internal/ledger/handler"
	ledgerservice "github.com/nexus-finance/platform/internal/ledger/service"
	marketengine "github.com/nexus-finance/platform/internal/market/engine"
	markethandler "github.com/nexus-finance/platform/internal/market/handler"
	"github.com/nexus-finance/platform/internal/market/provider"
	settingshandler "github.com/nexus-finance/platform/internal/settings/handler"
	settingsstore "github.com/nexus-finance/platform/internal/settings/store"
	"github.com/nexus-finance/platform/pkg/core/cache"
	"github.com/nexus-finance/platform/pkg/core/config"
	"github.com/nexus-finance/platform/pkg/core/crypto"
	"github.com/nexus-finance/platform/pkg/core/health"
	"github.com/nexus-finance/platform/pkg/core/logging"
	"github.com/nexus-finance/platform/pkg/core/version"
)

// cryptoSalt binds derived keys to the settings domain
const cryptoSalt = "nexus-settings-v1"

// Server is the Nexus API gateway
type Server struct {
	httpServer *http.Server
	cache      *cache.Cache
	store      *settingsstore.Store
	market     *marketengine.Engine
	health     *health.Registry
	logger     *logging.Logger
	cfg        *config.Config
}

// New assembles the gateway from configuration
func New(cfg *config.Config) (*Server, error) {
	logger := logging.New("gateway")

	c := cache.New(cache.DefaultConfig())

	masterSecret := cfg.Settings.MasterSecret
	if masterSecret == "" {
		generated, err := crypto.GenerateSecret(32)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to generate master secret: %w", err)
		}
		masterSecret = generated
		logger.Warn("No master secret configured, using an ephemeral one; " +
			"stored API keys will not survive a restart")
	}
	box, err := crypto.New(masterSecret, cryptoSalt)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize crypto: %w", err)
	}

	store, err := settingsstore.Open(cfg.Settings.DatabasePath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}

	var marketProvider provider.Provider
	if cfg.Market.Provider == "mock" {
		marketProvider = provider.NewMockProvider()
	} else {
		marketProvider = provider.NewHTTPProvider(provider.HTTPConfig{
			BaseURL: cfg.Market.BaseURL,
			APIKey:  cfg.Market.APIKey,
			Timeout: cfg.Market.RequestTimeout.Duration,
		})
	}
	engineCfg := marketengine.DefaultConfig()
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
	market := marketengine.New(marketProvider, c, engineCfg)
	market.Initialize()

	ledgerSvc := ledgerservice.New(box)
	settingsH := settingshandler.NewHandler(store, box)
	advisorH := advisorhandler.NewHandler(advisorengine.New(), settingsH, advisorhandler.Config{
		GeminiBaseURL: cfg.Advisor.Gemini.BaseURL,
		OpenAIBaseURL: cfg.Advisor.OpenAI.BaseURL,
		Timeout:       cfg.Advisor.Timeout.Duration,
	})

	healthRegistry := newHealthRegistry(c, store, market, settingsH)

	mux := http.NewServeMux()
	mux.Handle("/api/ledger/", ledgerhandler.NewHandler(ledgerSvc))
	mux.Handle("/api/market/stream", markethandler.NewStreamHandler(market, cfg.Market.StreamInterval.Duration))
	mux.Handle("/api/market/", markethandler.NewHandler(market))
	mux.Handle("/api/advisor/", advisorH)
	mux.Handle("/api/settings", settingsH)
	mux.Handle("/api/settings/", settingsH)
	mux.HandleFunc("/api/health", healthEndpoint(healthRegistry))
	mux.HandleFunc("/api/version", versionEndpoint)

	var chain http.Handler = mux
	chain = loggingMiddleware(logger, chain)
	chain = requestIDMiddleware(chain)
	if cfg.Gateway.CORS.Enabled {
		chain = corsMiddleware(cfg.Gateway.CORS.AllowedOrigins, cfg.Gateway.CORS.AllowedMethods, chain)
	}
	if cfg.Security.RateLimitEnabled {
		limiter := NewRateLimiter(cfg.Security.RateLimitRequests,
			cfg.Security.RateLimitWindow.Duration, cfg.Security.TrustProxyHeaders)
		chain = limiter.Middleware(chain)
	}
	chain = securityHeaders(chain)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Gateway.ReadTimeout.Duration,
		WriteTimeout: cfg.Gateway.WriteTimeout.Duration,
		IdleTimeout:  cfg.Gateway.IdleTimeout.Duration,
	}

	return &Server{
		httpServer: httpServer,
		cache:      c,
		store:      store,
		market:     market,
		health:     healthRegistry,
		logger:     logger,
		cfg:        cfg,
	}, nil
}

// newHealthRegistry wires the component checks
func newHealthRegistry(c *cache.Cache, store *settingsstore.Store,
	market *marketengine.Engine, runtime advisorhandler.RuntimeSource) *health.Registry {

	registry := health.NewRegistry("gateway", version.Gateway)

	registry.RegisterFunc("cache", func(ctx context.Context) health.CheckResult {
		stats := c.Stats()
		return health.CheckResult{
			Name:    "cache",
			Status:  health.StatusHealthy,
			Message: "In-memory cache operational",
			Details: stats,
		}
	})

	registry.Register(health.DatabaseCheck("settings-db", store.DB()))

	registry.RegisterFunc("market-engine", func(ctx context.Context) health.CheckResult {
		if !market.Initialized() {
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
			Details: map[string]interface{}{"provider": market.Provider().Name()},
		}
	})

	registry.RegisterFunc("ai-providers", func(ctx context.Context) health.CheckResult {
		rt := runtime.AIRuntime()
		details := map[string]interface{}{
			"gemini_configured": rt.GeminiKey != "",
			"openai_configured": rt.OpenAIKey != "",
			"provider":          rt.Provider,
		}
		if rt.GeminiKey == "" && rt.OpenAIKey == "" {
			return health.CheckResult{
				Name:    "ai-providers",
				Status:  health.StatusDegraded,
				Message: "No AI provider configured, advisor runs rule-based only",
				Details: details,
			}
		}
		return health.CheckResult{
			Name:    "ai-providers",
			Status:  health.StatusHealthy,
			Message: "AI provider available",
			Details: details,
		}
	})

	registry.RegisterFunc("encryption", func(ctx context.Context) health.CheckResult {
		return health.CheckResult{
			Name:    "encryption",
			Status:  health.StatusHealthy,
			Message: "Secrets sealed with AES-256-GCM",
		}
	})

	return registry
}

// healthEndpoint serves the aggregated component report
func healthEndpoint(registry *health.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := registry.Check(r.Context())

		status := http.StatusOK
		if report.Status == health.StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(report)
	}
}

// versionEndpoint reports the per-service versions
func versionEndpoint(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"platform": version.Platform,
		"gateway":  version.Gateway,
		"market":   version.Market,
		"advisor":  version.Advisor,
		"settings": version.Settings,
		"ledger":   version.Ledger,
	})
}

// Start runs the server until it is shut down
func (s *Server) Start() error {
	s.logger.Info("Starting Nexus API gateway",
		"host", s.cfg.Gateway.Host,
		"port", s.cfg.Gateway.Port,
	)
	return s.httpServer.ListenAndServe()
}

// StartAsync starts the server without blocking
func (s *Server) StartAsync() {
	s.logger.Info("Starting Nexus API gateway (async)",
		"host", s.cfg.Gateway.Host,
		"port", s.cfg.Gateway.Port,
	)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()
}

// Stop gracefully shuts the server down and releases resources
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping Nexus API gateway")

	err := s.httpServer.Shutdown(ctx)
	s.market.Shutdown()
	if closeErr := s.store.Close(); closeErr != nil {
		s.logger.Warn("Error closing settings store", "error", closeErr)
	}
	s.cache.Close()
	return err
}

// Address returns the listen address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.cfg.Gateway.Host, s.cfg.Gateway.Port)
}

// HealthRegistry returns the health check registry
func (s *Server) HealthRegistry() *health.Registry {
	return s.health
}
