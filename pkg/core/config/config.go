// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     config
// Description: Application configuration loading (TOML and YAML)
// ============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	General  GeneralConfig  `toml:"general" yaml:"general"`
	Gateway  GatewayConfig  `toml:"gateway" yaml:"gateway"`
	Market   MarketConfig   `toml:"market" yaml:"market"`
	Advisor  AdvisorConfig  `toml:"advisor" yaml:"advisor"`
	Settings SettingsConfig `toml:"settings" yaml:"settings"`
	Security SecurityConfig `toml:"security" yaml:"security"`
}

// GeneralConfig holds general application settings
type GeneralConfig struct {
	Name        string `toml:"name" yaml:"name"`
	Environment string `toml:"environment" yaml:"environment"`
	DataDir     string `toml:"data_dir" yaml:"data_dir"`
	LogLevel    string `toml:"log_level" yaml:"log_level"`
	LogFormat   string `toml:"log_format" yaml:"log_format"`
}

// GatewayConfig holds API gateway settings
type GatewayConfig struct {
	Port           int        `toml:"port" yaml:"port"`
	Host           string     `toml:"host" yaml:"host"`
	ReadTimeout    Duration   `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout   Duration   `toml:"write_timeout" yaml:"write_timeout"`
	IdleTimeout    Duration   `toml:"idle_timeout" yaml:"idle_timeout"`
	MaxRequestSize int64      `toml:"max_request_size" yaml:"max_request_size"`
	CORS           CORSConfig `toml:"cors" yaml:"cors"`
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	Enabled        bool     `toml:"enabled" yaml:"enabled"`
	AllowedOrigins []string `toml:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods []string `toml:"allowed_methods" yaml:"allowed_methods"`
}

// MarketConfig holds market data service settings
type MarketConfig struct {
	Port             int      `toml:"port" yaml:"port"`
	Host             string   `toml:"host" yaml:"host"`
	Provider         string   `toml:"provider" yaml:"provider"`
	BaseURL          string   `toml:"base_url" yaml:"base_url"`
	APIKey           string   `toml:"api_key" yaml:"api_key"`
	RequestTimeout   Duration `toml:"request_timeout" yaml:"request_timeout"`
	QuoteTTL         Duration `toml:"quote_ttl" yaml:"quote_ttl"`
	PriceTTL         Duration `toml:"price_ttl" yaml:"price_ttl"`
	IndicesTTL       Duration `toml:"indices_ttl" yaml:"indices_ttl"`
	CandlesTTL       Duration `toml:"candles_ttl" yaml:"candles_ttl"`
	BatchConcurrency int      `toml:"batch_concurrency" yaml:"batch_concurrency"`
	StreamInterval   Duration `toml:"stream_interval" yaml:"stream_interval"`
}

// AdvisorConfig holds financial advisor settings
type AdvisorConfig struct {
	DefaultProvider string         `toml:"default_provider" yaml:"default_provider"`
	DefaultLocale   string         `toml:"default_locale" yaml:"default_locale"`
	Timeout         Duration       `toml:"timeout" yaml:"timeout"`
	Gemini          ProviderConfig `toml:"gemini" yaml:"gemini"`
	OpenAI          ProviderConfig `toml:"openai" yaml:"openai"`
}

// ProviderConfig holds a single LLM provider's configuration
type ProviderConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	BaseURL string `toml:"base_url" yaml:"base_url"`
	Model   string `toml:"model" yaml:"model"`
	APIKey  string `toml:"api_key" yaml:"api_key"`
}

// SettingsConfig holds settings service configuration
type SettingsConfig struct {
	Port         int    `toml:"port" yaml:"port"`
	Host         string `toml:"host" yaml:"host"`
	DatabasePath string `toml:"database_path" yaml:"database_path"`
	MasterSecret string `toml:"master_secret" yaml:"master_secret"`
}

// SecurityConfig holds gateway security settings
type SecurityConfig struct {
	RateLimitEnabled  bool     `toml:"rate_limit_enabled" yaml:"rate_limit_enabled"`
	RateLimitRequests int      `toml:"rate_limit_requests" yaml:"rate_limit_requests"`
	RateLimitWindow   Duration `toml:"rate_limit_window" yaml:"rate_limit_window"`
	TrustProxyHeaders bool     `toml:"trust_proxy_headers" yaml:"trust_proxy_headers"`
}

// Duration wraps time.Duration for TOML and YAML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML parses a duration from a YAML scalar
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// Load loads configuration from a TOML or YAML file, chosen by extension
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()

	return &cfg, nil
}

// LoadFromEnv loads configuration from the NEXUS_CONFIG environment variable,
// falling back to default locations
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("NEXUS_CONFIG")
	if path == "" {
		defaultPaths := []string{
			"./configs/config.toml",
			"./config.toml",
			filepath.Join(os.Getenv("HOME"), ".config/nexus/config.toml"),
		}
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return nil, fmt.Errorf("no config file found, set NEXUS_CONFIG or create configs/config.toml")
	}

	return Load(path)
}

// Default returns a configuration with all defaults applied and no file read
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// General
	if c.General.Name == "" {
		c.General.Name = "nexus"
	}
	if c.General.Environment == "" {
		c.General.Environment = "development"
	}
	if c.General.DataDir == "" {
		c.General.DataDir = "./data"
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
	if c.General.LogFormat == "" {
		c.General.LogFormat = "json"
	}

	// Gateway
	if c.Gateway.Port == 0 {
		c.Gateway.Port = 8080
	}
	if c.Gateway.Host == "" {
		c.Gateway.Host = "0.0.0.0"
	}
	if c.Gateway.ReadTimeout.Duration == 0 {
		c.Gateway.ReadTimeout.Duration = 30 * time.Second
	}
	if c.Gateway.WriteTimeout.Duration == 0 {
		c.Gateway.WriteTimeout.Duration = 60 * time.Second
	}
	if c.Gateway.IdleTimeout.Duration == 0 {
		c.Gateway.IdleTimeout.Duration = 120 * time.Second
	}
	if c.Gateway.MaxRequestSize == 0 {
		c.Gateway.MaxRequestSize = 1 << 20
	}

	// Market
	if c.Market.Port == 0 {
		c.Market.Port = 8081
	}
	if c.Market.Host == "" {
		c.Market.Host = "0.0.0.0"
	}
	if c.Market.Provider == "" {
		c.Market.Provider = "http"
	}
	if c.Market.RequestTimeout.Duration == 0 {
		c.Market.RequestTimeout.Duration = 10 * time.Second
	}
	if c.Market.QuoteTTL.Duration == 0 {
		c.Market.QuoteTTL.Duration = 25 * time.Second
	}
	if c.Market.PriceTTL.Duration == 0 {
		c.Market.PriceTTL.Duration = 60 * time.Second
	}
	if c.Market.IndicesTTL.Duration == 0 {
		c.Market.IndicesTTL.Duration = 30 * time.Second
	}
	if c.Market.CandlesTTL.Duration == 0 {
		c.Market.CandlesTTL.Duration = 25 * time.Second
	}
	if c.Market.BatchConcurrency == 0 {
		c.Market.BatchConcurrency = 6
	}
	if c.Market.StreamInterval.Duration == 0 {
		c.Market.StreamInterval.Duration = 5 * time.Second
	}

	// Advisor
	if c.Advisor.DefaultProvider == "" {
		c.Advisor.DefaultProvider = "auto"
	}
	if c.Advisor.DefaultLocale == "" {
		c.Advisor.DefaultLocale = "en"
	}
	if c.Advisor.Timeout.Duration == 0 {
		c.Advisor.Timeout.Duration = 30 * time.Second
	}
	if c.Advisor.Gemini.Model == "" {
		c.Advisor.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Advisor.OpenAI.Model == "" {
		c.Advisor.OpenAI.Model = "gpt-4.1-mini"
	}

	// Settings
	if c.Settings.Port == 0 {
		c.Settings.Port = 8082
	}
	if c.Settings.Host == "" {
		c.Settings.Host = "0.0.0.0"
	}
	if c.Settings.DatabasePath == "" {
		c.Settings.DatabasePath = filepath.Join(c.General.DataDir, "settings.db")
	}

	// Security
	if c.Security.RateLimitRequests == 0 {
		c.Security.RateLimitRequests = 120
	}
	if c.Security.RateLimitWindow.Duration == 0 {
		c.Security.RateLimitWindow.Duration = time.Minute
	}
}

// expandEnvVars expands environment variables in sensitive configuration values
func (c *Config) expandEnvVars() {
	c.General.DataDir = os.ExpandEnv(c.General.DataDir)
	c.Market.APIKey = os.ExpandEnv(c.Market.APIKey)
	c.Advisor.Gemini.APIKey = os.ExpandEnv(c.Advisor.Gemini.APIKey)
	c.Advisor.OpenAI.APIKey = os.ExpandEnv(c.Advisor.OpenAI.APIKey)
	c.Settings.DatabasePath = os.ExpandEnv(c.Settings.DatabasePath)
	c.Settings.MasterSecret = os.ExpandEnv(c.Settings.MasterSecret)
}

// GetServiceAddress returns the listen address for a service
func (c *Config) GetServiceAddress(service string) string {
	switch service {
	case "gateway":
		return fmt.Sprintf("%s:%d", c.Gateway.Host, c.Gateway.Port)
	case "market":
		return fmt.Sprintf("%s:%d", c.Market.Host, c.Market.Port)
	case "settings":
		return fmt.Sprintf("%s:%d", c.Settings.Host, c.Settings.Port)
	default:
		return ""
	}
}
