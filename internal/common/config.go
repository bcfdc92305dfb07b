// Package common provides shared utilities for the copilot
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the copilot
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Cache       CacheConfig     `toml:"cache"`
	Clients     ClientsConfig   `toml:"clients"`
	Analytics   AnalyticsConfig `toml:"analytics"`
	Logging     LoggingConfig   `toml:"logging"`
	Auth        AuthConfig      `toml:"auth"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects the backend and holds SurrealDB connection settings.
type StorageConfig struct {
	Backend   string `toml:"backend"`
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// CacheConfig holds Redis price cache settings.
type CacheConfig struct {
	Enabled   bool   `toml:"enabled"`
	Address   string `toml:"address"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	SeriesTTL string `toml:"series_ttl"`
	PriceTTL  string `toml:"price_ttl"`
}

// GetSeriesTTL parses and returns the series cache TTL
func (c *CacheConfig) GetSeriesTTL() time.Duration {
	d, err := time.ParseDuration(c.SeriesTTL)
	if err != nil {
		return 6 * time.Hour
	}
	return d
}

// GetPriceTTL parses and returns the current price cache TTL
func (c *CacheConfig) GetPriceTTL() time.Duration {
	d, err := time.ParseDuration(c.PriceTTL)
	if err != nil {
		return time.Minute
	}
	return d
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD  EODHDConfig  `toml:"eodhd"`
	Gemini GeminiConfig `toml:"gemini"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	RateLimit      int    `toml:"rate_limit"`
	Timeout        string `toml:"timeout"`
	MaxConcurrency int    `toml:"max_concurrency"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// AnalyticsConfig tunes analytics defaults.
type AnalyticsConfig struct {
	DefaultRankN     int  `toml:"default_rank_n"`
	ForecastHorizon  int  `toml:"forecast_horizon_days"`
	RenderChartImage bool `toml:"render_chart_image"`
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	Required  bool   `toml:"required"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend:   "surrealdb",
			Address:   "ws://localhost:8000/rpc",
			Namespace: "copilot",
			Database:  "copilot",
			Username:  "root",
			Password:  "root",
		},
		Cache: CacheConfig{
			Enabled:   false,
			Address:   "localhost:6379",
			SeriesTTL: "6h",
			PriceTTL:  "1m",
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:        "https://eodhd.com/api",
				RateLimit:      10,
				Timeout:        "30s",
				MaxConcurrency: 4,
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		Analytics: AnalyticsConfig{
			DefaultRankN:     5,
			ForecastHorizon:  30,
			RenderChartImage: true,
		},
		Auth: AuthConfig{
			JWTSecret: "dev-jwt-secret-change-in-production",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Outputs:  []string{"console"},
			FilePath: "./logs/copilot.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("COPILOT_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("COPILOT_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("COPILOT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("COPILOT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Storage overrides
	if v := os.Getenv("COPILOT_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = v
	}
	if v := os.Getenv("COPILOT_STORAGE_ADDRESS"); v != "" {
		config.Storage.Address = v
	}
	if v := os.Getenv("COPILOT_STORAGE_USERNAME"); v != "" {
		config.Storage.Username = v
	}
	if v := os.Getenv("COPILOT_STORAGE_PASSWORD"); v != "" {
		config.Storage.Password = v
	}

	// Cache overrides
	if v := os.Getenv("COPILOT_REDIS_ADDRESS"); v != "" {
		config.Cache.Address = v
		config.Cache.Enabled = true
	}
	if v := os.Getenv("COPILOT_REDIS_PASSWORD"); v != "" {
		config.Cache.Password = v
	}

	// API keys
	if v := firstEnv("EODHD_API_KEY", "COPILOT_EODHD_API_KEY"); v != "" {
		config.Clients.EODHD.APIKey = v
	}
	if v := firstEnv("GEMINI_API_KEY", "COPILOT_GEMINI_API_KEY", "GOOGLE_API_KEY"); v != "" {
		config.Clients.Gemini.APIKey = v
	}

	// Auth overrides
	if v := os.Getenv("COPILOT_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv("COPILOT_AUTH_REQUIRED"); v != "" {
		config.Auth.Required = v == "true" || v == "1"
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from environment or the configured fallback
func ResolveAPIKey(name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"eodhd_api_key":  {"EODHD_API_KEY", "COPILOT_EODHD_API_KEY"},
		"gemini_api_key": {"GEMINI_API_KEY", "COPILOT_GEMINI_API_KEY", "GOOGLE_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		if v := firstEnv(envVarNames...); v != "" {
			return v, nil
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}

// ValidateRequired returns the names of required settings that are missing
// or still at their development defaults.
func (c *Config) ValidateRequired() []string {
	var missing []string
	if c.Clients.EODHD.APIKey == "" {
		missing = append(missing, "clients.eodhd.api_key")
	}
	if c.Clients.Gemini.APIKey == "" {
		missing = append(missing, "clients.gemini.api_key")
	}
	if c.Auth.Required && (c.Auth.JWTSecret == "" || strings.HasPrefix(c.Auth.JWTSecret, "dev-")) {
		missing = append(missing, "auth.jwt_secret")
	}
	return missing
}
