package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_DefaultPort(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port default = %d, want %d", cfg.Server.Port, 8080)
	}
}

func TestConfig_PortEnvOverride(t *testing.T) {
	t.Setenv("COPILOT_PORT", "9090")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d after env override, want %d", cfg.Server.Port, 9090)
	}
}

func TestConfig_LoadConfigMergesFiles(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	if err := os.WriteFile(base, []byte(`
environment = "staging"

[storage]
address = "ws://db:8000/rpc"
namespace = "ns1"

[analytics]
default_rank_n = 3
`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(override, []byte(`
[storage]
namespace = "ns2"
`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(base, override, filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Environment != "staging" {
		t.Errorf("Environment = %q, want staging", cfg.Environment)
	}
	if cfg.Storage.Address != "ws://db:8000/rpc" {
		t.Errorf("Storage.Address = %q", cfg.Storage.Address)
	}
	if cfg.Storage.Namespace != "ns2" {
		t.Errorf("Storage.Namespace = %q, want ns2 from later file", cfg.Storage.Namespace)
	}
	if cfg.Storage.Database != "copilot" {
		t.Errorf("Storage.Database = %q, want default", cfg.Storage.Database)
	}
	if cfg.Analytics.DefaultRankN != 3 {
		t.Errorf("Analytics.DefaultRankN = %d, want 3", cfg.Analytics.DefaultRankN)
	}
}

func TestConfig_LoadConfigRejectsInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[server\nport = "), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error for invalid TOML")
	}
}

func TestConfig_EODHDKeyEnvOverride(t *testing.T) {
	t.Setenv("EODHD_API_KEY", "from-env")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Clients.EODHD.APIKey != "from-env" {
		t.Errorf("EODHD.APIKey = %q, want %q", cfg.Clients.EODHD.APIKey, "from-env")
	}
}

func TestConfig_GeminiKeyGoogleEnvFallback(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "google-fallback")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Clients.Gemini.APIKey != "google-fallback" {
		t.Errorf("Gemini.APIKey = %q, want %q", cfg.Clients.Gemini.APIKey, "google-fallback")
	}
}

func TestConfig_RedisAddressEnablesCache(t *testing.T) {
	t.Setenv("COPILOT_REDIS_ADDRESS", "redis:6379")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if !cfg.Cache.Enabled {
		t.Error("expected cache enabled when redis address is set")
	}
	if cfg.Cache.Address != "redis:6379" {
		t.Errorf("Cache.Address = %q", cfg.Cache.Address)
	}
}

func TestConfig_ValidateRequired(t *testing.T) {
	cfg := &Config{Auth: AuthConfig{Required: true, JWTSecret: "dev-jwt-secret-change-in-production"}}
	if missing := cfg.ValidateRequired(); len(missing) != 3 {
		t.Errorf("expected 3 missing fields, got %d: %v", len(missing), missing)
	}

	cfg = &Config{
		Clients: ClientsConfig{
			EODHD:  EODHDConfig{APIKey: "eodhd-key"},
			Gemini: GeminiConfig{APIKey: "gemini-key"},
		},
		Auth: AuthConfig{Required: true, JWTSecret: "real-secret"},
	}
	if missing := cfg.ValidateRequired(); len(missing) != 0 {
		t.Errorf("expected 0 missing fields, got %d: %v", len(missing), missing)
	}
}

func TestConfig_DurationFallbacks(t *testing.T) {
	cache := &CacheConfig{SeriesTTL: "bogus", PriceTTL: "30s"}
	if cache.GetSeriesTTL() != 6*time.Hour {
		t.Errorf("GetSeriesTTL() = %v, want 6h fallback", cache.GetSeriesTTL())
	}
	if cache.GetPriceTTL() != 30*time.Second {
		t.Errorf("GetPriceTTL() = %v, want 30s", cache.GetPriceTTL())
	}

	eodhd := &EODHDConfig{}
	if eodhd.GetTimeout() != 30*time.Second {
		t.Errorf("GetTimeout() = %v, want 30s", eodhd.GetTimeout())
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("EODHD_API_KEY", "")
	t.Setenv("COPILOT_EODHD_API_KEY", "")

	if _, err := ResolveAPIKey("eodhd_api_key", ""); err == nil {
		t.Error("expected error when key missing everywhere")
	}

	key, err := ResolveAPIKey("eodhd_api_key", "from-config")
	if err != nil || key != "from-config" {
		t.Errorf("ResolveAPIKey fallback = %q, %v", key, err)
	}

	t.Setenv("COPILOT_EODHD_API_KEY", "from-env")
	key, _ = ResolveAPIKey("eodhd_api_key", "from-config")
	if key != "from-env" {
		t.Errorf("ResolveAPIKey env = %q, want from-env", key)
	}
}

func TestStorageBackendOverride(t *testing.T) {
	if got := NewDefaultConfig().Storage.Backend; got != "surrealdb" {
		t.Errorf("default Storage.Backend = %q, want surrealdb", got)
	}

	t.Setenv("COPILOT_STORAGE_BACKEND", "memory")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Storage.Backend = %q, want memory", cfg.Storage.Backend)
	}
}
