package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values
type Config struct {
	Addr           string        `yaml:"addr"`
	DBPath         string        `yaml:"db_path"`
	HardwareSecret string        `yaml:"hardware_secret"`
	WebhookSecret  string        `yaml:"webhook_secret"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`

	// Payment provider (subscription reconciliation + cancellation)
	ProviderBaseURL string        `yaml:"provider_base_url"`
	ProviderAPIKey  string        `yaml:"provider_api_key"`
	ProviderTimeout time.Duration `yaml:"provider_timeout"`

	// Transactional email events API
	EmailBaseURL string `yaml:"email_base_url"`
	EmailAPIKey  string `yaml:"email_api_key"`

	// Optional Redis cache. Empty means in-memory cache.
	RedisAddr string `yaml:"redis_addr"`

	// How long reconciliation results are cached before the provider
	// is asked again.
	ReconcileCacheTTL time.Duration `yaml:"reconcile_cache_ttl"`

	DBPathSource string // where DBPath was set from: "default", "yaml file", or "env var"
	DemoMode     bool   // load sample data on new database (set via -demo flag)
}

// Load loads configuration from YAML file and overrides with env vars if present
func Load(path string) (*Config, error) {
	// Defaults
	cfg := &Config{
		Addr:              ":8080",
		DBPath:            "./licenses.db",
		DBPathSource:      "default",
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ProviderBaseURL:   "https://api.dodopayments.com",
		ProviderTimeout:   5 * time.Second,
		EmailBaseURL:      "https://app.loops.so/api",
		ReconcileCacheTTL: 5 * time.Minute,
	}

	// Load from YAML if file exists
	if f, err := os.Open(path); err == nil {
		defer f.Close()
		prevDBPath := cfg.DBPath
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(cfg); err != nil {
			return nil, err
		}
		if cfg.DBPath != prevDBPath {
			cfg.DBPathSource = "yaml file"
		}
	}

	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Addr = ":" + v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
		cfg.DBPathSource = "env var"
	}
	if v := os.Getenv("HARDWARE_SECRET"); v != "" {
		cfg.HardwareSecret = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.WebhookSecret = v
	}
	if v := os.Getenv("PROVIDER_BASE_URL"); v != "" {
		cfg.ProviderBaseURL = v
	}
	if v := os.Getenv("PROVIDER_API_KEY"); v != "" {
		cfg.ProviderAPIKey = v
	}
	if v := os.Getenv("EMAIL_BASE_URL"); v != "" {
		cfg.EmailBaseURL = v
	}
	if v := os.Getenv("EMAIL_API_KEY"); v != "" {
		cfg.EmailAPIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}

	return cfg, nil
}
