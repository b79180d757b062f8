package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"supasidebar.com/licserver/internal/config"
)

func TestLoad(t *testing.T) {
	// Helper to clear env vars before each test
	clearEnvVars := func() {
		os.Unsetenv("PORT")
		os.Unsetenv("DB_PATH")
		os.Unsetenv("HARDWARE_SECRET")
		os.Unsetenv("WEBHOOK_SECRET")
		os.Unsetenv("PROVIDER_BASE_URL")
		os.Unsetenv("PROVIDER_API_KEY")
		os.Unsetenv("EMAIL_BASE_URL")
		os.Unsetenv("EMAIL_API_KEY")
		os.Unsetenv("REDIS_ADDR")
	}

	t.Run("returns defaults when config file does not exist", func(t *testing.T) {
		clearEnvVars()

		cfg, err := config.Load("nonexistent.yaml")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if cfg.Addr != ":8080" {
			t.Errorf("expected Addr ':8080', got %q", cfg.Addr)
		}
		if cfg.DBPath != "./licenses.db" {
			t.Errorf("expected DBPath './licenses.db', got %q", cfg.DBPath)
		}
		if cfg.DBPathSource != "default" {
			t.Errorf("expected DBPathSource 'default', got %q", cfg.DBPathSource)
		}
		if cfg.ProviderBaseURL != "https://api.dodopayments.com" {
			t.Errorf("unexpected ProviderBaseURL %q", cfg.ProviderBaseURL)
		}
		if cfg.ProviderTimeout != 5*time.Second {
			t.Errorf("expected ProviderTimeout 5s, got %v", cfg.ProviderTimeout)
		}
		if cfg.ReconcileCacheTTL != 5*time.Minute {
			t.Errorf("expected ReconcileCacheTTL 5m, got %v", cfg.ReconcileCacheTTL)
		}
		if cfg.RedisAddr != "" {
			t.Errorf("expected empty RedisAddr, got %q", cfg.RedisAddr)
		}
		if cfg.ReadTimeout != 5*time.Second {
			t.Errorf("expected ReadTimeout 5s, got %v", cfg.ReadTimeout)
		}
	})

	t.Run("loads values from YAML file", func(t *testing.T) {
		clearEnvVars()

		tmpDir := t.TempDir()
		cfgPath := filepath.Join(tmpDir, "config.yaml")
		yamlContent := `
addr: ":9090"
db_path: "/data/test.db"
hardware_secret: "yaml-hw-secret"
webhook_secret: "yaml-wh-secret"
provider_api_key: "yaml-provider-key"
redis_addr: "localhost:6379"
reconcile_cache_ttl: 10m
read_timeout: 15s
`
		if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		cfg, err := config.Load(cfgPath)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if cfg.Addr != ":9090" {
			t.Errorf("expected Addr ':9090', got %q", cfg.Addr)
		}
		if cfg.DBPath != "/data/test.db" {
			t.Errorf("expected DBPath '/data/test.db', got %q", cfg.DBPath)
		}
		if cfg.DBPathSource != "yaml file" {
			t.Errorf("expected DBPathSource 'yaml file', got %q", cfg.DBPathSource)
		}
		if cfg.HardwareSecret != "yaml-hw-secret" {
			t.Errorf("expected HardwareSecret 'yaml-hw-secret', got %q", cfg.HardwareSecret)
		}
		if cfg.WebhookSecret != "yaml-wh-secret" {
			t.Errorf("expected WebhookSecret 'yaml-wh-secret', got %q", cfg.WebhookSecret)
		}
		if cfg.RedisAddr != "localhost:6379" {
			t.Errorf("expected RedisAddr 'localhost:6379', got %q", cfg.RedisAddr)
		}
		if cfg.ReconcileCacheTTL != 10*time.Minute {
			t.Errorf("expected ReconcileCacheTTL 10m, got %v", cfg.ReconcileCacheTTL)
		}
		if cfg.ReadTimeout != 15*time.Second {
			t.Errorf("expected ReadTimeout 15s, got %v", cfg.ReadTimeout)
		}
	})

	t.Run("env vars override YAML values", func(t *testing.T) {
		clearEnvVars()

		tmpDir := t.TempDir()
		cfgPath := filepath.Join(tmpDir, "config.yaml")
		yamlContent := `
db_path: "/yaml/path.db"
hardware_secret: "yaml-hw-secret"
webhook_secret: "yaml-wh-secret"
`
		if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		os.Setenv("PORT", "7070")
		os.Setenv("DB_PATH", "/env/override.db")
		os.Setenv("HARDWARE_SECRET", "env-hw-secret")
		defer clearEnvVars()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if cfg.Addr != ":7070" {
			t.Errorf("expected Addr ':7070', got %q", cfg.Addr)
		}
		if cfg.DBPath != "/env/override.db" {
			t.Errorf("expected DBPath '/env/override.db', got %q", cfg.DBPath)
		}
		if cfg.DBPathSource != "env var" {
			t.Errorf("expected DBPathSource 'env var', got %q", cfg.DBPathSource)
		}
		if cfg.HardwareSecret != "env-hw-secret" {
			t.Errorf("expected HardwareSecret 'env-hw-secret', got %q", cfg.HardwareSecret)
		}
		// Not overridden: comes from YAML
		if cfg.WebhookSecret != "yaml-wh-secret" {
			t.Errorf("expected WebhookSecret 'yaml-wh-secret', got %q", cfg.WebhookSecret)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		clearEnvVars()

		tmpDir := t.TempDir()
		cfgPath := filepath.Join(tmpDir, "config.yaml")
		invalidYAML := `
addr: ":9090"
  invalid indentation
db_path: "/data/test.db"
`
		if err := os.WriteFile(cfgPath, []byte(invalidYAML), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		if _, err := config.Load(cfgPath); err == nil {
			t.Error("expected error for invalid YAML, got nil")
		}
	})
}
