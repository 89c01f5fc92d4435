package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTPAddress != ":8080" {
		t.Errorf("HTTPAddress = %q, want :8080", cfg.Server.HTTPAddress)
	}
	if cfg.Server.MetricsAddress != ":9090" {
		t.Errorf("MetricsAddress = %q, want :9090", cfg.Server.MetricsAddress)
	}
	if cfg.Database.Path != "data/warden.db" {
		t.Errorf("Database.Path = %q, want data/warden.db", cfg.Database.Path)
	}
	if cfg.API.RateLimitPerTenant != 300 {
		t.Errorf("RateLimitPerTenant = %d, want 300", cfg.API.RateLimitPerTenant)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  http_address: ":9000"
database:
  path: /var/lib/warden/warden.db
clickhouse:
  enabled: true
  addresses: ["ch1:9000", "ch2:9000"]
  database: warden
gateway:
  url: https://sms.example.com/send
  max_per_second: 5
nats:
  enabled: true
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.HTTPAddress != ":9000" {
		t.Errorf("HTTPAddress = %q, want :9000", cfg.Server.HTTPAddress)
	}
	if len(cfg.ClickHouse.Addresses) != 2 {
		t.Errorf("ClickHouse.Addresses = %v, want 2 entries", cfg.ClickHouse.Addresses)
	}
	if cfg.ClickHouse.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want default 30", cfg.ClickHouse.RetentionDays)
	}
	if cfg.Gateway.MaxPerSecond != 5 {
		t.Errorf("MaxPerSecond = %d, want 5", cfg.Gateway.MaxPerSecond)
	}
	if cfg.NATS.URL != "nats://127.0.0.1:4222" {
		t.Errorf("NATS.URL = %q, want default", cfg.NATS.URL)
	}
}

func TestValidateClickHouseRequiresAddresses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClickHouse.Enabled = true
	cfg.ClickHouse.Database = "warden"

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for enabled ClickHouse without addresses")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}
