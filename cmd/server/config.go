// Package main provides the Warden server CLI.
package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	NATS       NATSConfig       `yaml:"nats"`
	API        APIConfig        `yaml:"api"`
	Verbose    bool             `yaml:"-"` // set via CLI flag
}

// ServerConfig contains listen addresses.
type ServerConfig struct {
	HTTPAddress    string `yaml:"http_address"`    // API listen address (default: :8080)
	MetricsAddress string `yaml:"metrics_address"` // Prometheus listen address (default: :9090)
}

// DatabaseConfig contains control-plane SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite file path (default: data/warden.db)
}

// ClickHouseConfig contains event storage settings. When disabled the
// server keeps events in process memory, which is only useful for
// development.
type ClickHouseConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Addresses     []string `yaml:"addresses"` // host:port pairs
	Database      string   `yaml:"database"`
	Username      string   `yaml:"username"`
	Password      string   `yaml:"password"`
	RetentionDays int      `yaml:"retention_days"` // event TTL (default: 30)
}

// GatewayConfig contains SMS gateway settings. The credential is read
// from the WARDEN_GATEWAY_CREDENTIAL environment variable, never from
// the config file.
type GatewayConfig struct {
	URL          string `yaml:"url"`            // gateway endpoint; empty disables sending
	MaxPerSecond int    `yaml:"max_per_second"` // outbound call cap (default: 10)
}

// NATSConfig contains live event streaming settings.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"` // default: nats://127.0.0.1:4222
}

// APIConfig contains HTTP API limits.
type APIConfig struct {
	RateLimitPerIP     int `yaml:"rate_limit_per_ip"`     // unauthenticated req/min per IP (default: 30)
	RateLimitPerTenant int `yaml:"rate_limit_per_tenant"` // authenticated req/min per tenant (default: 300)
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8080"
	}
	if c.Server.MetricsAddress == "" {
		c.Server.MetricsAddress = ":9090"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/warden.db"
	}
	if c.ClickHouse.RetentionDays == 0 {
		c.ClickHouse.RetentionDays = 30
	}
	if c.Gateway.MaxPerSecond == 0 {
		c.Gateway.MaxPerSecond = 10
	}
	if c.NATS.URL == "" {
		c.NATS.URL = "nats://127.0.0.1:4222"
	}
	if c.API.RateLimitPerIP == 0 {
		c.API.RateLimitPerIP = 30
	}
	if c.API.RateLimitPerTenant == 0 {
		c.API.RateLimitPerTenant = 300
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.HTTPAddress == "" {
		return fmt.Errorf("server.http_address is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.ClickHouse.Enabled {
		if len(c.ClickHouse.Addresses) == 0 {
			return fmt.Errorf("clickhouse.addresses is required when ClickHouse is enabled")
		}
		if c.ClickHouse.Database == "" {
			return fmt.Errorf("clickhouse.database is required when ClickHouse is enabled")
		}
	}
	if c.Gateway.MaxPerSecond < 0 {
		return fmt.Errorf("gateway.max_per_second must not be negative")
	}
	return nil
}
