package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Port:              "8080",
		SQLiteDBPath:      t.TempDir() + "/test.db",
		JWTSecret:         "super-secret-test-key",
		TokenTTL:          24 * time.Hour,
		AMQPExchange:      "lavanderia",
		AMQPQueue:         "ledger_events",
		GoogleSheetName:   "Lancamentos",
		RecurringInterval: 6 * time.Hour,
		ProjectionMonths:  3,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"non-numeric port", func(c *Config) { c.Port = "abc" }, "invalid port"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "invalid port"},
		{"empty db path", func(c *Config) { c.SQLiteDBPath = "" }, "database path"},
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET is required"},
		{"short jwt secret", func(c *Config) { c.JWTSecret = "short" }, "at least 16 characters"},
		{"tiny token ttl", func(c *Config) { c.TokenTTL = time.Second }, "token TTL"},
		{"bad amqp scheme", func(c *Config) { c.AMQPURL = "http://localhost" }, "AMQP URL scheme"},
		{"amqp without queue", func(c *Config) { c.AMQPURL = "amqp://localhost"; c.AMQPQueue = "" }, "queue name"},
		{"spreadsheet without sheet name", func(c *Config) { c.GoogleSpreadsheetID = "abc"; c.GoogleSheetName = "" }, "sheet name"},
		{"tiny recurring interval", func(c *Config) { c.RecurringInterval = time.Second }, "recurring interval"},
		{"projection months out of range", func(c *Config) { c.ProjectionMonths = 0 }, "projection months"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "TOKEN_TTL", "AMQP_EXCHANGE", "PROJECTION_MONTHS"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("default port = %s, want 8080", cfg.Port)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("default token TTL = %v, want 24h", cfg.TokenTTL)
	}
	if cfg.AMQPExchange != "lavanderia" {
		t.Errorf("default exchange = %s", cfg.AMQPExchange)
	}
	if cfg.ProjectionMonths != 3 {
		t.Errorf("default projection months = %d, want 3", cfg.ProjectionMonths)
	}
}
