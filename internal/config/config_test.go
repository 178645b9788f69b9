// internal/config/config_test.go

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Expected port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Engine.Resolution != 9 || cfg.Engine.DefaultHops != 3 || cfg.Engine.MaxHops != 50 {
		t.Errorf("Unexpected engine defaults: %+v", cfg.Engine)
	}
	if cfg.Geocoder.MinInterval != time.Second {
		t.Errorf("Expected 1s geocoder interval, got %v", cfg.Geocoder.MinInterval)
	}
	if !cfg.Engine.DefaultMapStart.Equal(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected map start %v", cfg.Engine.DefaultMapStart)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("ENGINE_MAX_HOPS", "20")
	t.Setenv("ENGINE_DEFAULT_START_DATE", "2023-06-01")
	t.Setenv("SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DB_URL", "postgres://u:p@db:5432/crime")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:8081" {
		t.Errorf("Unexpected addr %q", cfg.Server.Addr())
	}
	if cfg.Engine.MaxHops != 20 {
		t.Errorf("Expected max hops 20, got %d", cfg.Engine.MaxHops)
	}
	if cfg.Engine.DefaultStartDate.Format("2006-01-02") != "2023-06-01" {
		t.Errorf("Unexpected start date %v", cfg.Engine.DefaultStartDate)
	}
	if len(cfg.Server.CorsOrigins) != 2 || cfg.Server.CorsOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected origins %v", cfg.Server.CorsOrigins)
	}
	if cfg.Database.ConnString() != "postgres://u:p@db:5432/crime" {
		t.Errorf("Unexpected conn string %q", cfg.Database.ConnString())
	}
}

func TestValidateRejectsBadHops(t *testing.T) {
	t.Setenv("ENGINE_DEFAULT_HOPS", "10")
	t.Setenv("ENGINE_MAX_HOPS", "5")

	if _, err := Load(); err == nil {
		t.Error("Expected error for default hops above max")
	}
}

func TestDatabaseConnStringFromParts(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 1, Database: "d", SSLMode: "require"}

	if got := c.ConnString(); got != "postgres://u:p@h:1/d?sslmode=require" {
		t.Errorf("Unexpected conn string %q", got)
	}
}
