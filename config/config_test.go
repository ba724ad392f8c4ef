package config_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/leftra123/remupro-v3/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("log = %s/%s, want info/json", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Store.Path == "" {
		t.Error("store.path default missing")
	}

	th := cfg.Thresholds.Thresholds()
	if !th.MaxWeeklyHours.Equal(decimal.NewFromInt(44)) {
		t.Errorf("max weekly hours = %s, want 44", th.MaxWeeklyHours)
	}
	if !th.SponsorSharePct.Equal(decimal.NewFromInt(60)) {
		t.Errorf("sponsor share = %s, want 60", th.SponsorSharePct)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("REMUPRO_SERVER_PORT", "9999")
	t.Setenv("REMUPRO_LOG_LEVEL", "debug")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want env override 9999", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %s, want debug", cfg.Log.Level)
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := config.NewLogger(config.LogConfig{Level: "info", Format: "console"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if logger == nil {
		t.Fatal("nil logger")
	}

	if _, err := config.NewLogger(config.LogConfig{Level: "nope"}); err == nil {
		t.Error("NewLogger accepted an invalid level")
	}
}
