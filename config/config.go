// Package config loads the application configuration from file and
// environment, and builds the zap logger.
//
// Sources, later wins: defaults, ./config.yaml, REMUPRO_* environment
// variables (dots become underscores, e.g. REMUPRO_SERVER_PORT).
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/leftra123/remupro-v3/brp"
)

// Config holds the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Schools    SchoolsConfig    `yaml:"schools" mapstructure:"schools"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Thresholds ThresholdsConfig `yaml:"thresholds" mapstructure:"thresholds"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// StoreConfig configures the history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SchoolsConfig points at the school directory file.
type SchoolsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ThresholdsConfig overrides the distribution thresholds. Values are
// plain numbers in the file; conversion to decimals happens in
// Thresholds().
type ThresholdsConfig struct {
	MaxWeeklyHours  float64 `yaml:"max_weekly_hours" mapstructure:"max_weekly_hours"`
	HoursTolerance  float64 `yaml:"hours_tolerance" mapstructure:"hours_tolerance"`
	DivergencePct   float64 `yaml:"divergence_pct" mapstructure:"divergence_pct"`
	MonthDeltaPct   float64 `yaml:"month_delta_pct" mapstructure:"month_delta_pct"`
	SponsorSharePct float64 `yaml:"sponsor_share_pct" mapstructure:"sponsor_share_pct"`
}

// Thresholds converts the configured values to the engine's thresholds.
func (t ThresholdsConfig) Thresholds() brp.Thresholds {
	return brp.Thresholds{
		MaxWeeklyHours:  decimal.NewFromFloat(t.MaxWeeklyHours),
		HoursTolerance:  decimal.NewFromFloat(t.HoursTolerance),
		DivergencePct:   decimal.NewFromFloat(t.DivergencePct),
		MonthDeltaPct:   decimal.NewFromFloat(t.MonthDeltaPct),
		SponsorSharePct: decimal.NewFromFloat(t.SponsorSharePct),
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REMUPRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults match the statutory and office-practice values
	v.SetDefault("server.port", 8080)
	v.SetDefault("store.path", "./data/remupro.db")
	v.SetDefault("schools.path", "./data/escuelas.json")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("thresholds.max_weekly_hours", 44)
	v.SetDefault("thresholds.hours_tolerance", 1)
	v.SetDefault("thresholds.divergence_pct", 15)
	v.SetDefault("thresholds.month_delta_pct", 10)
	v.SetDefault("thresholds.sponsor_share_pct", 60)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// NewLogger builds a zap logger from the log settings.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}
	return logger, nil
}
