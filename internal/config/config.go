// Package config loads and validates portarc configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Refresh modes accepted for a target. Anything else is coerced to
// RefreshNone with a warning.
const (
	RefreshPull       = "pull"
	RefreshPagination = "pagination"
	RefreshNone       = "none"
)

// Config captures all configuration loaded for one invocation.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Browser BrowserConfig `mapstructure:"browser"`
	Targets []Target      `mapstructure:"targets"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// BrowserConfig configures the shared headless browser.
type BrowserConfig struct {
	UserAgent string `mapstructure:"user_agent"`
	Headless  bool   `mapstructure:"headless"`
}

// Target describes one portal crawl. Each target runs independently;
// a bad target is skipped without aborting the others.
type Target struct {
	StartURL     string   `mapstructure:"start_url"`
	OutputDir    string   `mapstructure:"output_dir"`
	HistoryPath  string   `mapstructure:"history_path"`
	Concurrency  int      `mapstructure:"concurrency"`
	MaxDepth     int      `mapstructure:"max_depth"`
	TimeoutMs    int      `mapstructure:"timeout"`
	DelaySeconds float64  `mapstructure:"delay"`
	Prefixes     []string `mapstructure:"prefixes"`
	RefreshMode  string   `mapstructure:"refresh_mode"`
	ObeyRobots   bool     `mapstructure:"obey_robot"`
	NoNewLimit   int      `mapstructure:"no_new_limit"`
	DealCookie   bool     `mapstructure:"deal_cookie"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PORTARC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("browser.user_agent", "portarc/1.0 (+https://github.com/cwhall/portarc)")
	v.SetDefault("browser.headless", true)
}

// Validate enforces invocation-level requirements. Per-target problems
// are reported by Target.Validate so one target cannot sink the rest.
func (c Config) Validate() error {
	if len(c.Targets) == 0 {
		return fmt.Errorf("config must declare at least one target")
	}
	if c.Browser.UserAgent == "" {
		return fmt.Errorf("browser.user_agent must be set")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr must be set when metrics are enabled")
	}
	return nil
}

// Validate reports fatal problems with a single target.
func (t Target) Validate() error {
	if strings.TrimSpace(t.StartURL) == "" {
		return fmt.Errorf("target start_url is required")
	}
	return nil
}

// Normalize clamps numeric knobs to their floors and coerces unknown
// refresh modes to "none", logging a warning for anything it changed.
func (t Target) Normalize(logger *zap.Logger) Target {
	if t.Concurrency < 1 {
		t.Concurrency = 1
	}
	if t.MaxDepth < 1 {
		t.MaxDepth = 1
	}
	if t.TimeoutMs < 1000 {
		t.TimeoutMs = 1000
	}
	if t.DelaySeconds < 0 {
		t.DelaySeconds = 0
	}
	if t.NoNewLimit < 1 {
		t.NoNewLimit = 1
	}
	if t.OutputDir == "" {
		t.OutputDir = "archive"
	}
	if t.HistoryPath == "" {
		t.HistoryPath = "history.json"
	}
	mode := strings.ToLower(strings.TrimSpace(t.RefreshMode))
	switch mode {
	case RefreshPull, RefreshPagination, RefreshNone:
	case "":
		mode = RefreshNone
	default:
		logger.Warn("Unknown refresh_mode; treating as none",
			zap.String("refresh_mode", t.RefreshMode),
			zap.String("start_url", t.StartURL),
		)
		mode = RefreshNone
	}
	t.RefreshMode = mode
	return t
}

// Timeout returns the per-operation timeout as a duration.
func (t Target) Timeout() time.Duration {
	return time.Duration(t.TimeoutMs) * time.Millisecond
}

// Delay returns the per-domain politeness delay as a duration.
func (t Target) Delay() time.Duration {
	return time.Duration(t.DelaySeconds * float64(time.Second))
}
