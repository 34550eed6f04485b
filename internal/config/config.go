package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database Database `yaml:"database"`
	Redis    Redis    `yaml:"redis"`
	Log      Log      `yaml:"log"`
	Timezone string   `yaml:"timezone"`
	Tx       Tx       `yaml:"tx"`
	// BadgeCatalog is a YAML catalog path. Empty means the catalog stored
	// in the database, falling back to the built-in set.
	BadgeCatalog string  `yaml:"badge_catalog"`
	Rules        Rules   `yaml:"rules"`
	Tracing      Tracing `yaml:"tracing"`
}

type Database struct {
	Driver string `yaml:"driver"` // sqlite | postgres
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type Redis struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

type Log struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
	Salt  string `yaml:"hash_salt"`
}

type Tx struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// Tracing configures OpenTelemetry export. With no endpoint, spans go to
// stderr.
type Tracing struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Rules are the progression constants.
type Rules struct {
	XPPerCompletion  int    `yaml:"xp_per_completion"`
	PointsPerLevel   int    `yaml:"points_per_level"`
	MaxHearts        int    `yaml:"max_hearts"`
	StreakFreezeItem string `yaml:"streak_freeze_item"`
	DefaultBadgeXP   int    `yaml:"default_badge_xp"`
	LeaderboardSize  int    `yaml:"leaderboard_size"`
}

func DefaultRules() Rules {
	return Rules{
		XPPerCompletion:  10,
		PointsPerLevel:   100,
		MaxHearts:        3,
		StreakFreezeItem: "streak_freeze_1",
		DefaultBadgeXP:   50,
		LeaderboardSize:  50,
	}
}

// DefaultPath returns $HOME/.habitforge.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".habitforge.yaml"), nil
}

// Load reads the YAML file at path, fills defaults and applies HF_*
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "habitforge.events"
	}
	if c.Log.Mode == "" {
		c.Log.Mode = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Tx.MaxAttempts <= 0 {
		c.Tx.MaxAttempts = 5
	}
	if c.Tx.InitialInterval <= 0 {
		c.Tx.InitialInterval = 5 * time.Millisecond
	}
	if c.Tx.MaxInterval <= 0 {
		c.Tx.MaxInterval = 250 * time.Millisecond
	}
	if c.Tracing.SampleRatio <= 0 || c.Tracing.SampleRatio > 1 {
		c.Tracing.SampleRatio = 1
	}

	d := DefaultRules()
	if c.Rules.XPPerCompletion <= 0 {
		c.Rules.XPPerCompletion = d.XPPerCompletion
	}
	if c.Rules.PointsPerLevel <= 0 {
		c.Rules.PointsPerLevel = d.PointsPerLevel
	}
	if c.Rules.MaxHearts <= 0 {
		c.Rules.MaxHearts = d.MaxHearts
	}
	if c.Rules.StreakFreezeItem == "" {
		c.Rules.StreakFreezeItem = d.StreakFreezeItem
	}
	if c.Rules.DefaultBadgeXP < 0 {
		c.Rules.DefaultBadgeXP = 0
	} else if c.Rules.DefaultBadgeXP == 0 {
		c.Rules.DefaultBadgeXP = d.DefaultBadgeXP
	}
	if c.Rules.LeaderboardSize <= 0 {
		c.Rules.LeaderboardSize = d.LeaderboardSize
	}
}

func (c *Config) ApplyEnv() {
	if v := getEnv("HF_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := getEnv("HF_DB_DRIVER"); v != "" {
		c.Database.Driver = strings.ToLower(v)
	}
	if v := getEnv("HF_PG_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := getEnv("HF_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getEnv("HF_REDIS_CHANNEL"); v != "" {
		c.Redis.Channel = v
	}
	if v := getEnv("HF_LOG_MODE"); v != "" {
		c.Log.Mode = v
	}
	if v := getEnv("HF_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getEnv("HF_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := getEnvInt("HF_TX_MAX_ATTEMPTS"); v > 0 {
		c.Tx.MaxAttempts = v
	}
	if v := getEnv("HF_BADGE_CATALOG"); v != "" {
		c.BadgeCatalog = v
	}
	if v := getEnv("HF_OTEL_ENABLED"); v != "" {
		c.Tracing.Enabled = isTruthy(v)
	}
	if v := getEnv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Tracing.Endpoint = v
	}
	if v := getEnv("OTEL_EXPORTER_OTLP_INSECURE"); v != "" {
		c.Tracing.Insecure = isTruthy(v)
	}
	if v := getEnv("OTEL_SAMPLER_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Tracing.SampleRatio = f
		}
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database driver postgres requires a dsn")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone; empty means the process local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func getEnvInt(key string) int {
	val := getEnv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return num
}
