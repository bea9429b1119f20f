// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values come from an
// optional yaml file, overridden by environment variables.
type Config struct {
	Port        string `yaml:"port"`
	FrontendURL string `yaml:"frontend_url"`
	DBPath      string `yaml:"db_path"`
	LogLevel    string `yaml:"log_level"`

	Limits    LimitsConfig    `yaml:"limits"`
	Window    WindowConfig    `yaml:"window"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Driver    DriverConfig    `yaml:"driver"`
}

// LimitsConfig is the per-day action quotas.
type LimitsConfig struct {
	MaxMessagesPerDay    int `yaml:"max_messages_per_day"`
	MaxConnectionsPerDay int `yaml:"max_connections_per_day"`
	MaxProspectsPerDay   int `yaml:"max_prospects_per_day"`
}

// WindowConfig is the allowed local time-of-day range for outreach
// actions, evaluated in Timezone.
type WindowConfig struct {
	StartHour int    `yaml:"start_hour"`
	EndHour   int    `yaml:"end_hour"`
	Timezone  string `yaml:"timezone"`
}

// SchedulerConfig paces the two schedulers.
type SchedulerConfig struct {
	PassInterval  time.Duration `yaml:"pass_interval"`
	MinDelay      time.Duration `yaml:"min_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	DriverTimeout time.Duration `yaml:"driver_timeout"`
	MaxRetries    int           `yaml:"max_retries"`
}

// DriverConfig selects and tunes the platform driver.
type DriverConfig struct {
	// Mode is "simulator" or "browser".
	Mode       string `yaml:"mode"`
	ControlURL string `yaml:"control_url"`
	Headless   bool   `yaml:"headless"`
}

// Load reads configuration from an optional yaml file at path, then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func defaults() Config {
	return Config{
		Port:     "8080",
		DBPath:   "./data/outreach.db",
		LogLevel: "info",
		Limits: LimitsConfig{
			MaxMessagesPerDay:    50,
			MaxConnectionsPerDay: 20,
			MaxProspectsPerDay:   200,
		},
		Window: WindowConfig{
			StartHour: 9,
			EndHour:   18,
			Timezone:  "UTC",
		},
		Scheduler: SchedulerConfig{
			PassInterval:  time.Minute,
			MinDelay:      20 * time.Second,
			MaxDelay:      90 * time.Second,
			DriverTimeout: 60 * time.Second,
			MaxRetries:    3,
		},
		Driver: DriverConfig{
			Mode:     "simulator",
			Headless: true,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.FrontendURL = getEnv("FRONTEND_URL", cfg.FrontendURL)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.Limits.MaxMessagesPerDay = getEnvInt("MAX_MESSAGES_PER_DAY", cfg.Limits.MaxMessagesPerDay)
	cfg.Limits.MaxConnectionsPerDay = getEnvInt("MAX_CONNECTIONS_PER_DAY", cfg.Limits.MaxConnectionsPerDay)
	cfg.Limits.MaxProspectsPerDay = getEnvInt("MAX_PROSPECTS_PER_DAY", cfg.Limits.MaxProspectsPerDay)

	cfg.Window.StartHour = getEnvInt("WINDOW_START_HOUR", cfg.Window.StartHour)
	cfg.Window.EndHour = getEnvInt("WINDOW_END_HOUR", cfg.Window.EndHour)
	cfg.Window.Timezone = getEnv("WINDOW_TIMEZONE", cfg.Window.Timezone)

	cfg.Driver.Mode = getEnv("DRIVER_MODE", cfg.Driver.Mode)
	cfg.Driver.ControlURL = getEnv("DRIVER_CONTROL_URL", cfg.Driver.ControlURL)
	cfg.Driver.Headless = getEnvBool("DRIVER_HEADLESS", cfg.Driver.Headless)
}

// Validate checks that all required configuration fields are coherent.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path cannot be empty")
	}
	if c.Limits.MaxMessagesPerDay <= 0 {
		return fmt.Errorf("limits.max_messages_per_day must be > 0")
	}
	if c.Limits.MaxConnectionsPerDay <= 0 {
		return fmt.Errorf("limits.max_connections_per_day must be > 0")
	}
	if c.Limits.MaxProspectsPerDay <= 0 {
		return fmt.Errorf("limits.max_prospects_per_day must be > 0")
	}
	if c.Window.StartHour < 0 || c.Window.StartHour > 23 {
		return fmt.Errorf("window.start_hour must be within 0-23")
	}
	if c.Window.EndHour < 1 || c.Window.EndHour > 24 {
		return fmt.Errorf("window.end_hour must be within 1-24")
	}
	if c.Window.StartHour >= c.Window.EndHour {
		return fmt.Errorf("window.start_hour must be before window.end_hour")
	}
	if _, err := time.LoadLocation(c.Window.Timezone); err != nil {
		return fmt.Errorf("window.timezone: %w", err)
	}
	if c.Scheduler.PassInterval <= 0 {
		return fmt.Errorf("scheduler.pass_interval must be > 0")
	}
	if c.Scheduler.MinDelay <= 0 || c.Scheduler.MaxDelay < c.Scheduler.MinDelay {
		return fmt.Errorf("scheduler delays must satisfy 0 < min_delay <= max_delay")
	}
	if c.Scheduler.MaxRetries <= 0 {
		return fmt.Errorf("scheduler.max_retries must be > 0")
	}
	if c.Driver.Mode != "simulator" && c.Driver.Mode != "browser" {
		return fmt.Errorf("driver.mode must be \"simulator\" or \"browser\", got %q", c.Driver.Mode)
	}
	return nil
}

// Location resolves the configured timezone. Validate has already
// checked it parses.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Window.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
