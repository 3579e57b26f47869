// Package config loads server configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	DB      DatabaseConfig
	Payroll PayrollConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

type DatabaseConfig struct {
	Path string
}

// PayrollConfig holds batch and closing settings.
type PayrollConfig struct {
	Workers         int
	CloseDay        int
	ClosingEnabled  bool
	ClosingInterval time.Duration
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (*Config, error) {
	config := &Config{}

	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}
	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	config.DB = DatabaseConfig{
		Path: getEnv("DB_PATH", "payroll.db"),
	}

	workers, err := strconv.Atoi(getEnv("PAYROLL_WORKERS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_WORKERS: %w", err)
	}
	closeDay, err := strconv.Atoi(getEnv("PAYROLL_CLOSE_DAY", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_CLOSE_DAY: %w", err)
	}
	enabled, err := strconv.ParseBool(getEnv("PAYROLL_CLOSING_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_CLOSING_ENABLED: %w", err)
	}
	interval, err := time.ParseDuration(getEnv("PAYROLL_CLOSING_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_CLOSING_INTERVAL: %w", err)
	}
	config.Payroll = PayrollConfig{
		Workers:         workers,
		CloseDay:        closeDay,
		ClosingEnabled:  enabled,
		ClosingInterval: interval,
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("APP_PORT must be between 1 and 65535, got %d", c.App.Port)
	}
	if c.DB.Path == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.Payroll.Workers < 1 {
		return fmt.Errorf("PAYROLL_WORKERS must be positive, got %d", c.Payroll.Workers)
	}
	// 28 keeps the close day valid in every month.
	if c.Payroll.CloseDay < 1 || c.Payroll.CloseDay > 28 {
		return fmt.Errorf("PAYROLL_CLOSE_DAY must be between 1 and 28, got %d", c.Payroll.CloseDay)
	}
	if c.Payroll.ClosingInterval <= 0 {
		return fmt.Errorf("PAYROLL_CLOSING_INTERVAL must be positive, got %s", c.Payroll.ClosingInterval)
	}
	if _, err := ParseLevel(c.App.LogLevel); err != nil {
		return err
	}
	return nil
}

// IsDevelopment reports whether APP_ENV is development.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// ParseLevel maps LOG_LEVEL to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL: %q", s)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
