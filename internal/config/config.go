// Package config loads the server settings from the environment.
//
// Values come from, in order of precedence:
//
//  1. process environment variables
//  2. a .env file in the working directory (optional)
//  3. the defaults below
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port          int    `mapstructure:"PORT"`
	DBPath        string `mapstructure:"DB_PATH"`
	ImageDir      string `mapstructure:"IMAGE_DIR"`
	MaxImageBytes int64  `mapstructure:"MAX_IMAGE_BYTES"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// RedisAddr empty disables login rate limiting.
	RedisAddr        string        `mapstructure:"REDIS_ADDR"`
	RedisPassword    string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB          int           `mapstructure:"REDIS_DB"`
	LoginMaxAttempts int           `mapstructure:"LOGIN_MAX_ATTEMPTS"`
	LoginWindow      time.Duration `mapstructure:"LOGIN_WINDOW"`

	BcryptCost int `mapstructure:"BCRYPT_COST"`
}

var defaults = map[string]any{
	"PORT":               4941,
	"DB_PATH":            "data/marketplace.db",
	"IMAGE_DIR":          "storage/images",
	"MAX_IMAGE_BYTES":    20 << 20,
	"LOG_LEVEL":          "info",
	"LOG_FORMAT":         "text",
	"REDIS_ADDR":         "",
	"REDIS_PASSWORD":     "",
	"REDIS_DB":           0,
	"LOGIN_MAX_ATTEMPTS": 5,
	"LOGIN_WINDOW":       "15m",
	"BCRYPT_COST":        12,
}

// Load reads envFile (skipped when it does not exist) and the
// environment into a validated Config.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: reading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server can not start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	if c.ImageDir == "" {
		errs = append(errs, errors.New("IMAGE_DIR must not be empty"))
	}
	if c.MaxImageBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_IMAGE_BYTES must be positive, got %d", c.MaxImageBytes))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	if c.LoginMaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("LOGIN_MAX_ATTEMPTS must not be negative, got %d", c.LoginMaxAttempts))
	}
	if c.LoginWindow <= 0 {
		errs = append(errs, fmt.Errorf("LOGIN_WINDOW must be positive, got %s", c.LoginWindow))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Level parses LOG_LEVEL (debug, info, warn, error).
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
