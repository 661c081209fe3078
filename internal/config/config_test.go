package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4941, cfg.Port)
	assert.Equal(t, "data/marketplace.db", cfg.DBPath)
	assert.Equal(t, int64(20<<20), cfg.MaxImageBytes)
	assert.Equal(t, 15*time.Minute, cfg.LoginWindow)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("LOGIN_WINDOW", "90s")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.LoginWindow)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("IMAGE_DIR=/tmp/from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("IMAGE_DIR") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-dotenv", cfg.ImageDir)
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:          4941,
			DBPath:        "x.db",
			ImageDir:      "img",
			MaxImageBytes: 1,
			LogLevel:      "info",
			LogFormat:     "text",
			LoginWindow:   time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"port zero", func(c *Config) { c.Port = 0 }, true},
		{"empty db path", func(c *Config) { c.DBPath = "" }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }, true},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"zero image limit", func(c *Config) { c.MaxImageBytes = 0 }, true},
		{"zero login window", func(c *Config) { c.LoginWindow = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	cfg := Config{LogLevel: "debug"}
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}
