package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Server.GuestIdleTTL)
	assert.Equal(t, "17:00", cfg.Reservations.Opening)
	assert.Equal(t, "22:00", cfg.Reservations.Closing)
	assert.Equal(t, 30*time.Minute, cfg.Reservations.Interval)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8181
reservations:
  opening: "18:00"
  closing: "21:00"
  interval: 15m
llm:
  provider: ollama
  model: llama3
chat:
  dedupe_cards: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Reservations.Interval)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.True(t, cfg.Chat.DedupeCards)
	// untouched keys keep their defaults
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestLoad_EnvSecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TAVERNA_JWT_SECRET", "s3cret")

	cfg, err := Load(writeConfig(t, "llm:\n  provider: openai\n"))
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [oops"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"metrics clash", func(c *Config) { c.Metrics.Port = c.Server.Port }},
		{"bad driver", func(c *Config) { c.Database.Driver = "mongo" }},
		{"bad opening", func(c *Config) { c.Reservations.Opening = "5pm" }},
		{"closing before opening", func(c *Config) { c.Reservations.Closing = "16:00" }},
		{"tiny interval", func(c *Config) { c.Reservations.Interval = time.Second }},
		{"bad provider", func(c *Config) { c.LLM.Provider = "clippy" }},
		{"no history", func(c *Config) { c.Chat.MaxHistory = 0 }},
		{"negative idle ttl", func(c *Config) { c.Server.GuestIdleTTL = -time.Minute }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}
