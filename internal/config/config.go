// Package config loads the server configuration from a YAML file with
// environment overrides for secrets.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	LogLevel     string             `yaml:"log_level"`
	Server       ServerConfig       `yaml:"server"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Database     DatabaseConfig     `yaml:"database"`
	Menu         MenuConfig         `yaml:"menu"`
	Reservations ReservationsConfig `yaml:"reservations"`
	Booking      BookingConfig      `yaml:"booking"`
	Chat         ChatConfig         `yaml:"chat"`
	LLM          LLMConfig          `yaml:"llm"`
	Auth         AuthConfig         `yaml:"auth"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"`
	// GuestIdleTTL drops a guest's cached cart, chat and reservation state
	// after this long without requests; zero keeps it for the process lifetime.
	GuestIdleTTL time.Duration `yaml:"guest_idle_ttl"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type MenuConfig struct {
	// File points to a YAML menu; empty means the built-in menu.
	File string `yaml:"file"`
}

// ReservationsConfig describes the base slot grid
type ReservationsConfig struct {
	Opening  string        `yaml:"opening"`
	Closing  string        `yaml:"closing"`
	Interval time.Duration `yaml:"interval"`
}

type BookingConfig struct {
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type ChatConfig struct {
	MaxHistory    int  `yaml:"max_history"`
	PromptHistory int  `yaml:"prompt_history"`
	DedupeCards   bool `yaml:"dedupe_cards"`
}

type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	Azure       AzureConfig   `yaml:"azure"`
}

type AzureConfig struct {
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
	APIKey     string `yaml:"api_key"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Port: 8080,
			Mode:         "release",
			GuestIdleTTL: time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Database: DatabaseConfig{
			Driver:          "sqlite3",
			DSN:             "taverna.db",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Reservations: ReservationsConfig{
			Opening:  "17:00",
			Closing:  "22:00",
			Interval: 30 * time.Minute,
		},
		Booking: BookingConfig{
			SessionTTL: 30 * time.Minute,
		},
		Chat: ChatConfig{
			MaxHistory:    50,
			PromptHistory: 10,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   600,
			Timeout:     30 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL: 30 * 24 * time.Hour,
		},
	}
}

// Load reads the YAML file at path on top of the defaults. A missing file is
// not an error. Secrets are taken from the environment when set.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("config: %s not found, using defaults", path)
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Database.DSN, "DATABASE_URL")
	setString(&c.Auth.JWTSecret, "TAVERNA_JWT_SECRET")
	setString(&c.LLM.Azure.Endpoint, "AZURE_OPENAI_ENDPOINT")
	setString(&c.LLM.Azure.APIKey, "AZURE_OPENAI_API_KEY")
	setString(&c.LLM.Azure.Deployment, "AZURE_OPENAI_DEPLOYMENT_NAME")

	if v := os.Getenv("TAVERNA_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}

	if c.LLM.APIKey != "" {
		return
	}
	switch c.LLM.Provider {
	case "openai":
		setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	case "github_models":
		setString(&c.LLM.APIKey, "GITHUB_TOKEN")
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// Validate checks the settings that would otherwise fail late
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Metrics.Enabled && c.Metrics.Port == c.Server.Port {
		return fmt.Errorf("metrics port must differ from server port")
	}
	switch c.Database.Driver {
	case "sqlite3", "postgres", "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	opening, err := time.Parse("15:04", c.Reservations.Opening)
	if err != nil {
		return fmt.Errorf("invalid reservations.opening %q", c.Reservations.Opening)
	}
	closing, err := time.Parse("15:04", c.Reservations.Closing)
	if err != nil {
		return fmt.Errorf("invalid reservations.closing %q", c.Reservations.Closing)
	}
	if !closing.After(opening) {
		return fmt.Errorf("reservations.closing must be after reservations.opening")
	}
	if c.Reservations.Interval < time.Minute {
		return fmt.Errorf("reservations.interval must be at least one minute")
	}

	switch c.LLM.Provider {
	case "none", "openai", "github_models", "ollama", "azure_openai":
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
	}

	if c.Server.GuestIdleTTL < 0 {
		return fmt.Errorf("server.guest_idle_ttl must not be negative")
	}
	if c.Chat.MaxHistory <= 0 {
		return fmt.Errorf("chat.max_history must be positive")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	return nil
}
